package harvest

// Result is the document produced by one harvest. Every collection is non-nil
// so that it encodes as a JSON array.
type Result struct {
	Users         []Entity     `json:"users"`
	Roles         []Entity     `json:"roles"`
	Groups        []Entity     `json:"groups"`
	Organizations []Entity     `json:"organizations"`
	Memberships   []Membership `json:"memberships"`
}

// NewResult assembles a Result, replacing nil collections with empty ones.
func NewResult(users, roles, groups, organizations []Entity, memberships []Membership) *Result {
	return &Result{
		Users:         nonNil(users),
		Roles:         nonNil(roles),
		Groups:        nonNil(groups),
		Organizations: nonNil(organizations),
		Memberships:   nonNil(memberships),
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
