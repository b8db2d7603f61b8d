package harvest

import (
	"context"

	"github.com/hashicorp/terraform-plugin-log/tflog"
)

// Membership links a member identifier to a role and, when a group lists the
// same identifier, to that group.
type Membership struct {
	MemberUID      string `json:"memberUid"`
	RoleCN         string `json:"role_cn"`
	OrganizationDN string `json:"organization_dn"`
	GroupCN        string `json:"group_cn,omitempty"`
}

// Reconciler builds the membership collection from normalized roles and groups.
type Reconciler struct {
	malformed MalformedRecordPolicy
}

// NewReconciler creates a Reconciler.
func NewReconciler(malformed MalformedRecordPolicy) *Reconciler {
	return &Reconciler{malformed: malformed}
}

// Reconcile emits one membership per (memberUid, role) in role order, then
// attaches group_cn from every group listing the member. When several groups
// list the same member, the last one wins.
func (r *Reconciler) Reconcile(ctx context.Context, roles, groups []Entity, organizationDN string) ([]Membership, error) {
	memberships := []Membership{}
	byMember := make(map[string][]int)

	for _, role := range roles {
		members, ok := role.List(AttrMemberUID)
		if !ok {
			continue
		}

		cn, ok, err := r.requireCN(ctx, role)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}

		for _, uid := range members {
			byMember[uid] = append(byMember[uid], len(memberships))
			memberships = append(memberships, Membership{
				MemberUID:      uid,
				RoleCN:         cn,
				OrganizationDN: organizationDN,
			})
		}
	}

	for _, group := range groups {
		members, ok := group.List(AttrMemberUID)
		if !ok {
			continue
		}

		cn, ok, err := r.requireCN(ctx, group)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}

		for _, uid := range members {
			for _, i := range byMember[uid] {
				memberships[i].GroupCN = cn
			}
		}
	}

	tflog.SubsystemDebug(ctx, subsystem, "Reconciled memberships", map[string]any{
		"roles":       len(roles),
		"groups":      len(groups),
		"memberships": len(memberships),
	})

	return memberships, nil
}

// requireCN returns the cn of entity. A missing cn is an error under
// MalformedAbort. Under MalformedSkip it is logged and reported as absent.
func (r *Reconciler) requireCN(ctx context.Context, entity Entity) (string, bool, error) {
	if cn, ok := entity.First(AttrCN); ok {
		return cn, true, nil
	}

	err := &MissingAttributeError{Entity: entity.DN, EntityKind: entity.Kind, Attribute: AttrCN}
	if r.malformed != MalformedSkip {
		return "", false, err
	}

	tflog.SubsystemWarn(ctx, subsystem, "Ignoring members of entry without cn", map[string]any{
		"dn":   entity.DN,
		"kind": string(entity.Kind),
	})
	return "", false, nil
}
