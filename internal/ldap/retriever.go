package ldap

import (
	"context"
	"time"

	"github.com/go-ldap/ldap/v3"
	"github.com/hashicorp/terraform-plugin-log/tflog"
	"golang.org/x/sync/errgroup"
)

// Stage names one of the four harvest searches.
type Stage string

const (
	StageUsers         Stage = "users"
	StageRoles         Stage = "roles"
	StageGroups        Stage = "groups"
	StageOrganizations Stage = "organizations"
)

// Stages lists the searches in the order they are issued.
var Stages = []Stage{StageUsers, StageRoles, StageGroups, StageOrganizations}

// RawCollections holds the records returned by each search, in server order.
type RawCollections struct {
	Users         []Record
	Roles         []Record
	Groups        []Record
	Organizations []Record
}

// Collection returns the records retrieved for stage.
func (c *RawCollections) Collection(stage Stage) []Record {
	switch stage {
	case StageUsers:
		return c.Users
	case StageRoles:
		return c.Roles
	case StageGroups:
		return c.Groups
	case StageOrganizations:
		return c.Organizations
	default:
		return nil
	}
}

func (c *RawCollections) set(stage Stage, records []Record) {
	switch stage {
	case StageUsers:
		c.Users = records
	case StageRoles:
		c.Roles = records
	case StageGroups:
		c.Groups = records
	case StageOrganizations:
		c.Organizations = records
	}
}

// Retriever issues the four collection searches against one session.
type Retriever struct {
	parallel bool
}

// NewRetriever creates a Retriever. With parallel set, the searches run concurrently.
func NewRetriever(parallel bool) *Retriever {
	return &Retriever{parallel: parallel}
}

// SearchFor builds the search request of stage below organizationDN.
func SearchFor(stage Stage, organizationDN string) *SearchRequest {
	req := &SearchRequest{
		Scope:        ScopeWholeSubtree,
		Filter:       AllObjects.String(),
		DerefAliases: NeverDerefAliases,
	}

	switch stage {
	case StageUsers:
		req.BaseDN = ChildDN("ou", UsersOU, organizationDN)
	case StageRoles:
		req.BaseDN = ChildDN("ou", RolesOU, organizationDN)
	case StageGroups:
		req.BaseDN = ChildDN("ou", GroupsOU, organizationDN)
	case StageOrganizations:
		req.BaseDN = organizationDN
		req.Filter = AllOrganizations.String()
	}

	return req
}

// Retrieve runs the users, roles, groups and organizations searches and then
// releases the session. The session is released on every return path. The first
// failing search aborts the retrieval with a *RetrievalFailedError.
func (r *Retriever) Retrieve(ctx context.Context, session Session, organizationDN string) (*RawCollections, error) {
	defer func() {
		if err := session.Release(); err != nil {
			tflog.SubsystemWarn(ctx, subsystem, "Failed to release directory session", map[string]any{
				"error": err.Error(),
			})
			return
		}
		LogConnectionEvent(ctx, "session_released", nil)
	}()

	start := time.Now()
	collections := &RawCollections{}

	var err error
	if r.parallel {
		err = r.retrieveParallel(ctx, session, organizationDN, collections)
	} else {
		err = r.retrieveSequential(ctx, session, organizationDN, collections)
	}
	if err != nil {
		return nil, err
	}

	tflog.SubsystemInfo(ctx, subsystem, "Directory collections retrieved", map[string]any{
		"users":         len(collections.Users),
		"roles":         len(collections.Roles),
		"groups":        len(collections.Groups),
		"organizations": len(collections.Organizations),
		"parallel":      r.parallel,
		"duration_ms":   time.Since(start).Milliseconds(),
	})

	return collections, nil
}

func (r *Retriever) retrieveSequential(ctx context.Context, session Session, organizationDN string, out *RawCollections) error {
	for _, stage := range Stages {
		records, err := searchStage(ctx, session, stage, organizationDN)
		if err != nil {
			return err
		}
		out.set(stage, records)
	}
	return nil
}

func (r *Retriever) retrieveParallel(ctx context.Context, session Session, organizationDN string, out *RawCollections) error {
	results := make([][]Record, len(Stages))

	g, gctx := errgroup.WithContext(ctx)
	for i, stage := range Stages {
		g.Go(func() error {
			records, err := searchStage(gctx, session, stage, organizationDN)
			if err != nil {
				return err
			}
			results[i] = records
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	for i, stage := range Stages {
		out.set(stage, results[i])
	}
	return nil
}

func searchStage(ctx context.Context, session Session, stage Stage, organizationDN string) ([]Record, error) {
	req := SearchFor(stage, organizationDN)

	var records []Record
	err := LogOperation(ctx, subsystem, "search_"+string(stage), map[string]any{
		"stage":   string(stage),
		"base_dn": req.BaseDN,
		"filter":  req.Filter,
	}, func() error {
		var err error
		records, err = session.Search(ctx, req)
		return err
	})
	if err != nil {
		if ldap.IsErrorWithCode(err, ldap.LDAPResultNoSuchObject) {
			tflog.SubsystemWarn(ctx, subsystem, "Search base not found, collection is empty", map[string]any{
				"stage":   string(stage),
				"base_dn": req.BaseDN,
			})
			return []Record{}, nil
		}
		return nil, &RetrievalFailedError{Stage: stage, BaseDN: req.BaseDN, Cause: err}
	}

	if records == nil {
		records = []Record{}
	}
	return records, nil
}
