package harvest

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/terraform-plugin-log/tflog"

	"github.com/isometry/ldap-collector/internal/ldap"
)

// subsystem is the tflog subsystem used for harvest orchestration.
const subsystem = "harvest"

// LogSubsystem is the name of the harvest log subsystem.
const LogSubsystem = subsystem

// stageKinds maps each search to the kind of entity its records become.
var stageKinds = map[ldap.Stage]Kind{
	ldap.StageUsers:         KindUser,
	ldap.StageRoles:         KindRole,
	ldap.StageGroups:        KindGroup,
	ldap.StageOrganizations: KindOrganization,
}

// Connector opens a bound directory session.
type Connector interface {
	Connect(ctx context.Context) (ldap.Session, error)
}

// Retriever fetches the raw collections and releases the session.
type Retriever interface {
	Retrieve(ctx context.Context, session ldap.Session, organizationDN string) (*ldap.RawCollections, error)
}

// Options configures a Harvester.
type Options struct {
	OrganizationDN string
	Malformed      MalformedRecordPolicy
	Timeout        time.Duration // Overall deadline of one harvest, 0 for none
}

// Harvester runs complete harvests. It holds no state between calls and is
// safe for concurrent use when its Connector and Retriever are.
type Harvester struct {
	connector      Connector
	retriever      Retriever
	normalizer     *Normalizer
	reconciler     *Reconciler
	organizationDN string
	timeout        time.Duration
	newID          func() string
}

// New creates a Harvester.
func New(connector Connector, retriever Retriever, opts Options) *Harvester {
	return &Harvester{
		connector:      connector,
		retriever:      retriever,
		normalizer:     NewNormalizer(opts.Malformed),
		reconciler:     NewReconciler(opts.Malformed),
		organizationDN: opts.OrganizationDN,
		timeout:        opts.Timeout,
		newID:          uuid.NewString,
	}
}

// Harvest connects, retrieves the four collections, normalizes them and
// reconciles memberships. It returns either a complete Result or an error.
func (h *Harvester) Harvest(ctx context.Context) (*Result, error) {
	id := h.newID()
	ctx = tflog.SubsystemSetField(ctx, subsystem, "harvest_id", id)
	ctx = tflog.SubsystemSetField(ctx, ldap.LogSubsystem, "harvest_id", id)

	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	start := time.Now()
	tflog.SubsystemInfo(ctx, subsystem, "Starting harvest", map[string]any{
		"organization_dn": h.organizationDN,
	})

	result, err := h.harvest(ctx)
	if err != nil {
		tflog.SubsystemError(ctx, subsystem, "Harvest failed", map[string]any{
			"error":       err.Error(),
			"error_kind":  string(ldap.KindOf(err)),
			"duration_ms": time.Since(start).Milliseconds(),
		})
		return nil, err
	}

	tflog.SubsystemInfo(ctx, subsystem, "Harvest completed", map[string]any{
		"users":         len(result.Users),
		"roles":         len(result.Roles),
		"groups":        len(result.Groups),
		"organizations": len(result.Organizations),
		"memberships":   len(result.Memberships),
		"duration_ms":   time.Since(start).Milliseconds(),
	})

	return result, nil
}

func (h *Harvester) harvest(ctx context.Context) (*Result, error) {
	session, err := h.connector.Connect(ctx)
	if err != nil {
		return nil, err
	}

	raw, err := h.retriever.Retrieve(ctx, session, h.organizationDN)
	if err != nil {
		return nil, err
	}

	normalized := make(map[ldap.Stage][]Entity, len(ldap.Stages))
	for _, stage := range ldap.Stages {
		entities, err := h.normalizer.Normalize(ctx, raw.Collection(stage), stageKinds[stage])
		if err != nil {
			return nil, err
		}
		normalized[stage] = entities
	}

	roles := normalized[ldap.StageRoles]
	groups := normalized[ldap.StageGroups]

	memberships, err := h.reconciler.Reconcile(ctx, roles, groups, h.organizationDN)
	if err != nil {
		return nil, err
	}

	return NewResult(normalized[ldap.StageUsers], roles, groups, normalized[ldap.StageOrganizations], memberships), nil
}
