package harvest

import (
	"context"
	"errors"
	"strings"

	"github.com/hashicorp/terraform-plugin-log/tflog"

	"github.com/isometry/ldap-collector/internal/ldap"
)

// Attribute names with special meaning during normalization.
const (
	AttrObjectClass = "objectClass"
	AttrMemberUID   = "memberUid"
	AttrCN          = "cn"
	AttrGivenName   = "givenName"
	AttrFirstName   = "firstName"
	AttrLastName    = "lastName"
)

// KindPolicy controls how the records of one entity kind are normalized.
type KindPolicy struct {
	// SkipFirstRecord drops the first record of the collection. A subtree search
	// below ou=<kind> returns the container entry itself first.
	SkipFirstRecord bool

	// MultiValued lists the attributes kept as full ordered lists. Every other
	// attribute collapses to its first value.
	MultiValued []string
}

func (p KindPolicy) isMultiValued(name string) bool {
	for _, attr := range p.MultiValued {
		if attr == name {
			return true
		}
	}
	return false
}

// DefaultPolicies returns the normalization policy of every entity kind.
func DefaultPolicies() map[Kind]KindPolicy {
	return map[Kind]KindPolicy{
		KindUser: {
			SkipFirstRecord: true,
			MultiValued:     []string{AttrObjectClass},
		},
		KindRole: {
			SkipFirstRecord: true,
			MultiValued:     []string{AttrObjectClass, AttrMemberUID},
		},
		KindGroup: {
			SkipFirstRecord: true,
			MultiValued:     []string{AttrObjectClass, AttrMemberUID},
		},
		KindOrganization: {
			SkipFirstRecord: false,
			MultiValued:     []string{AttrObjectClass},
		},
	}
}

// Normalizer converts raw directory records into entities.
type Normalizer struct {
	policies  map[Kind]KindPolicy
	malformed MalformedRecordPolicy
}

// NewNormalizer creates a Normalizer with the default kind policies.
func NewNormalizer(malformed MalformedRecordPolicy) *Normalizer {
	return &Normalizer{
		policies:  DefaultPolicies(),
		malformed: malformed,
	}
}

// Normalize converts records of the given kind. Under MalformedSkip, records
// failing with *MissingAttributeError are logged and dropped.
func (n *Normalizer) Normalize(ctx context.Context, records []ldap.Record, kind Kind) ([]Entity, error) {
	policy := n.policies[kind]

	if policy.SkipFirstRecord && len(records) > 0 {
		records = records[1:]
	}

	entities := make([]Entity, 0, len(records))
	for _, record := range records {
		entity, err := NormalizeRecord(record, kind, policy)
		if err != nil {
			var missing *MissingAttributeError
			if n.malformed == MalformedSkip && errors.As(err, &missing) {
				tflog.SubsystemWarn(ctx, subsystem, "Skipping malformed record", map[string]any{
					"dn":        missing.Entity,
					"kind":      string(kind),
					"attribute": missing.Attribute,
				})
				continue
			}
			return nil, err
		}
		entities = append(entities, entity)
	}

	tflog.SubsystemDebug(ctx, subsystem, "Normalized records", map[string]any{
		"kind":     string(kind),
		"records":  len(records),
		"entities": len(entities),
	})

	return entities, nil
}

// NormalizeRecord converts one record. Users additionally get firstName and
// lastName derived from givenName.
func NormalizeRecord(record ldap.Record, kind Kind, policy KindPolicy) (Entity, error) {
	entity := Entity{
		Kind:       kind,
		DN:         record.DN,
		Attributes: make(map[string]AttributeValue, len(record.Attributes)+2),
	}

	for _, attr := range record.Attributes {
		if policy.isMultiValued(attr.Name) {
			entity.Attributes[attr.Name] = Multi(attr.Values...)
			continue
		}

		var first string
		if len(attr.Values) > 0 {
			first = attr.Values[0]
		}
		entity.Attributes[attr.Name] = Single(first)
	}

	if kind == KindUser {
		firstName, lastName, ok := SplitGivenName(entity.Attributes[AttrGivenName].String())
		if !ok {
			return Entity{}, &MissingAttributeError{
				Entity:     record.DN,
				EntityKind: kind,
				Attribute:  AttrGivenName,
			}
		}
		entity.Attributes[AttrFirstName] = Single(firstName)
		entity.Attributes[AttrLastName] = Single(lastName)
	}

	return entity, nil
}

// SplitGivenName derives first and last name from a whitespace separated
// givenName. A single token is used for both. Tokens after the second are
// ignored. It reports false when givenName holds no token.
func SplitGivenName(givenName string) (string, string, bool) {
	fields := strings.Fields(givenName)
	switch len(fields) {
	case 0:
		return "", "", false
	case 1:
		return fields[0], fields[0], true
	default:
		return fields[0], fields[1], true
	}
}
