package harvest

import (
	"fmt"

	"github.com/isometry/ldap-collector/internal/ldap"
)

// MissingAttributeError reports a record lacking an attribute required to
// normalize or reconcile it.
type MissingAttributeError struct {
	Entity     string // DN of the offending record
	EntityKind Kind
	Attribute  string
}

func (e *MissingAttributeError) Error() string {
	return fmt.Sprintf("%s %q is missing required attribute %q", e.EntityKind, e.Entity, e.Attribute)
}

func (e *MissingAttributeError) Kind() ldap.ErrorKind {
	return ldap.ErrorKindMissingAttribute
}

// MalformedRecordPolicy decides what happens to a record that fails normalization.
type MalformedRecordPolicy string

const (
	// MalformedAbort fails the whole harvest.
	MalformedAbort MalformedRecordPolicy = "abort"
	// MalformedSkip logs the record and leaves it out of the result.
	MalformedSkip MalformedRecordPolicy = "skip"
)

// ParseMalformedRecordPolicy parses "abort" or "skip". An empty string means abort.
func ParseMalformedRecordPolicy(s string) (MalformedRecordPolicy, error) {
	switch MalformedRecordPolicy(s) {
	case "", MalformedAbort:
		return MalformedAbort, nil
	case MalformedSkip:
		return MalformedSkip, nil
	default:
		return "", fmt.Errorf("unknown malformed record policy %q, must be abort or skip", s)
	}
}
