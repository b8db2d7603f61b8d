package ldap

import (
	"fmt"
	"strings"

	"github.com/go-ldap/ldap/v3"
)

// Organizational units holding the harvested collections.
const (
	UsersOU  = "users"
	RolesOU  = "roles"
	GroupsOU = "groups"
)

// ValidateDN checks that dn parses as a non-empty distinguished name.
func ValidateDN(dn string) error {
	if strings.TrimSpace(dn) == "" {
		return fmt.Errorf("DN cannot be empty")
	}

	parsed, err := ldap.ParseDN(dn)
	if err != nil {
		return fmt.Errorf("invalid DN %q: %w", dn, err)
	}

	if len(parsed.RDNs) == 0 {
		return fmt.Errorf("DN %q has no components", dn)
	}

	return nil
}

// ChildDN returns the DN of the entry named attrType=value directly below parent.
func ChildDN(attrType, value, parent string) string {
	return attrType + "=" + ldap.EscapeDN(value) + "," + parent
}
