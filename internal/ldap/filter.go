package ldap

import (
	"github.com/go-ldap/ldap/v3"
)

// Filter is an LDAP search filter in RFC 4515 string form.
type Filter interface {
	String() string
}

type rawFilter string

func (f rawFilter) String() string {
	return string(f)
}

// Eq matches attr equal to value. The value is escaped.
func Eq(attr, value string) Filter {
	return rawFilter("(" + attr + "=" + ldap.EscapeFilter(value) + ")")
}

// Present matches entries carrying attr.
func Present(attr string) Filter {
	return rawFilter("(" + attr + "=*)")
}

// Filters used by the harvest searches.
var (
	AllObjects       = Present("objectClass")
	AllOrganizations = Eq("objectClass", "organization")
)
