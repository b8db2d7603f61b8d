package ldap

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilters(t *testing.T) {
	assert.Equal(t, "(objectClass=*)", AllObjects.String())
	assert.Equal(t, "(objectClass=organization)", AllOrganizations.String())
	assert.Equal(t, "(uid=*)", Present("uid").String())
	assert.Equal(t, `(cn=a\2ab\28c\29)`, Eq("cn", "a*b(c)").String())
}
