package harvest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isometry/ldap-collector/internal/ldap"
)

const orgDN = "o=acme,dc=example,dc=com"

func role(cn string, members ...string) Entity {
	return withMembers(Entity{
		Kind:       KindRole,
		DN:         "cn=" + cn + ",ou=roles," + orgDN,
		Attributes: map[string]AttributeValue{"cn": Single(cn)},
	}, members)
}

func group(cn string, members ...string) Entity {
	return withMembers(Entity{
		Kind:       KindGroup,
		DN:         "cn=" + cn + ",ou=groups," + orgDN,
		Attributes: map[string]AttributeValue{"cn": Single(cn)},
	}, members)
}

func withMembers(e Entity, members []string) Entity {
	if members != nil {
		e.Attributes["memberUid"] = Multi(members...)
	}
	return e
}

func TestReconcile_AttachesGroup(t *testing.T) {
	r := NewReconciler(MalformedAbort)

	memberships, err := r.Reconcile(t.Context(),
		[]Entity{role("admins", "u1", "u2")},
		[]Entity{group("staff", "u2")},
		orgDN,
	)

	require.NoError(t, err)
	assert.Equal(t, []Membership{
		{MemberUID: "u1", RoleCN: "admins", OrganizationDN: orgDN},
		{MemberUID: "u2", RoleCN: "admins", OrganizationDN: orgDN, GroupCN: "staff"},
	}, memberships)
}

func TestReconcile_LastGroupWins(t *testing.T) {
	r := NewReconciler(MalformedAbort)

	memberships, err := r.Reconcile(t.Context(),
		[]Entity{role("admins", "u3")},
		[]Entity{group("g1", "u3"), group("g2", "u3")},
		orgDN,
	)

	require.NoError(t, err)
	require.Len(t, memberships, 1)
	assert.Equal(t, "g2", memberships[0].GroupCN)
}

func TestReconcile_GroupAppliesToEveryRoleOfMember(t *testing.T) {
	r := NewReconciler(MalformedAbort)

	memberships, err := r.Reconcile(t.Context(),
		[]Entity{role("admins", "u1"), role("operators", "u1", "u4")},
		[]Entity{group("staff", "u1")},
		orgDN,
	)

	require.NoError(t, err)
	assert.Equal(t, []Membership{
		{MemberUID: "u1", RoleCN: "admins", OrganizationDN: orgDN, GroupCN: "staff"},
		{MemberUID: "u1", RoleCN: "operators", OrganizationDN: orgDN, GroupCN: "staff"},
		{MemberUID: "u4", RoleCN: "operators", OrganizationDN: orgDN},
	}, memberships)
}

func TestReconcile_OrderFollowsRolesThenMembers(t *testing.T) {
	r := NewReconciler(MalformedAbort)

	memberships, err := r.Reconcile(t.Context(),
		[]Entity{role("b", "u9", "u1"), role("a", "u5")},
		nil,
		orgDN,
	)

	require.NoError(t, err)
	var order []string
	for _, m := range memberships {
		order = append(order, m.RoleCN+"/"+m.MemberUID)
	}
	assert.Equal(t, []string{"b/u9", "b/u1", "a/u5"}, order)
}

func TestReconcile_GroupWithoutRoleMembership(t *testing.T) {
	r := NewReconciler(MalformedAbort)

	memberships, err := r.Reconcile(t.Context(),
		[]Entity{role("admins", "u1")},
		[]Entity{group("staff", "u7")},
		orgDN,
	)

	require.NoError(t, err)
	require.Len(t, memberships, 1)
	assert.Empty(t, memberships[0].GroupCN)
}

func TestReconcile_NoMembers(t *testing.T) {
	r := NewReconciler(MalformedAbort)

	memberships, err := r.Reconcile(t.Context(), []Entity{role("empty")}, []Entity{group("nobody")}, orgDN)

	require.NoError(t, err)
	assert.NotNil(t, memberships)
	assert.Empty(t, memberships)
}

func TestReconcile_MissingCN(t *testing.T) {
	nameless := Entity{
		Kind:       KindRole,
		DN:         "uid=x,ou=roles," + orgDN,
		Attributes: map[string]AttributeValue{"memberUid": Multi("u1")},
	}
	namelessGroup := nameless
	namelessGroup.Kind = KindGroup

	t.Run("role aborts", func(t *testing.T) {
		_, err := NewReconciler(MalformedAbort).Reconcile(t.Context(), []Entity{nameless}, nil, orgDN)

		var missing *MissingAttributeError
		require.ErrorAs(t, err, &missing)
		assert.Equal(t, "cn", missing.Attribute)
		assert.Equal(t, KindRole, missing.EntityKind)
		assert.Equal(t, ldap.ErrorKindMissingAttribute, ldap.KindOf(err))
	})

	t.Run("group aborts", func(t *testing.T) {
		_, err := NewReconciler(MalformedAbort).Reconcile(t.Context(),
			[]Entity{role("admins", "u1")}, []Entity{namelessGroup}, orgDN)

		var missing *MissingAttributeError
		require.ErrorAs(t, err, &missing)
		assert.Equal(t, KindGroup, missing.EntityKind)
	})

	t.Run("cn not needed without members", func(t *testing.T) {
		noMembers := Entity{Kind: KindRole, DN: "uid=y,ou=roles," + orgDN, Attributes: map[string]AttributeValue{}}

		memberships, err := NewReconciler(MalformedAbort).Reconcile(t.Context(), []Entity{noMembers}, nil, orgDN)
		require.NoError(t, err)
		assert.Empty(t, memberships)
	})

	t.Run("skip ignores members", func(t *testing.T) {
		memberships, err := NewReconciler(MalformedSkip).Reconcile(t.Context(),
			[]Entity{nameless, role("admins", "u2")},
			[]Entity{namelessGroup},
			orgDN,
		)

		require.NoError(t, err)
		assert.Equal(t, []Membership{
			{MemberUID: "u2", RoleCN: "admins", OrganizationDN: orgDN},
		}, memberships)
	})
}
