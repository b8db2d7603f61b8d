package harvest

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttributeValue_JSON(t *testing.T) {
	single, err := json.Marshal(Single("admins"))
	require.NoError(t, err)
	assert.JSONEq(t, `"admins"`, string(single))

	list, err := json.Marshal(Multi("u1"))
	require.NoError(t, err)
	assert.JSONEq(t, `["u1"]`, string(list), "a one element list stays a list")

	empty, err := json.Marshal(Multi())
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(empty))

	var v AttributeValue
	require.NoError(t, json.Unmarshal([]byte(` ["a","b"]`), &v))
	assert.Equal(t, Multi("a", "b"), v)

	require.NoError(t, json.Unmarshal([]byte(`"a"`), &v))
	assert.Equal(t, Single("a"), v)

	assert.Error(t, json.Unmarshal([]byte(`42`), &v))
}

func TestAttributeValue_Copies(t *testing.T) {
	values := []string{"a", "b"}
	v := Multi(values...)
	values[0] = "changed"
	assert.Equal(t, []string{"a", "b"}, v.Values())

	out := v.Values()
	out[1] = "changed"
	assert.Equal(t, []string{"a", "b"}, v.Values())
}

func TestEntity_Accessors(t *testing.T) {
	entity := Entity{
		Kind: KindGroup,
		DN:   "cn=staff,ou=groups,o=acme",
		Attributes: map[string]AttributeValue{
			"cn":        Single("staff"),
			"memberUid": Multi("u1", "u2"),
		},
	}

	cn, ok := entity.First("cn")
	assert.True(t, ok)
	assert.Equal(t, "staff", cn)

	members, ok := entity.List("memberUid")
	assert.True(t, ok)
	assert.Equal(t, []string{"u1", "u2"}, members)

	_, ok = entity.List("cn")
	assert.False(t, ok, "single values are not lists")

	_, ok = entity.First("description")
	assert.False(t, ok)
}

func TestParseMalformedRecordPolicy(t *testing.T) {
	for input, want := range map[string]MalformedRecordPolicy{
		"":      MalformedAbort,
		"abort": MalformedAbort,
		"skip":  MalformedSkip,
	} {
		got, err := ParseMalformedRecordPolicy(input)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseMalformedRecordPolicy("ignore")
	assert.Error(t, err)
}
