package harvest

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Kind tags the variant of a normalized Entity.
type Kind string

const (
	KindUser         Kind = "user"
	KindRole         Kind = "role"
	KindGroup        Kind = "group"
	KindOrganization Kind = "organization"
)

// AttributeValue is either a single string or an ordered list of strings.
type AttributeValue struct {
	values []string
	multi  bool
}

// Single returns a single-valued attribute.
func Single(value string) AttributeValue {
	return AttributeValue{values: []string{value}}
}

// Multi returns a multi-valued attribute. The values are copied.
func Multi(values ...string) AttributeValue {
	return AttributeValue{values: append([]string{}, values...), multi: true}
}

// IsMulti reports whether the value is a list.
func (v AttributeValue) IsMulti() bool {
	return v.multi
}

// String returns the single value, or the first element of a list.
func (v AttributeValue) String() string {
	if len(v.values) == 0 {
		return ""
	}
	return v.values[0]
}

// Values returns the value as a list.
func (v AttributeValue) Values() []string {
	return append([]string{}, v.values...)
}

func (v AttributeValue) MarshalJSON() ([]byte, error) {
	if v.multi {
		return json.Marshal(v.Values())
	}
	return json.Marshal(v.String())
}

func (v *AttributeValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var values []string
		if err := json.Unmarshal(data, &values); err != nil {
			return fmt.Errorf("decoding attribute list: %w", err)
		}
		*v = Multi(values...)
		return nil
	}

	var value string
	if err := json.Unmarshal(data, &value); err != nil {
		return fmt.Errorf("decoding attribute value: %w", err)
	}
	*v = Single(value)
	return nil
}

// Entity is a normalized directory entry.
type Entity struct {
	Kind       Kind                      `json:"-"`
	DN         string                    `json:"dn"`
	Attributes map[string]AttributeValue `json:"attributes"`
}

// First returns the first value of the named attribute.
func (e Entity) First(name string) (string, bool) {
	v, ok := e.Attributes[name]
	if !ok {
		return "", false
	}
	return v.String(), true
}

// List returns the values of a multi-valued attribute.
func (e Entity) List(name string) ([]string, bool) {
	v, ok := e.Attributes[name]
	if !ok || !v.IsMulti() {
		return nil, false
	}
	return v.Values(), true
}
