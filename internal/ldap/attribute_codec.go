package ldap

import (
	"encoding/base64"
	"strings"
	"unicode/utf8"

	"github.com/go-ldap/ldap/v3"
)

// binaryDecoders render well-known binary attributes. Keys are lower-case attribute names.
var binaryDecoders = map[string]func([]byte) (string, error){
	"objectguid": GUIDBytesToString,
	"objectsid":  ConvertBinarySIDToString,
}

// EntryToRecord converts a go-ldap entry into a Record, decoding every value to a string.
func EntryToRecord(entry *ldap.Entry) Record {
	record := Record{
		DN:         entry.DN,
		Attributes: make([]Attribute, 0, len(entry.Attributes)),
	}

	for _, attr := range entry.Attributes {
		record.Attributes = append(record.Attributes, DecodeAttribute(attr))
	}

	return record
}

// DecodeAttribute renders each raw value of attr as a string. objectGUID and
// objectSid use their canonical textual forms, other valid UTF-8 is kept
// verbatim and anything else is base64 encoded.
func DecodeAttribute(attr *ldap.EntryAttribute) Attribute {
	decoded := Attribute{
		Name:   attr.Name,
		Values: make([]string, 0, len(attr.ByteValues)),
	}

	decoder := binaryDecoders[strings.ToLower(attr.Name)]

	for _, raw := range attr.ByteValues {
		if decoder != nil {
			if s, err := decoder(raw); err == nil {
				decoded.Values = append(decoded.Values, s)
				continue
			}
		}

		if utf8.Valid(raw) {
			decoded.Values = append(decoded.Values, string(raw))
		} else {
			decoded.Values = append(decoded.Values, base64.StdEncoding.EncodeToString(raw))
		}
	}

	// Entries built without raw values (e.g. ldap.NewEntry) only carry strings
	if len(attr.ByteValues) == 0 && len(attr.Values) > 0 {
		decoded.Values = append(decoded.Values, attr.Values...)
	}

	return decoded
}
