package ldap

import (
	"fmt"

	"github.com/bwmarrin/go-objectsid"
)

// minSIDLength is the size of a SID header: revision, sub-authority count and
// the 6-byte identifier authority.
const minSIDLength = 8

// ConvertBinarySIDToString converts a binary SID to its string representation.
// Active Directory stores objectSid as binary data that needs conversion to S-1-5-21-... format.
func ConvertBinarySIDToString(binarySID []byte) (string, error) {
	if len(binarySID) < minSIDLength {
		return "", fmt.Errorf("binary SID too short: %d bytes", len(binarySID))
	}

	subAuthorities := int(binarySID[1])
	if len(binarySID) != minSIDLength+4*subAuthorities {
		return "", fmt.Errorf("binary SID length %d does not match %d sub-authorities", len(binarySID), subAuthorities)
	}

	sid := objectsid.Decode(binarySID)

	return sid.String(), nil
}
