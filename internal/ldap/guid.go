package ldap

import (
	"fmt"

	"github.com/google/uuid"
)

// GUIDBytesLength is the length of a binary objectGUID value.
const GUIDBytesLength = 16

// GUIDBytesToString converts an Active Directory objectGUID to its hyphenated form.
// Active Directory uses mixed-endian encoding:
// - First 4 bytes (Data1): little-endian
// - Next 2 bytes (Data2): little-endian
// - Next 2 bytes (Data3): little-endian
// - Last 8 bytes (Data4): big-endian
func GUIDBytesToString(guidBytes []byte) (string, error) {
	if len(guidBytes) != GUIDBytesLength {
		return "", fmt.Errorf("invalid GUID byte length: expected %d, got %d", GUIDBytesLength, len(guidBytes))
	}

	var standard [GUIDBytesLength]byte

	// Data1 (bytes 0-3): reverse byte order (from little-endian)
	standard[0], standard[1], standard[2], standard[3] = guidBytes[3], guidBytes[2], guidBytes[1], guidBytes[0]

	// Data2 and Data3: reverse byte order (from little-endian)
	standard[4], standard[5] = guidBytes[5], guidBytes[4]
	standard[6], standard[7] = guidBytes[7], guidBytes[6]

	// Data4 (bytes 8-15): keep original order (big-endian)
	copy(standard[8:], guidBytes[8:])

	id, err := uuid.FromBytes(standard[:])
	if err != nil {
		return "", fmt.Errorf("invalid GUID bytes: %w", err)
	}

	return id.String(), nil
}
