package api

import "github.com/google/uuid"

// pageIDLength is the length of the canonical dashed form.
const pageIDLength = 36

// ValidPageID reports whether id is a canonical version 4 UUID:
// 8-4-4-4-12 hex digits, version nibble 4, variant nibble in [89ab].
// Case of the hex digits is ignored.
func ValidPageID(id string) bool {
	// uuid.Parse also accepts urn: and braced forms, so pin the length.
	if len(id) != pageIDLength {
		return false
	}
	u, err := uuid.Parse(id)
	if err != nil {
		return false
	}
	return u.Version() == 4 && u.Variant() == uuid.RFC4122
}
