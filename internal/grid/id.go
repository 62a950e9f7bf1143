package grid

import (
	"strings"

	"github.com/google/uuid"
)

// NewID returns a new random identifier.
func NewID() string {
	return uuid.NewString()
}

// ValidID reports whether s is a canonical lowercase or uppercase RFC 4122
// UUID (versions 1 to 5) in its 36 character form.
//
// Identifiers that pass this check contain only hex digits and dashes, which
// makes them safe to inline into generated SQL and index names. Use
// CanonicalID before storing or comparing one.
func ValidID(s string) bool {
	if len(s) != 36 {
		return false
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return false
	}
	if u.Variant() != uuid.RFC4122 {
		return false
	}
	v := u.Version()
	return v >= 1 && v <= 5
}

// CanonicalID returns the stored form of a valid identifier: lowercase.
func CanonicalID(id string) string {
	return strings.ToLower(id)
}

// ShortID returns the first 12 hex digits of a valid identifier, lowercased
// and without dashes.
func ShortID(id string) string {
	s := strings.ToLower(strings.ReplaceAll(id, "-", ""))
	if len(s) > 12 {
		s = s[:12]
	}
	return s
}
