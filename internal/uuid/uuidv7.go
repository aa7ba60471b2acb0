// Package uuid generates and validates the string ids used as primary keys.
package uuid

import googleuuid "github.com/google/uuid"

// New generates a UUIDv7. The leading 48 bits are the unix time in
// milliseconds, so ids sort by creation time.
func New() string {
	id, err := googleuuid.NewV7()
	if err != nil {
		// Fallback to standard UUIDv4 if random generation fails
		return googleuuid.New().String()
	}
	return id.String()
}

// Parse validates and parses a UUID string into its canonical lowercase form.
func Parse(s string) (string, error) {
	parsed, err := googleuuid.Parse(s)
	if err != nil {
		return "", err
	}
	return parsed.String(), nil
}
