package defra

import (
	"fmt"
	"regexp"
)

// IDPattern matches valid DefraDB document IDs (bae-<uuid> format).
// Used to validate IDs before interpolation into GraphQL query strings.
var IDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidateID checks if a string is safe to use as a document ID in GraphQL
// queries. Returns an error if the ID contains characters that could be used
// for injection.
func ValidateID(id string) error {
	if id == "" {
		return fmt.Errorf("empty ID")
	}
	if len(id) > 500 {
		return fmt.Errorf("ID too long: %d characters", len(id))
	}
	if !IDPattern.MatchString(id) {
		return fmt.Errorf("invalid ID format: contains unsafe characters")
	}
	return nil
}
