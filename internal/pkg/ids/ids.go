// Package ids mints prefixed identifiers such as "job_3f1c...".
package ids

import (
	"strings"

	"github.com/google/uuid"
)

// Prefixes used across the service.
const (
	JobPrefix = "job"
)

// NewID returns prefix + "_" + a random UUID without dashes.
func NewID(prefix string) string {
	return prefix + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Valid reports whether id looks like something NewID(prefix) produced.
// Handlers use it to answer 404 without touching the store for garbage ids.
func Valid(prefix, id string) bool {
	rest, ok := strings.CutPrefix(id, prefix+"_")
	if !ok || len(rest) != 32 {
		return false
	}
	_, err := uuid.Parse(rest)
	return err == nil
}
