// Package security provides workspace token issuance and identifier
// generation.
package security

import "github.com/oklog/ulid/v2"

// GenerateULID returns a new lexicographically sortable unique identifier.
// Token IDs use it so issued workspace tokens are distinguishable and
// orderable by issue time.
func GenerateULID() string {
	return ulid.Make().String()
}
