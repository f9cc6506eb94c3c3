package agentrt

import (
	"crypto/rand"

	"github.com/oklog/ulid/v2"
)

// newID returns a lexicographically sortable id for a scan or watch
// session, following the same ulid.Monotonic precedent the library store
// uses for entry and folder ids.
func newID() string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return ulid.MustNew(ulid.Now(), entropy).String()
}
