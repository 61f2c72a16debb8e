// Package identity loads the read-only identity snapshot. The lifecycle
// engine never depends on it directly; values feed session default tags,
// which is the only (indirect) influence identity has on scoring.
package identity

import (
	"log"
	"strings"

	"github.com/GetAnima/anima-memory/internal/storage"
)

// Snapshot is the agent's narrative identity as persisted by the identity
// collaborator. Read-only here.
type Snapshot struct {
	Name       string   `json:"name"`
	Values     []string `json:"values,omitempty"`
	Boundaries []string `json:"boundaries,omitempty"`
	Voice      string   `json:"voice,omitempty"`
}

// Load reads identity.json from the storage root. Missing or corrupt files
// yield a zero snapshot, so an agent without a persisted identity still runs.
func Load(layout storage.Layout) Snapshot {
	var snap Snapshot
	res := storage.LoadIndex(layout.IdentityPath(), &snap)
	if res.State == storage.LoadCorrupt {
		log.Printf("identity: corrupt snapshot, using empty: %s", res.Reason)
		return Snapshot{}
	}
	return snap
}

// SeedTags derives lowercase tag seeds from the snapshot's values, used as
// session default tags so new memories share continuity with what the agent
// cares about.
func (s Snapshot) SeedTags() []string {
	var tags []string
	for _, v := range s.Values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		// Multi-word values become their first word: tags are single terms.
		if i := strings.IndexByte(v, ' '); i > 0 {
			v = v[:i]
		}
		tags = append(tags, v)
	}
	return tags
}
