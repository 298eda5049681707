package recompute

import (
	"sync"

	"github.com/papertrail/papertrail/internal/paper"
)

// Trigger decides when a paper snapshot warrants a recompute. It remembers
// the dedup key of the last snapshot seen for the current project and fires
// only when the key changes. Switching project resets the memory.
//
// Trigger is safe for concurrent use.
type Trigger struct {
	mu        sync.Mutex
	keyFn     paper.KeyFunc
	projectID string
	lastKey   string
}

// NewTrigger returns a trigger using keyFn, or paper.Fingerprint if nil.
func NewTrigger(keyFn paper.KeyFunc) *Trigger {
	if keyFn == nil {
		keyFn = paper.Fingerprint
	}
	return &Trigger{keyFn: keyFn, lastKey: keyFn(nil)}
}

// Observe records a snapshot and reports whether a recompute should run.
// A fresh or reset trigger behaves as if it had last seen an empty project.
func (t *Trigger) Observe(projectID string, papers []paper.Paper) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if projectID != t.projectID {
		t.projectID = projectID
		t.lastKey = t.keyFn(nil)
	}

	key := t.keyFn(papers)
	if key == t.lastKey {
		return false
	}
	t.lastKey = key
	return true
}
