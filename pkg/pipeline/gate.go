package pipeline

import (
	"sync"

	"github.com/macintoshm/auto-anki-maker/pkg/card"
)

// Gate is the run-local deduplication check. It is seeded once per run with
// the keys already present in the target deck and grows as notes are
// admitted, so two occurrences of the same word within one input list can
// never both pass, whatever the card store's latency.
type Gate struct {
	mu   sync.Mutex
	seen map[card.Key]struct{}
}

// NewGate creates a gate seeded with the deck's existing keys. The snapshot
// is not re-queried during the run; existing may be nil.
func NewGate(existing map[card.Key]struct{}) *Gate {
	seen := make(map[card.Key]struct{}, len(existing))
	for k := range existing {
		seen[k] = struct{}{}
	}
	return &Gate{seen: seen}
}

// Admit reports whether the key is new. A new key is recorded immediately,
// before the store confirms any write; check and insert are atomic so
// concurrent callers cannot both admit the same key.
func (g *Gate) Admit(k card.Key) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, dup := g.seen[k]; dup {
		return false
	}
	g.seen[k] = struct{}{}
	return true
}

// Len returns the number of known keys.
func (g *Gate) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.seen)
}
