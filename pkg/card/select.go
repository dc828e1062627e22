// Package card turns resolved dictionary candidates into field-complete
// flashcard notes.
package card

import (
	"github.com/macintoshm/auto-anki-maker/pkg/dictionary"
	"github.com/macintoshm/auto-anki-maker/pkg/resolver"
)

// SelectedSense is the chosen entry with the senses and display forms that
// will appear on the card. It is consumed once by the synthesizer.
type SelectedSense struct {
	Entry   *dictionary.Entry
	Senses  []dictionary.Sense
	Surface string
	Reading string
}

// Selector applies the ambiguity-resolution policy to ranked candidates.
type Selector struct {
	// PrimaryOnly keeps only the first sense of the chosen entry.
	PrimaryOnly bool
	// ExcludedTags filters out senses whose usage tags all appear here,
	// e.g. "arch" to drop archaic-only senses.
	ExcludedTags []string
}

// Select picks the entry and senses to put on the card. Only the strongest
// match tier present in candidates is considered; a weaker tier is never
// consulted once a stronger one has any candidate. Within the tier the
// first candidate wins, since the resolver already encodes the index's
// priority order. ok is false when nothing usable remains.
func (s *Selector) Select(candidates []resolver.Candidate) (*SelectedSense, bool) {
	if len(candidates) == 0 {
		return nil, false
	}

	// Candidates arrive kind-ordered, so the first one fixes the tier.
	chosen := candidates[0].Entry

	senses := chosen.Senses
	if s.PrimaryOnly && len(senses) > 1 {
		senses = senses[:1]
	}

	filtered := s.filterSenses(senses)
	if len(filtered) == 0 {
		// Never produce an entry with zero senses: if the exclusion list
		// would remove everything, keep the original set.
		filtered = senses
	}
	if len(filtered) == 0 {
		return nil, false
	}

	surface := displaySurface(chosen)
	reading := displayReading(chosen)
	if surface == "" {
		surface = reading
	}
	if surface == "" {
		return nil, false
	}

	return &SelectedSense{
		Entry:   chosen,
		Senses:  filtered,
		Surface: surface,
		Reading: reading,
	}, true
}

func (s *Selector) filterSenses(senses []dictionary.Sense) []dictionary.Sense {
	if len(s.ExcludedTags) == 0 {
		return senses
	}
	excluded := make(map[string]struct{}, len(s.ExcludedTags))
	for _, t := range s.ExcludedTags {
		excluded[t] = struct{}{}
	}
	var kept []dictionary.Sense
	for _, sense := range senses {
		if !senseExcluded(sense, excluded) {
			kept = append(kept, sense)
		}
	}
	return kept
}

// senseExcluded reports whether the sense carries usage tags and every one
// of them is excluded. A sense with no tags, or with at least one
// non-excluded tag, survives.
func senseExcluded(sense dictionary.Sense, excluded map[string]struct{}) bool {
	if len(sense.Misc) == 0 {
		return false
	}
	for _, tag := range sense.Misc {
		if _, ok := excluded[tag]; !ok {
			return false
		}
	}
	return true
}

// displaySurface picks the primary written form: the first common kanji
// element, else the first kanji element, else empty for purely-kana words.
func displaySurface(e *dictionary.Entry) string {
	for _, k := range e.Kanji {
		if k.Common {
			return k.Text
		}
	}
	if len(e.Kanji) > 0 {
		return e.Kanji[0].Text
	}
	return ""
}

// displayReading picks the primary reading: the first common kana element,
// else the first kana element.
func displayReading(e *dictionary.Entry) string {
	for _, k := range e.Kana {
		if k.Common {
			return k.Text
		}
	}
	if len(e.Kana) > 0 {
		return e.Kana[0].Text
	}
	return ""
}
