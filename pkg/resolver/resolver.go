// Package resolver matches raw input words against the dictionary index and
// produces ranked candidate entries.
package resolver

import (
	"errors"

	"github.com/macintoshm/auto-anki-maker/pkg/dictionary"
)

// MatchKind classifies how a candidate entry was found. Lower values rank
// stronger.
type MatchKind int

const (
	// MatchExactSurface means the input equals a kanji or kana spelling.
	MatchExactSurface MatchKind = iota
	// MatchExactReading means the input equals a kana reading.
	MatchExactReading
	// MatchVariant means a deconjugated (dictionary) form of the input
	// matched, e.g. 食べた resolving to 食べる.
	MatchVariant
)

func (k MatchKind) String() string {
	switch k {
	case MatchExactSurface:
		return "exact-surface"
	case MatchExactReading:
		return "exact-reading"
	case MatchVariant:
		return "variant"
	default:
		return "unknown"
	}
}

// Candidate pairs a dictionary entry with the term and kind that matched it.
type Candidate struct {
	Entry   *dictionary.Entry
	Matched string
	Kind    MatchKind
}

var (
	// ErrInvalidInput is returned for empty or whitespace-only input.
	ErrInvalidInput = errors.New("invalid input word")
	// ErrIndexUnavailable is returned when no dictionary index is wired in.
	// Unlike an empty candidate list, this is a lookup failure.
	ErrIndexUnavailable = errors.New("dictionary index unavailable")
)

// Deconjugator reduces an inflected word to its dictionary form.
// ok is false when the word is not inflected or cannot be analyzed.
type Deconjugator interface {
	BaseForm(word string) (lemma string, ok bool)
}

// Resolver queries the dictionary index for candidate entries.
// Deconjugator is optional; without it the variant tier is skipped.
type Resolver struct {
	Index        *dictionary.Index
	Deconjugator Deconjugator
}

// Resolve returns candidates for the word, strongest tier first:
// exact surface-form matches, then exact reading matches, then variant
// matches via deconjugation. Within a tier the index's priority order is
// preserved. An empty result means the word is simply not in the
// dictionary; that is not an error.
//
// A non-empty readingHint keeps only entries carrying that reading. If the
// hint eliminates every candidate of a tier, the tier is dropped entirely
// rather than falling back to unhinted matches.
func (r *Resolver) Resolve(word, readingHint string) ([]Candidate, error) {
	normalized := dictionary.Normalize(word)
	if normalized == "" {
		return nil, ErrInvalidInput
	}
	if r.Index == nil {
		return nil, ErrIndexUnavailable
	}

	hint := dictionary.NormalizeReading(readingHint)

	var out []Candidate
	seen := make(map[string]struct{})

	appendTier := func(entries []*dictionary.Entry, matched string, kind MatchKind) {
		for _, e := range entries {
			if _, ok := seen[e.ID]; ok {
				continue
			}
			if hint != "" && !hasReading(e, hint) {
				continue
			}
			seen[e.ID] = struct{}{}
			out = append(out, Candidate{Entry: e, Matched: matched, Kind: kind})
		}
	}

	appendTier(r.Index.LookupBySurface(normalized), normalized, MatchExactSurface)
	appendTier(r.Index.LookupByReading(normalized), normalized, MatchExactReading)

	if r.Deconjugator != nil {
		if lemma, ok := r.Deconjugator.BaseForm(normalized); ok && lemma != normalized {
			appendTier(r.Index.LookupBySurface(lemma), lemma, MatchVariant)
			appendTier(r.Index.LookupByReading(lemma), lemma, MatchVariant)
		}
	}

	return out, nil
}

func hasReading(e *dictionary.Entry, normalizedReading string) bool {
	for _, k := range e.Kana {
		if dictionary.NormalizeReading(k.Text) == normalizedReading {
			return true
		}
	}
	return false
}
