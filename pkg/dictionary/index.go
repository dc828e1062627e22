package dictionary

import "sort"

// posting records one indexed element of an entry. The common flag of the
// element that produced the key decides priority within that key.
type posting struct {
	entry  *Entry
	common bool
}

// Index is a read-only lookup structure mapping surface forms and readings
// to their entries. It is built once and safe for concurrent readers.
type Index struct {
	bySurface map[string][]posting
	byReading map[string][]posting
}

// NewIndex builds an in-memory index of the provided dictionary.
// Kanji elements are indexed as surface forms; kana elements are indexed
// both as surface forms (words usually written in kana) and as readings.
// Within one key, entries whose matching element is flagged common sort
// before the rest; declaration order is kept otherwise, so the file's own
// priority ordering survives.
func NewIndex(entries []Entry) *Index {
	idx := &Index{
		bySurface: make(map[string][]posting),
		byReading: make(map[string][]posting),
	}
	for i := range entries {
		e := &entries[i]
		for _, k := range e.Kanji {
			key := Normalize(k.Text)
			idx.bySurface[key] = append(idx.bySurface[key], posting{e, k.Common})
		}
		for _, k := range e.Kana {
			surfaceKey := Normalize(k.Text)
			idx.bySurface[surfaceKey] = append(idx.bySurface[surfaceKey], posting{e, k.Common})
			readingKey := NormalizeReading(k.Text)
			idx.byReading[readingKey] = append(idx.byReading[readingKey], posting{e, k.Common})
		}
	}
	for _, m := range []map[string][]posting{idx.bySurface, idx.byReading} {
		for key := range m {
			ps := m[key]
			sort.SliceStable(ps, func(i, j int) bool {
				return ps[i].common && !ps[j].common
			})
		}
	}
	return idx
}

// Size returns the number of distinct surface-form keys.
func (idx *Index) Size() int {
	return len(idx.bySurface)
}

// LookupBySurface returns entries whose kanji or kana spelling equals the
// given surface form, in priority order. Unknown keys yield an empty result.
func (idx *Index) LookupBySurface(s string) []*Entry {
	return collect(idx.bySurface[Normalize(s)])
}

// LookupByReading returns entries with the given kana reading, in priority
// order. Katakana and hiragana forms are treated as equal.
func (idx *Index) LookupByReading(s string) []*Entry {
	return collect(idx.byReading[NormalizeReading(s)])
}

func collect(ps []posting) []*Entry {
	if len(ps) == 0 {
		return nil
	}
	out := make([]*Entry, 0, len(ps))
	seen := make(map[string]struct{}, len(ps))
	for _, p := range ps {
		// An entry can hit the same key through several elements.
		if _, ok := seen[p.entry.ID]; ok {
			continue
		}
		seen[p.entry.ID] = struct{}{}
		out = append(out, p.entry)
	}
	return out
}
