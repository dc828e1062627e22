package dictionary

import "testing"

func testEntries() []Entry {
	return []Entry{
		{
			ID:    "100",
			Kanji: []Element{{Text: "角", Common: false}},
			Kana:  []Element{{Text: "つの", Common: false}},
			Senses: []Sense{
				{Gloss: []Gloss{{Text: "horn"}}, PartOfSpeech: []string{"n"}},
			},
		},
		{
			ID:    "200",
			Kanji: []Element{{Text: "角", Common: true}},
			Kana:  []Element{{Text: "かど", Common: true}},
			Senses: []Sense{
				{Gloss: []Gloss{{Text: "corner"}}, PartOfSpeech: []string{"n"}},
			},
		},
		{
			ID:   "300",
			Kana: []Element{{Text: "テスト", Common: true}},
			Senses: []Sense{
				{Gloss: []Gloss{{Text: "test"}}, PartOfSpeech: []string{"n"}},
			},
		},
	}
}

func TestLookupBySurfaceCommonFirst(t *testing.T) {
	idx := NewIndex(testEntries())

	got := idx.LookupBySurface("角")
	if len(got) != 2 {
		t.Fatalf("expected 2 entries for 角, got %d", len(got))
	}
	// Entry 200's 角 element is flagged common, so it outranks 100
	// despite declaration order.
	if got[0].ID != "200" || got[1].ID != "100" {
		t.Errorf("priority order wrong: got %s, %s", got[0].ID, got[1].ID)
	}
}

func TestLookupKanaAsSurface(t *testing.T) {
	idx := NewIndex(testEntries())

	got := idx.LookupBySurface("テスト")
	if len(got) != 1 || got[0].ID != "300" {
		t.Fatalf("expected entry 300 for テスト, got %+v", got)
	}
}

func TestLookupByReadingFoldsKana(t *testing.T) {
	idx := NewIndex(testEntries())

	// Readings match regardless of katakana/hiragana rendering.
	for _, q := range []string{"かど", "カド"} {
		got := idx.LookupByReading(q)
		if len(got) != 1 || got[0].ID != "200" {
			t.Errorf("LookupByReading(%q): expected entry 200, got %+v", q, got)
		}
	}
}

func TestLookupUnknownKeyIsEmpty(t *testing.T) {
	idx := NewIndex(testEntries())

	if got := idx.LookupBySurface("xyzzy"); len(got) != 0 {
		t.Errorf("expected empty result, got %d entries", len(got))
	}
	if got := idx.LookupByReading("xyzzy"); len(got) != 0 {
		t.Errorf("expected empty result, got %d entries", len(got))
	}
}

func TestLookupDedupesRepeatedElements(t *testing.T) {
	entries := []Entry{{
		ID: "1",
		Kana: []Element{
			{Text: "ねこ", Common: true},
			{Text: "ネコ", Common: false},
		},
		Senses: []Sense{{Gloss: []Gloss{{Text: "cat"}}}},
	}}
	idx := NewIndex(entries)

	// Both kana elements normalize to the same reading key; the entry
	// must still appear only once.
	if got := idx.LookupByReading("ねこ"); len(got) != 1 {
		t.Errorf("expected 1 entry, got %d", len(got))
	}
}
