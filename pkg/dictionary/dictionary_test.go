package dictionary

import (
	"os"
	"path/filepath"
	"testing"
)

const dictContent = `
{
  "words": [
    {
      "id": "1",
      "kanji": [{"text": "犬", "common": true}],
      "kana": [{"text": "いぬ", "common": true}],
      "sense": [{"gloss": [{"text": "dog"}], "partOfSpeech": ["n"]}]
    },
    {
      "id": "2",
      "kanji": [{"text": "走る", "common": true}],
      "kana": [{"text": "はしる", "common": true}],
      "sense": [{"gloss": [{"text": "to run"}], "partOfSpeech": ["v5r"]}]
    },
    {
      "id": "3",
      "kanji": [],
      "kana": [{"text": "テスト", "common": true}],
      "sense": [{"gloss": [{"text": "test"}], "partOfSpeech": ["n", "vs"]}]
    }
  ]
}
`

func writeDict(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "jmdict_test.json")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write dict: %v", err)
	}
	return path
}

func TestLoadWrapper(t *testing.T) {
	entries, err := Load(writeDict(t, dictContent))
	if err != nil {
		t.Fatalf("load dict: %v", err)
	}
	if len(entries) != 3 {
		t.Errorf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].Kanji[0].Text != "犬" {
		t.Errorf("unexpected first entry: %+v", entries[0])
	}
	if got := entries[0].Senses[0].GlossTexts(); len(got) != 1 || got[0] != "dog" {
		t.Errorf("unexpected glosses: %v", got)
	}
}

func TestLoadBareArray(t *testing.T) {
	entries, err := Load(writeDict(t, `[{"id":"9","kana":[{"text":"ねこ"}],"sense":[{"gloss":[{"text":"cat"}]}]}]`))
	if err != nil {
		t.Fatalf("load dict: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != "9" {
		t.Errorf("unexpected entries: %+v", entries)
	}
}

func TestLoadEmptyWrapper(t *testing.T) {
	entries, err := Load(writeDict(t, `{"words": []}`))
	if err != nil {
		t.Fatalf("an empty word list is a valid dictionary: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected no entries, got %d", len(entries))
	}
}

func TestLoadRejectsGarbage(t *testing.T) {
	if _, err := Load(writeDict(t, "not json at all")); err == nil {
		t.Fatal("expected error for malformed file")
	}
}

func TestExamplePair(t *testing.T) {
	s := Sense{
		Examples: []Example{
			{Text: "猫", Sentences: []ExampleSentence{{Land: "jpn", Text: "猫がいる。"}}},
			{Text: "猫", Sentences: []ExampleSentence{
				{Land: "jpn", Text: "猫が好きだ。"},
				{Land: "eng", Text: "I like cats."},
			}},
		},
	}
	jpn, eng, ok := s.ExamplePair()
	if !ok {
		t.Fatal("expected a complete example pair")
	}
	if jpn != "猫が好きだ。" || eng != "I like cats." {
		t.Errorf("got (%q, %q)", jpn, eng)
	}

	var empty Sense
	if _, _, ok := empty.ExamplePair(); ok {
		t.Error("expected no pair for sense without examples")
	}
}
