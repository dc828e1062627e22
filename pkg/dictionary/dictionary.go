package dictionary

import (
	"encoding/json"
	"fmt"
	"os"
)

// Entry matches the structure of jmdict-simplified entries.
type Entry struct {
	ID     string    `json:"id"`
	Kanji  []Element `json:"kanji"`
	Kana   []Element `json:"kana"`
	Senses []Sense   `json:"sense"`
}

// Element is a single spelling (kanji) or reading (kana) of an entry.
type Element struct {
	Text   string   `json:"text"`
	Common bool     `json:"common"`
	Tags   []string `json:"tags"`
}

// Sense is one distinct meaning of an entry.
type Sense struct {
	PartOfSpeech []string  `json:"partOfSpeech"`
	Misc         []string  `json:"misc"` // usage/register tags, e.g. "arch", "col"
	Gloss        []Gloss   `json:"gloss"`
	Examples     []Example `json:"examples"`
}

type Gloss struct {
	Text string `json:"text"`
	Lang string `json:"lang"` // defaults to 'eng' if missing
}

// Example holds an example usage of a sense with its translated sentences.
type Example struct {
	Text      string            `json:"text"`
	Sentences []ExampleSentence `json:"sentences"`
}

// ExampleSentence is one rendering of an example sentence. The language key
// is "land" in the jmdict-simplified format ("jpn" or "eng").
type ExampleSentence struct {
	Land string `json:"land"`
	Text string `json:"text"`
}

// GlossTexts returns the gloss strings of the sense in order.
func (s Sense) GlossTexts() []string {
	texts := make([]string, 0, len(s.Gloss))
	for _, g := range s.Gloss {
		texts = append(texts, g.Text)
	}
	return texts
}

// ExamplePair returns the first example that has both a Japanese and an
// English sentence.
func (s Sense) ExamplePair() (jpn, eng string, ok bool) {
	for _, ex := range s.Examples {
		jpn, eng = "", ""
		for _, sent := range ex.Sentences {
			switch sent.Land {
			case "jpn":
				if jpn == "" {
					jpn = sent.Text
				}
			case "eng":
				if eng == "" {
					eng = sent.Text
				}
			}
		}
		if jpn != "" && eng != "" {
			return jpn, eng, true
		}
	}
	return "", "", false
}

// Load reads a jmdict-simplified JSON file and returns its entries.
// Both the { "words": [...] } wrapper and a bare array are accepted.
// Note: Real files are large, so in production we might want to stream this.
func Load(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	// Try parsing as full object wrapper first { "words": [...] }. The
	// pointer distinguishes a missing key from a present-but-empty list,
	// which is a valid dictionary.
	var wrapper struct {
		Words *[]Entry `json:"words"`
	}
	dec := json.NewDecoder(f)
	if err := dec.Decode(&wrapper); err == nil && wrapper.Words != nil {
		return *wrapper.Words, nil
	}

	// Reset and try as array [...]
	if _, err := f.Seek(0, 0); err != nil {
		return nil, err
	}
	var entries []Entry
	dec = json.NewDecoder(f)
	if err := dec.Decode(&entries); err != nil {
		return nil, fmt.Errorf("failed to parse dictionary as object or array: %w", err)
	}
	return entries, nil
}
