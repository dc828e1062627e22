package resolver

import (
	"strings"

	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome/v2/tokenizer"
)

// KagomeDeconjugator reduces inflected words to their dictionary form using
// morphological analysis.
type KagomeDeconjugator struct {
	t *tokenizer.Tokenizer
}

// NewKagomeDeconjugator creates a deconjugator backed by the IPA dictionary.
func NewKagomeDeconjugator() (*KagomeDeconjugator, error) {
	t, err := tokenizer.New(ipa.Dict(), tokenizer.OmitBosEos())
	if err != nil {
		return nil, err
	}
	return &KagomeDeconjugator{t: t}, nil
}

// BaseForm returns the lemma of the leading token of word.
//
// Kagome IPA features:
//  0: Part of Speech
//  6: Base Form (Lemma)
//  7: Reading
//
// A conjugated verb like 食べた tokenizes as 食べ+た; the first token's base
// form 食べる is the dictionary form we want. ok is false when analysis
// yields nothing usable or the word is already its own base form.
func (d *KagomeDeconjugator) BaseForm(word string) (string, bool) {
	tokens := d.t.Tokenize(word)
	for _, token := range tokens {
		if token.Class == tokenizer.DUMMY || strings.TrimSpace(token.Surface) == "" {
			continue
		}
		features := token.Features()
		if len(features) > 6 && features[6] != "*" && features[6] != "" {
			return features[6], features[6] != word
		}
		return token.Surface, false
	}
	return "", false
}
