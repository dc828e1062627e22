// Package harvest extracts Japanese vocabulary words from web articles so
// they can be fed into the note pipeline.
package harvest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome/v2/tokenizer"
	"github.com/rs/zerolog"
)

// DefaultMaxBodySize caps article downloads to prevent OOM from untrusted
// URLs.
const DefaultMaxBodySize = 10 * 1024 * 1024

var (
	// (?s) allows dot to match newlines
	reRT = regexp.MustCompile(`(?si)<rt\b[^>]*>.*?</rt>`)
	reRP = regexp.MustCompile(`(?si)<rp\b[^>]*>.*?</rp>`)

	asciiOnly = regexp.MustCompile(`^[a-zA-Z0-9\s[:punct:]]+$`)
)

// skippedPOS lists Kagome primary parts of speech that never make useful
// vocabulary cards: symbols, particles, and auxiliary verbs.
var skippedPOS = map[string]struct{}{
	"記号":   {},
	"補助記号": {},
	"助詞":   {},
	"助動詞":  {},
}

// Harvester fetches an article and reduces it to a deduplicated list of
// dictionary-form words.
type Harvester struct {
	t           *tokenizer.Tokenizer
	http        *http.Client
	maxBodySize int64
	log         zerolog.Logger
}

// NewHarvester creates a harvester with its own tokenizer instance.
func NewHarvester(logger zerolog.Logger) (*Harvester, error) {
	t, err := tokenizer.New(ipa.Dict(), tokenizer.OmitBosEos())
	if err != nil {
		return nil, err
	}
	return &Harvester{
		t:           t,
		http:        &http.Client{Timeout: 30 * time.Second},
		maxBodySize: DefaultMaxBodySize,
		log:         logger,
	}, nil
}

// SetHTTPClient overrides the HTTP client, mainly for tests.
func (h *Harvester) SetHTTPClient(c *http.Client) { h.http = c }

// FromURL fetches the page, extracts the readable article text, and returns
// the words found in it.
func (h *Harvester) FromURL(ctx context.Context, rawURL string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	// Mimic a real browser; some news sites block default Go clients.
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9,ja;q=0.8")

	resp, err := h.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", rawURL, resp.StatusCode)
	}
	if resp.ContentLength > h.maxBodySize {
		return nil, fmt.Errorf("content length %d exceeds limit of %d bytes", resp.ContentLength, h.maxBodySize)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, h.maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if int64(len(body)) >= h.maxBodySize {
		return nil, fmt.Errorf("response body exceeded maximum size of %d bytes", h.maxBodySize)
	}

	// Strip furigana before extraction, otherwise readability duplicates
	// every kanji with its kana rendering.
	body = SanitizeRuby(body)

	parsedURL, _ := url.Parse(rawURL)
	article, err := readability.FromReader(bytes.NewReader(body), parsedURL)
	if err != nil {
		return nil, fmt.Errorf("extract article: %w", err)
	}

	h.log.Info().Str("title", article.Title).Int("chars", len(article.TextContent)).Msg("article extracted")
	return h.FromText(article.TextContent), nil
}

// FromText tokenizes the text and returns each content word once, in first
// appearance order, normalized to its dictionary form. Particles, symbols,
// auxiliaries, numbers, and pure-ASCII tokens are dropped.
func (h *Harvester) FromText(text string) []string {
	var words []string
	seen := make(map[string]struct{})

	for _, token := range h.t.Tokenize(text) {
		if token.Class == tokenizer.DUMMY || strings.TrimSpace(token.Surface) == "" {
			continue
		}
		features := token.Features()
		if len(features) > 0 {
			if _, skip := skippedPOS[features[0]]; skip {
				continue
			}
		}
		if len(features) > 1 && features[1] == "数" {
			continue
		}
		if asciiOnly.MatchString(token.Surface) {
			continue
		}

		// Use the base form (lemma) as the canonical word if available.
		word := token.Surface
		if len(features) > 6 && features[6] != "*" && features[6] != "" {
			word = features[6]
		}

		if _, dup := seen[word]; dup {
			continue
		}
		seen[word] = struct{}{}
		words = append(words, word)
	}
	return words
}

// SanitizeRuby removes ruby text (<rt>...</rt>) and ruby parentheses
// (<rp>...</rp>) from HTML content.
func SanitizeRuby(content []byte) []byte {
	cleaned := reRT.ReplaceAll(content, []byte{})
	return reRP.ReplaceAll(cleaned, []byte{})
}
