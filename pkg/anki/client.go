// Package anki is a client for the AnkiConnect add-on, the network
// interface of the Anki desktop application.
package anki

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/macintoshm/auto-anki-maker/pkg/card"
)

// Default connection settings.
const (
	DefaultURL     = "http://127.0.0.1:8765"
	DefaultTimeout = 10 * time.Second

	// connectVersion is the AnkiConnect API version this client speaks.
	connectVersion = 6
)

// ErrDuplicateNote is returned by AddNote when the store rejects the note
// as a duplicate of one already in the deck.
var ErrDuplicateNote = errors.New("note already exists in deck")

// request is the AnkiConnect request envelope.
type request struct {
	Action  string `json:"action"`
	Version int    `json:"version"`
	Params  any    `json:"params,omitempty"`
}

// response is the AnkiConnect response envelope.
type response struct {
	Result json.RawMessage `json:"result"`
	Error  *string         `json:"error"`
}

// noteInfo is the subset of notesInfo output the client reads.
type noteInfo struct {
	NoteID int64                `json:"noteId"`
	Model  string               `json:"modelName"`
	Fields map[string]noteField `json:"fields"`
}

type noteField struct {
	Value string `json:"value"`
	Order int    `json:"order"`
}

// Config holds the client's connection and deck settings.
type Config struct {
	// URL is the AnkiConnect endpoint.
	URL string
	// Deck is the target deck receiving new notes.
	Deck string
	// Model is the note type of created notes.
	Model string
	// Timeout bounds each request round-trip.
	Timeout time.Duration
	// Mapping locates the front and reading fields when reading keys
	// back out of existing notes.
	Mapping card.FieldMapping
	// HTTPClient overrides the default client, mainly for tests.
	HTTPClient *http.Client
}

// Client talks to AnkiConnect.
type Client struct {
	url     string
	deck    string
	model   string
	mapping card.FieldMapping
	http    *http.Client
	log     zerolog.Logger
}

// NewClient creates a client from cfg, applying defaults for unset values.
func NewClient(cfg Config, logger zerolog.Logger) *Client {
	url := cfg.URL
	if url == "" {
		url = DefaultURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		url:     url,
		deck:    cfg.Deck,
		model:   cfg.Model,
		mapping: cfg.Mapping,
		http:    httpClient,
		log:     logger,
	}
}

// Ping verifies the endpoint is reachable and speaks a compatible version.
func (c *Client) Ping(ctx context.Context) error {
	var version int
	if err := c.invoke(ctx, "version", nil, &version); err != nil {
		return fmt.Errorf("ankiconnect unreachable at %s: %w", c.url, err)
	}
	if version < connectVersion {
		return fmt.Errorf("ankiconnect version %d is older than required %d", version, connectVersion)
	}
	return nil
}

// ExistingKeys returns the dedup keys of every note currently in the deck.
// It is queried once per run so the run's view of "existing" stays stable.
func (c *Client) ExistingKeys(ctx context.Context) (map[card.Key]struct{}, error) {
	ids, err := c.FindNotes(ctx, fmt.Sprintf("deck:%q", c.deck))
	if err != nil {
		return nil, err
	}

	keys := make(map[card.Key]struct{}, len(ids))
	if len(ids) == 0 {
		return keys, nil
	}

	var infos []noteInfo
	params := map[string][]int64{"notes": ids}
	if err := c.invoke(ctx, "notesInfo", params, &infos); err != nil {
		return nil, err
	}

	frontField := c.mapping[card.RoleFront]
	readingField := c.mapping[card.RoleReading]
	for _, info := range infos {
		surface := info.Fields[frontField].Value
		if surface == "" {
			continue
		}
		// Decks whose note type has no reading field degrade to a
		// surface-only key, which still catches same-surface duplicates.
		reading := info.Fields[readingField].Value
		keys[card.NewKey(surface, reading)] = struct{}{}
	}
	c.log.Debug().Int("notes", len(ids)).Int("keys", len(keys)).Str("deck", c.deck).Msg("loaded existing note keys")
	return keys, nil
}

// FindNotes returns the ids of notes matching an Anki search query.
func (c *Client) FindNotes(ctx context.Context, query string) ([]int64, error) {
	var ids []int64
	params := map[string]string{"query": query}
	if err := c.invoke(ctx, "findNotes", params, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// AddNote creates the note in the configured deck. The store's own
// duplicate detection stays on as a second line of defense behind the
// pipeline's dedup gate; a rejection maps to ErrDuplicateNote.
func (c *Client) AddNote(ctx context.Context, n *card.Note) error {
	deck := n.Deck
	if deck == "" {
		deck = c.deck
	}
	model := n.Model
	if model == "" {
		model = c.model
	}

	params := map[string]any{
		"note": map[string]any{
			"deckName":  deck,
			"modelName": model,
			"fields":    n.Fields,
			"tags":      n.Tags,
			"options": map[string]any{
				"allowDuplicate": false,
				"duplicateScope": "deck",
				"duplicateScopeOptions": map[string]any{
					"deckName":       deck,
					"checkChildren":  false,
					"checkAllModels": false,
				},
			},
		},
	}

	var id int64
	if err := c.invoke(ctx, "addNote", params, &id); err != nil {
		// AnkiConnect reports this as "cannot create note because it
		// is a duplicate".
		if strings.Contains(strings.ToLower(err.Error()), "duplicate") {
			return ErrDuplicateNote
		}
		return err
	}
	c.log.Debug().Int64("note", id).Str("deck", deck).Msg("note created")
	return nil
}

// DeleteNotes removes notes by id.
func (c *Client) DeleteNotes(ctx context.Context, ids []int64) error {
	params := map[string][]int64{"notes": ids}
	return c.invoke(ctx, "deleteNotes", params, nil)
}

// invoke posts one envelope and decodes the result into out (which may be
// nil for actions without a meaningful result).
func (c *Client) invoke(ctx context.Context, action string, params, out any) error {
	body, err := json.Marshal(request{Action: action, Version: connectVersion, Params: params})
	if err != nil {
		return fmt.Errorf("encode %s request: %w", action, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", action, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s response: %w", action, err)
	}

	var envelope response
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("decode %s response: %w", action, err)
	}
	if envelope.Error != nil && *envelope.Error != "" {
		return fmt.Errorf("ankiconnect %s: %s", action, *envelope.Error)
	}
	if out != nil && len(envelope.Result) > 0 && string(envelope.Result) != "null" {
		if err := json.Unmarshal(envelope.Result, out); err != nil {
			return fmt.Errorf("decode %s result: %w", action, err)
		}
	}
	return nil
}
