package anki

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macintoshm/auto-anki-maker/pkg/card"
)

// fakeConnect serves a minimal AnkiConnect endpoint driven by per-action
// handlers.
type fakeConnect struct {
	t        *testing.T
	handlers map[string]func(params json.RawMessage) (any, string)
	requests []string
}

func newFakeConnect(t *testing.T) (*fakeConnect, *Client) {
	t.Helper()
	f := &fakeConnect{t: t, handlers: map[string]func(json.RawMessage) (any, string){}}
	srv := httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(srv.Close)

	client := NewClient(Config{
		URL:   srv.URL,
		Deck:  "Japanese",
		Model: "Basic",
		Mapping: card.FieldMapping{
			card.RoleFront:   "Word",
			card.RoleReading: "Reading",
			card.RoleBack:    "Meaning",
		},
	}, zerolog.Nop())
	return f, client
}

func (f *fakeConnect) serve(w http.ResponseWriter, r *http.Request) {
	var env struct {
		Action  string          `json:"action"`
		Version int             `json:"version"`
		Params  json.RawMessage `json:"params"`
	}
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		f.t.Errorf("decode request: %v", err)
		return
	}
	if env.Version != 6 {
		f.t.Errorf("unexpected version %d", env.Version)
	}
	f.requests = append(f.requests, env.Action)

	handler, ok := f.handlers[env.Action]
	if !ok {
		f.t.Errorf("unexpected action %q", env.Action)
		return
	}
	result, errMsg := handler(env.Params)

	out := map[string]any{"result": result, "error": nil}
	if errMsg != "" {
		out["result"] = nil
		out["error"] = errMsg
	}
	if err := json.NewEncoder(w).Encode(out); err != nil {
		f.t.Errorf("encode response: %v", err)
	}
}

func TestPing(t *testing.T) {
	f, client := newFakeConnect(t)
	f.handlers["version"] = func(json.RawMessage) (any, string) { return 6, "" }

	require.NoError(t, client.Ping(context.Background()))
}

func TestPingRejectsOldVersion(t *testing.T) {
	f, client := newFakeConnect(t)
	f.handlers["version"] = func(json.RawMessage) (any, string) { return 4, "" }

	err := client.Ping(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "version 4")
}

func TestPingUnreachable(t *testing.T) {
	client := NewClient(Config{URL: "http://127.0.0.1:1"}, zerolog.Nop())
	assert.Error(t, client.Ping(context.Background()))
}

func TestExistingKeys(t *testing.T) {
	f, client := newFakeConnect(t)
	f.handlers["findNotes"] = func(params json.RawMessage) (any, string) {
		var p struct {
			Query string `json:"query"`
		}
		require.NoError(t, json.Unmarshal(params, &p))
		assert.Equal(t, `deck:"Japanese"`, p.Query)
		return []int64{11, 12, 13}, ""
	}
	f.handlers["notesInfo"] = func(params json.RawMessage) (any, string) {
		var p struct {
			Notes []int64 `json:"notes"`
		}
		require.NoError(t, json.Unmarshal(params, &p))
		assert.Equal(t, []int64{11, 12, 13}, p.Notes)
		return []map[string]any{
			{
				"noteId":    11,
				"modelName": "Basic",
				"fields": map[string]any{
					"Word":    map[string]any{"value": "猫", "order": 0},
					"Reading": map[string]any{"value": "ネコ", "order": 1},
				},
			},
			{
				"noteId":    12,
				"modelName": "Basic",
				"fields": map[string]any{
					"Word":    map[string]any{"value": "犬", "order": 0},
					"Reading": map[string]any{"value": "いぬ", "order": 1},
				},
			},
			{
				// A note without a usable front field contributes no key.
				"noteId":    13,
				"modelName": "Basic",
				"fields": map[string]any{
					"Word": map[string]any{"value": "", "order": 0},
				},
			},
		}, ""
	}

	keys, err := client.ExistingKeys(context.Background())
	require.NoError(t, err)
	assert.Len(t, keys, 2)
	// Readings fold to hiragana in the key.
	assert.Contains(t, keys, card.NewKey("猫", "ねこ"))
	assert.Contains(t, keys, card.NewKey("犬", "いぬ"))
}

func TestExistingKeysEmptyDeck(t *testing.T) {
	f, client := newFakeConnect(t)
	f.handlers["findNotes"] = func(json.RawMessage) (any, string) { return []int64{}, "" }

	keys, err := client.ExistingKeys(context.Background())
	require.NoError(t, err)
	assert.Empty(t, keys)
	// notesInfo is skipped entirely when the deck has no notes.
	assert.Equal(t, []string{"findNotes"}, f.requests)
}

func TestAddNote(t *testing.T) {
	f, client := newFakeConnect(t)
	f.handlers["addNote"] = func(params json.RawMessage) (any, string) {
		var p struct {
			Note struct {
				DeckName  string            `json:"deckName"`
				ModelName string            `json:"modelName"`
				Fields    map[string]string `json:"fields"`
				Tags      []string          `json:"tags"`
				Options   struct {
					AllowDuplicate bool   `json:"allowDuplicate"`
					DuplicateScope string `json:"duplicateScope"`
				} `json:"options"`
			} `json:"note"`
		}
		require.NoError(t, json.Unmarshal(params, &p))
		assert.Equal(t, "Japanese", p.Note.DeckName)
		assert.Equal(t, "Basic", p.Note.ModelName)
		assert.Equal(t, "猫", p.Note.Fields["Word"])
		assert.Contains(t, p.Note.Tags, card.PipelineTag)
		assert.False(t, p.Note.Options.AllowDuplicate)
		assert.Equal(t, "deck", p.Note.Options.DuplicateScope)
		return 1234, ""
	}

	note := &card.Note{
		Deck:   "Japanese",
		Model:  "Basic",
		Fields: map[string]string{"Word": "猫", "Reading": "ねこ", "Meaning": "cat"},
		Tags:   []string{card.PipelineTag},
		Key:    card.NewKey("猫", "ねこ"),
	}
	require.NoError(t, client.AddNote(context.Background(), note))
}

func TestAddNoteDuplicate(t *testing.T) {
	f, client := newFakeConnect(t)
	f.handlers["addNote"] = func(json.RawMessage) (any, string) {
		return nil, "cannot create note because it is a duplicate"
	}

	err := client.AddNote(context.Background(), &card.Note{Fields: map[string]string{}})
	assert.ErrorIs(t, err, ErrDuplicateNote)
}

func TestAddNoteAPIError(t *testing.T) {
	f, client := newFakeConnect(t)
	f.handlers["addNote"] = func(json.RawMessage) (any, string) {
		return nil, "model was not found: Nonsense"
	}

	err := client.AddNote(context.Background(), &card.Note{Fields: map[string]string{}})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrDuplicateNote)
	assert.Contains(t, err.Error(), "model was not found")
}

func TestAddNoteFallsBackToConfiguredDeck(t *testing.T) {
	f, client := newFakeConnect(t)
	f.handlers["addNote"] = func(params json.RawMessage) (any, string) {
		var p struct {
			Note struct {
				DeckName  string `json:"deckName"`
				ModelName string `json:"modelName"`
			} `json:"note"`
		}
		require.NoError(t, json.Unmarshal(params, &p))
		assert.Equal(t, "Japanese", p.Note.DeckName)
		assert.Equal(t, "Basic", p.Note.ModelName)
		return 1, ""
	}

	// Note carries no deck or model of its own.
	require.NoError(t, client.AddNote(context.Background(), &card.Note{Fields: map[string]string{}}))
}

func TestDeleteNotes(t *testing.T) {
	f, client := newFakeConnect(t)
	f.handlers["deleteNotes"] = func(params json.RawMessage) (any, string) {
		var p struct {
			Notes []int64 `json:"notes"`
		}
		require.NoError(t, json.Unmarshal(params, &p))
		assert.Equal(t, []int64{7, 8}, p.Notes)
		return nil, ""
	}

	require.NoError(t, client.DeleteNotes(context.Background(), []int64{7, 8}))
}

func TestInvokeMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "not json")
	}))
	defer srv.Close()

	client := NewClient(Config{URL: srv.URL}, zerolog.Nop())
	assert.Error(t, client.Ping(context.Background()))
}
