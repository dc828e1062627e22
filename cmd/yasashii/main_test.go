package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/macintoshm/auto-anki-maker/pkg/card"
)

const testDict = `{
  "words": [
    {
      "id": "1",
      "kanji": [{"text": "猫", "common": true}],
      "kana": [{"text": "ねこ", "common": true}],
      "sense": [{"gloss": [{"text": "cat"}], "partOfSpeech": ["n"]}]
    }
  ]
}`

// A plain lookup must work with nothing configured but the dictionary:
// no deck, no note type, no field names.
func TestLookupOnlyNeedsNoDeckConfig(t *testing.T) {
	dict := filepath.Join(t.TempDir(), "jmdict.json")
	if err := os.WriteFile(dict, []byte(testDict), 0644); err != nil {
		t.Fatalf("write dict: %v", err)
	}
	t.Setenv("JMDICT_PATH", dict)
	t.Setenv("JMDICT_AUTO_DOWNLOAD", "false")

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"猫"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("lookup-only run failed: %v", err)
	}

	got := out.String()
	for _, want := range []string{"猫", "ねこ", "cat", "would create 1"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestEnsureDefaultRoles(t *testing.T) {
	m := card.FieldMapping{card.RoleFront: "Expression"}
	ensureDefaultRoles(m)

	if m[card.RoleFront] != "Expression" {
		t.Errorf("configured name must win, got %q", m[card.RoleFront])
	}
	if m[card.RoleReading] != "Reading" || m[card.RoleBack] != "Meaning" {
		t.Errorf("missing roles must get defaults, got %v", m)
	}
}
