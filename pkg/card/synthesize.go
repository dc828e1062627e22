package card

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/macintoshm/auto-anki-maker/pkg/dictionary"
)

// Role names a logical slot on the card, mapped to a concrete field name of
// the target deck's note type.
type Role string

const (
	RoleFront               Role = "front"
	RoleBack                Role = "back"
	RoleReading             Role = "reading"
	RolePartOfSpeech        Role = "partOfSpeech"
	RoleSentence            Role = "sentence"
	RoleSentenceTranslation Role = "sentenceTranslation"
)

// requiredRoles must be mapped before any note can be synthesized. The
// remaining roles are filled only when the deck has a field for them.
var requiredRoles = []Role{RoleFront, RoleBack, RoleReading}

// FieldMapping associates logical roles with the target deck's field names.
type FieldMapping map[Role]string

// ErrFieldMappingIncomplete is returned when a required role has no field
// name to place its content into.
var ErrFieldMappingIncomplete = errors.New("field mapping incomplete")

// PipelineTag marks every note created by this tool.
const PipelineTag = "auto-anki"

// Key identifies a note's uniqueness: the normalized (surface, reading)
// pair. Two notes with the same key are never both submitted.
type Key struct {
	Surface string
	Reading string
}

// NewKey normalizes a surface form and reading into a dedup key.
func NewKey(surface, reading string) Key {
	return Key{
		Surface: dictionary.Normalize(surface),
		Reading: dictionary.NormalizeReading(reading),
	}
}

// Note is the unit submitted to the card store.
type Note struct {
	Deck   string
	Model  string
	Fields map[string]string
	Tags   []string
	Key    Key
}

// DefaultGlossSeparator joins glosses on the back field unless configured
// otherwise.
const DefaultGlossSeparator = "; "

// Synthesizer maps a selected sense into the flashcard's field schema.
// Synthesis is pure: it never touches the card store.
type Synthesizer struct {
	Deck           string
	Model          string
	Mapping        FieldMapping
	GlossSeparator string
	// ExtraTags are appended to every note, e.g. the deck name.
	ExtraTags []string
}

// Synthesize builds a field-complete note from the selected sense.
func (s *Synthesizer) Synthesize(sel *SelectedSense) (*Note, error) {
	for _, role := range requiredRoles {
		if s.Mapping[role] == "" {
			return nil, fmt.Errorf("%w: no field mapped for role %q", ErrFieldMappingIncomplete, role)
		}
	}

	sep := s.GlossSeparator
	if sep == "" {
		sep = DefaultGlossSeparator
	}

	fields := map[string]string{
		s.Mapping[RoleFront]:   sel.Surface,
		s.Mapping[RoleBack]:    backText(sel.Senses, sep),
		s.Mapping[RoleReading]: sel.Reading,
	}

	if name := s.Mapping[RolePartOfSpeech]; name != "" {
		fields[name] = strings.Join(partsOfSpeech(sel.Senses), ", ")
	}
	if s.Mapping[RoleSentence] != "" || s.Mapping[RoleSentenceTranslation] != "" {
		jpn, eng := examplePair(sel.Senses)
		if name := s.Mapping[RoleSentence]; name != "" {
			fields[name] = jpn
		}
		if name := s.Mapping[RoleSentenceTranslation]; name != "" {
			fields[name] = eng
		}
	}

	return &Note{
		Deck:   s.Deck,
		Model:  s.Model,
		Fields: fields,
		Tags:   noteTags(sel.Senses, s.ExtraTags),
		Key:    NewKey(sel.Surface, sel.Reading),
	}, nil
}

// backText joins each sense's glosses with sep. When the card carries more
// than one sense, each gloss group is prefixed with its part-of-speech
// abbreviation so the meanings stay distinguishable on one card.
func backText(senses []dictionary.Sense, sep string) string {
	multi := len(senses) > 1
	groups := make([]string, 0, len(senses))
	for _, sense := range senses {
		group := strings.Join(sense.GlossTexts(), sep)
		if group == "" {
			continue
		}
		if multi && len(sense.PartOfSpeech) > 0 {
			group = fmt.Sprintf("[%s] %s", sense.PartOfSpeech[0], group)
		}
		groups = append(groups, group)
	}
	return strings.Join(groups, sep)
}

func partsOfSpeech(senses []dictionary.Sense) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, sense := range senses {
		for _, pos := range sense.PartOfSpeech {
			if _, ok := seen[pos]; ok {
				continue
			}
			seen[pos] = struct{}{}
			out = append(out, pos)
		}
	}
	return out
}

func examplePair(senses []dictionary.Sense) (jpn, eng string) {
	for _, sense := range senses {
		if j, e, ok := sense.ExamplePair(); ok {
			return j, e
		}
	}
	return "", ""
}

// noteTags derives the note's tags from the senses' usage tags plus the
// fixed pipeline-origin tag and any configured extras. Usage tags are
// sorted for deterministic output.
func noteTags(senses []dictionary.Sense, extra []string) []string {
	usage := make(map[string]struct{})
	for _, sense := range senses {
		for _, tag := range sense.Misc {
			usage[tag] = struct{}{}
		}
	}
	sorted := make([]string, 0, len(usage))
	for tag := range usage {
		sorted = append(sorted, tag)
	}
	sort.Strings(sorted)

	tags := []string{PipelineTag}
	tags = append(tags, sorted...)
	for _, t := range extra {
		if t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
