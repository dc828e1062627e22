// Package config loads and validates the tool's configuration from a YAML
// file and/or environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// ErrConfiguration marks a configuration problem that invalidates the whole
// run. It is raised before any word is processed or any card store call is
// made.
var ErrConfiguration = errors.New("invalid configuration")

// Config is the root configuration.
type Config struct {
	Anki       AnkiConfig       `yaml:"anki"`
	Dictionary DictionaryConfig `yaml:"dictionary"`
	Fields     FieldsConfig     `yaml:"fields"`
	Senses     SensesConfig     `yaml:"senses"`
	Log        LogConfig        `yaml:"log"`
}

// AnkiConfig holds the AnkiConnect endpoint and deck settings.
type AnkiConfig struct {
	URL      string        `yaml:"url"       env:"ANKI_URL"             env-default:"http://127.0.0.1:8765"`
	Deck     string        `yaml:"deck"      env:"AUTO_ANKI_DECK_NAME"`
	NoteType string        `yaml:"note_type" env:"AUTO_ANKI_CARD_TYPE"`
	Timeout  time.Duration `yaml:"timeout"   env:"ANKI_TIMEOUT"         env-default:"10s"`
}

// DictionaryConfig locates the jmdict-simplified file.
type DictionaryConfig struct {
	Path         string `yaml:"path"          env:"JMDICT_PATH"          env-default:"jmdict-eng-common.json"`
	AutoDownload bool   `yaml:"auto_download" env:"JMDICT_AUTO_DOWNLOAD" env-default:"true"`
}

// FieldsConfig maps the card's logical roles to the field names of the
// target deck's note type.
type FieldsConfig struct {
	Word                string `yaml:"word"                 env:"AUTO_ANKI_WORD_FIELD"`
	Reading             string `yaml:"reading"              env:"AUTO_ANKI_READING_FIELD"`
	Meaning             string `yaml:"meaning"              env:"AUTO_ANKI_MEANING_FIELD"`
	PartOfSpeech        string `yaml:"part_of_speech"       env:"AUTO_ANKI_PART_OF_SPEECH_FIELD"`
	Sentence            string `yaml:"sentence"             env:"AUTO_ANKI_SENTENCE_FIELD"`
	SentenceTranslation string `yaml:"sentence_translation" env:"AUTO_ANKI_SENTENCE_TRANSLATION_FIELD"`
}

// SensesConfig controls sense selection and formatting.
type SensesConfig struct {
	PrimaryOnly    bool     `yaml:"primary_only"    env:"AUTO_ANKI_PRIMARY_SENSE_ONLY" env-default:"false"`
	ExcludedTags   []string `yaml:"excluded_tags"   env:"AUTO_ANKI_EXCLUDED_TAGS"      env-separator:","`
	GlossSeparator string   `yaml:"gloss_separator" env:"AUTO_ANKI_GLOSS_SEPARATOR"    env-default:"; "`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
}

// Load reads configuration from the YAML file at path (optional, "" skips
// it) with environment variables taking precedence, then validates the
// parts every mode needs.
func Load(path string) (*Config, error) {
	var cfg Config
	var err error
	if path != "" {
		err = cleanenv.ReadConfig(path, &cfg)
	} else {
		err = cleanenv.ReadEnv(&cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks settings needed in every mode.
func (c *Config) Validate() error {
	if _, err := url.ParseRequestURI(c.Anki.URL); err != nil {
		return fmt.Errorf("%w: anki.url %q is not a valid URL", ErrConfiguration, c.Anki.URL)
	}
	if c.Dictionary.Path == "" {
		return fmt.Errorf("%w: dictionary.path must be set", ErrConfiguration)
	}
	if c.Senses.GlossSeparator == "" {
		return fmt.Errorf("%w: senses.gloss_separator must not be empty", ErrConfiguration)
	}
	return nil
}

// ValidateForCreate additionally checks everything card submission needs.
// It runs before any word is resolved, so a broken deck setup fails the
// whole run up front.
func (c *Config) ValidateForCreate() error {
	if c.Anki.Deck == "" {
		return fmt.Errorf("%w: anki.deck (AUTO_ANKI_DECK_NAME) must be set to create cards", ErrConfiguration)
	}
	if c.Anki.NoteType == "" {
		return fmt.Errorf("%w: anki.note_type (AUTO_ANKI_CARD_TYPE) must be set to create cards", ErrConfiguration)
	}
	missing := []string{}
	if c.Fields.Word == "" {
		missing = append(missing, "fields.word (AUTO_ANKI_WORD_FIELD)")
	}
	if c.Fields.Reading == "" {
		missing = append(missing, "fields.reading (AUTO_ANKI_READING_FIELD)")
	}
	if c.Fields.Meaning == "" {
		missing = append(missing, "fields.meaning (AUTO_ANKI_MEANING_FIELD)")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing field mapping: %v", ErrConfiguration, missing)
	}
	return nil
}
