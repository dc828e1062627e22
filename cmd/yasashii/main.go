// Command yasashii looks up Japanese vocabulary words in a JMdict
// dictionary and turns them into Anki flashcards via AnkiConnect.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/macintoshm/auto-anki-maker/pkg/anki"
	"github.com/macintoshm/auto-anki-maker/pkg/card"
	"github.com/macintoshm/auto-anki-maker/pkg/config"
	"github.com/macintoshm/auto-anki-maker/pkg/dictionary"
	"github.com/macintoshm/auto-anki-maker/pkg/harvest"
	"github.com/macintoshm/auto-anki-maker/pkg/history"
	"github.com/macintoshm/auto-anki-maker/pkg/pipeline"
	"github.com/macintoshm/auto-anki-maker/pkg/resolver"
)

type options struct {
	file        string
	url         string
	configPath  string
	historyPath string
	logLevel    string
	create      bool
	workers     int
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "yasashii [words...]",
		Short: "Japanese dictionary lookup tool for creating Anki cards",
		Long: `yasashii resolves Japanese words against a JMdict dictionary and
synthesizes Anki notes from the best matching entry. Without --create it
only prints the cards it would make.

Words can be given as arguments, one per line in a file (-f), or harvested
from a web article (--url). A line may carry an explicit reading hint after
a comma or tab, e.g. "角,かど".`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, args)
		},
	}

	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "path to a text file containing words, one per line")
	cmd.Flags().StringVar(&opts.url, "url", "", "harvest input words from a web article")
	cmd.Flags().BoolVarP(&opts.create, "create", "c", false, "create the cards in Anki instead of just printing them")
	cmd.Flags().IntVar(&opts.workers, "workers", 1, "number of concurrent dictionary lookups")
	cmd.Flags().StringVar(&opts.configPath, "config", "", "path to a YAML config file (environment variables take precedence)")
	cmd.Flags().StringVar(&opts.historyPath, "history", "", "path to a sqlite file recording runs and created notes")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")

	return cmd
}

func run(cmd *cobra.Command, opts *options, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}

	level := cfg.Log.Level
	if opts.logLevel != "" {
		level = opts.logLevel
	}
	logger := newLogger(level)

	// Fail the whole run on a broken deck setup before any lookup or
	// store call happens.
	if opts.create {
		if err := cfg.ValidateForCreate(); err != nil {
			logger.Error().Err(err).Msg("configuration rejected")
			return err
		}
	}

	words, err := gatherWords(ctx, opts, args, logger)
	if err != nil {
		return err
	}
	if len(words) == 0 {
		return cmd.Help()
	}
	logger.Info().Int("words", len(words)).Msg("input collected")

	index, err := loadIndex(ctx, cfg, logger)
	if err != nil {
		return err
	}

	res := &resolver.Resolver{Index: index}
	if deconj, err := resolver.NewKagomeDeconjugator(); err != nil {
		logger.Warn().Err(err).Msg("morphological analyzer unavailable; conjugated forms will not resolve")
	} else {
		res.Deconjugator = deconj
	}

	mapping := fieldMapping(cfg)
	if !opts.create {
		// Lookup-only runs need no deck configuration; fall back to
		// generic field names so synthesis can proceed.
		ensureDefaultRoles(mapping)
	}
	orch := &pipeline.Orchestrator{
		Resolver: res,
		Selector: &card.Selector{
			PrimaryOnly:  cfg.Senses.PrimaryOnly,
			ExcludedTags: cfg.Senses.ExcludedTags,
		},
		Synthesizer: &card.Synthesizer{
			Deck:           cfg.Anki.Deck,
			Model:          cfg.Anki.NoteType,
			Mapping:        mapping,
			GlossSeparator: cfg.Senses.GlossSeparator,
		},
		Workers: opts.workers,
		Logger:  logger,
	}

	if opts.create {
		client := anki.NewClient(anki.Config{
			URL:     cfg.Anki.URL,
			Deck:    cfg.Anki.Deck,
			Model:   cfg.Anki.NoteType,
			Timeout: cfg.Anki.Timeout,
			Mapping: mapping,
		}, logger)
		if err := client.Ping(ctx); err != nil {
			return err
		}
		orch.Store = &ankiStore{client: client}
	} else {
		orch.OnResult = func(r pipeline.Result) {
			if r.Outcome == pipeline.OutcomeCreated {
				printNote(cmd.OutOrStdout(), r.Note, mapping)
			}
		}
	}

	summary, runErr := orch.Run(ctx, words)
	printSummary(cmd.OutOrStdout(), summary, opts.create)

	if opts.historyPath != "" && opts.create {
		if err := recordHistory(opts.historyPath, cfg.Anki.Deck, summary); err != nil {
			logger.Warn().Err(err).Msg("could not record run history")
		}
	}

	if runErr != nil {
		logger.Error().Err(runErr).Msg("run aborted")
		return runErr
	}
	return nil
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	return zerolog.New(writer).Level(lvl).With().Timestamp().Logger()
}

// gatherWords merges the three input sources: positional arguments, the
// word file, and the harvested article.
func gatherWords(ctx context.Context, opts *options, args []string, logger zerolog.Logger) ([]string, error) {
	words := make([]string, 0, len(args))
	for _, a := range args {
		if strings.TrimSpace(a) != "" {
			words = append(words, a)
		}
	}

	if opts.file != "" {
		fromFile, err := readWordFile(opts.file)
		if err != nil {
			return nil, err
		}
		words = append(words, fromFile...)
	}

	if opts.url != "" {
		h, err := harvest.NewHarvester(logger)
		if err != nil {
			return nil, fmt.Errorf("init harvester: %w", err)
		}
		fromURL, err := h.FromURL(ctx, opts.url)
		if err != nil {
			return nil, err
		}
		logger.Info().Int("words", len(fromURL)).Str("url", opts.url).Msg("harvested article")
		words = append(words, fromURL...)
	}

	return words, nil
}

func readWordFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read word file: %w", err)
	}
	var words []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			words = append(words, line)
		}
	}
	return words, nil
}

func loadIndex(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*dictionary.Index, error) {
	path := cfg.Dictionary.Path
	if cfg.Dictionary.AutoDownload {
		if err := dictionary.EnsureDictionary(ctx, path); err != nil {
			logger.Warn().Err(err).Str("path", path).Msg("dictionary auto-download failed")
		}
	}

	start := time.Now()
	entries, err := dictionary.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load dictionary %s: %w", path, err)
	}
	index := dictionary.NewIndex(entries)
	logger.Info().Int("entries", len(entries)).Dur("elapsed", time.Since(start)).Msg("dictionary loaded")
	return index, nil
}

func fieldMapping(cfg *config.Config) card.FieldMapping {
	m := card.FieldMapping{}
	set := func(role card.Role, name string) {
		if name != "" {
			m[role] = name
		}
	}
	set(card.RoleFront, cfg.Fields.Word)
	set(card.RoleReading, cfg.Fields.Reading)
	set(card.RoleBack, cfg.Fields.Meaning)
	set(card.RolePartOfSpeech, cfg.Fields.PartOfSpeech)
	set(card.RoleSentence, cfg.Fields.Sentence)
	set(card.RoleSentenceTranslation, cfg.Fields.SentenceTranslation)
	return m
}

// ensureDefaultRoles fills unmapped required roles with generic names.
// Configured names always win.
func ensureDefaultRoles(m card.FieldMapping) {
	defaults := map[card.Role]string{
		card.RoleFront:   "Word",
		card.RoleReading: "Reading",
		card.RoleBack:    "Meaning",
	}
	for role, name := range defaults {
		if m[role] == "" {
			m[role] = name
		}
	}
}

func printNote(w io.Writer, n *card.Note, mapping card.FieldMapping) {
	fmt.Fprintf(w, "%s", n.Fields[mapping[card.RoleFront]])
	if reading := n.Fields[mapping[card.RoleReading]]; reading != "" {
		fmt.Fprintf(w, " (%s)", reading)
	}
	fmt.Fprintf(w, "\n  %s\n", n.Fields[mapping[card.RoleBack]])
	if pos := n.Fields[mapping[card.RolePartOfSpeech]]; pos != "" {
		fmt.Fprintf(w, "  [%s]\n", pos)
	}
	fmt.Fprintln(w)
}

func printSummary(w io.Writer, s *pipeline.Summary, created bool) {
	verb := "would create"
	if created {
		verb = "created"
	}
	fmt.Fprintf(w, "%s %d, duplicates %d, no match %d, failed %d\n",
		verb, s.Created, s.SkippedDuplicate, s.SkippedNoMatch, s.Failed)
	for _, f := range s.Failures {
		fmt.Fprintf(w, "  %s: %s\n", f.Word, f.Reason)
	}
}

func recordHistory(path, deck string, summary *pipeline.Summary) error {
	store, err := history.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()
	_, err = store.RecordRun(deck, summary)
	return err
}

// ankiStore adapts the AnkiConnect client to the pipeline's store
// interface, translating its duplicate error into the pipeline sentinel.
type ankiStore struct {
	client *anki.Client
}

func (s *ankiStore) ExistingKeys(ctx context.Context) (map[card.Key]struct{}, error) {
	return s.client.ExistingKeys(ctx)
}

func (s *ankiStore) AddNote(ctx context.Context, n *card.Note) error {
	err := s.client.AddNote(ctx, n)
	if errors.Is(err, anki.ErrDuplicateNote) {
		return pipeline.ErrDuplicateRejected
	}
	return err
}
