// Package pipeline drives the per-word flow: resolve, select, synthesize,
// dedupe, submit.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/macintoshm/auto-anki-maker/pkg/card"
	"github.com/macintoshm/auto-anki-maker/pkg/resolver"
)

// CardStore is the network interface to the flashcard application.
type CardStore interface {
	// ExistingKeys returns the dedup keys of notes already in the target
	// deck. It is called exactly once per run.
	ExistingKeys(ctx context.Context) (map[card.Key]struct{}, error)
	// AddNote submits one note. A duplicate rejection is reported as an
	// error wrapping ErrDuplicateRejected.
	AddNote(ctx context.Context, n *card.Note) error
}

// ErrDuplicateRejected marks a store-side duplicate rejection, e.g. deck
// state the snapshot missed. The orchestrator treats it like a local
// duplicate, not a failure. Store implementations translate their native
// duplicate errors into this sentinel.
var ErrDuplicateRejected = errors.New("duplicate rejected by card store")

// Orchestrator runs the word list through the pipeline and aggregates
// per-word results. Collaborators are injected, not owned.
type Orchestrator struct {
	Resolver    *resolver.Resolver
	Selector    *card.Selector
	Synthesizer *card.Synthesizer
	// Store is the card store client. nil means a dry run: notes are
	// synthesized and deduplicated but never submitted.
	Store CardStore
	// Workers sets how many words are prepared concurrently. Preparation
	// is read-only against the shared index; admission and submission
	// always happen in input order on a single goroutine. 0 or 1 means
	// fully sequential.
	Workers int
	Logger  zerolog.Logger
	// OnResult, if set, is called with each word's terminal result in
	// input order.
	OnResult func(Result)
}

// prepared carries one word through the channel between the preparation
// workers and the ordered consumer.
type prepared struct {
	idx     int
	word    string
	note    *card.Note
	noMatch bool
	err     error // word-scoped failure
	fatal   error // aborts the whole run
}

// Run processes words in input order and returns the run summary. Per-word
// failures are isolated; the returned error is non-nil only for run-fatal
// conditions (snapshot unavailable, broken index, incomplete field
// mapping), in which case the summary covers the words processed so far.
func (o *Orchestrator) Run(ctx context.Context, words []string) (*Summary, error) {
	summary := &Summary{}
	if len(words) == 0 {
		return summary, nil
	}

	var existing map[card.Key]struct{}
	if o.Store != nil {
		var err error
		existing, err = o.Store.ExistingKeys(ctx)
		if err != nil {
			return summary, fmt.Errorf("load existing note keys: %w", err)
		}
	}
	gate := NewGate(existing)

	workers := o.Workers
	if workers <= 0 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	pool := newWorkerPool(workers, workers*2)
	pool.Start(ctx)
	resultCh := make(chan prepared, workers*2)

	// Producer: fan the words out to the preparation workers. The
	// producer is the only submitter and closes the pool and channel
	// itself, so no send can race a close.
	go func() {
		defer func() {
			pool.Close()
			close(resultCh)
		}()
		for i, w := range words {
			idx, word := i, w
			err := pool.SubmitCtx(ctx, func(ctx context.Context) {
				res := o.prepare(idx, word)
				select {
				case resultCh <- res:
				case <-ctx.Done():
				}
			})
			if err != nil {
				return
			}
		}
	}()

	// Consumer: restore input order, then admit and submit one word at a
	// time so the gate's check-and-insert stays strictly before the next
	// word's admit.
	buffer := make(map[int]prepared)
	nextIdx := 0
	var fatal error

	for res := range resultCh {
		buffer[res.idx] = res
		for {
			item, ok := buffer[nextIdx]
			if !ok {
				break
			}
			delete(buffer, nextIdx)
			nextIdx++

			if fatal != nil {
				continue // draining after abort
			}
			if item.fatal != nil {
				fatal = item.fatal
				cancel()
				continue
			}
			o.finish(ctx, gate, summary, item)
		}
	}

	if fatal != nil {
		return summary, fatal
	}
	if err := ctx.Err(); err != nil && summary.Total() < len(words) {
		return summary, err
	}
	return summary, nil
}

// parseQuery splits an input line into the word and an optional explicit
// reading hint, separated by a tab or comma: "角,かど".
func parseQuery(line string) (word, reading string) {
	sep := strings.IndexAny(line, ",\t")
	if sep < 0 {
		return line, ""
	}
	return strings.TrimSpace(line[:sep]), strings.TrimSpace(line[sep+1:])
}

// prepare runs the read-only stages for one word: resolve, select,
// synthesize. It is safe to call concurrently.
func (o *Orchestrator) prepare(idx int, line string) prepared {
	res := prepared{idx: idx, word: line}

	word, hint := parseQuery(line)
	candidates, err := o.Resolver.Resolve(word, hint)
	if err != nil {
		if errors.Is(err, resolver.ErrIndexUnavailable) {
			res.fatal = err
		} else {
			res.err = err
		}
		return res
	}

	sel, ok := o.Selector.Select(candidates)
	if !ok {
		res.noMatch = true
		return res
	}

	note, err := o.Synthesizer.Synthesize(sel)
	if err != nil {
		if errors.Is(err, card.ErrFieldMappingIncomplete) {
			// The mapping is broken for every word, not just this one.
			res.fatal = err
		} else {
			res.err = err
		}
		return res
	}
	res.note = note
	return res
}

// finish runs the serial stages for one word: admission and submission.
func (o *Orchestrator) finish(ctx context.Context, gate *Gate, summary *Summary, item prepared) {
	result := Result{Word: item.word}

	switch {
	case item.err != nil:
		result.Outcome = OutcomeFailed
		result.Err = item.err
	case item.noMatch:
		result.Outcome = OutcomeSkippedNoMatch
	case !gate.Admit(item.note.Key):
		result.Outcome = OutcomeSkippedDuplicate
	case o.Store == nil:
		result.Outcome = OutcomeCreated
		result.Note = item.note
	default:
		err := o.Store.AddNote(ctx, item.note)
		switch {
		case err == nil:
			result.Outcome = OutcomeCreated
			result.Note = item.note
		case errors.Is(err, ErrDuplicateRejected):
			// A race the local gate didn't catch; same as a skip.
			result.Outcome = OutcomeSkippedDuplicate
		default:
			result.Outcome = OutcomeFailed
			result.Err = err
		}
	}

	o.log(result)
	summary.record(result)
	if o.OnResult != nil {
		o.OnResult(result)
	}
}

func (o *Orchestrator) log(r Result) {
	ev := o.Logger.Debug()
	if r.Outcome == OutcomeFailed {
		ev = o.Logger.Warn().Err(r.Err)
	}
	ev.Str("word", r.Word).Stringer("outcome", r.Outcome).Msg("word processed")
}
