package pipeline

import "github.com/macintoshm/auto-anki-maker/pkg/card"

// Outcome is the terminal state of one input word.
type Outcome int

const (
	// OutcomeCreated means a note was synthesized and submitted.
	OutcomeCreated Outcome = iota
	// OutcomeSkippedDuplicate means the note's key was already present,
	// either in the deck snapshot, earlier in this run, or rejected by
	// the store's own duplicate check.
	OutcomeSkippedDuplicate
	// OutcomeSkippedNoMatch means the dictionary has no usable entry.
	OutcomeSkippedNoMatch
	// OutcomeFailed means an unrecoverable per-word error occurred.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCreated:
		return "created"
	case OutcomeSkippedDuplicate:
		return "skipped-duplicate"
	case OutcomeSkippedNoMatch:
		return "skipped-no-match"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result is the per-word outcome. Note is set for created notes; Err is set
// for failures.
type Result struct {
	Word    string
	Outcome Outcome
	Note    *card.Note
	Err     error
}

// Failure pairs a word with the reason it failed.
type Failure struct {
	Word   string
	Reason string
}

// Summary aggregates one run. Every input word yields exactly one entry in
// Results, in input order.
type Summary struct {
	Created          int
	SkippedDuplicate int
	SkippedNoMatch   int
	Failed           int
	Failures         []Failure
	Results          []Result
}

func (s *Summary) record(r Result) {
	s.Results = append(s.Results, r)
	switch r.Outcome {
	case OutcomeCreated:
		s.Created++
	case OutcomeSkippedDuplicate:
		s.SkippedDuplicate++
	case OutcomeSkippedNoMatch:
		s.SkippedNoMatch++
	case OutcomeFailed:
		s.Failed++
		reason := "unknown error"
		if r.Err != nil {
			reason = r.Err.Error()
		}
		s.Failures = append(s.Failures, Failure{Word: r.Word, Reason: reason})
	}
}

// Total returns the number of words that reached a terminal state.
func (s *Summary) Total() int {
	return len(s.Results)
}
