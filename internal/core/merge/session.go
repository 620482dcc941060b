// Package merge drives the "merge two annotations into one" interaction.
package merge

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/agenthands/redline/internal/core/model"
)

// Merger is the external decision service that fuses two annotations.
type Merger interface {
	Merge(ctx context.Context, req model.MergeRequest) (model.Annotation, error)
}

type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseSelecting  Phase = "selecting"
	PhaseConfirming Phase = "confirming"
	PhaseInFlight   Phase = "in_flight"
	PhaseCompleted  Phase = "completed"
	PhaseFailed     Phase = "failed"
)

// Outcome is the result of one Confirm call.
type Outcome string

const (
	OutcomeMerged    Outcome = "merged"
	OutcomeRejected  Outcome = "rejected"
	OutcomeFailed    Outcome = "failed"
	OutcomeDiscarded Outcome = "discarded"
)

var (
	ErrMergeInFlight = errors.New("merge request in flight")
	ErrNotSelecting  = errors.New("merge mode is not active")
)

// Document is what a merge operates on: the three texts and the current
// annotation list.
type Document struct {
	Source      string
	Attempt     string
	Corrected   string
	Annotations []model.Annotation
}

// State is a snapshot for rendering.
type State struct {
	Phase     Phase      `json:"phase"`
	Selection []model.ID `json:"selection"`
	Error     string     `json:"error,omitempty"`
	MergedID  model.ID   `json:"merged_id,omitempty"`
}

type Result struct {
	Outcome Outcome
	Merged  model.Annotation
	Err     error
}

// Session is owned by a single workspace. The mutex only guards against the
// merge response landing while the owner reads state; there is at most one
// request in flight.
type Session struct {
	mu          sync.Mutex
	merger      Merger
	newID       func() model.ID
	doc         Document
	phase       Phase
	selection   []model.ID
	errMsg      string
	mergedID    model.ID
	generation  int
	subscribers []func(State)
}

func NewSession(merger Merger, doc Document, newID func() model.ID) *Session {
	doc.Annotations = model.Clone(doc.Annotations)
	return &Session{
		merger: merger,
		newID:  newID,
		doc:    doc,
		phase:  PhaseIdle,
	}
}

// Subscribe registers fn to be called with every new state. Callbacks run
// on the goroutine that caused the change, outside the session lock.
func (s *Session) Subscribe(fn func(State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// Annotations returns a copy of the current list.
func (s *Session) Annotations() []model.Annotation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.Clone(s.doc.Annotations)
}

// Document returns a copy of the texts and current list.
func (s *Session) Document() Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := s.doc
	doc.Annotations = model.Clone(doc.Annotations)
	return doc
}

// Reset replaces the document, e.g. after a new correction run. Any open
// merge mode is left and a late merge result is dropped.
func (s *Session) Reset(doc Document) {
	s.mu.Lock()
	doc.Annotations = model.Clone(doc.Annotations)
	s.doc = doc
	s.leave()
	st := s.snapshot()
	s.mu.Unlock()
	s.notify(st)
}

// Enter turns merge mode on. A seed id, if it names an annotation in the
// list, becomes the only selected id.
func (s *Session) Enter(seed *model.ID) {
	s.mu.Lock()
	if s.phase == PhaseInFlight {
		s.mu.Unlock()
		return
	}
	if s.phase == PhaseIdle {
		s.selection = nil
	}
	if seed != nil && model.IndexOf(s.doc.Annotations, *seed) >= 0 {
		s.selection = []model.ID{*seed}
	}
	s.phase = PhaseSelecting
	s.errMsg = ""
	st := s.snapshot()
	s.mu.Unlock()
	s.notify(st)
}

// Toggle adds or removes id from the selection. Adding a third id is
// refused and reported as false.
func (s *Session) Toggle(id model.ID) bool {
	s.mu.Lock()
	if s.phase != PhaseSelecting && s.phase != PhaseFailed {
		s.mu.Unlock()
		return false
	}
	if i := indexOf(s.selection, id); i >= 0 {
		s.selection = append(s.selection[:i:i], s.selection[i+1:]...)
	} else {
		if len(s.selection) >= 2 || model.IndexOf(s.doc.Annotations, id) < 0 {
			s.mu.Unlock()
			return false
		}
		s.selection = append(s.selection, id)
	}
	s.phase = PhaseSelecting
	s.errMsg = ""
	st := s.snapshot()
	s.mu.Unlock()
	s.notify(st)
	return true
}

// CanConfirm reports whether Confirm would reach the merger.
func (s *Session) CanConfirm() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.selected()
	return ok
}

// Confirm sends the two selected annotations to the merger and folds the
// answer back into the list. It blocks until the merger returns.
func (s *Session) Confirm(ctx context.Context, rationale string) Result {
	s.mu.Lock()
	pair, ok := s.selected()
	if !ok {
		s.mu.Unlock()
		return Result{Outcome: OutcomeRejected}
	}
	s.phase = PhaseConfirming
	if rationale == "" {
		rationale = DefaultRationale(pair)
	}
	req := model.MergeRequest{
		Source:      s.doc.Source,
		Attempt:     s.doc.Attempt,
		Corrected:   s.doc.Corrected,
		Annotations: model.Clone(pair),
		Rationale:   rationale,
	}
	s.phase = PhaseInFlight
	gen := s.generation
	st := s.snapshot()
	s.mu.Unlock()
	s.notify(st)

	merged, err := s.merger.Merge(ctx, req)
	if err == nil && strings.TrimSpace(merged.Span) == "" {
		err = errors.New("merged annotation has an empty span")
	}

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return Result{Outcome: OutcomeDiscarded, Err: err}
	}
	if err != nil {
		s.phase = PhaseFailed
		s.errMsg = fmt.Sprintf("failed to merge annotations: %v", err)
		st := s.snapshot()
		s.mu.Unlock()
		s.notify(st)
		return Result{Outcome: OutcomeFailed, Err: err}
	}

	merged = s.fold(pair, merged)
	s.phase = PhaseCompleted
	s.selection = nil
	s.mergedID = merged.ID
	completed := s.snapshot()
	s.phase = PhaseIdle
	s.generation++
	idle := s.snapshot()
	s.mu.Unlock()

	s.notify(completed)
	s.notify(idle)
	return Result{Outcome: OutcomeMerged, Merged: merged}
}

// Cancel leaves merge mode from Selecting or Failed. It is refused while a
// request is in flight.
func (s *Session) Cancel() error {
	s.mu.Lock()
	switch s.phase {
	case PhaseInFlight, PhaseConfirming:
		s.mu.Unlock()
		return ErrMergeInFlight
	case PhaseSelecting, PhaseFailed:
	default:
		s.mu.Unlock()
		return ErrNotSelecting
	}
	s.leave()
	st := s.snapshot()
	s.mu.Unlock()
	s.notify(st)
	return nil
}

// Exit leaves merge mode unconditionally. A request still in flight keeps
// running but its result is ignored when it arrives.
func (s *Session) Exit() {
	s.mu.Lock()
	s.leave()
	st := s.snapshot()
	s.mu.Unlock()
	s.notify(st)
}

func (s *Session) leave() {
	s.phase = PhaseIdle
	s.selection = nil
	s.errMsg = ""
	s.mergedID = ""
	s.generation++
}

// fold swaps the pair for merged at the earlier of the two positions.
// Caller holds the lock.
func (s *Session) fold(pair []model.Annotation, merged model.Annotation) model.Annotation {
	anns := s.doc.Annotations
	at := model.IndexOf(anns, pair[0].ID)
	if j := model.IndexOf(anns, pair[1].ID); j < at {
		at = j
	}

	out := make([]model.Annotation, 0, len(anns)-1)
	for _, a := range anns {
		if a.ID != pair[0].ID && a.ID != pair[1].ID {
			out = append(out, a)
		}
	}
	if merged.ID == "" || model.IndexOf(out, merged.ID) >= 0 {
		merged.ID = s.newID()
	}
	out = append(out, model.Annotation{})
	copy(out[at+1:], out[at:])
	out[at] = merged

	s.doc.Annotations = out
	return merged
}

// selected returns the two selected annotations in selection order when a
// merge may start. Caller holds the lock.
func (s *Session) selected() ([]model.Annotation, bool) {
	if s.phase != PhaseSelecting && s.phase != PhaseFailed {
		return nil, false
	}
	if len(s.selection) != 2 {
		return nil, false
	}
	pair := make([]model.Annotation, 0, 2)
	for _, id := range s.selection {
		i := model.IndexOf(s.doc.Annotations, id)
		if i < 0 {
			return nil, false
		}
		pair = append(pair, s.doc.Annotations[i])
	}
	return pair, true
}

func (s *Session) snapshot() State {
	return State{
		Phase:     s.phase,
		Selection: append([]model.ID{}, s.selection...),
		Error:     s.errMsg,
		MergedID:  s.mergedID,
	}
}

func (s *Session) notify(st State) {
	s.mu.Lock()
	subs := append([]func(State){}, s.subscribers...)
	s.mu.Unlock()
	for _, fn := range subs {
		fn(st)
	}
}

// DefaultRationale explains the merge to the merger when the user gave no
// reason.
func DefaultRationale(pair []model.Annotation) string {
	spans := make([]string, 0, len(pair))
	for _, a := range pair {
		spans = append(spans, a.Span)
	}
	return fmt.Sprintf("User pinched errors to merge into a memorable phrase: %s.", strings.Join(spans, " + "))
}

func indexOf(ids []model.ID, id model.ID) int {
	for i, x := range ids {
		if x == id {
			return i
		}
	}
	return -1
}
