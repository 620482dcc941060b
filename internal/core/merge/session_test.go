package merge

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/agenthands/redline/internal/core/align"
	"github.com/agenthands/redline/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDoc() Document {
	return Document{
		Source:    "我昨天去了商店。",
		Attempt:   "I go to the shop yesterday.",
		Corrected: "I went to the store yesterday.",
		Annotations: []model.Annotation{
			{ID: "A", Span: "go", Category: model.Morphological, Suggestion: "went", Hints: &model.Hints{Before: "I ", After: " to"}},
			{ID: "X", Span: "the", Category: model.Syntactic},
			{ID: "B", Span: "shop", Category: model.Lexical, Suggestion: "store"},
		},
	}
}

func idGen() func() model.ID {
	n := 0
	return func() model.ID {
		n++
		return model.ID(fmt.Sprintf("gen-%d", n))
	}
}

func selecting(t *testing.T, m Merger, ids ...model.ID) *Session {
	t.Helper()
	s := NewSession(m, testDoc(), idGen())
	s.Enter(nil)
	for _, id := range ids {
		require.True(t, s.Toggle(id))
	}
	return s
}

func TestEnter_SeedsSelection(t *testing.T) {
	s := NewSession(&MockMerger{}, testDoc(), idGen())
	assert.Equal(t, PhaseIdle, s.State().Phase)

	seed := model.ID("B")
	s.Enter(&seed)
	st := s.State()
	assert.Equal(t, PhaseSelecting, st.Phase)
	assert.Equal(t, []model.ID{"B"}, st.Selection)

	unknown := model.ID("nope")
	s.Enter(&unknown)
	assert.Equal(t, []model.ID{"B"}, s.State().Selection)
}

func TestToggle_ThirdSelectionIsRejected(t *testing.T) {
	s := selecting(t, &MockMerger{}, "A", "B")

	assert.False(t, s.Toggle("X"))
	assert.Equal(t, []model.ID{"A", "B"}, s.State().Selection)

	assert.True(t, s.Toggle("A"))
	assert.Equal(t, []model.ID{"B"}, s.State().Selection)
	assert.True(t, s.Toggle("X"))
	assert.Equal(t, []model.ID{"B", "X"}, s.State().Selection)
}

func TestToggle_IgnoredOutsideMergeMode(t *testing.T) {
	s := NewSession(&MockMerger{}, testDoc(), idGen())
	assert.False(t, s.Toggle("A"))
	assert.Empty(t, s.State().Selection)
}

func TestConfirm_RejectedWithoutTwoSelections(t *testing.T) {
	m := &MockMerger{Response: model.Annotation{ID: "C", Span: "go to the shop"}}
	for _, ids := range [][]model.ID{nil, {"A"}} {
		s := selecting(t, m, ids...)
		assert.False(t, s.CanConfirm())
		res := s.Confirm(context.Background(), "")
		assert.Equal(t, OutcomeRejected, res.Outcome)
	}

	idle := NewSession(m, testDoc(), idGen())
	assert.Equal(t, OutcomeRejected, idle.Confirm(context.Background(), "").Outcome)
	assert.Equal(t, 0, m.Calls())
}

func TestConfirm_MergesAtEarlierPosition(t *testing.T) {
	m := &MockMerger{Response: model.Annotation{
		ID: "C", Span: "go to the shop", Category: model.Lexical, Suggestion: "went to the store",
	}}
	s := selecting(t, m, "B", "A")
	require.True(t, s.CanConfirm())

	var phases []Phase
	s.Subscribe(func(st State) { phases = append(phases, st.Phase) })

	res := s.Confirm(context.Background(), "")
	require.Equal(t, OutcomeMerged, res.Outcome)
	assert.NoError(t, res.Err)

	anns := s.Annotations()
	require.Len(t, anns, 2)
	assert.Equal(t, model.ID("C"), anns[0].ID)
	assert.Equal(t, model.ID("X"), anns[1].ID)

	st := s.State()
	assert.Equal(t, PhaseIdle, st.Phase)
	assert.Empty(t, st.Selection)
	assert.Equal(t, model.ID("C"), st.MergedID)
	assert.Equal(t, []Phase{PhaseInFlight, PhaseCompleted, PhaseIdle}, phases)

	require.Len(t, m.Requests, 1)
	req := m.Requests[0]
	assert.Equal(t, "I go to the shop yesterday.", req.Attempt)
	assert.Equal(t, "I went to the store yesterday.", req.Corrected)
	assert.Equal(t, []model.ID{"B", "A"}, []model.ID{req.Annotations[0].ID, req.Annotations[1].ID})
	assert.Equal(t, "User pinched errors to merge into a memorable phrase: shop + go.", req.Rationale)

	doc := s.Document()
	hs := align.ComputeHighlights(doc.Attempt, anns)
	require.Len(t, hs, 2)
	assert.Equal(t, model.ID("C"), hs[0].ID)
	assert.Equal(t, model.Range{Lower: 2, Upper: 16}, hs[0].Range)
}

func TestConfirm_ReplacesCollidingOrEmptyID(t *testing.T) {
	m := &MockMerger{Response: model.Annotation{ID: "X", Span: "go"}}
	s := selecting(t, m, "A", "B")
	res := s.Confirm(context.Background(), "custom")
	require.Equal(t, OutcomeMerged, res.Outcome)
	assert.Equal(t, model.ID("gen-1"), res.Merged.ID)
	assert.Equal(t, "custom", m.Requests[0].Rationale)

	m = &MockMerger{Response: model.Annotation{Span: "go"}}
	s = selecting(t, m, "A", "B")
	res = s.Confirm(context.Background(), "")
	require.Equal(t, OutcomeMerged, res.Outcome)
	assert.Equal(t, model.ID("gen-1"), res.Merged.ID)
}

func TestConfirm_FailureLeavesListUntouched(t *testing.T) {
	m := &MockMerger{Err: fmt.Errorf("status 500")}
	s := selecting(t, m, "A", "B")
	before, err := json.Marshal(s.Annotations())
	require.NoError(t, err)

	res := s.Confirm(context.Background(), "")
	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.Error(t, res.Err)

	after, err := json.Marshal(s.Annotations())
	require.NoError(t, err)
	assert.Equal(t, before, after)

	st := s.State()
	assert.Equal(t, PhaseFailed, st.Phase)
	assert.Equal(t, []model.ID{"A", "B"}, st.Selection)
	assert.Contains(t, st.Error, "status 500")

	// retry from Failed
	m.Err = nil
	m.Response = model.Annotation{ID: "C", Span: "go"}
	assert.Equal(t, OutcomeMerged, s.Confirm(context.Background(), "").Outcome)
}

func TestConfirm_EmptyMergedSpanIsFailure(t *testing.T) {
	m := &MockMerger{Response: model.Annotation{ID: "C", Span: "  "}}
	s := selecting(t, m, "A", "B")
	res := s.Confirm(context.Background(), "")
	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.Len(t, s.Annotations(), 3)
}

func TestCancel(t *testing.T) {
	s := selecting(t, &MockMerger{}, "A")
	require.NoError(t, s.Cancel())
	st := s.State()
	assert.Equal(t, PhaseIdle, st.Phase)
	assert.Empty(t, st.Selection)

	assert.ErrorIs(t, s.Cancel(), ErrNotSelecting)

	m := &MockMerger{Err: fmt.Errorf("boom")}
	s = selecting(t, m, "A", "B")
	s.Confirm(context.Background(), "")
	require.Equal(t, PhaseFailed, s.State().Phase)
	assert.NoError(t, s.Cancel())
	assert.Equal(t, PhaseIdle, s.State().Phase)
}

func TestInFlight_GuardsAndLateResultDiscarded(t *testing.T) {
	m := &MockMerger{
		Response: model.Annotation{ID: "C", Span: "go to the shop"},
		Started:  make(chan struct{}),
		Release:  make(chan struct{}),
	}
	s := selecting(t, m, "A", "B")

	done := make(chan Result)
	go func() { done <- s.Confirm(context.Background(), "") }()
	<-m.Started

	assert.Equal(t, PhaseInFlight, s.State().Phase)
	assert.False(t, s.CanConfirm())
	assert.Equal(t, OutcomeRejected, s.Confirm(context.Background(), "").Outcome)
	assert.ErrorIs(t, s.Cancel(), ErrMergeInFlight)
	assert.False(t, s.Toggle("X"))

	s.Exit()
	assert.Equal(t, PhaseIdle, s.State().Phase)

	close(m.Release)
	res := <-done
	assert.Equal(t, OutcomeDiscarded, res.Outcome)
	assert.Len(t, s.Annotations(), 3)
	assert.Equal(t, 1, m.Calls())
}

func TestInFlight_CompletesWhenNotExited(t *testing.T) {
	m := &MockMerger{
		Response: model.Annotation{ID: "C", Span: "go"},
		Started:  make(chan struct{}),
		Release:  make(chan struct{}),
	}
	s := selecting(t, m, "A", "B")
	done := make(chan Result)
	go func() { done <- s.Confirm(context.Background(), "") }()
	<-m.Started
	close(m.Release)
	assert.Equal(t, OutcomeMerged, (<-done).Outcome)
	assert.Len(t, s.Annotations(), 2)
}

func TestReset_ReplacesDocument(t *testing.T) {
	s := selecting(t, &MockMerger{}, "A")
	doc := testDoc()
	doc.Annotations = doc.Annotations[:1]
	s.Reset(doc)
	assert.Equal(t, PhaseIdle, s.State().Phase)
	assert.Len(t, s.Annotations(), 1)
}

func TestSessionDoesNotAliasCallerSlice(t *testing.T) {
	doc := testDoc()
	s := NewSession(&MockMerger{}, doc, idGen())
	doc.Annotations[0].Span = "changed"
	doc.Annotations[0].Hints.Before = "changed"
	got := s.Annotations()
	assert.Equal(t, "go", got[0].Span)
	assert.Equal(t, "I ", got[0].Hints.Before)
}
