package core

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/agenthands/redline/internal/core/align"
	"github.com/agenthands/redline/internal/core/correction"
	"github.com/agenthands/redline/internal/core/merge"
	"github.com/agenthands/redline/internal/core/model"
)

var (
	ErrWorkspaceNotFound  = errors.New("workspace not found")
	ErrAnnotationNotFound = errors.New("annotation not found")
	ErrNoSuggestion       = errors.New("annotation has no applicable suggestion")
)

// NewID returns a random annotation id.
func NewID() model.ID {
	return model.ID(uuid.New().String())
}

// AnnotationSaver persists annotations the learner keeps for later.
type AnnotationSaver interface {
	Save(ctx context.Context, workspaceID string, payload model.SavePayload, stash model.Stash) (*model.SavedAnnotation, error)
	SaveAll(ctx context.Context, workspaceID string, payloads []model.SavePayload, stash model.Stash) ([]*model.SavedAnnotation, error)
}

// Review is what a client renders: the texts, the annotations and their
// highlights on both texts.
type Review struct {
	WorkspaceID         string             `json:"workspace_id"`
	Source              string             `json:"zh"`
	Attempt             string             `json:"en"`
	Corrected           string             `json:"corrected"`
	Score               int                `json:"score"`
	Annotations         []model.Annotation `json:"errors"`
	OriginalHighlights  []model.Highlight  `json:"originalHighlights"`
	CorrectedHighlights []model.Highlight  `json:"correctedHighlights"`
	SelectedID          model.ID           `json:"selectedId,omitempty"`
}

type workspace struct {
	session *merge.Session

	mu       sync.Mutex
	score    int
	selected model.ID
}

// Reviewer owns the per-workspace correction state.
type Reviewer struct {
	Corrector correction.Corrector
	Merger    merge.Merger
	Saver     AnnotationSaver
	NewID     func() model.ID

	mu         sync.Mutex
	workspaces map[string]*workspace
}

func NewReviewer(corrector correction.Corrector, merger merge.Merger, saver AnnotationSaver) *Reviewer {
	return &Reviewer{
		Corrector:  corrector,
		Merger:     merger,
		Saver:      saver,
		NewID:      NewID,
		workspaces: make(map[string]*workspace),
	}
}

// Correct runs the corrector on the attempt and replaces the workspace's
// annotations with the result.
func (r *Reviewer) Correct(ctx context.Context, workspaceID string, req model.CorrectionRequest) (*Review, error) {
	res, err := r.Corrector.Correct(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("correction failed: %w", err)
	}

	r.uniqueIDs(res.Annotations)

	doc := merge.Document{
		Source:      req.Source,
		Attempt:     req.Attempt,
		Corrected:   res.Corrected,
		Annotations: res.Annotations,
	}
	var selected model.ID
	if len(res.Annotations) > 0 {
		selected = res.Annotations[0].ID
	}

	r.mu.Lock()
	ws, ok := r.workspaces[workspaceID]
	if !ok {
		ws = r.newWorkspace(doc)
		r.workspaces[workspaceID] = ws
	}
	r.mu.Unlock()
	if ok {
		ws.session.Reset(doc)
	}

	ws.mu.Lock()
	ws.score = res.Score
	ws.selected = selected
	ws.mu.Unlock()

	log.Printf("Corrected workspace %s: score=%d annotations=%d", workspaceID, res.Score, len(res.Annotations))
	return r.Review(workspaceID)
}

// Review recomputes highlights from the workspace's current annotations.
func (r *Reviewer) Review(workspaceID string) (*Review, error) {
	ws, err := r.workspace(workspaceID)
	if err != nil {
		return nil, err
	}
	doc := ws.session.Document()

	ws.mu.Lock()
	score, selected := ws.score, ws.selected
	ws.mu.Unlock()

	return &Review{
		WorkspaceID:         workspaceID,
		Source:              doc.Source,
		Attempt:             doc.Attempt,
		Corrected:           doc.Corrected,
		Score:               score,
		Annotations:         doc.Annotations,
		OriginalHighlights:  align.ComputeHighlights(doc.Attempt, doc.Annotations),
		CorrectedHighlights: align.ComputeHighlightsInCorrected(doc.Corrected, doc.Annotations),
		SelectedID:          selected,
	}, nil
}

// Session returns the merge session of a workspace.
func (r *Reviewer) Session(workspaceID string) (*merge.Session, error) {
	ws, err := r.workspace(workspaceID)
	if err != nil {
		return nil, err
	}
	return ws.session, nil
}

// Select marks one annotation as the focused one.
func (r *Reviewer) Select(workspaceID string, id model.ID) error {
	ws, err := r.workspace(workspaceID)
	if err != nil {
		return err
	}
	if model.IndexOf(ws.session.Annotations(), id) < 0 {
		return ErrAnnotationNotFound
	}
	ws.mu.Lock()
	ws.selected = id
	ws.mu.Unlock()
	return nil
}

// ApplySuggestion writes an annotation's suggestion into the attempt text.
// The annotation list is kept; highlights are recomputed against the new
// attempt.
func (r *Reviewer) ApplySuggestion(workspaceID string, id model.ID) (*Review, error) {
	ws, err := r.workspace(workspaceID)
	if err != nil {
		return nil, err
	}
	doc := ws.session.Document()
	i := model.IndexOf(doc.Annotations, id)
	if i < 0 {
		return nil, ErrAnnotationNotFound
	}
	attempt, ok := align.ApplySuggestion(doc.Attempt, doc.Annotations[i])
	if !ok {
		return nil, ErrNoSuggestion
	}
	doc.Attempt = attempt
	ws.session.Reset(doc)
	return r.Review(workspaceID)
}

// Save stores one annotation together with the texts it was made against.
func (r *Reviewer) Save(ctx context.Context, workspaceID string, id model.ID, stash model.Stash) (*model.SavedAnnotation, error) {
	ws, err := r.workspace(workspaceID)
	if err != nil {
		return nil, err
	}
	doc := ws.session.Document()
	i := model.IndexOf(doc.Annotations, id)
	if i < 0 {
		return nil, ErrAnnotationNotFound
	}
	return r.Saver.Save(ctx, workspaceID, payloadFor(doc, doc.Annotations[i]), stash)
}

// SaveAll stores every annotation of the workspace.
func (r *Reviewer) SaveAll(ctx context.Context, workspaceID string, stash model.Stash) ([]*model.SavedAnnotation, error) {
	ws, err := r.workspace(workspaceID)
	if err != nil {
		return nil, err
	}
	doc := ws.session.Document()
	payloads := make([]model.SavePayload, 0, len(doc.Annotations))
	for _, a := range doc.Annotations {
		payloads = append(payloads, payloadFor(doc, a))
	}
	return r.Saver.SaveAll(ctx, workspaceID, payloads, stash)
}

// Forget drops a workspace and leaves its merge mode; a merge still in
// flight is discarded when it returns.
func (r *Reviewer) Forget(workspaceID string) {
	r.mu.Lock()
	ws, ok := r.workspaces[workspaceID]
	delete(r.workspaces, workspaceID)
	r.mu.Unlock()
	if ok {
		ws.session.Exit()
	}
}

func (r *Reviewer) workspace(id string) (*workspace, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ws, ok := r.workspaces[id]
	if !ok {
		return nil, ErrWorkspaceNotFound
	}
	return ws, nil
}

func (r *Reviewer) newWorkspace(doc merge.Document) *workspace {
	ws := &workspace{}
	ws.session = merge.NewSession(r.Merger, doc, r.NewID)
	ws.session.Subscribe(func(st merge.State) {
		if st.Phase == merge.PhaseCompleted {
			ws.mu.Lock()
			ws.selected = st.MergedID
			ws.mu.Unlock()
		}
	})
	return ws
}

// uniqueIDs gives a fresh id to every annotation whose id is empty or
// already taken by an earlier one. Merging removes by id.
func (r *Reviewer) uniqueIDs(anns []model.Annotation) {
	seen := make(map[model.ID]bool, len(anns))
	for i := range anns {
		if anns[i].ID == "" || seen[anns[i].ID] {
			anns[i].ID = r.NewID()
		}
		seen[anns[i].ID] = true
	}
}

func payloadFor(doc merge.Document, a model.Annotation) model.SavePayload {
	return model.SavePayload{
		Annotation:  a,
		InputEn:     doc.Attempt,
		CorrectedEn: doc.Corrected,
		InputZh:     doc.Source,
	}
}
