package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/agenthands/redline/internal/core/align"
	"github.com/agenthands/redline/internal/core/merge"
	"github.com/agenthands/redline/internal/core/model"
	"github.com/agenthands/redline/internal/store"
)

type CorrectRequest struct {
	WorkspaceID string `json:"workspaceId"`
	model.CorrectionRequest
}

// Correct runs a correction for a workspace, creating it when no id is given.
func (s *Server) Correct(c *gin.Context) {
	var req CorrectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if req.Attempt == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "en is required"})
		return
	}
	if req.WorkspaceID == "" {
		req.WorkspaceID = uuid.New().String()
	}

	rev, err := s.Reviewer.Correct(c.Request.Context(), req.WorkspaceID, req.CorrectionRequest)
	if err != nil {
		fail(c, err, http.StatusBadGateway)
		return
	}
	c.JSON(http.StatusOK, rev)
}

// MergeStateless merges two annotations without touching any workspace, so
// this service can act as the merge backend of another instance.
func (s *Server) MergeStateless(c *gin.Context) {
	var req model.MergeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if len(req.Annotations) != 2 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "exactly two errors are required"})
		return
	}
	if req.Rationale == "" {
		req.Rationale = merge.DefaultRationale(req.Annotations)
	}

	merged, err := s.Merger.Merge(c.Request.Context(), req)
	if err != nil {
		fail(c, err, http.StatusBadGateway)
		return
	}
	c.JSON(http.StatusOK, model.MergeResponse{Annotation: merged})
}

type HighlightsRequest struct {
	Text        string             `json:"text"`
	Annotations []model.Annotation `json:"errors"`
	Mode        string             `json:"mode"`
	Category    string             `json:"type"`
}

func (s *Server) Highlights(c *gin.Context) {
	var req HighlightsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	var hs []model.Highlight
	switch req.Mode {
	case "", "original":
		hs = align.ComputeHighlights(req.Text, req.Annotations)
	case "corrected":
		hs = align.ComputeHighlightsInCorrected(req.Text, req.Annotations)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "mode must be original or corrected"})
		return
	}
	if req.Category != "" {
		cat, err := model.ParseCategory(req.Category)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		hs = align.FilterByCategory(hs, cat)
	}
	if hs == nil {
		hs = []model.Highlight{}
	}
	c.JSON(http.StatusOK, gin.H{"highlights": hs})
}

func (s *Server) GetWorkspace(c *gin.Context) {
	rev, err := s.Reviewer.Review(c.Param("id"))
	if err != nil {
		fail(c, err, http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, rev)
}

func (s *Server) DeleteWorkspace(c *gin.Context) {
	s.Reviewer.Forget(c.Param("id"))
	c.Status(http.StatusNoContent)
}

type annotationRef struct {
	ID    model.ID    `json:"id" binding:"required"`
	Stash model.Stash `json:"stash"`
}

func (s *Server) Select(c *gin.Context) {
	var req annotationRef
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if err := s.Reviewer.Select(c.Param("id"), req.ID); err != nil {
		fail(c, err, http.StatusInternalServerError)
		return
	}
	s.GetWorkspace(c)
}

// Apply writes an annotation's suggestion into the attempt.
func (s *Server) Apply(c *gin.Context) {
	var req annotationRef
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	rev, err := s.Reviewer.ApplySuggestion(c.Param("id"), req.ID)
	if err != nil {
		fail(c, err, http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, rev)
}

type mergeView struct {
	merge.State
	CanConfirm bool `json:"can_confirm"`
}

func (s *Server) session(c *gin.Context) (*merge.Session, bool) {
	sess, err := s.Reviewer.Session(c.Param("id"))
	if err != nil {
		fail(c, err, http.StatusInternalServerError)
		return nil, false
	}
	return sess, true
}

func view(sess *merge.Session) mergeView {
	return mergeView{State: sess.State(), CanConfirm: sess.CanConfirm()}
}

func (s *Server) MergeState(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, view(sess))
}

type enterRequest struct {
	Seed *model.ID `json:"seed"`
}

func (s *Server) MergeEnter(c *gin.Context) {
	var req enterRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
	}
	sess, ok := s.session(c)
	if !ok {
		return
	}
	sess.Enter(req.Seed)
	c.JSON(http.StatusOK, view(sess))
}

func (s *Server) MergeToggle(c *gin.Context) {
	var req annotationRef
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	sess, ok := s.session(c)
	if !ok {
		return
	}
	if !sess.Toggle(req.ID) {
		c.JSON(http.StatusConflict, gin.H{"error": "selection rejected", "state": view(sess)})
		return
	}
	c.JSON(http.StatusOK, view(sess))
}

type confirmRequest struct {
	Rationale string `json:"rationale"`
}

// MergeConfirm blocks until the merge collaborator answers.
func (s *Server) MergeConfirm(c *gin.Context) {
	var req confirmRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
	}
	sess, ok := s.session(c)
	if !ok {
		return
	}

	res := sess.Confirm(c.Request.Context(), req.Rationale)
	switch res.Outcome {
	case merge.OutcomeMerged:
		rev, err := s.Reviewer.Review(c.Param("id"))
		if err != nil {
			fail(c, err, http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"outcome": res.Outcome, "merged": res.Merged, "review": rev})
	case merge.OutcomeFailed:
		c.JSON(statusFor(res.Err, http.StatusBadGateway), gin.H{"outcome": res.Outcome, "error": res.Err.Error(), "state": view(sess)})
	default:
		c.JSON(http.StatusConflict, gin.H{"outcome": res.Outcome, "state": view(sess)})
	}
}

func (s *Server) MergeCancel(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	if err := sess.Cancel(); err != nil {
		fail(c, err, http.StatusConflict)
		return
	}
	c.JSON(http.StatusOK, view(sess))
}

func (s *Server) MergeExit(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	sess.Exit()
	c.JSON(http.StatusOK, view(sess))
}

func stashOrDefault(st model.Stash) (model.Stash, bool) {
	if st == "" {
		return model.StashLeft, true
	}
	return st, st.Valid()
}

func (s *Server) SaveAnnotation(c *gin.Context) {
	var req annotationRef
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	stash, ok := stashOrDefault(req.Stash)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "stash must be left or right"})
		return
	}
	sa, err := s.Reviewer.Save(c.Request.Context(), c.Param("id"), req.ID, stash)
	if err != nil {
		fail(c, err, http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusCreated, sa)
}

type stashRequest struct {
	Stash model.Stash `json:"stash"`
}

func (s *Server) SaveAllAnnotations(c *gin.Context) {
	var req stashRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
	}
	stash, ok := stashOrDefault(req.Stash)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "stash must be left or right"})
		return
	}
	saved, err := s.Reviewer.SaveAll(c.Request.Context(), c.Param("id"), stash)
	if err != nil {
		fail(c, err, http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"saved": saved})
}

type savedView struct {
	UUID      string            `json:"uuid"`
	CreatedAt time.Time         `json:"created_at"`
	Stash     model.Stash       `json:"stash"`
	Payload   model.SavePayload `json:"payload"`
}

func toView(sa model.SavedAnnotation) (savedView, error) {
	p, err := store.Payload(sa)
	if err != nil {
		return savedView{}, err
	}
	return savedView{UUID: sa.UUID, CreatedAt: sa.CreatedAt, Stash: sa.Stash, Payload: p}, nil
}

// queryStash reads ?stash=; empty means both stashes.
func queryStash(c *gin.Context) (model.Stash, bool) {
	st := model.Stash(c.Query("stash"))
	if st != "" && !st.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "stash must be left or right"})
		return "", false
	}
	return st, true
}

func (s *Server) ListSaved(c *gin.Context) {
	stash, ok := queryStash(c)
	if !ok {
		return
	}
	list, err := s.Saved.List(c.Request.Context(), stash)
	if err != nil {
		fail(c, err, http.StatusInternalServerError)
		return
	}
	out := make([]savedView, 0, len(list))
	for _, sa := range list {
		v, err := toView(sa)
		if err != nil {
			fail(c, err, http.StatusInternalServerError)
			return
		}
		out = append(out, v)
	}
	c.JSON(http.StatusOK, gin.H{"saved": out})
}

func (s *Server) GetSaved(c *gin.Context) {
	sa, err := s.Saved.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err, http.StatusInternalServerError)
		return
	}
	v, err := toView(*sa)
	if err != nil {
		fail(c, err, http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (s *Server) RemoveSaved(c *gin.Context) {
	if err := s.Saved.Remove(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err, http.StatusInternalServerError)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) MoveSaved(c *gin.Context) {
	var req stashRequest
	if err := c.ShouldBindJSON(&req); err != nil || !req.Stash.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "stash must be left or right"})
		return
	}
	if err := s.Saved.Move(c.Request.Context(), c.Param("id"), req.Stash); err != nil {
		fail(c, err, http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, gin.H{"uuid": c.Param("id"), "stash": req.Stash})
}

func (s *Server) ClearSaved(c *gin.Context) {
	stash, ok := queryStash(c)
	if !ok {
		return
	}
	n, err := s.Saved.Clear(c.Request.Context(), stash)
	if err != nil {
		fail(c, err, http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": n})
}
