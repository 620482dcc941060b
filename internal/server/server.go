package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/agenthands/redline/internal/config"
	"github.com/agenthands/redline/internal/core"
	"github.com/agenthands/redline/internal/core/correction"
	"github.com/agenthands/redline/internal/core/merge"
	"github.com/agenthands/redline/internal/core/model"
	"github.com/agenthands/redline/internal/driver"
	"github.com/agenthands/redline/internal/llm"
	"github.com/agenthands/redline/internal/remote"
	"github.com/agenthands/redline/internal/store"
)

// SavedRepository is the part of the saved store the API exposes directly.
type SavedRepository interface {
	List(ctx context.Context, stash model.Stash) ([]model.SavedAnnotation, error)
	Get(ctx context.Context, id string) (*model.SavedAnnotation, error)
	Move(ctx context.Context, id string, stash model.Stash) error
	Remove(ctx context.Context, id string) error
	Clear(ctx context.Context, stash model.Stash) (int64, error)
}

type Server struct {
	Reviewer *core.Reviewer
	Merger   merge.Merger
	Saved    SavedRepository

	closers []func(context.Context) error
}

func New(reviewer *core.Reviewer, merger merge.Merger, saved SavedRepository) *Server {
	return &Server{Reviewer: reviewer, Merger: merger, Saved: saved}
}

// NewServer connects to Memgraph and builds the correction and merge
// collaborators described by cfg.
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	d, err := driver.NewMemgraphDriver(ctx, cfg.Memgraph.URI, cfg.Memgraph.User, cfg.Memgraph.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Memgraph: %w", err)
	}
	if err := d.BuildIndices(ctx); err != nil {
		log.Printf("Warning: failed to build indices: %v", err)
	}
	saved := store.NewSavedStore(d, cfg.Concurrency.SaveBatch)

	var (
		primary correction.Corrector
		merger  merge.Merger
		closers = []func(context.Context) error{d.Close}
	)
	if cfg.Remote.BaseURL != "" {
		timeout := time.Duration(cfg.Remote.TimeoutSeconds) * time.Second
		rc := remote.NewClient(cfg.Remote.BaseURL, cfg.Remote.DeviceID, timeout, core.NewID)
		rc.Model = cfg.LLM.Model
		log.Printf("Using remote correction backend at %s", cfg.Remote.BaseURL)
		primary, merger = rc, rc
	} else {
		client, err := llm.NewClient(ctx, cfg.LLM)
		if err != nil {
			d.Close(ctx)
			return nil, fmt.Errorf("failed to initialize LLM client: %w", err)
		}
		if c, ok := client.(io.Closer); ok {
			closers = append(closers, func(context.Context) error { return c.Close() })
		}
		primary = correction.NewLLMCorrector(client, cfg.Prompts.Correction, core.NewID)
		merger = correction.NewLLMMerger(client, cfg.Prompts.Merge, core.NewID)
	}

	corrector := &correction.FallbackCorrector{
		Primary:         primary,
		Fallback:        &correction.RuleCorrector{NewID: core.NewID},
		ForceFallback:   cfg.Correction.ForceSimple,
		FallbackOnError: cfg.Correction.AllowFallbackOnFailure,
	}

	s := New(core.NewReviewer(corrector, merger, saved), merger, saved)
	s.closers = closers
	return s, nil
}

// Close releases the database connection and LLM client.
func (s *Server) Close(ctx context.Context) error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c(ctx))
	}
	return errors.Join(errs...)
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.Default()

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	r.POST("/correct", s.Correct)
	r.POST("/correct/merge", s.MergeStateless)
	r.POST("/highlights", s.Highlights)

	ws := r.Group("/workspaces/:id")
	ws.GET("", s.GetWorkspace)
	ws.DELETE("", s.DeleteWorkspace)
	ws.POST("/select", s.Select)
	ws.POST("/apply", s.Apply)

	ws.GET("/merge", s.MergeState)
	ws.POST("/merge", s.MergeEnter)
	ws.POST("/merge/toggle", s.MergeToggle)
	ws.POST("/merge/confirm", s.MergeConfirm)
	ws.POST("/merge/cancel", s.MergeCancel)
	ws.POST("/merge/exit", s.MergeExit)

	ws.POST("/saved", s.SaveAnnotation)
	ws.POST("/saved/all", s.SaveAllAnnotations)

	r.GET("/saved", s.ListSaved)
	r.DELETE("/saved", s.ClearSaved)
	r.GET("/saved/:id", s.GetSaved)
	r.DELETE("/saved/:id", s.RemoveSaved)
	r.POST("/saved/:id/move", s.MoveSaved)

	return r
}

// statusFor maps an error to an HTTP status. fallback is used for errors
// that carry no classification, e.g. a failed collaborator call.
func statusFor(err error, fallback int) int {
	var invalid *correction.InvalidCategoriesError
	var upstream *remote.StatusError
	switch {
	case errors.Is(err, core.ErrWorkspaceNotFound),
		errors.Is(err, core.ErrAnnotationNotFound),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &invalid):
		return http.StatusUnprocessableEntity
	case errors.Is(err, merge.ErrMergeInFlight),
		errors.Is(err, merge.ErrNotSelecting),
		errors.Is(err, core.ErrNoSuggestion):
		return http.StatusConflict
	case errors.As(err, &upstream):
		return http.StatusBadGateway
	}
	return fallback
}

func fail(c *gin.Context, err error, fallback int) {
	status := statusFor(err, fallback)
	if status >= http.StatusInternalServerError {
		log.Printf("Failed to handle %s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	body := gin.H{"error": err.Error()}
	var invalid *correction.InvalidCategoriesError
	if errors.As(err, &invalid) {
		body["invalid"] = invalid.Invalid
	}
	c.JSON(status, body)
}
