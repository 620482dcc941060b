package server

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/agenthands/redline/internal/core/model"
	"github.com/agenthands/redline/internal/store"
)

type MockCorrector struct {
	Result *model.CorrectionResult
	Err    error
}

func (m *MockCorrector) Correct(ctx context.Context, req model.CorrectionRequest) (*model.CorrectionResult, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	res := *m.Result
	res.Annotations = model.Clone(m.Result.Annotations)
	return &res, nil
}

type MockMerger struct {
	mu       sync.Mutex
	Response model.Annotation
	Err      error
	Requests []model.MergeRequest

	// When set, Merge signals Started and waits for Release.
	Started chan struct{}
	Release chan struct{}
}

func (m *MockMerger) Merge(ctx context.Context, req model.MergeRequest) (model.Annotation, error) {
	m.mu.Lock()
	m.Requests = append(m.Requests, req)
	m.mu.Unlock()
	if m.Started != nil {
		m.Started <- struct{}{}
		<-m.Release
	}
	if m.Err != nil {
		return model.Annotation{}, m.Err
	}
	return m.Response, nil
}

// MemorySaved keeps saved annotations in a map and serves both the
// reviewer and the saved endpoints.
type MemorySaved struct {
	mu    sync.Mutex
	n     int
	items []model.SavedAnnotation
}

func (m *MemorySaved) Save(ctx context.Context, workspaceID string, payload model.SavePayload, stash model.Stash) (*model.SavedAnnotation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	m.n++
	sa := model.SavedAnnotation{
		UUID:      fmt.Sprintf("saved-%d", m.n),
		CreatedAt: time.Date(2024, 5, 1, 12, 0, m.n, 0, time.UTC),
		Stash:     stash,
		JSON:      string(data),
	}
	m.items = append(m.items, sa)
	return &sa, nil
}

func (m *MemorySaved) SaveAll(ctx context.Context, workspaceID string, payloads []model.SavePayload, stash model.Stash) ([]*model.SavedAnnotation, error) {
	out := make([]*model.SavedAnnotation, 0, len(payloads))
	for _, p := range payloads {
		sa, err := m.Save(ctx, workspaceID, p, stash)
		if err != nil {
			return nil, err
		}
		out = append(out, sa)
	}
	return out, nil
}

func (m *MemorySaved) List(ctx context.Context, stash model.Stash) ([]model.SavedAnnotation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.SavedAnnotation
	for _, sa := range m.items {
		if stash == "" || sa.Stash == stash {
			out = append(out, sa)
		}
	}
	return out, nil
}

func (m *MemorySaved) Get(ctx context.Context, id string) (*model.SavedAnnotation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, sa := range m.items {
		if sa.UUID == id {
			return &sa, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *MemorySaved) Move(ctx context.Context, id string, stash model.Stash) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].UUID == id {
			m.items[i].Stash = stash
			return nil
		}
	}
	return store.ErrNotFound
}

func (m *MemorySaved) Remove(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, sa := range m.items {
		if sa.UUID == id {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (m *MemorySaved) Clear(ctx context.Context, stash model.Stash) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.items[:0]
	var n int64
	for _, sa := range m.items {
		if stash == "" || sa.Stash == stash {
			n++
			continue
		}
		kept = append(kept, sa)
	}
	m.items = kept
	return n, nil
}
