package merge

import (
	"context"
	"sync"

	"github.com/agenthands/redline/internal/core/model"
)

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

func (m *MockMerger) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}
