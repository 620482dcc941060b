package core

import (
	"context"
	"sync"
	"time"

	"github.com/agenthands/redline/internal/core/model"
)

type MockCorrector struct {
	Result   *model.CorrectionResult
	Err      error
	Requests []model.CorrectionRequest
}

func (m *MockCorrector) Correct(ctx context.Context, req model.CorrectionRequest) (*model.CorrectionResult, error) {
	m.Requests = append(m.Requests, req)
	if m.Err != nil {
		return nil, m.Err
	}
	res := *m.Result
	res.Annotations = model.Clone(m.Result.Annotations)
	return &res, nil
}

type MockMerger struct {
	Response model.Annotation
	Err      error
	Requests []model.MergeRequest
}

func (m *MockMerger) Merge(ctx context.Context, req model.MergeRequest) (model.Annotation, error) {
	m.Requests = append(m.Requests, req)
	if m.Err != nil {
		return model.Annotation{}, m.Err
	}
	return m.Response, nil
}

type MockSaver struct {
	mu      sync.Mutex
	Saved   []model.SavePayload
	Stashes []model.Stash
	Err     error
}

func (m *MockSaver) Save(ctx context.Context, workspaceID string, payload model.SavePayload, stash model.Stash) (*model.SavedAnnotation, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Saved = append(m.Saved, payload)
	m.Stashes = append(m.Stashes, stash)
	return &model.SavedAnnotation{
		UUID:      "saved-" + string(payload.Annotation.ID),
		CreatedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Stash:     stash,
	}, nil
}

func (m *MockSaver) SaveAll(ctx context.Context, workspaceID string, payloads []model.SavePayload, stash model.Stash) ([]*model.SavedAnnotation, error) {
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
