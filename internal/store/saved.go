// Package store keeps annotations the learner saved for deck building.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"golang.org/x/sync/errgroup"

	"github.com/agenthands/redline/internal/core/model"
	"github.com/agenthands/redline/internal/driver"
)

var ErrNotFound = errors.New("saved annotation not found")

type SavedStore struct {
	Driver        driver.GraphDriver
	Concurrency   int
	UUIDGenerator func() string
	Now           func() time.Time
}

func NewSavedStore(d driver.GraphDriver, concurrency int) *SavedStore {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &SavedStore{
		Driver:        d,
		Concurrency:   concurrency,
		UUIDGenerator: func() string { return uuid.New().String() },
		Now:           func() time.Time { return time.Now().UTC() },
	}
}

// Save stores payload on the given stash (left when empty).
func (s *SavedStore) Save(ctx context.Context, workspaceID string, payload model.SavePayload, stash model.Stash) (*model.SavedAnnotation, error) {
	if stash == "" {
		stash = model.StashLeft
	}
	if !stash.Valid() {
		return nil, fmt.Errorf("invalid stash %q", stash)
	}
	now := s.Now()
	if payload.SavedAt.IsZero() {
		payload.SavedAt = now
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode saved annotation: %w", err)
	}

	rec := &model.SavedAnnotation{
		UUID:      s.UUIDGenerator(),
		CreatedAt: now,
		Stash:     stash,
		JSON:      string(data),
	}
	params := map[string]any{
		"uuid":          rec.UUID,
		"created_at":    rec.CreatedAt.Format(time.RFC3339Nano),
		"stash":         string(rec.Stash),
		"workspace_id":  workspaceID,
		"annotation_id": string(payload.Annotation.ID),
		"category":      string(payload.Annotation.Category),
		"json":          rec.JSON,
	}
	if _, err := s.Driver.ExecuteQuery(ctx, driver.SaveAnnotationQuery, params); err != nil {
		return nil, fmt.Errorf("failed to save annotation: %w", err)
	}
	return rec, nil
}

// SaveAll saves several payloads with bounded parallelism. Results keep the
// input order.
func (s *SavedStore) SaveAll(ctx context.Context, workspaceID string, payloads []model.SavePayload, stash model.Stash) ([]*model.SavedAnnotation, error) {
	out := make([]*model.SavedAnnotation, len(payloads))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.Concurrency)
	for i, p := range payloads {
		i, p := i, p
		g.Go(func() error {
			rec, err := s.Save(gctx, workspaceID, p, stash)
			if err != nil {
				return err
			}
			out[i] = rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// List returns saved records, oldest first. An empty stash lists both.
func (s *SavedStore) List(ctx context.Context, stash model.Stash) ([]model.SavedAnnotation, error) {
	res, err := s.Driver.ExecuteQuery(ctx, driver.ListAnnotationsQuery, map[string]any{"stash": string(stash)})
	if err != nil {
		return nil, fmt.Errorf("failed to list saved annotations: %w", err)
	}
	out := make([]model.SavedAnnotation, 0, len(res.Records))
	for _, rec := range res.Records {
		sa, err := decodeRecord(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, sa)
	}
	return out, nil
}

func (s *SavedStore) Get(ctx context.Context, id string) (*model.SavedAnnotation, error) {
	res, err := s.Driver.ExecuteQuery(ctx, driver.GetAnnotationQuery, map[string]any{"uuid": id})
	if err != nil {
		return nil, fmt.Errorf("failed to get saved annotation: %w", err)
	}
	if len(res.Records) == 0 {
		return nil, ErrNotFound
	}
	sa, err := decodeRecord(res.Records[0])
	if err != nil {
		return nil, err
	}
	return &sa, nil
}

func (s *SavedStore) Move(ctx context.Context, id string, stash model.Stash) error {
	if !stash.Valid() {
		return fmt.Errorf("invalid stash %q", stash)
	}
	res, err := s.Driver.ExecuteQuery(ctx, driver.MoveAnnotationQuery, map[string]any{"uuid": id, "stash": string(stash)})
	if err != nil {
		return fmt.Errorf("failed to move saved annotation: %w", err)
	}
	if len(res.Records) == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SavedStore) Remove(ctx context.Context, id string) error {
	res, err := s.Driver.ExecuteQuery(ctx, driver.DeleteAnnotationQuery, map[string]any{"uuid": id})
	if err != nil {
		return fmt.Errorf("failed to remove saved annotation: %w", err)
	}
	if deleted(res) == 0 {
		return ErrNotFound
	}
	return nil
}

// Clear removes every record on stash, or everything when stash is empty.
func (s *SavedStore) Clear(ctx context.Context, stash model.Stash) (int64, error) {
	res, err := s.Driver.ExecuteQuery(ctx, driver.ClearAnnotationsQuery, map[string]any{"stash": string(stash)})
	if err != nil {
		return 0, fmt.Errorf("failed to clear saved annotations: %w", err)
	}
	return deleted(res), nil
}

// Payload decodes the JSON document of a saved record.
func Payload(sa model.SavedAnnotation) (model.SavePayload, error) {
	var p model.SavePayload
	if err := json.Unmarshal([]byte(sa.JSON), &p); err != nil {
		return p, fmt.Errorf("failed to decode saved payload: %w", err)
	}
	return p, nil
}

func decodeRecord(rec *neo4j.Record) (model.SavedAnnotation, error) {
	id, _ := rec.Get("uuid")
	created, _ := rec.Get("created_at")
	stash, _ := rec.Get("stash")
	body, _ := rec.Get("json")

	sa := model.SavedAnnotation{
		UUID:  asString(id),
		Stash: model.Stash(asString(stash)),
		JSON:  asString(body),
	}
	if sa.Stash == "" {
		sa.Stash = model.StashLeft
	}
	switch v := created.(type) {
	case time.Time:
		sa.CreatedAt = v
	case string:
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return sa, fmt.Errorf("failed to parse created_at of %s: %w", sa.UUID, err)
		}
		sa.CreatedAt = t
	}
	return sa, nil
}

func deleted(res neo4j.EagerResult) int64 {
	if len(res.Records) == 0 {
		return 0
	}
	v, _ := res.Records[0].Get("deleted")
	n, _ := v.(int64)
	return n
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}
