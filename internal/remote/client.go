// Package remote talks to a correction backend over HTTP.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/agenthands/redline/internal/core/common"
	"github.com/agenthands/redline/internal/core/correction"
	"github.com/agenthands/redline/internal/core/model"
)

// StatusError is returned for any non-2xx answer.
type StatusError struct {
	Endpoint string
	Status   int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d: %s", e.Endpoint, e.Status, e.Body)
}

type Client struct {
	BaseURL  string
	DeviceID string
	Model    string
	HTTP     *http.Client
	NewID    func() model.ID
}

func NewClient(baseURL, deviceID string, timeout time.Duration, newID func() model.ID) *Client {
	return &Client{
		BaseURL:  strings.TrimRight(baseURL, "/"),
		DeviceID: deviceID,
		HTTP:     &http.Client{Timeout: timeout},
		NewID:    newID,
	}
}

// Correct calls POST /correct. Every annotation gets a fresh id, and
// unknown categories are an error, as with the local corrector.
func (c *Client) Correct(ctx context.Context, req model.CorrectionRequest) (*model.CorrectionResult, error) {
	if req.DeviceID == "" {
		req.DeviceID = c.DeviceID
	}
	if req.Model == "" {
		req.Model = c.Model
	}

	var res model.CorrectionResult
	if err := c.post(ctx, "/correct", req, &res); err != nil {
		return nil, err
	}
	var invalid []correction.InvalidCategory
	for i := range res.Annotations {
		a := &res.Annotations[i]
		a.ID = c.NewID()
		cat, err := model.ParseCategory(string(a.Category))
		if err != nil {
			invalid = append(invalid, correction.InvalidCategory{Index: i, Value: string(a.Category)})
			continue
		}
		a.Category = cat
	}
	if len(invalid) > 0 {
		return nil, &correction.InvalidCategoriesError{Invalid: invalid}
	}
	return &res, nil
}

// Merge calls POST /correct/merge. An unknown category in the answer is
// read as lexical.
func (c *Client) Merge(ctx context.Context, req model.MergeRequest) (model.Annotation, error) {
	if req.DeviceID == "" {
		req.DeviceID = c.DeviceID
	}
	if req.Model == "" {
		req.Model = c.Model
	}

	var res model.MergeResponse
	if err := c.post(ctx, "/correct/merge", req, &res); err != nil {
		return model.Annotation{}, err
	}
	merged := res.Annotation
	if merged.ID == "" {
		merged.ID = c.NewID()
	}
	if cat, err := model.ParseCategory(string(merged.Category)); err == nil {
		merged.Category = cat
	} else {
		merged.Category = model.Lexical
	}
	return merged, nil
}

func (c *Client) post(ctx context.Context, endpoint string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.DeviceID != "" {
		req.Header.Set("X-Device-Id", c.DeviceID)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", endpoint, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Endpoint: endpoint, Status: resp.StatusCode, Body: common.Truncate(string(data), 400)}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", endpoint, err)
	}
	return nil
}
