package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Remote is the production Store: a JSON-over-HTTP client for the
// upstream transactional store service.
type Remote struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewRemote creates a client for the store service at baseURL.
func NewRemote(baseURL, apiKey string) *Remote {
	return &Remote{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

type queryResponse struct {
	Records []Record `json:"records"`
}

func (r *Remote) Query(ctx context.Context, q Query) ([]Record, error) {
	var resp queryResponse
	if err := r.post(ctx, "/query", q, &resp); err != nil {
		return nil, fmt.Errorf("store query %s: %w", q.Entity, err)
	}
	if resp.Records == nil {
		resp.Records = []Record{}
	}
	return resp.Records, nil
}

type transactRequest struct {
	Steps []Step `json:"steps"`
}

func (r *Remote) Transact(ctx context.Context, steps []Step) error {
	if err := r.post(ctx, "/transact", transactRequest{Steps: steps}, nil); err != nil {
		return fmt.Errorf("store transact: %w", err)
	}
	return nil
}

func (r *Remote) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("store responded with status %d", resp.StatusCode)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
