package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"preflight/internal/model"
)

// apiError is the server's error body.
type apiError struct {
	Status    int
	RequestID string `json:"request_id"`
	Error     struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (e *apiError) String() string {
	return fmt.Sprintf("%d %s: %s (request %s)", e.Status, e.Error.Code, e.Error.Message, e.RequestID)
}

// client talks to the preflight HTTP API.
type client struct {
	base string
	http *http.Client
}

func newClient(server string, timeout time.Duration) *client {
	return &client{
		base: strings.TrimRight(server, "/"),
		http: &http.Client{Timeout: timeout},
	}
}

type submitRequest struct {
	DocumentID     string          `json:"document_id"`
	Role           string          `json:"role"`
	Action         string          `json:"action"`
	IdempotencyKey string          `json:"idempotency_key,omitempty"`
	Payload        json.RawMessage `json:"payload,omitempty"`
}

type historyResult struct {
	DocumentID        string              `json:"document_id"`
	Events            []model.ActionEvent `json:"events"`
	ActionEventsCount int                 `json:"action_events_count"`
}

func (c *client) Submit(ctx context.Context, req submitRequest) (*model.ActionResult, error) {
	var out model.ActionResult
	if err := c.do(ctx, http.MethodPost, "/api/preflight/action", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *client) Evaluate(ctx context.Context, documentID string) (*model.Evaluation, error) {
	var out model.Evaluation
	if err := c.do(ctx, http.MethodGet, "/api/preflight/documents/"+url.PathEscape(documentID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *client) History(ctx context.Context, documentID string) (*historyResult, error) {
	var out historyResult
	if err := c.do(ctx, http.MethodGet, "/api/preflight/documents/"+url.PathEscape(documentID)+"/events", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *client) BatchHealth(ctx context.Context, batchID string) (*model.BatchHealth, error) {
	var out model.BatchHealth
	if err := c.do(ctx, http.MethodGet, "/api/preflight/batches/"+url.PathEscape(batchID)+"/health", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// do sends body as JSON and unpacks the data member of the response into out.
func (c *client) do(ctx context.Context, method, path string, body, out any) error {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, r)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		apiErr := &apiError{Status: resp.StatusCode}
		if err := json.NewDecoder(resp.Body).Decode(apiErr); err != nil {
			return fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
		}
		return fmt.Errorf("%s %s: %s", method, path, apiErr)
	}

	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return json.Unmarshal(env.Data, out)
}
