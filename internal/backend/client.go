// Package backend implements the HTTP client for the pricing backend:
// job submission and status, recommendation persistence and fetch, batch
// listing, action recording, and the downstream price/POS push endpoints.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"pricesync/internal/dto"
	"pricesync/internal/models"
	"pricesync/pkg/config"

	"go.uber.org/zap"
)

type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	logger     *zap.Logger
}

func NewClient(cfg *config.BackendConfig, logger *zap.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		logger:     logger,
	}
}

// transportError marks network-level failures so the poller can tell a
// dead connection apart from a backend rejection.
type transportError struct {
	err error
}

func (e *transportError) Error() string { return fmt.Sprintf("backend unreachable: %v", e.err) }
func (e *transportError) Unwrap() error { return e.err }

// IsTransportError reports whether err is a network-level failure rather
// than a response the backend actually produced.
func IsTransportError(err error) bool {
	var te *transportError
	return errors.As(err, &te)
}

// SubmitJob submits an analysis job spec and returns the assigned job ID.
func (c *Client) SubmitJob(ctx context.Context, spec *dto.JobSpec) (string, error) {
	var resp struct {
		JobID string `json:"job_id"`
	}
	if err := c.do(ctx, http.MethodPost, "/jobs", spec, &resp); err != nil {
		if IsTransportError(err) {
			return "", &models.SubmissionError{Reason: "backend unreachable", Err: err}
		}
		return "", &models.SubmissionError{Reason: err.Error(), Err: err}
	}
	return resp.JobID, nil
}

// JobStatus fetches one status snapshot for the given job.
func (c *Client) JobStatus(ctx context.Context, jobID string) (*models.Job, error) {
	var job models.Job
	if err := c.do(ctx, http.MethodGet, "/jobs/"+url.PathEscape(jobID), nil, &job); err != nil {
		return nil, err
	}
	if job.ID == "" {
		job.ID = jobID
	}
	return &job, nil
}

// PersistRecommendations saves a normalized batch to the backend and
// returns the persisted records.
func (c *Client) PersistRecommendations(ctx context.Context, batch *models.Batch, recs []*models.Recommendation) ([]*models.Recommendation, error) {
	req := struct {
		Batch           *models.Batch            `json:"batch"`
		Recommendations []*models.Recommendation `json:"recommendations"`
	}{batch, recs}

	var resp struct {
		Recommendations []*models.Recommendation `json:"recommendations"`
	}
	if err := c.do(ctx, http.MethodPost, "/recommendations", req, &resp); err != nil {
		return nil, err
	}
	return resp.Recommendations, nil
}

// FetchRecommendations returns the caller's current recommendation list,
// optionally scoped to one batch.
func (c *Client) FetchRecommendations(ctx context.Context, batchID string) ([]*models.Recommendation, error) {
	path := "/recommendations"
	if batchID != "" {
		path += "?batch_id=" + url.QueryEscape(batchID)
	}
	var resp struct {
		Recommendations []*models.Recommendation `json:"recommendations"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Recommendations, nil
}

// ListBatches returns known batches for the caller's account, newest first.
func (c *Client) ListBatches(ctx context.Context) ([]*models.Batch, error) {
	var resp struct {
		Batches []*models.Batch `json:"batches"`
	}
	if err := c.do(ctx, http.MethodGet, "/batches", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Batches, nil
}

// RecordAction records an accept/reject decision and returns the updated
// recommendation.
func (c *Client) RecordAction(ctx context.Context, recommendationID string, action models.UserAction, feedback string) (*models.Recommendation, error) {
	req := struct {
		Action   models.UserAction `json:"action"`
		Feedback string            `json:"feedback,omitempty"`
	}{action, feedback}

	var rec models.Recommendation
	if err := c.do(ctx, http.MethodPost, "/recommendations/"+url.PathEscape(recommendationID)+"/action", req, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// UpdatePrice applies the accepted price to the item's authoritative
// price record.
func (c *Client) UpdatePrice(ctx context.Context, itemID string, price float64) error {
	req := struct {
		Price float64 `json:"price"`
	}{price}
	return c.do(ctx, http.MethodPut, "/items/"+url.PathEscape(itemID)+"/price", req, nil)
}

// PushPriceToPOS pushes the new price to the connected point-of-sale
// system. Independent of UpdatePrice; each may fail on its own.
func (c *Client) PushPriceToPOS(ctx context.Context, itemID string, price float64) error {
	req := struct {
		ItemID string  `json:"item_id"`
		Price  float64 `json:"price"`
	}{itemID, price}
	return c.do(ctx, http.MethodPost, "/pos/price-push", req, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &transportError{err: err}
	}
	defer resp.Body.Close()

	c.logger.Debug("Backend request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("backend returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
