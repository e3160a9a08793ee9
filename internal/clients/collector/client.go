// Package collector provides a client for fetching recorded span batches from a trace query backend.
package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"tracestack/internal/models"
)

// ErrTraceNotFound is returned when the backend has no spans for a trace ID.
var ErrTraceNotFound = errors.New("trace not found")

// Client implements HTTP interaction with the trace query API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new collector client
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// TraceResponse is the backend payload for a single trace.
type TraceResponse struct {
	TraceID string        `json:"traceId"`
	Spans   []models.Span `json:"spans"`
}

// TraceSummary is one row of a trace search.
type TraceSummary struct {
	TraceIDs      []string `json:"traceIds"`
	OperationName string   `json:"operationName"`
	Start         int64    `json:"start"`
	Duration      int64    `json:"duration"`
	IsError       bool     `json:"isError"`
}

// SearchResponse is the backend payload for a trace search.
type SearchResponse struct {
	Traces []TraceSummary `json:"traces"`
	Total  int            `json:"total"`
}

// doRequest performs a GET against the backend and returns the body
func (c *Client) doRequest(ctx context.Context, apiPath string, params url.Values) ([]byte, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	u.Path = apiPath
	if params != nil {
		u.RawQuery = params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("collector request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrTraceNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code from collector: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return body, nil
}

// GetTrace fetches every span recorded for traceID, in backend order
func (c *Client) GetTrace(ctx context.Context, traceID string) ([]models.Span, error) {
	resp, err := c.doRequest(ctx, "/api/traces/"+url.PathEscape(traceID), nil)
	if err != nil {
		c.logger.Error("Failed to fetch trace", "traceID", traceID, "error", err)
		return nil, err
	}

	var trace TraceResponse
	if err := json.Unmarshal(resp, &trace); err != nil {
		return nil, fmt.Errorf("failed to parse trace response: %w", err)
	}
	if len(trace.Spans) == 0 {
		return nil, ErrTraceNotFound
	}

	c.logger.Debug("Fetched trace", "traceID", traceID, "spans", len(trace.Spans))
	return trace.Spans, nil
}

// SearchTraces lists recent traces for a service within the time window
func (c *Client) SearchTraces(ctx context.Context, service string, start, end time.Time, limit int) ([]TraceSummary, error) {
	params := url.Values{
		"service": []string{service},
		"start":   []string{strconv.FormatInt(start.UnixMilli(), 10)},
		"end":     []string{strconv.FormatInt(end.UnixMilli(), 10)},
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	resp, err := c.doRequest(ctx, "/api/traces", params)
	if err != nil {
		c.logger.Error("Failed to search traces", "service", service, "error", err)
		return nil, err
	}

	var result SearchResponse
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, fmt.Errorf("failed to parse search response: %w", err)
	}

	return result.Traces, nil
}
