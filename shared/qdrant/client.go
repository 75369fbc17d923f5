package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Config holds Qdrant connection configuration
type Config struct {
	BaseURL    string
	VectorSize int
	Distance   string
	Timeout    time.Duration
}

// Payload is the data stored alongside each indexed vector
type Payload struct {
	FileID     string `json:"file_id"`
	ChunkIndex int    `json:"chunk_index"`
	Content    string `json:"content"`
}

// Point is one vector plus its payload, keyed by id within a collection
type Point struct {
	ID      uint64    `json:"id"`
	Vector  []float32 `json:"vector"`
	Payload Payload   `json:"payload"`
}

// Client talks to a Qdrant instance over its HTTP API
type Client struct {
	baseURL    string
	vectorSize int
	distance   string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new Qdrant client
func NewClient(config *Config, logger *slog.Logger) *Client {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	vectorSize := config.VectorSize
	if vectorSize <= 0 {
		vectorSize = 1536
	}

	distance := config.Distance
	if distance == "" {
		distance = "Cosine"
	}

	return &Client{
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		vectorSize: vectorSize,
		distance:   distance,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// EnsureCollection probes for a collection and creates it when missing.
// A concurrent "already exists" create error is treated as success.
func (c *Client) EnsureCollection(ctx context.Context, collection string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/collections/"+collection, nil)
	if err != nil {
		return fmt.Errorf("failed to build collection probe: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to probe collection %q: %w", collection, err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	createBody := map[string]any{
		"vectors": map[string]any{
			"size":     c.vectorSize,
			"distance": c.distance,
		},
	}

	status, body, err := c.do(ctx, http.MethodPut, "/collections/"+collection, createBody)
	if err != nil {
		return fmt.Errorf("failed to create collection %q: %w", collection, err)
	}

	if status >= 200 && status < 300 {
		c.logger.Info("Qdrant collection created",
			slog.String("collection", collection),
			slog.Int("vector_size", c.vectorSize),
		)
		return nil
	}

	var errResp struct {
		Status struct {
			Error string `json:"error"`
		} `json:"status"`
	}
	if json.Unmarshal(body, &errResp) == nil && strings.Contains(errResp.Status.Error, "already exists") {
		c.logger.Warn("Qdrant collection already exists",
			slog.String("collection", collection),
		)
		return nil
	}

	return fmt.Errorf("failed to create collection %q: %s", collection, string(body))
}

// UpsertPoint writes a single point; re-upserting the same id overwrites it
func (c *Client) UpsertPoint(ctx context.Context, collection string, point Point) error {
	reqBody := map[string]any{
		"points": []Point{point},
	}

	status, body, err := c.do(ctx, http.MethodPut, "/collections/"+collection+"/points", reqBody)
	if err != nil {
		return fmt.Errorf("qdrant upsert failed: %w", err)
	}
	if status < 200 || status >= 300 {
		return fmt.Errorf("qdrant upsert failed: %s", string(body))
	}

	c.logger.Debug("Qdrant point upserted",
		slog.String("collection", collection),
		slog.Uint64("point_id", point.ID),
	)

	return nil
}

// Search returns up to limit payloads ordered by the index's similarity ranking
func (c *Client) Search(ctx context.Context, collection string, vector []float32, limit int) ([]Payload, error) {
	reqBody := map[string]any{
		"vector": vector,
		"limit":  limit,
	}

	status, body, err := c.do(ctx, http.MethodPost, "/collections/"+collection+"/points/search", reqBody)
	if err != nil {
		return nil, fmt.Errorf("qdrant search failed: %w", err)
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("qdrant search failed: %s", string(body))
	}

	var searchResp struct {
		Result []struct {
			Payload Payload `json:"payload"`
		} `json:"result"`
	}
	if err := json.Unmarshal(body, &searchResp); err != nil {
		return nil, fmt.Errorf("failed to decode qdrant search response: %w", err)
	}

	payloads := make([]Payload, 0, len(searchResp.Result))
	for _, r := range searchResp.Result {
		payloads = append(payloads, r.Payload)
	}

	return payloads, nil
}

// do sends one JSON request and returns the status code and raw body
func (c *Client) do(ctx context.Context, method, path string, reqBody any) (int, []byte, error) {
	b, err := json.Marshal(reqBody)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return resp.StatusCode, body, nil
}
