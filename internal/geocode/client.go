package geocode

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/opencitydata/crimepipe/internal/common"
	"github.com/opencitydata/crimepipe/internal/model"
)

// DefaultThreshold is the minimum match score required to accept a
// geocoded coordinate.
const DefaultThreshold = 90.0

// defaultBatchSize bounds one HTTP request; the service enforces its own
// cap at 1000 addresses.
const defaultBatchSize = 500

// Service is the geocoding contract: one batch of free-text addresses in,
// one result per address out, in request order.
type Service interface {
	GeocodeBatch(ctx context.Context, queries []string) ([]model.GeocodeResult, error)
}

// Config holds client settings bound from the application config.
type Config struct {
	BaseURL   string
	Threshold float64
	BatchSize int
	Timeout   time.Duration
}

// Client calls the geocoding service over HTTP. It tries the full, short,
// and placename matchers in order and accepts the first result at or above
// the confidence threshold.
type Client struct {
	httpClient *http.Client
	baseURL    string
	threshold  float64
	batchSize  int
}

// NewClient creates a geocoding service client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: geocoder base URL is required", common.ErrMissingConfig)
	}

	threshold := cfg.Threshold
	if threshold == 0 {
		threshold = DefaultThreshold
	}
	batchSize := cfg.BatchSize
	if batchSize == 0 {
		batchSize = defaultBatchSize
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 5 * time.Minute
	}

	return &Client{
		baseURL:   cfg.BaseURL,
		threshold: threshold,
		batchSize: batchSize,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}, nil
}

type geocodeRequest struct {
	Addresses []string `json:"addresses"`
	Locators  []string `json:"locators"`
	MinScore  float64  `json:"min_score"`
}

type geocodeResponse struct {
	Results []geocodeCandidate `json:"results"`
}

type geocodeCandidate struct {
	X       *float64 `json:"x"`
	Y       *float64 `json:"y"`
	Score   float64  `json:"score"`
	Locator string   `json:"locator"`
	Address string   `json:"address"`
}

// GeocodeBatch geocodes the queries in request-size chunks. A transport or
// protocol failure is surfaced immediately as ErrGeocodeUnavailable; there
// is no retry contract.
func (c *Client) GeocodeBatch(ctx context.Context, queries []string) ([]model.GeocodeResult, error) {
	results := make([]model.GeocodeResult, 0, len(queries))

	for start := 0; start < len(queries); start += c.batchSize {
		end := start + c.batchSize
		if end > len(queries) {
			end = len(queries)
		}
		chunk, err := c.geocodeChunk(ctx, queries[start:end])
		if err != nil {
			return nil, err
		}
		results = append(results, chunk...)
	}

	return results, nil
}

func (c *Client) geocodeChunk(ctx context.Context, queries []string) ([]model.GeocodeResult, error) {
	reqBody := geocodeRequest{
		Addresses: queries,
		Locators:  []string{model.TierFull, model.TierShort, model.TierPlacename},
		MinScore:  c.threshold,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal geocode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/geocode", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create geocode request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrGeocodeUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", common.ErrGeocodeUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d: %s", common.ErrGeocodeUnavailable, resp.StatusCode, string(body))
	}

	var parsed geocodeResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: parse response: %v", common.ErrGeocodeUnavailable, err)
	}

	if len(parsed.Results) != len(queries) {
		return nil, fmt.Errorf("%w: sent %d addresses, got %d results",
			common.ErrGeocodeUnavailable, len(queries), len(parsed.Results))
	}

	results := make([]model.GeocodeResult, len(parsed.Results))
	for i, cand := range parsed.Results {
		results[i] = c.toResult(cand)
	}
	return results, nil
}

// toResult converts a service candidate, re-checking the threshold so a
// permissive service cannot smuggle in low-confidence coordinates.
func (c *Client) toResult(cand geocodeCandidate) model.GeocodeResult {
	res := model.GeocodeResult{
		Score:   cand.Score,
		Tier:    cand.Locator,
		Address: cand.Address,
	}
	if cand.X != nil && cand.Y != nil && cand.Score >= c.threshold {
		res.X = cand.X
		res.Y = cand.Y
		res.Resolved = true
	}
	return res
}
