package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/everstacklabs/blocksmith/internal/httpclient"
)

// DefaultBaseURL is the Together AI API root.
const DefaultBaseURL = "https://api.together.xyz/v1"

// TogetherAPI fetches the live model listing from the Together AI API.
type TogetherAPI struct {
	apiKey  string
	baseURL string
	client  *httpclient.Client
	raw     []byte
}

// NewTogetherAPI builds the API source. An empty baseURL falls back to
// DefaultBaseURL.
func NewTogetherAPI(apiKey, baseURL string, client *httpclient.Client) *TogetherAPI {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &TogetherAPI{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

// Name implements Source.
func (t *TogetherAPI) Name() string { return "together-api" }

// Fetch retrieves /models, a flat JSON array of records.
func (t *TogetherAPI) Fetch(ctx context.Context) ([]Record, error) {
	url := t.baseURL + "/models"
	headers := map[string]string{
		"Accept":        "application/json",
		"Authorization": "Bearer " + t.apiKey,
	}

	resp, err := t.client.Get(ctx, url, headers)
	if err != nil {
		return nil, fmt.Errorf("fetching model listing: %w", err)
	}

	var records []Record
	if err := json.Unmarshal(resp.Body, &records); err != nil {
		return nil, fmt.Errorf("parsing model listing: %w", err)
	}
	t.raw = resp.Body

	slog.Info("model listing fetched",
		"source", t.Name(),
		"models", len(records),
		"from_cache", resp.FromCache)

	return records, nil
}

// Snapshot returns the raw payload from the last successful Fetch.
func (t *TogetherAPI) Snapshot() []byte { return t.raw }
