// Package breakdown resolves recipe breakdowns through a cache backed by
// an external generator.
package breakdown

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"cookplane/internal/store"
)

// Generator produces an ordered step breakdown for a recipe. The actual
// generation (LLM, rule engine) is an external service; a failure here
// fails session start entirely.
type Generator interface {
	Generate(ctx context.Context, recipeID string, granularity int, energy *int) ([]store.BreakdownStep, error)
}

// HTTPGenerator calls the external breakdown generator service.
type HTTPGenerator struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPGenerator creates a generator client for the given base URL.
func NewHTTPGenerator(baseURL string) *HTTPGenerator {
	return &HTTPGenerator{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type generateRequest struct {
	RecipeID         string `json:"recipe_id"`
	GranularityLevel int    `json:"granularity_level"`
	EnergyLevel      *int   `json:"energy_level,omitempty"`
}

type generateResponse struct {
	Steps []store.BreakdownStep `json:"steps"`
}

func (g *HTTPGenerator) Generate(ctx context.Context, recipeID string, granularity int, energy *int) ([]store.BreakdownStep, error) {
	body, err := json.Marshal(generateRequest{
		RecipeID:         recipeID,
		GranularityLevel: granularity,
		EnergyLevel:      energy,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal generate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Add("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("generator request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("generator returned %d: %s", resp.StatusCode, string(respBody))
	}

	var result generateResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to parse generator response: %w", err)
	}

	return result.Steps, nil
}
