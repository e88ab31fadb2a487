package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"flagrange/pkg/api"
)

// GameClient handles read-only API calls to the gameserver.
type GameClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewGameClient creates a new client with the given base URL.
func NewGameClient(baseURL string) *GameClient {
	return &GameClient{
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// APIError represents an error response from the API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

// ListGames sends GET /api/games.
func (c *GameClient) ListGames() (*api.GameListResponse, error) {
	var result api.GameListResponse
	if err := c.getJSON(fmt.Sprintf("%s/api/games", c.BaseURL), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetGame sends GET /api/games/{id}.
func (c *GameClient) GetGame(gameID string) (*api.GameResponse, error) {
	var result api.GameResponse
	if err := c.getJSON(fmt.Sprintf("%s/api/games/%s", c.BaseURL, gameID), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetScoreboard sends GET /api/games/{id}/scoreboard.
func (c *GameClient) GetScoreboard(gameID string) (*api.ScoreboardResponse, error) {
	var result api.ScoreboardResponse
	if err := c.getJSON(fmt.Sprintf("%s/api/games/%s/scoreboard", c.BaseURL, gameID), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *GameClient) getJSON(endpoint string, out interface{}) error {
	httpReq, err := http.NewRequest(http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Add("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return &APIError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
