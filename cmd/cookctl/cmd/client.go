package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"cookplane/pkg/api"
)

// CookClient handles API calls to the cookplane service.
type CookClient struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

// NewCookClient creates a new client with the given base URL and token.
func NewCookClient(baseURL, token string) *CookClient {
	return &CookClient{
		BaseURL: baseURL,
		Token:   token,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// APIError represents an error response from the API. Code carries the
// machine-readable category so callers can tell a conflict from an
// outage.
type APIError struct {
	StatusCode int
	Code       api.ErrorCode
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

// Permanent reports whether retrying the same request can ever succeed.
// Rejections in the 4xx range are final except for rate limiting.
func (e *APIError) Permanent() bool {
	if e.StatusCode == http.StatusTooManyRequests {
		return false
	}
	return e.StatusCode >= 400 && e.StatusCode < 500
}

// do sends one request and decodes the response body into out, if out
// is non-nil. Non-2xx responses become an *APIError; transport
// failures come back as plain errors.
func (c *CookClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(bodyBytes)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Add("Authorization", fmt.Sprintf("Bearer %s", c.Token))
	httpReq.Header.Add("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: string(respBody)}
		var errResp api.ErrorResponse
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			apiErr.Code = errResp.Code
			apiErr.Message = errResp.Error
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// StartSession sends POST /sessions to begin a cooking session.
func (c *CookClient) StartSession(ctx context.Context, req api.StartSessionRequest) (*api.SessionResponse, error) {
	var result api.SessionResponse
	if err := c.do(ctx, http.MethodPost, "/sessions", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetSession sends GET /sessions/{id}.
func (c *CookClient) GetSession(ctx context.Context, sessionID string) (*api.SessionResponse, error) {
	var result api.SessionResponse
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/sessions/%s", sessionID), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListSessions sends GET /sessions.
func (c *CookClient) ListSessions(ctx context.Context) ([]api.SessionResponse, error) {
	var result api.ListSessionsResponse
	if err := c.do(ctx, http.MethodGet, "/sessions", nil, &result); err != nil {
		return nil, err
	}
	return result.Sessions, nil
}

// UpdateProgress sends PATCH /sessions/{id}/progress.
func (c *CookClient) UpdateProgress(ctx context.Context, sessionID string, req api.UpdateProgressRequest) (*api.SessionResponse, error) {
	var result api.SessionResponse
	if err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/sessions/%s/progress", sessionID), req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// TransitionSession sends POST /sessions/{id}/{action} for pause,
// resume, complete and abandon.
func (c *CookClient) TransitionSession(ctx context.Context, sessionID, action string) (*api.SessionResponse, error) {
	var result api.SessionResponse
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/sessions/%s/%s", sessionID, action), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CompleteStep sends PUT /sessions/{id}/steps/{index}.
func (c *CookClient) CompleteStep(ctx context.Context, sessionID string, index int, req api.CompleteStepRequest) error {
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/sessions/%s/steps/%d", sessionID, index), req, nil)
}

// ListSteps sends GET /sessions/{id}/steps.
func (c *CookClient) ListSteps(ctx context.Context, sessionID string) ([]api.StepCompletionResponse, error) {
	var result api.ListStepCompletionsResponse
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/sessions/%s/steps", sessionID), nil, &result); err != nil {
		return nil, err
	}
	return result.Steps, nil
}

// CreateTimer sends POST /sessions/{id}/timers.
func (c *CookClient) CreateTimer(ctx context.Context, sessionID string, req api.CreateTimerRequest) (*api.TimerResponse, error) {
	var result api.TimerResponse
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/sessions/%s/timers", sessionID), req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListTimers sends GET /sessions/{id}/timers.
func (c *CookClient) ListTimers(ctx context.Context, sessionID string) ([]api.TimerResponse, error) {
	var result api.ListTimersResponse
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/sessions/%s/timers", sessionID), nil, &result); err != nil {
		return nil, err
	}
	return result.Timers, nil
}

// GetTimer sends GET /timers/{id}.
func (c *CookClient) GetTimer(ctx context.Context, timerID string) (*api.TimerResponse, error) {
	var result api.TimerResponse
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/timers/%s", timerID), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// TransitionTimer sends POST /timers/{id}/{action} for pause, resume,
// complete and cancel.
func (c *CookClient) TransitionTimer(ctx context.Context, timerID, action string) (*api.TimerResponse, error) {
	var result api.TimerResponse
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/timers/%s/%s", timerID, action), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CreateRoom sends POST /rooms.
func (c *CookClient) CreateRoom(ctx context.Context, req api.CreateRoomRequest) (*api.RoomResponse, error) {
	var result api.RoomResponse
	if err := c.do(ctx, http.MethodPost, "/rooms", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// JoinRoom sends POST /rooms/join.
func (c *CookClient) JoinRoom(ctx context.Context, req api.JoinRoomRequest) (*api.JoinRoomResponse, error) {
	var result api.JoinRoomResponse
	if err := c.do(ctx, http.MethodPost, "/rooms/join", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListRooms sends GET /rooms to list joinable public rooms.
func (c *CookClient) ListRooms(ctx context.Context) ([]api.RoomResponse, error) {
	var result api.ListRoomsResponse
	if err := c.do(ctx, http.MethodGet, "/rooms", nil, &result); err != nil {
		return nil, err
	}
	return result.Rooms, nil
}

// GetRoom sends GET /rooms/{id}.
func (c *CookClient) GetRoom(ctx context.Context, roomID string) (*api.RoomResponse, error) {
	var result api.RoomResponse
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/rooms/%s", roomID), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// LeaveRoom sends POST /rooms/{id}/leave.
func (c *CookClient) LeaveRoom(ctx context.Context, roomID string) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/rooms/%s/leave", roomID), nil, nil)
}

// UpdateActivity sends PUT /rooms/{id}/activity, the participant
// heartbeat.
func (c *CookClient) UpdateActivity(ctx context.Context, roomID string, req api.UpdateActivityRequest) error {
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/rooms/%s/activity", roomID), req, nil)
}

// ListParticipants sends GET /rooms/{id}/participants.
func (c *CookClient) ListParticipants(ctx context.Context, roomID string) ([]api.ParticipantResponse, error) {
	var result api.ListParticipantsResponse
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/rooms/%s/participants", roomID), nil, &result); err != nil {
		return nil, err
	}
	return result.Participants, nil
}

// EndRoom sends POST /rooms/{id}/end.
func (c *CookClient) EndRoom(ctx context.Context, roomID string) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/rooms/%s/end", roomID), nil, nil)
}
