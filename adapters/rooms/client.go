package rooms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/20407002036/LughaBridge/domain/entities"
	"github.com/20407002036/LughaBridge/domain/repositories"
)

const (
	defaultAPIBaseURL  = "http://localhost:8000/api"
	defaultWSBaseURL   = "ws://localhost:8000"
	defaultHTTPTimeout = 10 * time.Second
)

// ErrRoomNotFound is returned by JoinRoom when the code does not resolve to a
// live room; callers surface it as a "room unavailable" condition.
var ErrRoomNotFound = errors.New("room not found")

// ClientConfig holds configuration for the room service REST client.
// Optional fields with defaults:
// - APIBaseURL: base URL of the REST API (default: "http://localhost:8000/api")
// - WSBaseURL: base URL of the websocket endpoint (default: "ws://localhost:8000")
// - Timeout: per-request HTTP timeout (default: 10s)
type ClientConfig struct {
	APIBaseURL string
	WSBaseURL  string
	Timeout    time.Duration
}

// NewClientConfigFromEnv creates a ClientConfig from environment variables.
func NewClientConfigFromEnv() ClientConfig {
	return ClientConfig{
		APIBaseURL: os.Getenv("LUGHA_API_BASE_URL"),
		WSBaseURL:  os.Getenv("LUGHA_WS_BASE_URL"),
	}
}

// Client talks to the room service REST API: room creation, joining, and
// health. It implements repositories.RoomDirectory.
type Client struct {
	apiBaseURL string
	wsBaseURL  string
	httpClient *http.Client
	logger     *zap.Logger
}

var _ repositories.RoomDirectory = (*Client)(nil)

// NewClient creates a room service client, applying defaults for empty fields.
func NewClient(cfg ClientConfig, logger *zap.Logger) *Client {
	apiBaseURL := strings.TrimRight(cfg.APIBaseURL, "/")
	if apiBaseURL == "" {
		apiBaseURL = defaultAPIBaseURL
		logger.Info("Using default API base URL", zap.String("apiBaseURL", apiBaseURL))
	}

	wsBaseURL := strings.TrimRight(cfg.WSBaseURL, "/")
	if wsBaseURL == "" {
		wsBaseURL = defaultWSBaseURL
		logger.Info("Using default websocket base URL", zap.String("wsBaseURL", wsBaseURL))
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}

	return &Client{
		apiBaseURL: apiBaseURL,
		wsBaseURL:  wsBaseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// CreateRoomResponse is the payload returned by room creation.
type CreateRoomResponse struct {
	RoomCode string `json:"room_code"`
	WSURL    string `json:"ws_url"`
}

// CreateRoom asks the service to open a new room pairing the two languages.
func (c *Client) CreateRoom(ctx context.Context, source, target entities.Language) (CreateRoomResponse, error) {
	payload := map[string]string{
		"source_lang": string(source),
		"target_lang": string(target),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return CreateRoomResponse{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.apiBaseURL+"/rooms/create/", bytes.NewBuffer(body))
	if err != nil {
		return CreateRoomResponse{}, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return CreateRoomResponse{}, fmt.Errorf("failed to reach room service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		errorBody, _ := io.ReadAll(resp.Body)
		return CreateRoomResponse{}, fmt.Errorf("room creation failed with status %d: %s",
			resp.StatusCode, string(errorBody))
	}

	var created CreateRoomResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return CreateRoomResponse{}, fmt.Errorf("failed to decode response: %w", err)
	}

	c.logger.Info("Room created", zap.String("roomCode", created.RoomCode))
	return created, nil
}

// joinRoomPayload tolerates both field-name shapes the service emits.
type joinRoomPayload struct {
	RoomCode       string                   `json:"room_code"`
	SourceLanguage string                   `json:"source_language"`
	SourceLang     string                   `json:"source_lang"`
	TargetLanguage string                   `json:"target_language"`
	TargetLang     string                   `json:"target_lang"`
	Messages       []map[string]interface{} `json:"messages"`
}

// JoinRoom resolves a room code via GET /rooms/{code}/join/ and returns the
// room's languages plus its normalized message history.
func (c *Client) JoinRoom(ctx context.Context, code string) (repositories.JoinedRoom, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/rooms/%s/join/", c.apiBaseURL, code), nil)
	if err != nil {
		return repositories.JoinedRoom{}, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return repositories.JoinedRoom{}, fmt.Errorf("failed to reach room service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return repositories.JoinedRoom{}, ErrRoomNotFound
	}
	if resp.StatusCode != http.StatusOK {
		errorBody, _ := io.ReadAll(resp.Body)
		return repositories.JoinedRoom{}, fmt.Errorf("join failed with status %d: %s",
			resp.StatusCode, string(errorBody))
	}

	var payload joinRoomPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return repositories.JoinedRoom{}, fmt.Errorf("failed to decode response: %w", err)
	}

	joined := repositories.JoinedRoom{
		Room: entities.Room{
			Code:           payload.RoomCode,
			SourceLanguage: entities.LanguageKikuyu,
			TargetLanguage: entities.LanguageEnglish,
		},
	}
	if joined.Room.Code == "" {
		joined.Room.Code = code
	}
	if lang, ok := entities.ParseLanguage(firstNonEmpty(payload.SourceLanguage, payload.SourceLang)); ok {
		joined.Room.SourceLanguage = lang
	}
	if lang, ok := entities.ParseLanguage(firstNonEmpty(payload.TargetLanguage, payload.TargetLang)); ok {
		joined.Room.TargetLanguage = lang
	}
	for _, raw := range payload.Messages {
		joined.Messages = append(joined.Messages, NormalizeMessage(raw))
	}

	c.logger.Info("Joined room",
		zap.String("roomCode", joined.Room.Code),
		zap.Int("historySize", len(joined.Messages)))
	return joined, nil
}

// HealthResponse is the payload of GET /health/.
type HealthResponse struct {
	Status   string `json:"status"`
	DemoMode bool   `json:"demo_mode"`
}

// Health checks service liveness and whether the backend runs in demo mode.
func (c *Client) Health(ctx context.Context) (HealthResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBaseURL+"/health/", nil)
	if err != nil {
		return HealthResponse{}, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return HealthResponse{}, fmt.Errorf("failed to reach room service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return HealthResponse{}, fmt.Errorf("health check failed with status %d", resp.StatusCode)
	}

	var health HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return HealthResponse{}, fmt.Errorf("failed to decode response: %w", err)
	}
	return health, nil
}

// SessionURL builds the websocket endpoint for a room code.
func (c *Client) SessionURL(roomCode string) string {
	return fmt.Sprintf("%s/ws/room/%s/", c.wsBaseURL, roomCode)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
