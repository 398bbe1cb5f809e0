package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"runcoach/internal/domain"
)

const (
	RequestIDHeader = "X-Request-ID"

	defaultTimeout = 15 * time.Second
	maxErrorBody   = 4 << 10
)

// Client habla con el Remote Session Service por HTTP/JSON.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
	logger  *zap.Logger
	now     func() time.Time
}

// NewClient construye el cliente. httpClient nil usa un cliente con timeout de 15s.
func NewClient(baseURL, token string, httpClient *http.Client, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  httpClient,
		logger:  logger,
		now:     time.Now,
	}
}

type historyResponse struct {
	Messages        []domain.Message `json:"messages"`
	ShouldAutoGreet *bool            `json:"shouldAutoGreet,omitempty"`
}

type greetingResponse struct {
	NeedsGreeting bool                 `json:"needsGreeting"`
	Greeting      *domain.Message      `json:"greeting"`
	Workouts      []domain.Workout     `json:"workouts,omitempty"`
	TrainingPlan  *domain.TrainingPlan `json:"trainingPlan,omitempty"`
}

type sendRequest struct {
	Message string `json:"message"`
}

type sendResponse struct {
	UserMessage  domain.Message       `json:"userMessage"`
	AIMessage    domain.Message       `json:"aiMessage"`
	Workouts     []domain.Workout     `json:"workouts,omitempty"`
	TrainingPlan *domain.TrainingPlan `json:"trainingPlan,omitempty"`
}

type workoutsResponse struct {
	Workouts []domain.Workout `json:"workouts"`
}

type trainingPlanResponse struct {
	TrainingPlan *domain.TrainingPlan `json:"trainingPlan"`
}

type errorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// FetchHistory devuelve el historial persistido del viewer.
func (c *Client) FetchHistory(ctx context.Context) (domain.History, error) {
	var resp historyResponse
	if err := c.do(ctx, http.MethodGet, "/api/chat/messages", nil, &resp); err != nil {
		return domain.History{}, err
	}
	return domain.History{Messages: resp.Messages, AutoGreetHint: resp.ShouldAutoGreet}, nil
}

// FetchGreeting pregunta si corresponde un saludo y, de ser asi, lo devuelve.
func (c *Client) FetchGreeting(ctx context.Context) (domain.Greeting, error) {
	var resp greetingResponse
	if err := c.do(ctx, http.MethodGet, "/api/chat/greeting", nil, &resp); err != nil {
		return domain.Greeting{}, err
	}
	return domain.Greeting{
		NeedsGreeting: resp.NeedsGreeting,
		Message:       resp.Greeting,
		SideEffects:   domain.SignalFor(resp.Workouts, resp.TrainingPlan),
		Workouts:      resp.Workouts,
		TrainingPlan:  resp.TrainingPlan,
	}, nil
}

// AppendMessage envia un mensaje del usuario y devuelve el eco confirmado y la respuesta del coach.
func (c *Client) AppendMessage(ctx context.Context, content string) (domain.Exchange, error) {
	var resp sendResponse
	if err := c.do(ctx, http.MethodPost, "/api/chat/messages", sendRequest{Message: content}, &resp); err != nil {
		return domain.Exchange{}, err
	}
	return domain.Exchange{
		UserMessage:  resp.UserMessage,
		AIMessage:    resp.AIMessage,
		SideEffects:  domain.SignalFor(resp.Workouts, resp.TrainingPlan),
		Workouts:     resp.Workouts,
		TrainingPlan: resp.TrainingPlan,
	}, nil
}

// FetchWorkouts lee los workouts del viewer autenticado; ownerID solo se usa en los logs.
func (c *Client) FetchWorkouts(ctx context.Context, ownerID int64) ([]domain.Workout, error) {
	var resp workoutsResponse
	if err := c.do(ctx, http.MethodGet, "/api/workouts", nil, &resp); err != nil {
		return nil, err
	}
	c.logger.Debug("workouts fetched", zap.Int64("user_id", ownerID), zap.Int("count", len(resp.Workouts)))
	return resp.Workouts, nil
}

// FetchTrainingPlan lee el plan activo; nil si el viewer no tiene uno.
func (c *Client) FetchTrainingPlan(ctx context.Context, ownerID int64) (*domain.TrainingPlan, error) {
	var resp trainingPlanResponse
	if err := c.do(ctx, http.MethodGet, "/api/training-plan", nil, &resp); err != nil {
		return nil, err
	}
	c.logger.Debug("training plan fetched", zap.Int64("user_id", ownerID), zap.Bool("present", resp.TrainingPlan != nil))
	return resp.TrainingPlan, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	if tokenExpired(c.token, c.now()) {
		return &domain.RemoteError{Kind: domain.ErrorUnauthorized, Message: "access token expired"}
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set(RequestIDHeader, requestID)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn("remote request failed", zap.String("method", method), zap.String("path", path), zap.String("request_id", requestID), zap.Error(err))
		return &domain.RemoteError{Kind: domain.ErrorTransient, Message: "could not reach the server", Err: err}
	}
	defer resp.Body.Close()

	c.logger.Debug("remote request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.String("request_id", requestID),
		zap.Duration("latency", time.Since(start)),
	)

	if resp.StatusCode >= http.StatusBadRequest {
		return statusError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &domain.RemoteError{Kind: domain.ErrorOther, Status: resp.StatusCode, Message: "invalid response body", Err: err}
	}
	return nil
}

func statusError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	msg := ""
	var er errorResponse
	if json.Unmarshal(raw, &er) == nil {
		msg = er.Message
		if msg == "" {
			msg = er.Error
		}
	}
	if msg == "" {
		msg = strings.TrimSpace(string(raw))
	}
	return &domain.RemoteError{Kind: domain.KindForStatus(resp.StatusCode), Status: resp.StatusCode, Message: msg}
}
