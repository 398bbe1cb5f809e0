package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"runcoach/internal/domain"
	"runcoach/internal/service"
)

// ChatHandler expone historial, saludo y envio de mensajes.
type ChatHandler struct {
	logger *zap.Logger
	coach  *service.CoachService
}

func NewChatHandler(logger *zap.Logger, coach *service.CoachService) *ChatHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatHandler{logger: logger, coach: coach}
}

type historyResponse struct {
	Messages        []domain.Message `json:"messages"`
	ShouldAutoGreet bool             `json:"shouldAutoGreet"`
}

type greetingResponse struct {
	NeedsGreeting bool                 `json:"needsGreeting"`
	Greeting      *domain.Message      `json:"greeting"`
	Workouts      []domain.Workout     `json:"workouts,omitempty"`
	TrainingPlan  *domain.TrainingPlan `json:"trainingPlan,omitempty"`
}

type sendMessageRequest struct {
	Message string `json:"message"`
}

type sendMessageResponse struct {
	UserMessage  domain.Message       `json:"userMessage"`
	AIMessage    domain.Message       `json:"aiMessage"`
	Workouts     []domain.Workout     `json:"workouts,omitempty"`
	TrainingPlan *domain.TrainingPlan `json:"trainingPlan,omitempty"`
}

// ListMessages maneja GET /api/chat/messages.
func (h *ChatHandler) ListMessages(c *gin.Context) {
	athlete, ok := athleteFromContext(c)
	if !ok {
		abortWithMessage(c, http.StatusUnauthorized, "unauthorized")
		return
	}
	res, err := h.coach.History(c.Request.Context(), athlete.ID)
	if err != nil {
		h.logger.Error("list messages failed", zap.Int64("user_id", athlete.ID), zap.Error(err))
		abortWithMessage(c, http.StatusInternalServerError, "could not load messages")
		return
	}
	c.JSON(http.StatusOK, historyResponse{Messages: res.Messages, ShouldAutoGreet: res.ShouldAutoGreet})
}

// Greeting maneja GET /api/chat/greeting.
func (h *ChatHandler) Greeting(c *gin.Context) {
	athlete, ok := athleteFromContext(c)
	if !ok {
		abortWithMessage(c, http.StatusUnauthorized, "unauthorized")
		return
	}
	res, err := h.coach.Greeting(c.Request.Context(), athlete)
	if err != nil {
		h.writeServiceError(c, athlete.ID, "greeting failed", err)
		return
	}
	c.JSON(http.StatusOK, greetingResponse{
		NeedsGreeting: res.NeedsGreeting,
		Greeting:      res.Greeting,
		Workouts:      res.Workouts,
		TrainingPlan:  res.TrainingPlan,
	})
}

// PostMessage maneja POST /api/chat/messages.
func (h *ChatHandler) PostMessage(c *gin.Context) {
	athlete, ok := athleteFromContext(c)
	if !ok {
		abortWithMessage(c, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid post message request", zap.Error(err))
		abortWithMessage(c, http.StatusBadRequest, "invalid request")
		return
	}

	res, err := h.coach.Reply(c.Request.Context(), athlete, req.Message)
	if err != nil {
		h.writeServiceError(c, athlete.ID, "reply failed", err)
		return
	}
	c.JSON(http.StatusCreated, sendMessageResponse{
		UserMessage:  res.UserMessage,
		AIMessage:    res.AIMessage,
		Workouts:     res.Workouts,
		TrainingPlan: res.TrainingPlan,
	})
}

func (h *ChatHandler) writeServiceError(c *gin.Context, userID int64, msg string, err error) {
	switch {
	case errors.Is(err, service.ErrEmptyMessage):
		abortWithMessage(c, http.StatusBadRequest, "Message cannot be empty")
	case errors.Is(err, service.ErrCoachUnavailable):
		h.logger.Warn(msg, zap.Int64("user_id", userID), zap.Error(err))
		abortWithMessage(c, http.StatusBadGateway, "The coach is unavailable right now. Please try again later")
	default:
		h.logger.Error(msg, zap.Int64("user_id", userID), zap.Error(err))
		abortWithMessage(c, http.StatusInternalServerError, "Something went wrong")
	}
}
