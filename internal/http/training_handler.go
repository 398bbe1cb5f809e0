package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"runcoach/internal/domain"
	"runcoach/internal/service"
)

// TrainingHandler expone las colecciones que el coach puede modificar.
type TrainingHandler struct {
	logger *zap.Logger
	coach  *service.CoachService
}

func NewTrainingHandler(logger *zap.Logger, coach *service.CoachService) *TrainingHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TrainingHandler{logger: logger, coach: coach}
}

// ListWorkouts maneja GET /api/workouts.
func (h *TrainingHandler) ListWorkouts(c *gin.Context) {
	athlete, ok := athleteFromContext(c)
	if !ok {
		abortWithMessage(c, http.StatusUnauthorized, "unauthorized")
		return
	}
	list, err := h.coach.Workouts(c.Request.Context(), athlete.ID)
	if err != nil {
		h.logger.Error("list workouts failed", zap.Int64("user_id", athlete.ID), zap.Error(err))
		abortWithMessage(c, http.StatusInternalServerError, "could not load workouts")
		return
	}
	if list == nil {
		list = []domain.Workout{}
	}
	c.JSON(http.StatusOK, gin.H{"workouts": list})
}

// GetTrainingPlan maneja GET /api/training-plan; trainingPlan es null sin plan activo.
func (h *TrainingHandler) GetTrainingPlan(c *gin.Context) {
	athlete, ok := athleteFromContext(c)
	if !ok {
		abortWithMessage(c, http.StatusUnauthorized, "unauthorized")
		return
	}
	plan, err := h.coach.TrainingPlan(c.Request.Context(), athlete.ID)
	if err != nil {
		h.logger.Error("get training plan failed", zap.Int64("user_id", athlete.ID), zap.Error(err))
		abortWithMessage(c, http.StatusInternalServerError, "could not load training plan")
		return
	}
	c.JSON(http.StatusOK, gin.H{"trainingPlan": plan})
}
