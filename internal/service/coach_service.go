package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"runcoach/internal/domain"
	"runcoach/internal/llm"
	"runcoach/internal/repository"
)

var (
	ErrEmptyMessage     = errors.New("message content is required")
	ErrCoachUnavailable = errors.New("coach unavailable")
)

// HistoryResult es el historial del usuario mas la pista de saludo.
type HistoryResult struct {
	Messages        []domain.Message
	ShouldAutoGreet bool
}

// GreetingResult describe la respuesta de Greeting. Greeting es nil si no hacia falta.
type GreetingResult struct {
	NeedsGreeting bool
	Greeting      *domain.Message
	Workouts      []domain.Workout
	TrainingPlan  *domain.TrainingPlan
}

// ReplyResult es el intercambio persistido y las colecciones que el coach modifico.
type ReplyResult struct {
	UserMessage  domain.Message
	AIMessage    domain.Message
	Workouts     []domain.Workout
	TrainingPlan *domain.TrainingPlan
}

// CoachService es la logica del servicio de sesion remoto: historial, saludo y respuestas.
type CoachService struct {
	messages repository.MessageRepository
	workouts repository.WorkoutRepository
	plans    repository.TrainingPlanRepository
	llm      llm.Client
	logger   *zap.Logger
	prompts  coachPromptBuilder
	now      func() time.Time

	locksMu sync.Mutex
	locks   map[int64]*sync.Mutex
}

func NewCoachService(
	messages repository.MessageRepository,
	workouts repository.WorkoutRepository,
	plans repository.TrainingPlanRepository,
	llmClient llm.Client,
	logger *zap.Logger,
) *CoachService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CoachService{
		messages: messages,
		workouts: workouts,
		plans:    plans,
		llm:      llmClient,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
		locks:    make(map[int64]*sync.Mutex),
	}
}

// userLock serializa saludo y respuestas de un mismo usuario.
func (s *CoachService) userLock(userID int64) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	mu, ok := s.locks[userID]
	if !ok {
		mu = &sync.Mutex{}
		s.locks[userID] = mu
	}
	return mu
}

func (s *CoachService) History(ctx context.Context, userID int64) (HistoryResult, error) {
	msgs, err := s.messages.ListByUser(ctx, userID)
	if err != nil {
		return HistoryResult{}, fmt.Errorf("list messages: %w", err)
	}
	return HistoryResult{Messages: msgs, ShouldAutoGreet: len(msgs) == 0}, nil
}

func (s *CoachService) Workouts(ctx context.Context, userID int64) ([]domain.Workout, error) {
	list, err := s.workouts.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list workouts: %w", err)
	}
	return list, nil
}

// TrainingPlan devuelve nil, nil si el usuario no tiene plan.
func (s *CoachService) TrainingPlan(ctx context.Context, userID int64) (*domain.TrainingPlan, error) {
	plan, err := s.plans.GetByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get training plan: %w", err)
	}
	return plan, nil
}

// Greeting genera y guarda el mensaje de bienvenida solo si el usuario no tiene historial.
func (s *CoachService) Greeting(ctx context.Context, athlete Athlete) (GreetingResult, error) {
	mu := s.userLock(athlete.ID)
	mu.Lock()
	defer mu.Unlock()

	count, err := s.messages.CountByUser(ctx, athlete.ID)
	if err != nil {
		return GreetingResult{}, fmt.Errorf("count messages: %w", err)
	}
	if count > 0 {
		return GreetingResult{NeedsGreeting: false}, nil
	}

	workouts, plan, err := s.currentTraining(ctx, athlete.ID)
	if err != nil {
		return GreetingResult{}, err
	}

	parsed, err := s.generate(ctx, s.prompts.greeting(athlete, workouts, plan))
	if err != nil {
		return GreetingResult{}, err
	}

	greeting, err := s.messages.Create(ctx, domain.Message{
		UserID:    athlete.ID,
		Content:   parsed.Text,
		CreatedAt: s.now(),
	})
	if err != nil {
		return GreetingResult{}, fmt.Errorf("create greeting: %w", err)
	}

	changedWorkouts, changedPlan := s.applySideEffects(ctx, athlete.ID, parsed)
	s.logger.Info("greeting created",
		zap.Int64("user_id", athlete.ID),
		zap.String("message_id", greeting.ID.String()),
		zap.Int("workouts", len(changedWorkouts)),
		zap.Bool("plan", changedPlan != nil),
	)
	return GreetingResult{
		NeedsGreeting: true,
		Greeting:      &greeting,
		Workouts:      changedWorkouts,
		TrainingPlan:  changedPlan,
	}, nil
}

// Reply pide la respuesta antes de persistir; si el modelo falla no se guarda nada.
func (s *CoachService) Reply(ctx context.Context, athlete Athlete, content string) (ReplyResult, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return ReplyResult{}, ErrEmptyMessage
	}

	mu := s.userLock(athlete.ID)
	mu.Lock()
	defer mu.Unlock()

	receivedAt := s.now()
	history, err := s.messages.ListByUser(ctx, athlete.ID)
	if err != nil {
		return ReplyResult{}, fmt.Errorf("list messages: %w", err)
	}
	workouts, plan, err := s.currentTraining(ctx, athlete.ID)
	if err != nil {
		return ReplyResult{}, err
	}

	parsed, err := s.generate(ctx, s.prompts.reply(athlete, history, workouts, plan, content))
	if err != nil {
		return ReplyResult{}, err
	}

	repliedAt := s.now()
	if !repliedAt.After(receivedAt) {
		repliedAt = receivedAt.Add(time.Millisecond)
	}
	userMsg, aiMsg, err := s.messages.CreatePair(ctx,
		domain.Message{UserID: athlete.ID, Content: content, IsUserMessage: true, CreatedAt: receivedAt},
		domain.Message{UserID: athlete.ID, Content: parsed.Text, CreatedAt: repliedAt},
	)
	if err != nil {
		return ReplyResult{}, fmt.Errorf("create messages: %w", err)
	}

	changedWorkouts, changedPlan := s.applySideEffects(ctx, athlete.ID, parsed)
	s.logger.Debug("reply created",
		zap.Int64("user_id", athlete.ID),
		zap.String("user_message_id", userMsg.ID.String()),
		zap.String("ai_message_id", aiMsg.ID.String()),
		zap.Int("workouts", len(changedWorkouts)),
		zap.Bool("plan", changedPlan != nil),
	)
	return ReplyResult{
		UserMessage:  userMsg,
		AIMessage:    aiMsg,
		Workouts:     changedWorkouts,
		TrainingPlan: changedPlan,
	}, nil
}

func (s *CoachService) currentTraining(ctx context.Context, userID int64) ([]domain.Workout, *domain.TrainingPlan, error) {
	workouts, err := s.workouts.ListByUser(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("list workouts: %w", err)
	}
	plan, err := s.plans.GetByUser(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("get training plan: %w", err)
	}
	return workouts, plan, nil
}

func (s *CoachService) generate(ctx context.Context, prompt string) (coachReply, error) {
	raw, err := s.llm.Generate(ctx, prompt)
	if err != nil {
		s.logger.Warn("llm generate failed", zap.Error(err))
		return coachReply{}, fmt.Errorf("%w: %v", ErrCoachUnavailable, err)
	}
	parsed, ok := parseCoachReply(raw)
	if !ok {
		s.logger.Warn("llm reply without usable text", zap.Int("raw_len", len(raw)))
		return coachReply{}, fmt.Errorf("%w: empty reply", ErrCoachUnavailable)
	}
	return parsed, nil
}

// applySideEffects guarda las colecciones que trajo la respuesta. Un fallo se loguea y
// esa coleccion no se informa como cambiada.
func (s *CoachService) applySideEffects(ctx context.Context, userID int64, parsed coachReply) ([]domain.Workout, *domain.TrainingPlan) {
	var workouts []domain.Workout
	if len(parsed.Workouts) > 0 {
		now := s.now()
		for i := range parsed.Workouts {
			parsed.Workouts[i].CreatedAt = now
		}
		stored, err := s.workouts.ReplaceForUser(ctx, userID, parsed.Workouts)
		if err != nil {
			s.logger.Error("replace workouts failed", zap.Int64("user_id", userID), zap.Error(err))
		} else {
			workouts = stored
		}
	}

	var plan *domain.TrainingPlan
	if parsed.Plan != nil {
		p := *parsed.Plan
		p.UserID = userID
		p.CreatedAt = s.now()
		stored, err := s.plans.Upsert(ctx, p)
		if err != nil {
			s.logger.Error("upsert training plan failed", zap.Int64("user_id", userID), zap.Error(err))
		} else {
			plan = &stored
		}
	}
	return workouts, plan
}
