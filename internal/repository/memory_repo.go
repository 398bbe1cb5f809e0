package repository

import (
	"context"
	"sync"
	"time"

	"runcoach/internal/domain"
)

// MemoryStore implementa los tres repositorios en memoria del proceso.
// Se usa cuando no hay DATABASE_URL y en los tests del servicio.
type MemoryStore struct {
	mu       sync.Mutex
	now      func() time.Time
	nextMsg  int64
	nextWork int64
	nextPlan int64
	messages map[int64][]domain.Message
	workouts map[int64][]domain.Workout
	plans    map[int64]domain.TrainingPlan
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		now:      time.Now,
		messages: make(map[int64][]domain.Message),
		workouts: make(map[int64][]domain.Workout),
		plans:    make(map[int64]domain.TrainingPlan),
	}
}

func (s *MemoryStore) ListByUser(ctx context.Context, userID int64) ([]domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Message, len(s.messages[userID]))
	copy(out, s.messages[userID])
	return out, nil
}

func (s *MemoryStore) CountByUser(ctx context.Context, userID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages[userID]), nil
}

func (s *MemoryStore) Create(ctx context.Context, message domain.Message) (domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertMessageLocked(message), nil
}

func (s *MemoryStore) CreatePair(ctx context.Context, user, ai domain.Message) (domain.Message, domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertMessageLocked(user), s.insertMessageLocked(ai), nil
}

func (s *MemoryStore) insertMessageLocked(m domain.Message) domain.Message {
	s.nextMsg++
	m.ID = domain.ConfirmedID(s.nextMsg)
	if m.CreatedAt.IsZero() {
		m.CreatedAt = s.now()
	}
	s.messages[m.UserID] = append(s.messages[m.UserID], m)
	return m
}

// Workouts adapta el store a WorkoutRepository (ListByUser colisiona con el de mensajes).
func (s *MemoryStore) Workouts() WorkoutRepository { return memoryWorkouts{s} }

// TrainingPlans adapta el store a TrainingPlanRepository.
func (s *MemoryStore) TrainingPlans() TrainingPlanRepository { return memoryPlans{s} }

type memoryWorkouts struct{ s *MemoryStore }

func (w memoryWorkouts) ListByUser(ctx context.Context, userID int64) ([]domain.Workout, error) {
	w.s.mu.Lock()
	defer w.s.mu.Unlock()
	out := make([]domain.Workout, len(w.s.workouts[userID]))
	copy(out, w.s.workouts[userID])
	return out, nil
}

func (w memoryWorkouts) ReplaceForUser(ctx context.Context, userID int64, workouts []domain.Workout) ([]domain.Workout, error) {
	w.s.mu.Lock()
	defer w.s.mu.Unlock()
	stored := make([]domain.Workout, len(workouts))
	for i, wk := range workouts {
		w.s.nextWork++
		wk.ID = w.s.nextWork
		wk.UserID = userID
		if wk.Details == nil {
			wk.Details = []string{}
		}
		if wk.CreatedAt.IsZero() {
			wk.CreatedAt = w.s.now()
		}
		stored[i] = wk
	}
	w.s.workouts[userID] = stored
	out := make([]domain.Workout, len(stored))
	copy(out, stored)
	return out, nil
}

type memoryPlans struct{ s *MemoryStore }

func (p memoryPlans) GetByUser(ctx context.Context, userID int64) (*domain.TrainingPlan, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	plan, ok := p.s.plans[userID]
	if !ok {
		return nil, nil
	}
	return &plan, nil
}

func (p memoryPlans) Upsert(ctx context.Context, plan domain.TrainingPlan) (domain.TrainingPlan, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	if existing, ok := p.s.plans[plan.UserID]; ok {
		plan.ID = existing.ID
		plan.CreatedAt = existing.CreatedAt
	} else {
		p.s.nextPlan++
		plan.ID = p.s.nextPlan
		if plan.CreatedAt.IsZero() {
			plan.CreatedAt = p.s.now()
		}
	}
	p.s.plans[plan.UserID] = plan
	return plan, nil
}
