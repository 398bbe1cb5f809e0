package collections

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"runcoach/internal/domain"
)

var ErrUnknownCollection = errors.New("unknown collection")

// Fetcher lee las colecciones del Remote Session Service.
type Fetcher interface {
	FetchWorkouts(ctx context.Context, ownerID int64) ([]domain.Workout, error)
	FetchTrainingPlan(ctx context.Context, ownerID int64) (*domain.TrainingPlan, error)
}

// Cache sirve las colecciones de un viewer y las vuelve a leer cuando el tracker indica una
// generacion mas nueva que la del snapshot. Las lecturas nunca modifican los flags.
type Cache struct {
	viewerID int64
	fetcher  Fetcher
	tracker  StaleTracker
	logger   *zap.Logger

	mu       sync.Mutex
	workouts snapshot[[]domain.Workout]
	plan     snapshot[*domain.TrainingPlan]
}

type snapshot[T any] struct {
	value      T
	generation uint64
	loaded     bool
}

func (s snapshot[T]) fresh(current uint64) bool {
	return s.loaded && s.generation >= current
}

// NewCache crea el cache de colecciones para un viewer.
func NewCache(viewerID int64, fetcher Fetcher, tracker StaleTracker, logger *zap.Logger) *Cache {
	if tracker == nil {
		tracker = NewMemoryStaleTracker()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		viewerID: viewerID,
		fetcher:  fetcher,
		tracker:  tracker,
		logger:   logger,
	}
}

// Workouts devuelve los workouts, re-leyendo si el snapshot quedo stale.
func (c *Cache) Workouts(ctx context.Context) ([]domain.Workout, error) {
	gen, err := c.tracker.Generation(ctx, c.viewerID, Workouts)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	cached := c.workouts
	c.mu.Unlock()
	if cached.fresh(gen) {
		return cached.value, nil
	}
	return c.loadWorkouts(ctx, gen)
}

// TrainingPlan devuelve el plan actual (nil si no hay), re-leyendo si quedo stale.
func (c *Cache) TrainingPlan(ctx context.Context) (*domain.TrainingPlan, error) {
	gen, err := c.tracker.Generation(ctx, c.viewerID, TrainingPlan)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	cached := c.plan
	c.mu.Unlock()
	if cached.fresh(gen) {
		return cached.value, nil
	}
	return c.loadPlan(ctx, gen)
}

// IsStale indica si la proxima lectura de la coleccion ira al servidor.
func (c *Cache) IsStale(ctx context.Context, coll Collection) (bool, error) {
	gen, err := c.tracker.Generation(ctx, c.viewerID, coll)
	if err != nil {
		return false, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	switch coll {
	case Workouts:
		return !c.workouts.fresh(gen), nil
	case TrainingPlan:
		return !c.plan.fresh(gen), nil
	}
	return false, ErrUnknownCollection
}

// Refresh fuerza la lectura de una coleccion.
func (c *Cache) Refresh(ctx context.Context, coll Collection) error {
	gen, err := c.tracker.Generation(ctx, c.viewerID, coll)
	if err != nil {
		return err
	}
	switch coll {
	case Workouts:
		_, err = c.loadWorkouts(ctx, gen)
	case TrainingPlan:
		_, err = c.loadPlan(ctx, gen)
	default:
		err = ErrUnknownCollection
	}
	return err
}

func (c *Cache) loadWorkouts(ctx context.Context, gen uint64) ([]domain.Workout, error) {
	workouts, err := c.fetcher.FetchWorkouts(ctx, c.viewerID)
	if err != nil {
		return nil, fmt.Errorf("fetch workouts: %w", err)
	}
	c.mu.Lock()
	if gen >= c.workouts.generation {
		c.workouts = snapshot[[]domain.Workout]{value: workouts, generation: gen, loaded: true}
	}
	c.mu.Unlock()
	c.logger.Debug("workouts loaded", zap.Int64("user_id", c.viewerID), zap.Int("count", len(workouts)), zap.Uint64("generation", gen))
	return workouts, nil
}

func (c *Cache) loadPlan(ctx context.Context, gen uint64) (*domain.TrainingPlan, error) {
	plan, err := c.fetcher.FetchTrainingPlan(ctx, c.viewerID)
	if err != nil {
		return nil, fmt.Errorf("fetch training plan: %w", err)
	}
	c.mu.Lock()
	if gen >= c.plan.generation {
		c.plan = snapshot[*domain.TrainingPlan]{value: plan, generation: gen, loaded: true}
	}
	c.mu.Unlock()
	c.logger.Debug("training plan loaded", zap.Int64("user_id", c.viewerID), zap.Bool("present", plan != nil), zap.Uint64("generation", gen))
	return plan, nil
}
