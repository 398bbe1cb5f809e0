package collections

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"runcoach/internal/domain"
)

// DefaultRecheckDelay es la espera antes de la re-lectura de confirmacion de workouts: la
// mutacion remota puede confirmarse despues de que llega la respuesta del coach.
const DefaultRecheckDelay = 500 * time.Millisecond

const invalidateTimeout = 5 * time.Second

// Refresher re-lee una coleccion.
type Refresher interface {
	Refresh(ctx context.Context, coll Collection) error
}

// Invalidator recibe las senales de mutacion del chat y marca las colecciones como stale.
type Invalidator struct {
	viewerID  int64
	tracker   StaleTracker
	refresher Refresher
	clock     clockwork.Clock
	delay     time.Duration
	logger    *zap.Logger

	wg sync.WaitGroup
}

// InvalidatorOption ajusta un Invalidator.
type InvalidatorOption func(*Invalidator)

func WithClock(clock clockwork.Clock) InvalidatorOption {
	return func(i *Invalidator) { i.clock = clock }
}

func WithRecheckDelay(d time.Duration) InvalidatorOption {
	return func(i *Invalidator) {
		if d > 0 {
			i.delay = d
		}
	}
}

// WithRefresher hace que la re-verificacion demorada tambien vuelva a leer los workouts.
func WithRefresher(r Refresher) InvalidatorOption {
	return func(i *Invalidator) { i.refresher = r }
}

func WithLogger(logger *zap.Logger) InvalidatorOption {
	return func(i *Invalidator) {
		if logger != nil {
			i.logger = logger
		}
	}
}

// NewInvalidator crea el invalidador de un viewer.
func NewInvalidator(viewerID int64, tracker StaleTracker, opts ...InvalidatorOption) *Invalidator {
	if tracker == nil {
		tracker = NewMemoryStaleTracker()
	}
	inv := &Invalidator{
		viewerID: viewerID,
		tracker:  tracker,
		clock:    clockwork.NewRealClock(),
		delay:    DefaultRecheckDelay,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(inv)
	}
	return inv
}

// Notify procesa una senal sin bloquear al llamador. Workouts: stale inmediato y una
// re-verificacion a los 500ms. Plan: stale una sola vez.
func (i *Invalidator) Notify(signal domain.SessionMutationSignal) {
	if !signal.Any() {
		return
	}

	if signal.WorkoutsChanged {
		i.wg.Add(1)
		i.clock.AfterFunc(i.delay, func() {
			defer i.wg.Done()
			i.recheckWorkouts()
		})
	}

	i.wg.Add(1)
	go func() {
		defer i.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), invalidateTimeout)
		defer cancel()
		if signal.WorkoutsChanged {
			i.mark(ctx, Workouts)
		}
		if signal.TrainingPlanChanged {
			i.mark(ctx, TrainingPlan)
		}
	}()
}

// Wait espera a que terminen las invalidaciones en curso, incluida la re-verificacion demorada.
func (i *Invalidator) Wait() {
	i.wg.Wait()
}

func (i *Invalidator) recheckWorkouts() {
	ctx, cancel := context.WithTimeout(context.Background(), invalidateTimeout)
	defer cancel()

	i.mark(ctx, Workouts)
	if i.refresher == nil {
		return
	}
	if err := i.refresher.Refresh(ctx, Workouts); err != nil {
		i.logger.Warn("workouts recheck failed", zap.Int64("user_id", i.viewerID), zap.Error(err))
		return
	}
	i.logger.Debug("workouts rechecked", zap.Int64("user_id", i.viewerID))
}

func (i *Invalidator) mark(ctx context.Context, coll Collection) {
	gen, err := i.tracker.MarkStale(ctx, i.viewerID, coll)
	if err != nil {
		i.logger.Warn("mark stale failed", zap.String("collection", string(coll)), zap.Int64("user_id", i.viewerID), zap.Error(err))
		return
	}
	i.logger.Debug("collection marked stale", zap.String("collection", string(coll)), zap.Int64("user_id", i.viewerID), zap.Uint64("generation", gen))
}
