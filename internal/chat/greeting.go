package chat

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"runcoach/internal/timeline"
)

// PlaceholderWelcome se muestra cuando el timeline esta vacio y no hay saludo. No forma parte
// del timeline.
const PlaceholderWelcome = "Welcome to RunCoach AI! I'm your personal running coach. How can I help you today?"

var ErrGreetingAttempted = errors.New("chat: greeting already attempted")

type GreetingState int

const (
	GreetingIdle GreetingState = iota
	GreetingChecking
	GreetingResolved
	GreetingSuppressed
	GreetingFailed
)

func (s GreetingState) String() string {
	switch s {
	case GreetingIdle:
		return "idle"
	case GreetingChecking:
		return "checking"
	case GreetingResolved:
		return "resolved"
	case GreetingSuppressed:
		return "suppressed"
	case GreetingFailed:
		return "failed"
	}
	return "unknown"
}

// GreetingBootstrapper pide como maximo un saludo por cada episodio de historial vacio.
type GreetingBootstrapper struct {
	store   *timeline.Store
	remote  Remote
	signals SignalSink
	logger  *zap.Logger

	attempted atomic.Bool

	mu          sync.Mutex
	state       GreetingState
	hadMessages bool
}

func NewGreetingBootstrapper(store *timeline.Store, remote Remote, signals SignalSink, logger *zap.Logger) *GreetingBootstrapper {
	if signals == nil {
		signals = nopSink{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GreetingBootstrapper{
		store:   store,
		remote:  remote,
		signals: signals,
		logger:  logger,
	}
}

// ObserveHistory se llama despues de cada carga de historial con la cantidad de mensajes
// recibidos. Un historial vacio dispara el saludo; el paso de no vacio a vacio rearma el latch.
// Devuelve true si esta llamada sembro un saludo en el timeline.
func (g *GreetingBootstrapper) ObserveHistory(ctx context.Context, count int) bool {
	g.mu.Lock()
	if count > 0 {
		g.hadMessages = true
		g.mu.Unlock()
		return false
	}
	if g.hadMessages {
		g.hadMessages = false
		g.attempted.Store(false)
		g.state = GreetingIdle
		g.logger.Debug("history emptied, greeting re-armed")
	}
	g.mu.Unlock()

	err := g.Bootstrap(ctx)
	return err == nil && g.State() == GreetingResolved
}

// Bootstrap pide el saludo si todavia no se intento. El latch se toma antes de la llamada
// remota, asi que disparos concurrentes producen una sola llamada.
func (g *GreetingBootstrapper) Bootstrap(ctx context.Context) error {
	if !g.attempted.CompareAndSwap(false, true) {
		return ErrGreetingAttempted
	}
	g.setState(GreetingChecking)

	greeting, err := g.remote.FetchGreeting(ctx)
	if err != nil {
		g.setState(GreetingFailed)
		g.logger.Warn("greeting request failed", zap.Error(err))
		return err
	}
	if !greeting.NeedsGreeting || greeting.Message == nil {
		g.setState(GreetingSuppressed)
		return nil
	}

	g.store.SeedGreeting(*greeting.Message)
	if greeting.SideEffects.Any() {
		g.signals.Notify(greeting.SideEffects)
	}
	g.setState(GreetingResolved)
	g.logger.Debug("greeting seeded", zap.String("message_id", greeting.Message.ID.String()))
	return nil
}

func (g *GreetingBootstrapper) State() GreetingState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

func (g *GreetingBootstrapper) Attempted() bool {
	return g.attempted.Load()
}

func (g *GreetingBootstrapper) setState(s GreetingState) {
	g.mu.Lock()
	g.state = s
	g.mu.Unlock()
}
