package chat

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"runcoach/internal/domain"
	"runcoach/internal/timeline"
)

// DefaultPollInterval es el intervalo de recarga del historial.
const DefaultPollInterval = 30 * time.Second

var (
	ErrViewerNotReady = errors.New("chat: viewer is not authenticated or profile is incomplete")
	ErrMissingRemote  = errors.New("chat: remote session service is required")
	ErrSessionClosed  = errors.New("chat: session closed")
)

// Deps agrupa los colaboradores opcionales de una sesion.
type Deps struct {
	Signals       SignalSink
	Notifier      Notifier
	Redirector    Redirector
	Input         InputClearer
	Clock         clockwork.Clock
	Logger        *zap.Logger
	PollInterval  time.Duration
	RedirectDelay time.Duration
}

func (d Deps) withDefaults() Deps {
	if d.Signals == nil {
		d.Signals = nopSink{}
	}
	if d.Notifier == nil {
		d.Notifier = nopNotifier{}
	}
	if d.Redirector == nil {
		d.Redirector = nopRedirector{}
	}
	if d.Input == nil {
		d.Input = nopInput{}
	}
	if d.Clock == nil {
		d.Clock = clockwork.NewRealClock()
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.PollInterval <= 0 {
		d.PollInterval = DefaultPollInterval
	}
	if d.RedirectDelay <= 0 {
		d.RedirectDelay = DefaultRedirectDelay
	}
	return d
}

// Session es el contexto de una conversacion abierta: timeline, saludo y envios de un viewer.
type Session struct {
	viewer   domain.Viewer
	store    *timeline.Store
	remote   Remote
	greeter  *GreetingBootstrapper
	pipeline *SendPipeline
	clock    clockwork.Clock
	poll     time.Duration
	logger   *zap.Logger

	loaded    atomic.Bool
	readyOnce sync.Once
	ready     chan struct{}
	refreshMu sync.Mutex

	// life se cancela en Close y corta cualquier Refresh en curso.
	life      context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
	done      chan struct{}
}

// Open crea la sesion de chat de un viewer autenticado con perfil completo.
func Open(viewer domain.Viewer, remote Remote, deps Deps) (*Session, error) {
	if !viewer.Ready() {
		return nil, ErrViewerNotReady
	}
	if remote == nil {
		return nil, ErrMissingRemote
	}
	deps = deps.withDefaults()
	logger := deps.Logger.With(zap.Int64("user_id", viewer.UserID))
	deps.Logger = logger

	store := timeline.NewStore()
	life, cancel := context.WithCancel(context.Background())
	return &Session{
		viewer:   viewer,
		store:    store,
		remote:   remote,
		greeter:  NewGreetingBootstrapper(store, remote, deps.Signals, logger),
		pipeline: NewSendPipeline(store, remote, viewer.UserID, deps),
		clock:    deps.Clock,
		poll:     deps.PollInterval,
		logger:   logger,
		ready:    make(chan struct{}),
		life:     life,
		cancel:   cancel,
		done:     make(chan struct{}),
	}, nil
}

func (s *Session) Viewer() domain.Viewer { return s.viewer }

func (s *Session) Store() *timeline.Store { return s.store }

func (s *Session) Greeter() *GreetingBootstrapper { return s.greeter }

func (s *Session) Pipeline() *SendPipeline { return s.pipeline }

func (s *Session) Send(ctx context.Context, content string) error {
	return s.pipeline.Send(ctx, content)
}

func (s *Session) Resend(ctx context.Context, id domain.MessageID) error {
	return s.pipeline.Resend(ctx, id)
}

// Loaded indica si ya termino la primera carga del historial.
func (s *Session) Loaded() bool {
	return s.loaded.Load()
}

// Ready se cierra al terminar la primera carga del historial, antes de pedir el saludo.
func (s *Session) Ready() <-chan struct{} {
	return s.ready
}

// ShowPlaceholder indica si la vista debe mostrar PlaceholderWelcome.
func (s *Session) ShowPlaceholder() bool {
	return s.Loaded() && s.store.Len() == 0
}

// Refresh recarga el historial, lo fusiona con el timeline y avisa al bootstrapper del saludo.
func (s *Session) Refresh(ctx context.Context) error {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	if s.closed() {
		return ErrSessionClosed
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(s.life, cancel)
	defer stop()

	history, err := s.remote.FetchHistory(ctx)
	if s.closed() {
		return ErrSessionClosed
	}
	if err != nil {
		s.logger.Warn("history load failed", zap.String("kind", string(domain.ClassifyError(err))), zap.Error(err))
		return err
	}
	s.store.ReplaceFromServer(history.Messages)
	s.loaded.Store(true)
	s.readyOnce.Do(func() { close(s.ready) })

	if history.AutoGreetHint != nil {
		s.logger.Debug("history loaded", zap.Int("count", len(history.Messages)), zap.Bool("auto_greet_hint", *history.AutoGreetHint))
	} else {
		s.logger.Debug("history loaded", zap.Int("count", len(history.Messages)))
	}
	s.greeter.ObserveHistory(ctx, len(history.Messages))
	return nil
}

// Run carga el historial y lo recarga cada PollInterval hasta que se cancele ctx o se cierre
// la sesion.
func (s *Session) Run(ctx context.Context) error {
	_ = s.Refresh(ctx)

	ticker := s.clock.NewTicker(s.poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.done:
			return nil
		case <-ticker.Chan():
			_ = s.Refresh(ctx)
		}
	}
}

// Close descarta el timeline y detiene el loop de recarga.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.cancel()
		s.refreshMu.Lock()
		s.store.Clear()
		s.refreshMu.Unlock()
		s.logger.Debug("chat session closed")
	})
}

func (s *Session) closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}
