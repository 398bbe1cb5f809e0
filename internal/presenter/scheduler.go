package presenter

import (
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"runcoach/internal/domain"
)

// SlotView es el estado visible de un mensaje del coach en una posicion del timeline.
type SlotView struct {
	Index     int
	MessageID domain.MessageID
	Typing    bool
	// Content y HTML quedan vacios mientras Typing es true.
	Content string
	HTML    string
}

type slot struct {
	id      domain.MessageID
	index   int
	typing  bool
	content string
	html    string
	gen     uint64
	timer   clockwork.Timer
}

func (s *slot) view() SlotView {
	v := SlotView{Index: s.index, MessageID: s.id, Typing: s.typing}
	if !s.typing {
		v.Content = s.content
		v.HTML = s.html
	}
	return v
}

// Scheduler decide cuando se revela cada mensaje del coach. Lo que ya estaba en el primer
// Sync se muestra de inmediato; lo nuevo simula escritura solo si la vista tiene foco.
// El estado se guarda por MessageID: un mensaje que cambia de posicion conserva su estado.
type Scheduler struct {
	clock    clockwork.Clock
	logger   *zap.Logger
	perRune  time.Duration
	minDelay time.Duration
	maxDelay time.Duration

	mu       sync.Mutex
	mounted  bool
	focused  bool
	stopped  bool
	slots    map[domain.MessageID]*slot
	byIndex  map[int]*slot
	revealed map[domain.MessageID]struct{}
	seq      uint64
	changed  chan struct{}
}

type Option func(*Scheduler)

func WithClock(clock clockwork.Clock) Option {
	return func(s *Scheduler) { s.clock = clock }
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTyping reemplaza los parametros de la simulacion de escritura.
func WithTyping(perRune, minDelay, maxDelay time.Duration) Option {
	return func(s *Scheduler) {
		if perRune > 0 {
			s.perRune = perRune
		}
		if minDelay > 0 {
			s.minDelay = minDelay
		}
		if maxDelay >= s.minDelay {
			s.maxDelay = maxDelay
		}
	}
}

// WithFocused fija el foco inicial de la vista.
func WithFocused(focused bool) Option {
	return func(s *Scheduler) { s.focused = focused }
}

func NewScheduler(opts ...Option) *Scheduler {
	s := &Scheduler{
		clock:    clockwork.NewRealClock(),
		logger:   zap.NewNop(),
		perRune:  DefaultTypingPerRune,
		minDelay: DefaultTypingMin,
		maxDelay: DefaultTypingMax,
		focused:  true,
		slots:    make(map[domain.MessageID]*slot),
		byIndex:  make(map[int]*slot),
		revealed: make(map[domain.MessageID]struct{}),
		changed:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sync recibe el timeline completo. La primera llamada es el montaje de la vista.
func (s *Scheduler) Sync(messages []domain.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}

	dirty := false
	present := make(map[domain.MessageID]struct{}, len(messages))
	byIndex := make(map[int]*slot, len(s.byIndex))
	for i, m := range messages {
		if m.IsUserMessage {
			continue
		}
		present[m.ID] = struct{}{}
		sl, ok := s.slots[m.ID]
		if !ok {
			sl = &slot{id: m.ID, index: i}
			s.slots[m.ID] = sl
			s.assignLocked(sl, m)
			dirty = true
		} else if sl.index != i {
			sl.index = i
			dirty = true
		}
		byIndex[i] = sl
	}
	for id, sl := range s.slots {
		if _, ok := present[id]; !ok {
			s.dropLocked(sl)
			dirty = true
		}
	}
	if len(byIndex) != len(s.byIndex) {
		dirty = true
	}
	s.byIndex = byIndex

	s.mounted = true
	if dirty {
		s.bumpLocked()
	}
}

func (s *Scheduler) assignLocked(sl *slot, m domain.Message) {
	s.seq++
	sl.gen = s.seq
	sl.content = m.DisplayContent()
	sl.html = Format(sl.content)

	_, seen := s.revealed[m.ID]
	if seen || !s.mounted || !s.focused {
		sl.typing = false
		s.revealed[m.ID] = struct{}{}
		return
	}

	delay := typingDelay(sl.content, s.perRune, s.minDelay, s.maxDelay)
	sl.typing = true
	id, gen := m.ID, sl.gen
	sl.timer = s.clock.AfterFunc(delay, func() { s.reveal(id, gen) })
	s.logger.Debug("typing scheduled", zap.Int("slot", sl.index), zap.String("message_id", m.ID.String()), zap.Duration("delay", delay))
}

func (s *Scheduler) dropLocked(sl *slot) {
	if sl.timer != nil {
		sl.timer.Stop()
		sl.timer = nil
	}
	delete(s.slots, sl.id)
}

func (s *Scheduler) reveal(id domain.MessageID, gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl, ok := s.slots[id]
	if !ok || sl.gen != gen || s.stopped {
		return
	}
	sl.typing = false
	sl.timer = nil
	s.revealed[id] = struct{}{}
	s.bumpLocked()
}

// SetFocused actualiza el foco. Una simulacion ya iniciada sigue su curso.
func (s *Scheduler) SetFocused(focused bool) {
	s.mu.Lock()
	s.focused = focused
	s.mu.Unlock()
}

// View devuelve el estado de la posicion index, si contiene un mensaje del coach.
func (s *Scheduler) View(index int) (SlotView, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl, ok := s.byIndex[index]
	if !ok {
		return SlotView{}, false
	}
	return sl.view(), true
}

// Views devuelve todas las posiciones del coach ordenadas por indice.
func (s *Scheduler) Views() []SlotView {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SlotView, 0, len(s.byIndex))
	for _, sl := range s.byIndex {
		out = append(out, sl.view())
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Index < out[b].Index })
	return out
}

// Updates se cierra en el proximo cambio visible. Hay que volver a pedirlo despues de cada cierre.
func (s *Scheduler) Updates() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.changed
}

// Stop cancela todas las simulaciones pendientes.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.stopped = true
	for _, sl := range s.slots {
		if sl.timer != nil {
			sl.timer.Stop()
			sl.timer = nil
		}
	}
}

func (s *Scheduler) bumpLocked() {
	close(s.changed)
	s.changed = make(chan struct{})
}
