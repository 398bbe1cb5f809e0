package chat

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"runcoach/internal/domain"
	"runcoach/internal/timeline"
)

// DefaultRedirectDelay es la espera entre el aviso de sesion expirada y la redireccion.
const DefaultRedirectDelay = 2 * time.Second

var (
	ErrEmptyMessage  = errors.New("chat: empty message")
	ErrSendInFlight  = errors.New("chat: a message is already being sent")
	ErrNotResendable = errors.New("chat: message is not a failed send")
)

// SendPipeline envia mensajes del usuario: muestra el especulativo al instante, llama al
// servicio y reconcilia con el par confirmado. Un unico envio a la vez.
type SendPipeline struct {
	store         *timeline.Store
	remote        Remote
	signals       SignalSink
	notifier      Notifier
	redirector    Redirector
	input         InputClearer
	clock         clockwork.Clock
	redirectDelay time.Duration
	authorID      int64
	logger        *zap.Logger

	inFlight atomic.Bool

	mu     sync.Mutex
	failed map[domain.MessageID]string
}

// NewSendPipeline arma el pipeline. Los colaboradores nil se reemplazan por no-ops.
func NewSendPipeline(store *timeline.Store, remote Remote, authorID int64, deps Deps) *SendPipeline {
	deps = deps.withDefaults()
	return &SendPipeline{
		store:         store,
		remote:        remote,
		signals:       deps.Signals,
		notifier:      deps.Notifier,
		redirector:    deps.Redirector,
		input:         deps.Input,
		clock:         deps.Clock,
		redirectDelay: deps.RedirectDelay,
		authorID:      authorID,
		logger:        deps.Logger,
		failed:        make(map[domain.MessageID]string),
	}
}

// Send valida, agrega el especulativo y envia. Los errores remotos ya fueron notificados al
// usuario cuando se devuelven; ErrEmptyMessage y ErrSendInFlight son silenciosos.
func (p *SendPipeline) Send(ctx context.Context, content string) error {
	text := strings.TrimSpace(content)
	if text == "" {
		return ErrEmptyMessage
	}
	if !p.inFlight.CompareAndSwap(false, true) {
		return ErrSendInFlight
	}
	return p.dispatch(ctx, text, true)
}

// Resend reintenta un envio fallido a pedido del usuario: quita el especulativo fallido y lo
// vuelve a enviar con el mismo contenido.
func (p *SendPipeline) Resend(ctx context.Context, id domain.MessageID) error {
	if !p.inFlight.CompareAndSwap(false, true) {
		return ErrSendInFlight
	}
	p.mu.Lock()
	content, ok := p.failed[id]
	delete(p.failed, id)
	p.mu.Unlock()

	if !ok || !p.store.Remove(id) {
		p.inFlight.Store(false)
		return ErrNotResendable
	}
	return p.dispatch(ctx, content, false)
}

// dispatch asume que el guard de envio ya esta tomado. Solo un envio escrito por el usuario
// limpia el campo de texto; un reenvio no toca el borrador actual.
func (p *SendPipeline) dispatch(ctx context.Context, text string, fromInput bool) error {
	release := true
	defer func() {
		if release {
			p.inFlight.Store(false)
		}
	}()

	specID := p.store.AppendSpeculative(text, p.authorID)
	if fromInput {
		p.input.ClearInput()
	}

	exchange, err := p.remote.AppendMessage(ctx, text)
	if err != nil {
		p.mu.Lock()
		p.failed[specID] = text
		p.mu.Unlock()

		notice := noticeFor(err)
		p.notifier.Show(notice)
		p.logger.Warn("send failed",
			zap.String("message_id", specID.String()),
			zap.String("kind", string(domain.ClassifyError(err))),
			zap.Error(err),
		)
		if notice.Kind == NoticeSessionExpired {
			// el guard queda tomado hasta la redireccion
			release = false
			p.clock.AfterFunc(p.redirectDelay, func() {
				p.redirector.RedirectToAuth()
				p.inFlight.Store(false)
			})
		}
		return err
	}

	p.store.ReconcileSend(specID, exchange.UserMessage, exchange.AIMessage)
	if exchange.SideEffects.Any() {
		p.signals.Notify(exchange.SideEffects)
	}
	p.logger.Debug("message sent",
		zap.String("user_message_id", exchange.UserMessage.ID.String()),
		zap.String("ai_message_id", exchange.AIMessage.ID.String()),
	)
	return nil
}

// InFlight indica si hay un envio en curso (o una redireccion pendiente).
func (p *SendPipeline) InFlight() bool {
	return p.inFlight.Load()
}

// FailedIDs devuelve los especulativos fallidos que siguen en el timeline, en orden de envio.
func (p *SendPipeline) FailedIDs() []domain.MessageID {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.MessageID, 0, len(p.failed))
	for id := range p.failed {
		if _, ok := p.store.Find(id); !ok {
			delete(p.failed, id)
			continue
		}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Value() < out[j].Value() })
	return out
}

func remoteMessage(err error) string {
	var re *domain.RemoteError
	if errors.As(err, &re) {
		return re.Message
	}
	return ""
}

// remoteStatus devuelve el status HTTP del error, o 0 si no hubo respuesta del servidor.
func remoteStatus(err error) int {
	var re *domain.RemoteError
	if errors.As(err, &re) {
		return re.Status
	}
	return 0
}
