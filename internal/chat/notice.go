package chat

import (
	"context"

	"runcoach/internal/domain"
)

// Remote es la parte del Remote Session Service que usa una sesion de chat.
type Remote interface {
	FetchHistory(ctx context.Context) (domain.History, error)
	FetchGreeting(ctx context.Context) (domain.Greeting, error)
	AppendMessage(ctx context.Context, content string) (domain.Exchange, error)
}

// SignalSink recibe las senales de mutacion (lo implementa collections.Invalidator).
type SignalSink interface {
	Notify(signal domain.SessionMutationSignal)
}

type NoticeKind string

const (
	NoticeSessionExpired NoticeKind = "session_expired"
	NoticeNetworkError   NoticeKind = "network_error"
	NoticeSendFailed     NoticeKind = "send_failed"
)

// Notice es un aviso efimero para el usuario (toast).
type Notice struct {
	Kind        NoticeKind
	Title       string
	Description string
}

type Notifier interface {
	Show(n Notice)
}

type NotifierFunc func(Notice)

func (f NotifierFunc) Show(n Notice) { f(n) }

// Redirector lleva al usuario a re-autenticarse.
type Redirector interface {
	RedirectToAuth()
}

type RedirectorFunc func()

func (f RedirectorFunc) RedirectToAuth() { f() }

// InputClearer limpia el campo de texto de la vista.
type InputClearer interface {
	ClearInput()
}

type InputClearerFunc func()

func (f InputClearerFunc) ClearInput() { f() }

type nopSink struct{}

func (nopSink) Notify(domain.SessionMutationSignal) {}

type nopNotifier struct{}

func (nopNotifier) Show(Notice) {}

type nopRedirector struct{}

func (nopRedirector) RedirectToAuth() {}

type nopInput struct{}

func (nopInput) ClearInput() {}

func noticeFor(err error) Notice {
	switch domain.ClassifyError(err) {
	case domain.ErrorUnauthorized:
		return Notice{
			Kind:        NoticeSessionExpired,
			Title:       "Session expired",
			Description: "Please login again to continue chatting.",
		}
	case domain.ErrorTransient:
		if remoteStatus(err) != 0 {
			break
		}
		return Notice{
			Kind:        NoticeNetworkError,
			Title:       "Network error",
			Description: "Could not connect to the server. Please check your connection.",
		}
	}
	desc := "Please try again later"
	if msg := remoteMessage(err); msg != "" {
		desc = msg
	}
	return Notice{Kind: NoticeSendFailed, Title: "Error sending message", Description: desc}
}
