package chat

import (
	"context"
	"sync"
	"testing"
	"time"

	"runcoach/internal/domain"
)

type fakeRemote struct {
	mu sync.Mutex

	history     []domain.Message
	historyErr  error
	historyGate chan struct{}

	greeting      domain.Greeting
	greetingErr   error
	greetingCalls int
	greetingGate  chan struct{}

	exchange    domain.Exchange
	appendErr   error
	appendCalls int
	appended    []string
	appendGate  chan struct{}
}

func (f *fakeRemote) FetchHistory(ctx context.Context) (domain.History, error) {
	f.mu.Lock()
	gate := f.historyGate
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return domain.History{}, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.historyErr != nil {
		return domain.History{}, f.historyErr
	}
	return domain.History{Messages: append([]domain.Message(nil), f.history...)}, nil
}

func (f *fakeRemote) FetchGreeting(context.Context) (domain.Greeting, error) {
	f.mu.Lock()
	f.greetingCalls++
	gate := f.greetingGate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.greeting, f.greetingErr
}

func (f *fakeRemote) AppendMessage(_ context.Context, content string) (domain.Exchange, error) {
	f.mu.Lock()
	f.appendCalls++
	f.appended = append(f.appended, content)
	gate := f.appendGate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.exchange, f.appendErr
}

func (f *fakeRemote) set(fn func(f *fakeRemote)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeRemote) counts() (greetings, appends int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.greetingCalls, f.appendCalls
}

type recorder struct {
	mu        sync.Mutex
	notices   []Notice
	signals   []domain.SessionMutationSignal
	redirects int
	clears    int
}

func (r *recorder) Show(n Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

func (r *recorder) Notify(s domain.SessionMutationSignal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.signals = append(r.signals, s)
}

func (r *recorder) RedirectToAuth() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.redirects++
}

func (r *recorder) ClearInput() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clears++
}

func (r *recorder) lastNotice() (Notice, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.notices) == 0 {
		return Notice{}, 0
	}
	return r.notices[len(r.notices)-1], len(r.notices)
}

func (r *recorder) redirectCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.redirects
}

func (r *recorder) clearCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.clears
}

func aiMessage(id int64, content string) domain.Message {
	return domain.Message{ID: domain.ConfirmedID(id), UserID: 7, Content: content}
}

func userMessage(id int64, content string) domain.Message {
	return domain.Message{ID: domain.ConfirmedID(id), UserID: 7, Content: content, IsUserMessage: true}
}

func readyViewer() domain.Viewer {
	return domain.Viewer{UserID: 7, Name: "Ana", Token: "tok", ProfileComplete: true}
}

func contents(msgs []domain.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Content
	}
	return out
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met before deadline")
}
