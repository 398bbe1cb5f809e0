package presenter

import (
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"runcoach/internal/domain"
)

func aiMsg(id int64, content string) domain.Message {
	return domain.Message{ID: domain.ConfirmedID(id), Content: content}
}

func userMsg(id int64, content string) domain.Message {
	return domain.Message{ID: domain.ConfirmedID(id), Content: content, IsUserMessage: true}
}

func TestTypingDelay(t *testing.T) {
	cases := []struct {
		name    string
		content string
		want    time.Duration
	}{
		{"short message clamps to minimum", strings.Repeat("a", 10), time.Second},
		{"proportional in range", strings.Repeat("a", 100), 1500 * time.Millisecond},
		{"long message clamps to maximum", strings.Repeat("a", 500), 3 * time.Second},
		{"tags do not count", "<strong>" + strings.Repeat("a", 100) + "</strong>", 1500 * time.Millisecond},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := TypingDelay(tc.content); got != tc.want {
				t.Fatalf("TypingDelay = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestTypingDelay_Monotonic(t *testing.T) {
	prev := time.Duration(0)
	for n := 0; n <= 400; n += 10 {
		d := TypingDelay(strings.Repeat("x", n))
		if d < prev {
			t.Fatalf("delay decreased at %d chars: %v < %v", n, d, prev)
		}
		prev = d
	}
}

func TestFormat(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"bold double", "Run **easy** today", "Run <strong>easy</strong> today"},
		{"bold single", "Run *easy* today", "Run <strong>easy</strong> today"},
		{
			"list wrapped once",
			"Plan\n- Warm up\n- Run 5k",
			"Plan\n<ul>\n<li>Warm up</li>\n<li>Run 5k</li>\n</ul>",
		},
		{"header line", "This week:", `<h4 class="font-semibold mt-2">This week:</h4>`},
		{"paragraphs", "First.\n\nSecond.", "First.</p><p>Second."},
		{"plain text untouched", "Keep going!", "Keep going!"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Format(tc.in); got != tc.want {
				t.Fatalf("Format(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestFormat_Idempotent(t *testing.T) {
	inputs := []string{
		"Here's your week:\n\n- **Monday**: easy 5k\n- *Tuesday*: rest\n\nGood luck!",
		"**a\n\nb**",
		"x *y\n\nz* w",
		"* one\n\n* two",
		"Intervals:\r\n- 6x400m\r\n- cool down",
		"No markup at all.",
		"",
	}
	for _, in := range inputs {
		once := Format(in)
		if twice := Format(once); twice != once {
			t.Fatalf("Format not idempotent for %q:\nonce:  %q\ntwice: %q", in, once, twice)
		}
	}
}

func TestScheduler_MountShowsEverythingImmediately(t *testing.T) {
	s := NewScheduler(WithClock(clockwork.NewFakeClock()), WithFocused(true))
	defer s.Stop()

	s.Sync([]domain.Message{
		aiMsg(1, "Welcome!"),
		userMsg(2, "hi"),
		aiMsg(3, "How far did you run?"),
		userMsg(4, "10k"),
		aiMsg(5, "Nice work."),
		aiMsg(6, "Tomorrow is a rest day."),
		userMsg(7, "ok"),
		aiMsg(8, "Hydrate well."),
		aiMsg(9, "See you Thursday."),
	})

	views := s.Views()
	if len(views) != 5 {
		t.Fatalf("expected 5 coach slots, got %d", len(views))
	}
	for _, v := range views {
		if v.Typing || v.HTML == "" {
			t.Fatalf("slot %d animated on mount: %+v", v.Index, v)
		}
	}
}

func TestScheduler_NewMessageTypesWhenFocused(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := NewScheduler(WithClock(clock), WithFocused(true))
	defer s.Stop()

	s.Sync([]domain.Message{aiMsg(1, "Welcome!")})
	s.Sync([]domain.Message{aiMsg(1, "Welcome!"), userMsg(2, "hi"), aiMsg(3, "Hello runner")})

	v, ok := s.View(2)
	if !ok || !v.Typing || v.HTML != "" {
		t.Fatalf("expected slot 2 typing with hidden content, got %+v ok=%v", v, ok)
	}
	if first, _ := s.View(0); first.Typing {
		t.Fatalf("existing slot must not re-animate")
	}

	updates := s.Updates()
	clock.Advance(TypingDelay("Hello runner"))
	select {
	case <-updates:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected an update after the typing delay")
	}
	v, _ = s.View(2)
	if v.Typing || v.HTML != "Hello runner" {
		t.Fatalf("expected revealed slot, got %+v", v)
	}
}

func pendingMsg(n uint64, content string) domain.Message {
	return domain.Message{ID: domain.PendingID(n), Content: content, IsUserMessage: true}
}

func TestScheduler_MovedReplyKeepsRevealedState(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := NewScheduler(WithClock(clock), WithFocused(true))
	defer s.Stop()

	s.Sync([]domain.Message{aiMsg(1, "Welcome!")})
	s.Sync([]domain.Message{aiMsg(1, "Welcome!"), pendingMsg(1, "lost in transit")})
	s.Sync([]domain.Message{aiMsg(1, "Welcome!"), pendingMsg(1, "lost in transit"), userMsg(2, "hi"), aiMsg(3, "Hello runner")})

	clock.Advance(DefaultTypingMax)
	waitFor(t, func() bool {
		v, _ := s.View(3)
		return !v.Typing
	})

	// la recarga del historial deja el pendiente fallido al final
	s.Sync([]domain.Message{aiMsg(1, "Welcome!"), userMsg(2, "hi"), aiMsg(3, "Hello runner"), pendingMsg(1, "lost in transit")})
	v, ok := s.View(2)
	if !ok || v.MessageID != domain.ConfirmedID(3) || v.Typing || v.HTML != "Hello runner" {
		t.Fatalf("moved reply must stay revealed, got %+v ok=%v", v, ok)
	}
	if _, ok := s.View(3); ok {
		t.Fatalf("old position must not keep a coach slot")
	}

	// reenvio: se quita el pendiente y llega un par nuevo
	s.Sync([]domain.Message{aiMsg(1, "Welcome!"), userMsg(2, "hi"), aiMsg(3, "Hello runner")})
	s.Sync([]domain.Message{aiMsg(1, "Welcome!"), userMsg(2, "hi"), aiMsg(3, "Hello runner"), userMsg(4, "lost in transit"), aiMsg(5, "Got it")})
	if v, _ := s.View(2); v.Typing {
		t.Fatalf("existing reply re-animated after resend: %+v", v)
	}
	if v, _ := s.View(4); !v.Typing {
		t.Fatalf("new reply should type, got %+v", v)
	}
}

func TestScheduler_MountedReplyMovedBeforeAnyRevealStaysVisible(t *testing.T) {
	s := NewScheduler(WithClock(clockwork.NewFakeClock()), WithFocused(true))
	defer s.Stop()

	s.Sync([]domain.Message{pendingMsg(1, "retry me"), aiMsg(2, "Welcome!")})
	s.Sync([]domain.Message{aiMsg(2, "Welcome!"), pendingMsg(1, "retry me")})

	if v, ok := s.View(0); !ok || v.Typing || v.HTML != "Welcome!" {
		t.Fatalf("reply present at mount must stay visible at any index, got %+v ok=%v", v, ok)
	}
}

func TestScheduler_UnfocusedRevealsImmediately(t *testing.T) {
	s := NewScheduler(WithClock(clockwork.NewFakeClock()), WithFocused(true))
	defer s.Stop()

	s.Sync(nil)
	s.SetFocused(false)
	s.Sync([]domain.Message{aiMsg(1, "Welcome!")})

	if v, _ := s.View(0); v.Typing || v.HTML != "Welcome!" {
		t.Fatalf("expected immediate reveal without focus, got %+v", v)
	}
}

func TestScheduler_ReplacedMessageCancelsPendingReveal(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := NewScheduler(WithClock(clock), WithFocused(true))
	defer s.Stop()

	short := "ok"
	long := strings.Repeat("b", 100)

	s.Sync(nil)
	s.Sync([]domain.Message{aiMsg(10, short)})
	clock.Advance(500 * time.Millisecond)
	s.Sync([]domain.Message{aiMsg(11, long)})

	// el timer del primer mensaje habria vencido a 1s
	clock.Advance(600 * time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	v, _ := s.View(0)
	if !v.Typing || v.MessageID != domain.ConfirmedID(11) {
		t.Fatalf("expected slot still typing the replacement, got %+v", v)
	}

	clock.Advance(time.Second)
	waitFor(t, func() bool {
		v, _ := s.View(0)
		return !v.Typing
	})
	v, _ = s.View(0)
	if v.HTML != long {
		t.Fatalf("expected replacement content, got %q", v.HTML)
	}
}

func TestScheduler_UserMessagesHaveNoSlot(t *testing.T) {
	s := NewScheduler(WithClock(clockwork.NewFakeClock()))
	defer s.Stop()

	s.Sync([]domain.Message{aiMsg(1, "a")})
	s.Sync([]domain.Message{userMsg(2, "b")})
	if _, ok := s.View(0); ok {
		t.Fatalf("expected slot dropped when position holds a user message")
	}
	if len(s.Views()) != 0 {
		t.Fatalf("expected no coach slots")
	}
}

func TestScheduler_StopCancelsTimers(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := NewScheduler(WithClock(clock), WithFocused(true))

	s.Sync(nil)
	s.Sync([]domain.Message{aiMsg(1, "hello")})
	s.Stop()
	clock.Advance(5 * time.Second)
	time.Sleep(20 * time.Millisecond)

	if v, _ := s.View(0); !v.Typing {
		t.Fatalf("expected reveal cancelled after Stop")
	}
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
