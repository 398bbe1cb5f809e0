package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"runcoach/internal/domain"
)

func newTestClient(t *testing.T, token string, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, token, srv.Client(), nil)
}

func TestFetchHistory_DecodesMessagesAndHint(t *testing.T) {
	c := newTestClient(t, "tok", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/chat/messages" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("unexpected auth header %q", got)
		}
		if r.Header.Get(RequestIDHeader) == "" {
			t.Errorf("missing request id")
		}
		_, _ = w.Write([]byte(`{"messages":[{"id":1,"userId":7,"content":"Welcome!","isUserMessage":false,"createdAt":"2024-05-01T10:00:00Z"}],"shouldAutoGreet":false}`))
	})

	h, err := c.FetchHistory(context.Background())
	if err != nil {
		t.Fatalf("fetch history: %v", err)
	}
	if len(h.Messages) != 1 || h.Messages[0].ID != domain.ConfirmedID(1) || h.Messages[0].IsUserMessage {
		t.Fatalf("unexpected messages: %+v", h.Messages)
	}
	if h.AutoGreetHint == nil || *h.AutoGreetHint {
		t.Fatalf("expected explicit false hint, got %v", h.AutoGreetHint)
	}
}

func TestAppendMessage_SendsBodyAndDerivesSignal(t *testing.T) {
	c := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {
		var req sendRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if req.Message != "plan my week" {
			t.Errorf("unexpected message %q", req.Message)
		}
		if r.Header.Get("Authorization") != "" {
			t.Errorf("expected no auth header without token")
		}
		_, _ = w.Write([]byte(`{"userMessage":{"id":2,"content":"plan my week","isUserMessage":true},"aiMessage":{"id":3,"content":"Done!"},"workouts":[{"id":1,"title":"Tempo"}]}`))
	})

	ex, err := c.AppendMessage(context.Background(), "plan my week")
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if ex.UserMessage.ID != domain.ConfirmedID(2) || ex.AIMessage.ID != domain.ConfirmedID(3) {
		t.Fatalf("unexpected exchange: %+v", ex)
	}
	if !ex.SideEffects.WorkoutsChanged || ex.SideEffects.TrainingPlanChanged {
		t.Fatalf("unexpected signal: %+v", ex.SideEffects)
	}
}

func TestFetchGreeting_NoGreeting(t *testing.T) {
	c := newTestClient(t, "tok", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"needsGreeting":false}`))
	})
	g, err := c.FetchGreeting(context.Background())
	if err != nil {
		t.Fatalf("greeting: %v", err)
	}
	if g.NeedsGreeting || g.Message != nil || g.SideEffects.Any() {
		t.Fatalf("unexpected greeting: %+v", g)
	}
}

func TestFetchTrainingPlan_Null(t *testing.T) {
	c := newTestClient(t, "tok", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"trainingPlan":null}`))
	})
	plan, err := c.FetchTrainingPlan(context.Background(), 7)
	if err != nil || plan != nil {
		t.Fatalf("expected nil plan, got %+v, %v", plan, err)
	}
}

func TestClient_ErrorClassification(t *testing.T) {
	cases := []struct {
		name     string
		status   int
		body     string
		kind     domain.ErrorKind
		sentinel error
		message  string
	}{
		{"unauthorized", http.StatusUnauthorized, `{"message":"invalid token"}`, domain.ErrorUnauthorized, domain.ErrUnauthorized, "invalid token"},
		{"forbidden", http.StatusForbidden, ``, domain.ErrorUnauthorized, domain.ErrUnauthorized, ""},
		{"server error", http.StatusBadGateway, `upstream down`, domain.ErrorTransient, domain.ErrTransient, "upstream down"},
		{"rate limited", http.StatusTooManyRequests, `{"error":"slow down"}`, domain.ErrorTransient, domain.ErrTransient, "slow down"},
		{"bad request", http.StatusBadRequest, `{"message":"Message is required"}`, domain.ErrorOther, domain.ErrRemote, "Message is required"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, "tok", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})
			_, err := c.AppendMessage(context.Background(), "hi")
			var re *domain.RemoteError
			if !errors.As(err, &re) {
				t.Fatalf("expected RemoteError, got %v", err)
			}
			if re.Kind != tc.kind || re.Status != tc.status || re.Message != tc.message {
				t.Fatalf("unexpected error: %+v", re)
			}
			if !errors.Is(err, tc.sentinel) {
				t.Fatalf("expected errors.Is(%v)", tc.sentinel)
			}
		})
	}
}

func TestClient_TransportErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewClient(url, "tok", nil, nil)
	_, err := c.FetchHistory(context.Background())
	if !errors.Is(err, domain.ErrTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
}

func TestClient_ExpiredTokenFailsWithoutRequest(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "7",
		"exp": time.Now().Add(-time.Minute).Unix(),
	}).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	called := false
	c := newTestClient(t, token, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	_, err = c.AppendMessage(context.Background(), "hi")
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if called {
		t.Fatalf("expected no request with an expired token")
	}
}

func TestTokenExpired(t *testing.T) {
	now := time.Now()
	valid, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": now.Add(time.Hour).Unix()}).SignedString([]byte("k"))
	noExp, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "1"}).SignedString([]byte("k"))

	if tokenExpired(valid, now) {
		t.Fatalf("valid token reported expired")
	}
	if tokenExpired(noExp, now) {
		t.Fatalf("token without exp reported expired")
	}
	if tokenExpired("opaque-session-token", now) {
		t.Fatalf("opaque token reported expired")
	}
}
