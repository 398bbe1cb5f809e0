package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestMessageID_NamespacesNeverCollide(t *testing.T) {
	if ConfirmedID(3) == PendingID(3) {
		t.Fatalf("pending and confirmed ids must differ")
	}
	if !PendingID(1).IsPending() || ConfirmedID(1).IsPending() {
		t.Fatalf("unexpected pending flags")
	}
	if !(MessageID{}).IsZero() || ConfirmedID(1).IsZero() {
		t.Fatalf("unexpected zero detection")
	}
}

func TestMessageID_JSON(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want MessageID
	}{
		{"number", `12`, ConfirmedID(12)},
		{"numeric string", `"12"`, ConfirmedID(12)},
		{"pending", `"pending-4"`, PendingID(4)},
		{"null", `null`, MessageID{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var got MessageID
			if err := json.Unmarshal([]byte(tc.in), &got); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if got != tc.want {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}

	out, err := json.Marshal(struct {
		A MessageID `json:"a"`
		B MessageID `json:"b"`
	}{ConfirmedID(5), PendingID(2)})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `{"a":5,"b":"pending-2"}` {
		t.Fatalf("unexpected json %s", out)
	}

	var bad MessageID
	if err := json.Unmarshal([]byte(`"pending-x"`), &bad); err == nil {
		t.Fatalf("expected error for malformed pending id")
	}
}

func TestMessage_DisplayContentFallbacks(t *testing.T) {
	if got := (Message{Content: "  "}).DisplayContent(); got != FallbackAIContent {
		t.Fatalf("coach fallback: %q", got)
	}
	if got := (Message{IsUserMessage: true}).DisplayContent(); got != FallbackUserContent {
		t.Fatalf("user fallback: %q", got)
	}
	if got := (Message{Content: "hi"}).DisplayContent(); got != "hi" {
		t.Fatalf("content: %q", got)
	}
}

func TestSignalFor(t *testing.T) {
	if SignalFor(nil, nil).Any() {
		t.Fatalf("empty collections must not signal")
	}
	s := SignalFor([]Workout{{Title: "x"}}, &TrainingPlan{})
	if !s.WorkoutsChanged || !s.TrainingPlanChanged {
		t.Fatalf("unexpected signal %+v", s)
	}
}

func TestKindForStatus(t *testing.T) {
	cases := map[int]ErrorKind{
		http.StatusUnauthorized:        ErrorUnauthorized,
		http.StatusForbidden:           ErrorUnauthorized,
		http.StatusTooManyRequests:     ErrorTransient,
		http.StatusBadGateway:          ErrorTransient,
		http.StatusInternalServerError: ErrorTransient,
		http.StatusBadRequest:          ErrorOther,
		http.StatusNotFound:            ErrorOther,
	}
	for status, want := range cases {
		if got := KindForStatus(status); got != want {
			t.Errorf("status %d: got %s, want %s", status, got, want)
		}
	}
}

func TestRemoteError_IsAndClassify(t *testing.T) {
	err := fmt.Errorf("send: %w", &RemoteError{Kind: ErrorUnauthorized, Status: 401})
	if !errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrTransient) || !errors.Is(err, ErrRemote) {
		t.Fatalf("unexpected Is results for %v", err)
	}
	if ClassifyError(err) != ErrorUnauthorized {
		t.Fatalf("expected unauthorized classification")
	}
	if ClassifyError(errors.New("boom")) != ErrorTransient {
		t.Fatalf("unknown errors classify as transient")
	}
}

func TestViewer_Ready(t *testing.T) {
	v := Viewer{UserID: 1, Token: "t", ProfileComplete: true}
	if !v.Ready() {
		t.Fatalf("expected ready")
	}
	v.ProfileComplete = false
	if v.Ready() {
		t.Fatalf("incomplete profile must not be ready")
	}
}
