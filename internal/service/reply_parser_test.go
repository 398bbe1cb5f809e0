package service

import "testing"

func TestParseCoachReply_Envelope(t *testing.T) {
	raw := "```json\n" + `{"reply":"Great job!\nKeep it easy.","workouts":[{"title":"Easy run","intensity":"low","details":[" 5km ",""],"dayOfWeek":"Monday"},{"title":""}],"trainingPlan":{"title":"10K","durationWeeks":8}}` + "\n```"

	got, ok := parseCoachReply(raw)
	if !ok {
		t.Fatalf("expected reply")
	}
	if got.Text != "Great job!\nKeep it easy." {
		t.Fatalf("unexpected text %q", got.Text)
	}
	if len(got.Workouts) != 1 || got.Workouts[0].Title != "Easy run" {
		t.Fatalf("unexpected workouts %+v", got.Workouts)
	}
	if d := got.Workouts[0].Details; len(d) != 1 || d[0] != "5km" {
		t.Fatalf("unexpected details %+v", d)
	}
	if got.Plan == nil || got.Plan.Title != "10K" || got.Plan.CurrentWeek != 1 {
		t.Fatalf("unexpected plan %+v", got.Plan)
	}
}

func TestParseCoachReply_Fallbacks(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want string
		ok   bool
	}{
		{"plain text", "Run easy today.", "Run easy today.", true},
		{"text around json", `Sure! {"reply":"Rest day tomorrow."} hope it helps`, "Rest day tomorrow.", true},
		{"broken json keeps reply field", `{"reply":"Hydrate well.", "workouts": [ }`, "Hydrate well.", true},
		{"double escaped", `{"reply":"Line one\\nLine two"}`, "Line one\nLine two", true},
		{"json without reply", `{"workouts":[]}`, "", false},
		{"empty", "   ", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := parseCoachReply(tc.raw)
			if ok != tc.ok {
				t.Fatalf("ok=%v, want %v (text %q)", ok, tc.ok, got.Text)
			}
			if got.Text != tc.want {
				t.Fatalf("text=%q, want %q", got.Text, tc.want)
			}
		})
	}
}

func TestExtractEnvelopeJSON(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			"braces inside strings",
			`prefix {"reply":"use { and } freely","n":{"a":1}} trailing {"x":2}`,
			`{"reply":"use { and } freely","n":{"a":1}}`,
		},
		{"skips stray objects", `pace {easy} and {"a":1} then {"reply":"ok"}`, `{"reply":"ok"}`},
		{"unclosed outer object", `{ broken {"reply":"inner"}`, `{"reply":"inner"}`},
		{"no envelope", `{"a":1} {}`, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := extractEnvelopeJSON(tc.in); got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestParseCoachReply_StrayObjectBeforeEnvelopeKeepsWorkouts(t *testing.T) {
	raw := `Target {"zone":2} first. {"reply":"Run easy","workouts":[{"title":"Tempo","dayOfWeek":"Friday"}]}`
	got, ok := parseCoachReply(raw)
	if !ok || got.Text != "Run easy" {
		t.Fatalf("unexpected reply %+v ok=%v", got, ok)
	}
	if len(got.Workouts) != 1 || got.Workouts[0].Title != "Tempo" {
		t.Fatalf("expected envelope workouts, got %+v", got.Workouts)
	}
}
