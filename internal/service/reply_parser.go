package service

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"runcoach/internal/domain"
)

var replyFieldRe = regexp.MustCompile(`(?is)"reply"\s*:\s*"((?:\\.|[^"\\])*)"`)

// coachReply es lo que el servicio rescata de la salida del modelo.
type coachReply struct {
	Text     string
	Workouts []domain.Workout
	Plan     *domain.TrainingPlan
}

type replyEnvelope struct {
	Reply    string `json:"reply"`
	Workouts []struct {
		Title       string   `json:"title"`
		Description string   `json:"description"`
		Intensity   string   `json:"intensity"`
		Details     []string `json:"details"`
		DayOfWeek   string   `json:"dayOfWeek"`
	} `json:"workouts"`
	TrainingPlan *struct {
		Title         string `json:"title"`
		Description   string `json:"description"`
		DurationWeeks int    `json:"durationWeeks"`
		CurrentWeek   int    `json:"currentWeek"`
	} `json:"trainingPlan"`
}

// parseCoachReply acepta el sobre JSON (con o sin fences) y cae a texto plano
// cuando el modelo no respeto el formato. ok=false solo si no queda texto.
func parseCoachReply(raw string) (coachReply, bool) {
	cleaned := cleanLLMJSONResponse(raw)

	candidates := []string{extractEnvelopeJSON(cleaned), cleaned}
	for _, c := range candidates {
		if c == "" {
			continue
		}
		var env replyEnvelope
		if err := json.Unmarshal([]byte(c), &env); err != nil {
			continue
		}
		text := unescapeMaybeDoubleEscaped(env.Reply)
		if text == "" {
			continue
		}
		return envelopeReply(text, env), true
	}

	if text, ok := extractReplyByRegex(cleaned); ok {
		return coachReply{Text: text}, true
	}

	// sin JSON reconocible el texto completo es la respuesta
	if !hasJSONObject(cleaned) && cleaned != "" {
		return coachReply{Text: cleaned}, true
	}
	return coachReply{}, false
}

func envelopeReply(text string, env replyEnvelope) coachReply {
	out := coachReply{Text: text}
	for _, w := range env.Workouts {
		if strings.TrimSpace(w.Title) == "" {
			continue
		}
		details := make([]string, 0, len(w.Details))
		for _, d := range w.Details {
			if d = strings.TrimSpace(d); d != "" {
				details = append(details, d)
			}
		}
		out.Workouts = append(out.Workouts, domain.Workout{
			Title:       strings.TrimSpace(w.Title),
			Description: strings.TrimSpace(w.Description),
			Intensity:   strings.TrimSpace(w.Intensity),
			Details:     details,
			DayOfWeek:   strings.TrimSpace(w.DayOfWeek),
		})
	}
	if p := env.TrainingPlan; p != nil && strings.TrimSpace(p.Title) != "" {
		current := p.CurrentWeek
		if current <= 0 {
			current = 1
		}
		out.Plan = &domain.TrainingPlan{
			Title:         strings.TrimSpace(p.Title),
			Description:   strings.TrimSpace(p.Description),
			DurationWeeks: p.DurationWeeks,
			CurrentWeek:   current,
		}
	}
	return out
}

func extractReplyByRegex(s string) (string, bool) {
	m := replyFieldRe.FindStringSubmatch(s)
	if len(m) < 2 {
		return "", false
	}
	text, err := strconv.Unquote(`"` + m[1] + `"`)
	if err != nil {
		text = unescapeMinimalEscapes(m[1])
	}
	text = unescapeMaybeDoubleEscaped(text)
	return text, text != ""
}

// unescapeMaybeDoubleEscaped corrige texto que el modelo mando doble escapado.
func unescapeMaybeDoubleEscaped(s string) string {
	s = strings.TrimSpace(s)
	if !strings.Contains(s, `\`) {
		return s
	}
	quoted := `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
	if unq, err := strconv.Unquote(quoted); err == nil {
		return strings.TrimSpace(unq)
	}
	return unescapeMinimalEscapes(s)
}

func unescapeMinimalEscapes(s string) string {
	return strings.NewReplacer(
		`\\`, `\`,
		`\"`, `"`,
		`\n`, "\n",
		`\t`, "\t",
	).Replace(s)
}
