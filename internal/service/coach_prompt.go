package service

import (
	"fmt"
	"strings"

	"runcoach/internal/domain"
)

// CoachSystemPrompt es el mensaje de sistema del cliente LLM.
const CoachSystemPrompt = `You are RunCoach, a friendly and knowledgeable running coach.
Answer in short paragraphs. Use "- " bullet lines for lists and **bold** for key numbers.
When the athlete asks for a new week of training or a new plan, include the updated data.
Always answer with a single JSON object and nothing else:
{"reply": "<message for the athlete>",
 "workouts": [{"title": "", "description": "", "intensity": "", "details": [""], "dayOfWeek": ""}],
 "trainingPlan": {"title": "", "description": "", "durationWeeks": 0, "currentWeek": 1}}
Omit "workouts" and "trainingPlan" when nothing changed.`

const historyWindow = 20

// Athlete es el usuario autenticado tal como lo ve el servicio.
type Athlete struct {
	ID   int64
	Name string
}

type coachPromptBuilder struct{}

func (coachPromptBuilder) greeting(athlete Athlete, workouts []domain.Workout, plan *domain.TrainingPlan) string {
	var sb strings.Builder
	sb.WriteString("=== TASK ===\n")
	sb.WriteString("This is the first conversation with the athlete. Write a warm welcome message.\n")
	if name := strings.TrimSpace(athlete.Name); name != "" {
		sb.WriteString(fmt.Sprintf("Address the athlete by name: %s.\n", name))
	}
	sb.WriteString("Ask about their running experience and their next goal race.\n")
	sb.WriteString("If it helps, propose a first easy week in \"workouts\".\n\n")
	writeTraining(&sb, workouts, plan)
	return sb.String()
}

func (coachPromptBuilder) reply(athlete Athlete, history []domain.Message, workouts []domain.Workout, plan *domain.TrainingPlan, userMessage string) string {
	var sb strings.Builder
	if name := strings.TrimSpace(athlete.Name); name != "" {
		sb.WriteString(fmt.Sprintf("Athlete: %s\n\n", name))
	}
	writeTraining(&sb, workouts, plan)

	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}
	if len(history) > 0 {
		sb.WriteString("=== CONVERSATION ===\n")
		for _, m := range history {
			role := "Coach"
			if m.IsUserMessage {
				role = "Athlete"
			}
			sb.WriteString(fmt.Sprintf("%s: %s\n", role, strings.TrimSpace(m.Content)))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("=== NEW MESSAGE ===\n")
	sb.WriteString(strings.TrimSpace(userMessage))
	sb.WriteString("\n")
	return sb.String()
}

func writeTraining(sb *strings.Builder, workouts []domain.Workout, plan *domain.TrainingPlan) {
	if plan == nil && len(workouts) == 0 {
		return
	}
	sb.WriteString("=== CURRENT TRAINING ===\n")
	if plan != nil {
		sb.WriteString(fmt.Sprintf("Plan: %s (week %d of %d)\n", plan.Title, plan.CurrentWeek, plan.DurationWeeks))
	}
	for _, w := range workouts {
		done := ""
		if w.IsComplete {
			done = " [done]"
		}
		sb.WriteString(fmt.Sprintf("- %s: %s (%s)%s\n", w.DayOfWeek, w.Title, w.Intensity, done))
	}
	sb.WriteString("\n")
}
