package domain

import "time"

// Workout es un entrenamiento del plan semanal del usuario.
type Workout struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"userId"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Intensity   string    `json:"intensity"`
	Details     []string  `json:"details"`
	DayOfWeek   string    `json:"dayOfWeek"`
	IsComplete  bool      `json:"isComplete"`
	CreatedAt   time.Time `json:"createdAt"`
}

// TrainingPlan es el plan de entrenamiento activo del usuario (a lo sumo uno).
type TrainingPlan struct {
	ID            int64     `json:"id"`
	UserID        int64     `json:"userId"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	DurationWeeks int       `json:"durationWeeks"`
	CurrentWeek   int       `json:"currentWeek"`
	CreatedAt     time.Time `json:"createdAt"`
}

// SessionMutationSignal indica que una respuesta del coach modifico colecciones dependientes.
type SessionMutationSignal struct {
	WorkoutsChanged     bool `json:"workoutsChanged"`
	TrainingPlanChanged bool `json:"trainingPlanChanged"`
}

func (s SessionMutationSignal) Any() bool {
	return s.WorkoutsChanged || s.TrainingPlanChanged
}

// SignalFor deriva la senal a partir de las colecciones que devolvio el servidor.
func SignalFor(workouts []Workout, plan *TrainingPlan) SessionMutationSignal {
	return SessionMutationSignal{
		WorkoutsChanged:     len(workouts) > 0,
		TrainingPlanChanged: plan != nil,
	}
}
