package domain

// History es el resultado de fetchHistory.
type History struct {
	Messages []Message
	// AutoGreetHint es nil cuando el servidor no envio la pista.
	AutoGreetHint *bool
}

// Greeting es el resultado de fetchGreeting.
type Greeting struct {
	NeedsGreeting bool
	Message       *Message
	SideEffects   SessionMutationSignal
	Workouts      []Workout
	TrainingPlan  *TrainingPlan
}

// Exchange es el resultado de appendMessage: el eco autoritativo y la respuesta del coach.
type Exchange struct {
	UserMessage  Message
	AIMessage    Message
	SideEffects  SessionMutationSignal
	Workouts     []Workout
	TrainingPlan *TrainingPlan
}
