// Package collections mantiene las colecciones dependientes del chat (workouts y plan de
// entrenamiento) y su invalidacion cuando una respuesta del coach las modifica.
package collections

import (
	"context"
	"sync"
)

// Collection identifica una coleccion dependiente.
type Collection string

const (
	Workouts     Collection = "workouts"
	TrainingPlan Collection = "training-plan"
)

// StaleTracker guarda un contador de generacion por viewer y coleccion. Marcar como stale
// incrementa la generacion; un snapshot cacheado con generacion menor debe re-leerse.
type StaleTracker interface {
	MarkStale(ctx context.Context, viewerID int64, c Collection) (uint64, error)
	Generation(ctx context.Context, viewerID int64, c Collection) (uint64, error)
}

type staleKey struct {
	viewerID   int64
	collection Collection
}

type memoryStaleTracker struct {
	mu          sync.Mutex
	generations map[staleKey]uint64
}

// NewMemoryStaleTracker crea un tracker en memoria, compartido por todo el proceso.
func NewMemoryStaleTracker() StaleTracker {
	return &memoryStaleTracker{
		generations: make(map[staleKey]uint64),
	}
}

func (t *memoryStaleTracker) MarkStale(_ context.Context, viewerID int64, c Collection) (uint64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	k := staleKey{viewerID: viewerID, collection: c}
	t.generations[k]++
	return t.generations[k], nil
}

func (t *memoryStaleTracker) Generation(_ context.Context, viewerID int64, c Collection) (uint64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.generations[staleKey{viewerID: viewerID, collection: c}], nil
}
