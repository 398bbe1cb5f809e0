// Package timeline mantiene el timeline reconciliado de una sesion de chat.
package timeline

import (
	"strings"
	"sync"
	"time"

	"runcoach/internal/domain"
)

// Timeline es una copia inmutable del estado del store.
type Timeline struct {
	Version  uint64
	Messages []domain.Message
}

// PendingCount devuelve cuantos mensajes especulativos siguen sin confirmar.
func (t Timeline) PendingCount() int {
	n := 0
	for _, m := range t.Messages {
		if m.ID.IsPending() {
			n++
		}
	}
	return n
}

// Store es el timeline de una sesion. Todas las mutaciones pasan por el mismo mutex,
// en el orden en que se observan, y ninguna falla.
type Store struct {
	mu       sync.Mutex
	messages []domain.Message
	version  uint64
	seq      uint64
	changed  chan struct{}
	now      func() time.Time
}

// NewStore crea un store vacio.
func NewStore() *Store {
	return &Store{
		changed: make(chan struct{}),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// ReplaceFromServer reemplaza el timeline por la historia persistida. Los especulativos sin
// contraparte en el servidor se conservan al final en su orden original.
func (s *Store) ReplaceFromServer(serverMessages []domain.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]domain.Message, 0, len(serverMessages)+1)
	next = append(next, serverMessages...)

	// Los especulativos mas recientes reclaman primero: un envio fallido viejo nunca tiene
	// contraparte y debe seguir visible.
	claimable := s.newUserContents(serverMessages)
	claimed := make(map[domain.MessageID]bool)
	for i := len(s.messages) - 1; i >= 0; i-- {
		m := s.messages[i]
		if !m.ID.IsPending() {
			continue
		}
		key := normalizeContent(m.Content)
		if claimable[key] > 0 {
			claimable[key]--
			claimed[m.ID] = true
		}
	}
	for _, m := range s.messages {
		if m.ID.IsPending() && !claimed[m.ID] {
			next = append(next, m)
		}
	}

	s.messages = next
	s.bumpLocked()
}

// newUserContents cuenta, por contenido, los mensajes de usuario que llegan del servidor y
// que el timeline local todavia no conocia. Cada uno puede reclamar un especulativo.
func (s *Store) newUserContents(serverMessages []domain.Message) map[string]int {
	known := make(map[domain.MessageID]struct{}, len(s.messages))
	for _, m := range s.messages {
		if !m.ID.IsPending() {
			known[m.ID] = struct{}{}
		}
	}
	out := make(map[string]int)
	for _, m := range serverMessages {
		if !m.IsUserMessage {
			continue
		}
		if _, ok := known[m.ID]; ok {
			continue
		}
		out[normalizeContent(m.Content)]++
	}
	return out
}

// AppendSpeculative agrega un mensaje del usuario aun no confirmado y devuelve su id local.
func (s *Store) AppendSpeculative(content string, authorID int64) domain.MessageID {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	id := domain.PendingID(s.seq)
	s.messages = append(s.messages, domain.Message{
		ID:            id,
		UserID:        authorID,
		Content:       content,
		IsUserMessage: true,
		CreatedAt:     s.now(),
	})
	s.bumpLocked()
	return id
}

// ReconcileSend reemplaza el especulativo por el par confirmado (usuario, coach) en un solo paso.
// Si el especulativo ya no esta, el par se agrega igual: una respuesta confirmada nunca se pierde.
func (s *Store) ReconcileSend(specID domain.MessageID, confirmedUser, confirmedAI domain.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]domain.Message, 0, len(s.messages)+2)
	for _, m := range s.messages {
		if m.ID == specID {
			continue
		}
		next = append(next, m)
	}
	for _, m := range []domain.Message{confirmedUser, confirmedAI} {
		if containsID(next, m.ID) {
			continue
		}
		next = append(next, m)
	}

	s.messages = next
	s.bumpLocked()
}

// Remove quita un mensaje especulativo (por ejemplo antes de reenviarlo). Los confirmados no se tocan.
func (s *Store) Remove(id domain.MessageID) bool {
	if !id.IsPending() {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, m := range s.messages {
		if m.ID == id {
			s.messages = append(s.messages[:i:i], s.messages[i+1:]...)
			s.bumpLocked()
			return true
		}
	}
	return false
}

// SeedGreeting agrega el saludo inicial. Con el timeline vacio queda como unica entrada; si ya
// hay mensajes solo se agrega cuando su id no esta presente.
func (s *Store) SeedGreeting(msg domain.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.messages) > 0 && containsID(s.messages, msg.ID) {
		return false
	}
	s.messages = append(s.messages, msg)
	s.bumpLocked()
	return true
}

// Clear vacia el timeline al cerrar la sesion.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = nil
	s.bumpLocked()
}

// Find busca un mensaje por id.
func (s *Store) Find(id domain.MessageID) (domain.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range s.messages {
		if m.ID == id {
			return m, true
		}
	}
	return domain.Message{}, false
}

// Snapshot devuelve una copia del timeline actual.
func (s *Store) Snapshot() Timeline {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Message, len(s.messages))
	copy(out, s.messages)
	return Timeline{Version: s.version, Messages: out}
}

// Len devuelve la cantidad de mensajes visibles.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

// Changed devuelve un canal que se cierra en la proxima mutacion.
func (s *Store) Changed() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.changed
}

func (s *Store) bumpLocked() {
	s.version++
	close(s.changed)
	s.changed = make(chan struct{})
}

func containsID(messages []domain.Message, id domain.MessageID) bool {
	for _, m := range messages {
		if m.ID == id {
			return true
		}
	}
	return false
}

func normalizeContent(content string) string {
	return strings.TrimSpace(content)
}
