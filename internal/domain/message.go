package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// FallbackAIContent reemplaza el contenido vacio de un mensaje del coach.
	FallbackAIContent = "Sorry, your previous message didn't come through. Would you mind resending?"
	// FallbackUserContent reemplaza el contenido vacio de un mensaje del usuario.
	FallbackUserContent = "..."

	pendingPrefix = "pending-"
)

// MessageID es un id confirmado por el servidor o un id pendiente local.
// Los dos espacios nunca se mezclan: un pendiente jamas compara igual a un confirmado.
type MessageID struct {
	value   int64
	pending bool
}

// ConfirmedID construye un id asignado por el servidor.
func ConfirmedID(id int64) MessageID {
	return MessageID{value: id}
}

// PendingID construye un id local a partir de una secuencia monotona.
func PendingID(seq uint64) MessageID {
	return MessageID{value: int64(seq), pending: true}
}

func (id MessageID) IsPending() bool { return id.pending }

func (id MessageID) IsZero() bool { return id == MessageID{} }

// Value devuelve el id del servidor o la secuencia local, segun el caso.
func (id MessageID) Value() int64 { return id.value }

func (id MessageID) String() string {
	if id.pending {
		return pendingPrefix + strconv.FormatInt(id.value, 10)
	}
	return strconv.FormatInt(id.value, 10)
}

func (id MessageID) MarshalJSON() ([]byte, error) {
	if id.pending {
		return json.Marshal(id.String())
	}
	return []byte(strconv.FormatInt(id.value, 10)), nil
}

func (id *MessageID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = MessageID{}
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if rest, ok := strings.CutPrefix(s, pendingPrefix); ok {
			seq, err := strconv.ParseUint(rest, 10, 64)
			if err != nil {
				return fmt.Errorf("parse pending id %q: %w", s, err)
			}
			*id = PendingID(seq)
			return nil
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fmt.Errorf("parse message id %q: %w", s, err)
		}
		*id = ConfirmedID(n)
		return nil
	}
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("parse message id %s: %w", data, err)
	}
	*id = ConfirmedID(n)
	return nil
}

// Message es una entrada del timeline de chat.
type Message struct {
	ID            MessageID `json:"id"`
	UserID        int64     `json:"userId"`
	Content       string    `json:"content"`
	IsUserMessage bool      `json:"isUserMessage"`
	CreatedAt     time.Time `json:"createdAt"`
}

// DisplayContent devuelve el texto a mostrar, con fallback cuando falta contenido.
func (m Message) DisplayContent() string {
	if strings.TrimSpace(m.Content) != "" {
		return m.Content
	}
	if m.IsUserMessage {
		return FallbackUserContent
	}
	return FallbackAIContent
}
