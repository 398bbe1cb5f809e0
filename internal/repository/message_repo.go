package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"runcoach/internal/domain"
)

// MessageRepository persiste el historial de chat de cada usuario.
type MessageRepository interface {
	ListByUser(ctx context.Context, userID int64) ([]domain.Message, error)
	CountByUser(ctx context.Context, userID int64) (int, error)
	Create(ctx context.Context, message domain.Message) (domain.Message, error)
	// CreatePair guarda el mensaje del usuario y la respuesta del coach como una unidad.
	CreatePair(ctx context.Context, user, ai domain.Message) (domain.Message, domain.Message, error)
}

type PgMessageRepository struct {
	pool *pgxpool.Pool
}

func NewPgMessageRepository(pool *pgxpool.Pool) *PgMessageRepository {
	return &PgMessageRepository{pool: pool}
}

const insertMessageQuery = `
	INSERT INTO chat_messages (user_id, content, is_user_message, created_at)
	VALUES ($1, $2, $3, $4)
	RETURNING id
`

func (r *PgMessageRepository) ListByUser(ctx context.Context, userID int64) ([]domain.Message, error) {
	const query = `
		SELECT id, user_id, content, is_user_message, created_at
		FROM chat_messages
		WHERE user_id = $1
		ORDER BY created_at ASC, id ASC
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanMessages(rows)
}

func (r *PgMessageRepository) CountByUser(ctx context.Context, userID int64) (int, error) {
	const query = `SELECT COUNT(*) FROM chat_messages WHERE user_id = $1`
	var n int
	err := r.pool.QueryRow(ctx, query, userID).Scan(&n)
	return n, err
}

func (r *PgMessageRepository) Create(ctx context.Context, message domain.Message) (domain.Message, error) {
	var id int64
	err := r.pool.QueryRow(ctx, insertMessageQuery,
		message.UserID,
		message.Content,
		message.IsUserMessage,
		message.CreatedAt,
	).Scan(&id)
	if err != nil {
		return domain.Message{}, err
	}
	message.ID = domain.ConfirmedID(id)
	return message, nil
}

func (r *PgMessageRepository) CreatePair(ctx context.Context, user, ai domain.Message) (domain.Message, domain.Message, error) {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		for _, m := range []*domain.Message{&user, &ai} {
			var id int64
			if err := tx.QueryRow(ctx, insertMessageQuery, m.UserID, m.Content, m.IsUserMessage, m.CreatedAt).Scan(&id); err != nil {
				return fmt.Errorf("insert message: %w", err)
			}
			m.ID = domain.ConfirmedID(id)
		}
		return nil
	})
	if err != nil {
		return domain.Message{}, domain.Message{}, err
	}
	return user, ai, nil
}

func scanMessages(rows pgxRows) ([]domain.Message, error) {
	messages := []domain.Message{}
	for rows.Next() {
		var m domain.Message
		var id int64
		if err := rows.Scan(
			&id,
			&m.UserID,
			&m.Content,
			&m.IsUserMessage,
			&m.CreatedAt,
		); err != nil {
			return nil, err
		}
		m.ID = domain.ConfirmedID(id)
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return messages, nil
}

// pgxRows es la parte de pgx.Rows que usan los scanners; permite probarlos sin base.
type pgxRows interface {
	Next() bool
	Scan(...interface{}) error
	Err() error
	Close()
}
