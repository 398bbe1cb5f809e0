package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"runcoach/internal/domain"
)

// WorkoutRepository guarda la semana de entrenamientos del usuario.
type WorkoutRepository interface {
	ListByUser(ctx context.Context, userID int64) ([]domain.Workout, error)
	// ReplaceForUser reemplaza la semana completa y devuelve las filas con id asignado.
	ReplaceForUser(ctx context.Context, userID int64, workouts []domain.Workout) ([]domain.Workout, error)
}

// TrainingPlanRepository guarda el plan activo; hay a lo sumo uno por usuario.
type TrainingPlanRepository interface {
	// GetByUser devuelve nil, nil cuando el usuario no tiene plan.
	GetByUser(ctx context.Context, userID int64) (*domain.TrainingPlan, error)
	Upsert(ctx context.Context, plan domain.TrainingPlan) (domain.TrainingPlan, error)
}

type PgWorkoutRepository struct {
	pool *pgxpool.Pool
}

func NewPgWorkoutRepository(pool *pgxpool.Pool) *PgWorkoutRepository {
	return &PgWorkoutRepository{pool: pool}
}

func (r *PgWorkoutRepository) ListByUser(ctx context.Context, userID int64) ([]domain.Workout, error) {
	const query = `
		SELECT id, user_id, title, description, intensity, details, day_of_week, is_complete, created_at
		FROM workouts
		WHERE user_id = $1
		ORDER BY id ASC
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanWorkouts(rows)
}

func (r *PgWorkoutRepository) ReplaceForUser(ctx context.Context, userID int64, workouts []domain.Workout) ([]domain.Workout, error) {
	const insert = `
		INSERT INTO workouts (user_id, title, description, intensity, details, day_of_week, is_complete, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	out := make([]domain.Workout, len(workouts))
	copy(out, workouts)

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM workouts WHERE user_id = $1`, userID); err != nil {
			return fmt.Errorf("delete workouts: %w", err)
		}
		for i := range out {
			w := &out[i]
			w.UserID = userID
			details := w.Details
			if details == nil {
				details = []string{}
			}
			if err := tx.QueryRow(ctx, insert,
				userID,
				w.Title,
				w.Description,
				w.Intensity,
				details,
				w.DayOfWeek,
				w.IsComplete,
				w.CreatedAt,
			).Scan(&w.ID); err != nil {
				return fmt.Errorf("insert workout: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func scanWorkouts(rows pgxRows) ([]domain.Workout, error) {
	workouts := []domain.Workout{}
	for rows.Next() {
		var w domain.Workout
		if err := rows.Scan(
			&w.ID,
			&w.UserID,
			&w.Title,
			&w.Description,
			&w.Intensity,
			&w.Details,
			&w.DayOfWeek,
			&w.IsComplete,
			&w.CreatedAt,
		); err != nil {
			return nil, err
		}
		workouts = append(workouts, w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return workouts, nil
}

type PgTrainingPlanRepository struct {
	pool *pgxpool.Pool
}

func NewPgTrainingPlanRepository(pool *pgxpool.Pool) *PgTrainingPlanRepository {
	return &PgTrainingPlanRepository{pool: pool}
}

func (r *PgTrainingPlanRepository) GetByUser(ctx context.Context, userID int64) (*domain.TrainingPlan, error) {
	const query = `
		SELECT id, user_id, title, description, duration_weeks, current_week, created_at
		FROM training_plans
		WHERE user_id = $1
	`
	var p domain.TrainingPlan
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&p.ID,
		&p.UserID,
		&p.Title,
		&p.Description,
		&p.DurationWeeks,
		&p.CurrentWeek,
		&p.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PgTrainingPlanRepository) Upsert(ctx context.Context, plan domain.TrainingPlan) (domain.TrainingPlan, error) {
	const query = `
		INSERT INTO training_plans (user_id, title, description, duration_weeks, current_week, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE SET
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			duration_weeks = EXCLUDED.duration_weeks,
			current_week = EXCLUDED.current_week
		RETURNING id, created_at
	`
	err := r.pool.QueryRow(ctx, query,
		plan.UserID,
		plan.Title,
		plan.Description,
		plan.DurationWeeks,
		plan.CurrentWeek,
		plan.CreatedAt,
	).Scan(&plan.ID, &plan.CreatedAt)
	if err != nil {
		return domain.TrainingPlan{}, err
	}
	return plan, nil
}
