package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/prepsala/examhall-backend/internal/model"
)

// ErrAttemptNotFound is returned when no attempt exists for the given id.
var ErrAttemptNotFound = errors.New("attempt not found")

// AttemptRepository persists exam attempts. The profile and frozen totals
// live in dedicated columns; the score result is stored as a JSONB document
// so the per-question detail keeps its natural shape.
type AttemptRepository struct {
	pool *pgxpool.Pool
	log  zerolog.Logger
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(pool *pgxpool.Pool, log zerolog.Logger) *AttemptRepository {
	return &AttemptRepository{
		pool: pool,
		log:  log.With().Str("component", "attempt_repository").Logger(),
	}
}

// Create inserts a new attempt with a generated id. The id and registration
// timestamp are written back into the attempt.
func (r *AttemptRepository) Create(ctx context.Context, a *model.ExamAttempt) error {
	totals, err := json.Marshal(a.SectionTotals)
	if err != nil {
		return fmt.Errorf("marshal section totals: %w", err)
	}

	return r.pool.QueryRow(ctx,
		`INSERT INTO attempts (name, dob, institution, stream, phone, address, section_totals, total_questions, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id, registered_at`,
		a.Name, a.DOB, a.Institution, a.Stream, a.Phone, a.Address,
		totals, a.TotalQuestions, model.AttemptStatusRegistered,
	).Scan(&a.ID, &a.RegisteredAt)
}

// GetByID retrieves one attempt. Returns ErrAttemptNotFound when absent.
func (r *AttemptRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.ExamAttempt, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, name, dob, institution, stream, phone, address,
		        section_totals, total_questions, status, score, registered_at, completed_at
		 FROM attempts WHERE id = $1`, id)

	a, err := r.scanAttempt(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAttemptNotFound
		}
		return nil, err
	}
	return a, nil
}

// SaveResult attaches the score result to an attempt and marks it completed.
func (r *AttemptRepository) SaveResult(ctx context.Context, id uuid.UUID, result *model.ScoreResult, completedAt time.Time) error {
	score, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal score: %w", err)
	}

	tag, err := r.pool.Exec(ctx,
		`UPDATE attempts
		 SET status = $1, score = $2, completed_at = $3
		 WHERE id = $4`,
		model.AttemptStatusCompleted, score, completedAt, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAttemptNotFound
	}
	return nil
}

// ListAll retrieves every attempt for aggregation. A row whose stored JSON
// documents fail to decode is returned with those fields zeroed instead of
// failing the whole read, so one corrupt record cannot take down the
// dashboard.
func (r *AttemptRepository) ListAll(ctx context.Context) ([]model.ExamAttempt, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, dob, institution, stream, phone, address,
		        section_totals, total_questions, status, score, registered_at, completed_at
		 FROM attempts
		 ORDER BY registered_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []model.ExamAttempt
	for rows.Next() {
		a, err := r.scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, *a)
	}
	return attempts, rows.Err()
}

// scanAttempt scans one attempt row, decoding the JSONB documents leniently.
func (r *AttemptRepository) scanAttempt(row pgx.Row) (*model.ExamAttempt, error) {
	a := &model.ExamAttempt{}
	var totalsRaw, scoreRaw []byte

	err := row.Scan(
		&a.ID, &a.Name, &a.DOB, &a.Institution, &a.Stream, &a.Phone, &a.Address,
		&totalsRaw, &a.TotalQuestions, &a.Status, &scoreRaw, &a.RegisteredAt, &a.CompletedAt,
	)
	if err != nil {
		return nil, err
	}

	a.SectionTotals = make(map[string]int)
	if len(totalsRaw) > 0 {
		if err := json.Unmarshal(totalsRaw, &a.SectionTotals); err != nil {
			r.log.Warn().Err(err).Str("attempt_id", a.ID.String()).Msg("Corrupt section totals, zero-filling")
			a.SectionTotals = make(map[string]int)
		}
	}

	if len(scoreRaw) > 0 {
		var score model.ScoreResult
		if err := json.Unmarshal(scoreRaw, &score); err != nil {
			r.log.Warn().Err(err).Str("attempt_id", a.ID.String()).Msg("Corrupt score document, treating as unscored")
		} else {
			a.Score = &score
		}
	}

	return a, nil
}
