package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/prepsala/examhall-backend/internal/config"
	"github.com/prepsala/examhall-backend/internal/model"
	"github.com/prepsala/examhall-backend/internal/scoring"
)

// Domain Errors
var (
	ErrAlreadySubmitted = errors.New("attempt already submitted")
)

// AttemptService handles candidate registration and submission.
type AttemptService struct {
	store AttemptStore
	bank  *BankService
	rdb   *redis.Client
	log   zerolog.Logger
}

// NewAttemptService creates a new AttemptService.
func NewAttemptService(store AttemptStore, bank *BankService, rdb *redis.Client, log zerolog.Logger) *AttemptService {
	return &AttemptService{
		store: store,
		bank:  bank,
		rdb:   rdb,
		log:   log.With().Str("component", "attempt_service").Logger(),
	}
}

// ResultEvent is published on the live results channel after each submission.
type ResultEvent struct {
	AttemptID       string    `json:"attempt_id"`
	Name            string    `json:"name"`
	Institution     string    `json:"institution"`
	NormalizedTotal int       `json:"normalized_total"`
	CompletedAt     time.Time `json:"completed_at"`
}

// Register creates a new attempt for the candidate. The per-section question
// totals and the overall denominator are frozen here, from the schema current
// at this moment; workbook edits after registration never shift this
// attempt's normalization.
func (s *AttemptService) Register(ctx context.Context, req *model.RegisterRequest) (*model.ExamAttempt, error) {
	schema := s.bank.Schema()

	attempt := &model.ExamAttempt{
		Name:           req.Name,
		DOB:            req.DOB,
		Institution:    req.Institution,
		Stream:         req.Stream,
		Phone:          req.Phone,
		Address:        req.Address,
		SectionTotals:  maps.Clone(schema.Sections),
		TotalQuestions: schema.TotalQuestions(),
		Status:         model.AttemptStatusRegistered,
	}
	if attempt.SectionTotals == nil {
		attempt.SectionTotals = make(map[string]int)
	}

	if err := s.store.Create(ctx, attempt); err != nil {
		return nil, fmt.Errorf("create attempt: %w", err)
	}

	s.log.Info().
		Str("attempt_id", attempt.ID.String()).
		Int("sections", len(attempt.SectionTotals)).
		Int("total_questions", attempt.TotalQuestions).
		Msg("Candidate registered")
	return attempt, nil
}

// Submit grades the attempt's answers and persists the result exactly once.
//
// A submission for an unknown attempt id is rejected (no silent registration)
// and resubmission of a completed attempt is rejected with
// ErrAlreadySubmitted rather than overwriting the stored score. Persistence
// failures are surfaced to the caller; the stats refresh and live event are
// best-effort side effects after the durable write.
func (s *AttemptService) Submit(ctx context.Context, id uuid.UUID, answers map[string]map[string]string) (*model.ScoreResult, error) {
	attempt, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if attempt.Status == model.AttemptStatusCompleted {
		return nil, ErrAlreadySubmitted
	}

	key := s.bank.AnswerKey(ctx)
	result := scoring.Score(attempt.SectionTotals, attempt.TotalQuestions, answers, key)

	completedAt := time.Now()
	if err := s.store.SaveResult(ctx, id, result, completedAt); err != nil {
		return nil, fmt.Errorf("save result: %w", err)
	}

	s.queueStatsRefresh(ctx, id)
	s.publishResult(ctx, attempt, result, completedAt)

	s.log.Info().
		Str("attempt_id", id.String()).
		Int("raw_total", result.RawTotal).
		Int("normalized_total", result.NormalizedTotal).
		Msg("Attempt submitted and scored")
	return result, nil
}

// Get retrieves one attempt with its score, if any.
func (s *AttemptService) Get(ctx context.Context, id uuid.UUID) (*model.ExamAttempt, error) {
	return s.store.GetByID(ctx, id)
}

// queueStatsRefresh asks the stats worker to recompute the dashboard cache.
func (s *AttemptService) queueStatsRefresh(ctx context.Context, id uuid.UUID) {
	if err := s.rdb.RPush(ctx, config.WorkerKey.RefreshStatsQueue, id.String()).Err(); err != nil {
		s.log.Warn().Err(err).Msg("Failed to queue stats refresh")
	}
}

// publishResult fans the submission out to live admin dashboards.
func (s *AttemptService) publishResult(ctx context.Context, attempt *model.ExamAttempt, result *model.ScoreResult, completedAt time.Time) {
	event := ResultEvent{
		AttemptID:       attempt.ID.String(),
		Name:            attempt.Name,
		Institution:     attempt.Institution,
		NormalizedTotal: result.NormalizedTotal,
		CompletedAt:     completedAt,
	}
	raw, _ := json.Marshal(event)
	if err := s.rdb.Publish(ctx, config.CacheKey.ResultsChannel(), raw).Err(); err != nil {
		s.log.Warn().Err(err).Msg("Failed to publish result event")
	}
}
