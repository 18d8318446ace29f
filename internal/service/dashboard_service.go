package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/prepsala/examhall-backend/internal/config"
	"github.com/prepsala/examhall-backend/internal/model"
	"github.com/prepsala/examhall-backend/internal/scoring"
)

// StudentSummary is one row of the admin dashboard listing.
type StudentSummary struct {
	AttemptID      string                        `json:"attempt_id"`
	Name           string                        `json:"name"`
	DOB            string                        `json:"dob"`
	Institution    string                        `json:"institution"`
	Stream         string                        `json:"stream"`
	Phone          string                        `json:"phone"`
	Address        string                        `json:"address"`
	ExamDate       time.Time                     `json:"exam_date"`
	CompletionTime *time.Time                    `json:"completion_time,omitempty"`
	Status         model.AttemptStatus           `json:"status"`
	RawScore       int                           `json:"raw_score"`
	TotalScore     int                           `json:"total_score"`
	TotalQuestions int                           `json:"total_questions"`
	SectionScores  map[string]model.SectionScore `json:"section_scores,omitempty"`
}

// DashboardService assembles the admin dashboard: aggregate statistics plus
// the per-student listing.
type DashboardService struct {
	store AttemptStore
	bank  *BankService
	rdb   *redis.Client
	log   zerolog.Logger
}

// NewDashboardService creates a new DashboardService.
func NewDashboardService(store AttemptStore, bank *BankService, rdb *redis.Client, log zerolog.Logger) *DashboardService {
	return &DashboardService{
		store: store,
		bank:  bank,
		rdb:   rdb,
		log:   log.With().Str("component", "dashboard_service").Logger(),
	}
}

// Stats returns the aggregate dashboard statistics. The stats worker keeps a
// precomputed copy in Redis; on a cache miss (or corrupt cache) the stats are
// aggregated directly from the store and written back.
func (s *DashboardService) Stats(ctx context.Context) (model.DashboardStats, error) {
	raw, err := s.rdb.Get(ctx, config.CacheKey.DashboardStatsKey()).Bytes()
	if err == nil {
		var stats model.DashboardStats
		if jsonErr := json.Unmarshal(raw, &stats); jsonErr == nil {
			return stats, nil
		}
		s.log.Warn().Msg("Corrupt cached dashboard stats, recomputing")
	} else if !errors.Is(err, redis.Nil) {
		s.log.Warn().Err(err).Msg("Redis unavailable for dashboard stats, computing directly")
	}

	stats, err := s.compute(ctx)
	if err != nil {
		return model.DashboardStats{}, err
	}

	if cached, jsonErr := json.Marshal(stats); jsonErr == nil {
		_ = s.rdb.Set(ctx, config.CacheKey.DashboardStatsKey(), cached, 0).Err()
	}
	return stats, nil
}

// Students returns the formatted per-student listing. Attempts that
// completed without a readable score document appear with zeroed marks
// rather than breaking the view.
func (s *DashboardService) Students(ctx context.Context) ([]StudentSummary, error) {
	attempts, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}

	summaries := make([]StudentSummary, 0, len(attempts))
	for i := range attempts {
		a := &attempts[i]
		row := StudentSummary{
			AttemptID:      a.ID.String(),
			Name:           a.Name,
			DOB:            a.DOB,
			Institution:    a.Institution,
			Stream:         a.Stream,
			Phone:          a.Phone,
			Address:        a.Address,
			ExamDate:       a.RegisteredAt,
			CompletionTime: a.CompletedAt,
			Status:         a.Status,
			TotalQuestions: a.TotalQuestions,
		}
		if a.Score != nil {
			row.RawScore = a.Score.RawTotal
			row.TotalScore = a.Score.NormalizedTotal
			row.SectionScores = a.Score.Sections
			if a.Score.TotalQuestions > 0 {
				row.TotalQuestions = a.Score.TotalQuestions
			}
		}
		summaries = append(summaries, row)
	}
	return summaries, nil
}

func (s *DashboardService) compute(ctx context.Context) (model.DashboardStats, error) {
	attempts, err := s.store.ListAll(ctx)
	if err != nil {
		return model.DashboardStats{}, fmt.Errorf("list attempts: %w", err)
	}
	schema := s.bank.Schema()
	return scoring.Aggregate(attempts, schema.DeclaredTotal), nil
}
