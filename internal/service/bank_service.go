package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/prepsala/examhall-backend/internal/config"
	"github.com/prepsala/examhall-backend/internal/model"
	"github.com/prepsala/examhall-backend/internal/questionbank"
	"github.com/prepsala/examhall-backend/internal/scoring"
)

// BankService fronts the question workbook. Schema and paper reads always hit
// the workbook fresh; only the answer key — which is shuffle-independent and
// needed on every submission — is cached in Redis with a TTL, with an
// explicit refresh for administrators who just edited the workbook.
type BankService struct {
	book   *questionbank.Workbook
	rdb    *redis.Client
	keyTTL time.Duration
	log    zerolog.Logger
}

// NewBankService creates a new BankService.
func NewBankService(book *questionbank.Workbook, rdb *redis.Client, keyTTL time.Duration, log zerolog.Logger) *BankService {
	return &BankService{
		book:   book,
		rdb:    rdb,
		keyTTL: keyTTL,
		log:    log.With().Str("component", "bank_service").Logger(),
	}
}

// Schema returns the current question schema, rebuilt from the workbook on
// every call. Never fails: an unavailable workbook yields an empty schema.
func (s *BankService) Schema() *model.QuestionSchema {
	return s.book.LoadSchema()
}

// Paper builds the candidate-facing exam paper: a fresh shuffle of every
// section's questions with correct answers stripped, plus the duration.
func (s *BankService) Paper() *model.ExamPaper {
	schema := s.book.LoadSchema()
	questions := s.book.LoadQuestions()

	paper := &model.ExamPaper{
		Sections:        make(map[string][]model.QuestionForCandidate, len(questions)),
		DurationMinutes: schema.DurationMinutes,
	}

	for section, qs := range questions {
		out := make([]model.QuestionForCandidate, len(qs))
		for i, q := range qs {
			out[i] = model.QuestionForCandidate{
				ID:           q.ID,
				DisplayIndex: q.DisplayIndex,
				Text:         q.Text,
				OptionA:      q.OptionA,
				OptionB:      q.OptionB,
				OptionC:      q.OptionC,
				OptionD:      q.OptionD,
			}
		}
		paper.Sections[section] = out
	}
	return paper
}

// AnswerKey returns the authoritative answer key, served from the Redis cache
// when warm and re-read from the workbook otherwise. The cache is an
// optimization only — any miss, decode failure or Redis outage falls back to
// the workbook, so this never fails; at worst the key is empty.
func (s *BankService) AnswerKey(ctx context.Context) scoring.AnswerKey {
	raw, err := s.rdb.Get(ctx, config.CacheKey.AnswerKeyKey()).Bytes()
	if err == nil {
		var key scoring.AnswerKey
		if jsonErr := json.Unmarshal(raw, &key); jsonErr == nil {
			return key
		}
		s.log.Warn().Msg("Corrupt cached answer key, re-reading workbook")
	} else if !errors.Is(err, redis.Nil) {
		s.log.Warn().Err(err).Msg("Redis unavailable for answer key, reading workbook directly")
		return s.book.LoadAnswerKey()
	}

	key := s.book.LoadAnswerKey()
	s.warm(ctx, key)
	return key
}

// RefreshAnswerKey force-reloads the answer key from the workbook into the
// cache and reports how many sections it covers.
func (s *BankService) RefreshAnswerKey(ctx context.Context) int {
	key := s.book.LoadAnswerKey()
	s.warm(ctx, key)
	s.log.Info().Int("sections", len(key)).Msg("Answer key refreshed")
	return len(key)
}

func (s *BankService) warm(ctx context.Context, key scoring.AnswerKey) {
	raw, err := json.Marshal(key)
	if err != nil {
		return
	}
	if err := s.rdb.Set(ctx, config.CacheKey.AnswerKeyKey(), raw, s.keyTTL).Err(); err != nil {
		s.log.Warn().Err(err).Msg("Failed to cache answer key")
	}
}
