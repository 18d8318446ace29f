package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"github.com/prepsala/examhall-backend/internal/config"
	"github.com/prepsala/examhall-backend/internal/model"
	"github.com/prepsala/examhall-backend/internal/questionbank"
	"github.com/prepsala/examhall-backend/internal/repository"
)

// memStore is an in-memory AttemptStore for service tests.
type memStore struct {
	mu       sync.Mutex
	attempts map[uuid.UUID]*model.ExamAttempt
}

func newMemStore() *memStore {
	return &memStore{attempts: make(map[uuid.UUID]*model.ExamAttempt)}
}

func (s *memStore) Create(_ context.Context, a *model.ExamAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.ID = uuid.New()
	a.RegisteredAt = time.Now()
	copied := *a
	s.attempts[a.ID] = &copied
	return nil
}

func (s *memStore) GetByID(_ context.Context, id uuid.UUID) (*model.ExamAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.attempts[id]
	if !ok {
		return nil, repository.ErrAttemptNotFound
	}
	copied := *a
	return &copied, nil
}

func (s *memStore) SaveResult(_ context.Context, id uuid.UUID, result *model.ScoreResult, completedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.attempts[id]
	if !ok {
		return repository.ErrAttemptNotFound
	}
	a.Score = result
	a.Status = model.AttemptStatusCompleted
	a.CompletedAt = &completedAt
	return nil
}

func (s *memStore) ListAll(_ context.Context) ([]model.ExamAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.ExamAttempt, 0, len(s.attempts))
	for _, a := range s.attempts {
		out = append(out, *a)
	}
	return out, nil
}

// writeBook writes a workbook at path where every section holds
// questionCount questions all keyed to answer A.
func writeBook(t *testing.T, path string, sections map[string]int) {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	first := true
	for name, count := range sections {
		if first {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				t.Fatalf("rename sheet: %v", err)
			}
			first = false
		} else if _, err := f.NewSheet(name); err != nil {
			t.Fatalf("new sheet: %v", err)
		}

		header := []interface{}{"Question", "Option A", "Option B", "Option C", "Option D", "Correct Answer"}
		if err := f.SetSheetRow(name, "A1", &header); err != nil {
			t.Fatalf("header: %v", err)
		}
		for i := 0; i < count; i++ {
			row := []interface{}{fmt.Sprintf("q%d", i), "a", "b", "c", "d", "A"}
			cellRef, err := excelize.CoordinatesToCellName(1, i+2)
			if err != nil {
				t.Fatalf("cell name: %v", err)
			}
			if err := f.SetSheetRow(name, cellRef, &row); err != nil {
				t.Fatalf("row: %v", err)
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save workbook: %v", err)
	}
}

type fixture struct {
	store *memStore
	mr    *miniredis.Miniredis
	rdb   *redis.Client
	path  string
	bank  *BankService
	svc   *AttemptService
}

func newFixture(t *testing.T, sections map[string]int) *fixture {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	path := filepath.Join(t.TempDir(), "exam_questions.xlsx")
	writeBook(t, path, sections)

	store := newMemStore()
	book := questionbank.NewWorkbook(path, zerolog.Nop())
	bank := NewBankService(book, rdb, time.Minute, zerolog.Nop())
	svc := NewAttemptService(store, bank, rdb, zerolog.Nop())

	return &fixture{store: store, mr: mr, rdb: rdb, path: path, bank: bank, svc: svc}
}

func TestRegisterFreezesSectionTotals(t *testing.T) {
	fx := newFixture(t, map[string]int{"Math": 2})
	ctx := context.Background()

	attempt, err := fx.svc.Register(ctx, &model.RegisterRequest{Name: "Asha Rao"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if attempt.SectionTotals["Math"] != 2 || attempt.TotalQuestions != 2 {
		t.Fatalf("frozen totals = %v/%d, want Math:2 total 2", attempt.SectionTotals, attempt.TotalQuestions)
	}

	// Grow the workbook after registration; the attempt keeps its
	// registration-time denominators.
	writeBook(t, fx.path, map[string]int{"Math": 4})

	result, err := fx.svc.Submit(ctx, attempt.ID, map[string]map[string]string{
		"Math": {"0": "A", "1": "A"},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.NormalizedTotal != 100 {
		t.Fatalf("normalized = %d, want 100 against frozen denominator 2", result.NormalizedTotal)
	}
	if got := result.Sections["Math"].SectionTotal; got != 2 {
		t.Fatalf("section total = %d, want frozen 2", got)
	}
}

func TestSubmitScoresAndPersists(t *testing.T) {
	fx := newFixture(t, map[string]int{"Math": 2, "Science": 2})
	ctx := context.Background()

	attempt, err := fx.svc.Register(ctx, &model.RegisterRequest{Name: "Ravi Kumar"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	result, err := fx.svc.Submit(ctx, attempt.ID, map[string]map[string]string{
		"Math":    {"0": "A", "1": "B"},
		"Science": {"0": "a"},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	// 1 correct in Math, 1 in Science (case-insensitive), out of 4.
	if result.RawTotal != 2 || result.NormalizedTotal != 50 {
		t.Fatalf("result = %d raw, %d normalized, want 2 and 50", result.RawTotal, result.NormalizedTotal)
	}

	stored, err := fx.store.GetByID(ctx, attempt.ID)
	if err != nil {
		t.Fatalf("get stored: %v", err)
	}
	if stored.Status != model.AttemptStatusCompleted || stored.Score == nil || stored.CompletedAt == nil {
		t.Fatalf("stored attempt not completed: %+v", stored)
	}

	// Submission must queue a stats refresh for the worker.
	queued, err := fx.rdb.LLen(ctx, config.WorkerKey.RefreshStatsQueue).Result()
	if err != nil || queued != 1 {
		t.Fatalf("refresh queue length = %d (err %v), want 1", queued, err)
	}
}

func TestSubmitRejectsResubmission(t *testing.T) {
	fx := newFixture(t, map[string]int{"Math": 1})
	ctx := context.Background()

	attempt, err := fx.svc.Register(ctx, &model.RegisterRequest{Name: "Meena Pillai"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	answers := map[string]map[string]string{"Math": {"0": "A"}}
	if _, err := fx.svc.Submit(ctx, attempt.ID, answers); err != nil {
		t.Fatalf("first submit: %v", err)
	}

	_, err = fx.svc.Submit(ctx, attempt.ID, map[string]map[string]string{"Math": {"0": "B"}})
	if !errors.Is(err, ErrAlreadySubmitted) {
		t.Fatalf("second submit err = %v, want ErrAlreadySubmitted", err)
	}

	// The stored score must be the first submission's.
	stored, _ := fx.store.GetByID(ctx, attempt.ID)
	if stored.Score.RawTotal != 1 {
		t.Fatalf("stored raw = %d, want first submission's 1", stored.Score.RawTotal)
	}
}

func TestSubmitWithoutRegistrationRejected(t *testing.T) {
	fx := newFixture(t, map[string]int{"Math": 1})

	_, err := fx.svc.Submit(context.Background(), uuid.New(), map[string]map[string]string{
		"Math": {"0": "A"},
	})
	if !errors.Is(err, repository.ErrAttemptNotFound) {
		t.Fatalf("err = %v, want ErrAttemptNotFound", err)
	}
}

func TestAnswerKeyCachedUntilRefresh(t *testing.T) {
	fx := newFixture(t, map[string]int{"Math": 2})
	ctx := context.Background()

	key := fx.bank.AnswerKey(ctx)
	if len(key["Math"]) != 2 {
		t.Fatalf("key entries = %d, want 2", len(key["Math"]))
	}
	if !fx.mr.Exists(config.CacheKey.AnswerKeyKey()) {
		t.Fatal("answer key not cached after first read")
	}

	// Workbook grows; the cached key is served until an explicit refresh.
	writeBook(t, fx.path, map[string]int{"Math": 5})

	if key := fx.bank.AnswerKey(ctx); len(key["Math"]) != 2 {
		t.Fatalf("cached key entries = %d, want stale 2", len(key["Math"]))
	}

	fx.bank.RefreshAnswerKey(ctx)
	if key := fx.bank.AnswerKey(ctx); len(key["Math"]) != 5 {
		t.Fatalf("refreshed key entries = %d, want 5", len(key["Math"]))
	}
}
