package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"github.com/prepsala/examhall-backend/internal/model"
	"github.com/prepsala/examhall-backend/internal/questionbank"
	"github.com/prepsala/examhall-backend/internal/repository"
	"github.com/prepsala/examhall-backend/internal/response"
	"github.com/prepsala/examhall-backend/internal/service"
	"github.com/prepsala/examhall-backend/internal/validator"
)

type memStore struct {
	mu       sync.Mutex
	attempts map[uuid.UUID]*model.ExamAttempt
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

func writeBook(t *testing.T, questions int) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", "Math"); err != nil {
		t.Fatalf("rename sheet: %v", err)
	}
	header := []interface{}{"Question", "Option A", "Option B", "Option C", "Option D", "Correct Answer"}
	if err := f.SetSheetRow("Math", "A1", &header); err != nil {
		t.Fatalf("header: %v", err)
	}
	for i := 0; i < questions; i++ {
		row := []interface{}{fmt.Sprintf("q%d", i), "a", "b", "c", "d", "A"}
		cellRef, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		if err := f.SetSheetRow("Math", cellRef, &row); err != nil {
			t.Fatalf("row: %v", err)
		}
	}

	path := filepath.Join(t.TempDir(), "exam_questions.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save workbook: %v", err)
	}
	return path
}

func setupRouter(t *testing.T, questions int) *gin.Engine {
	t.Helper()

	gin.SetMode(gin.TestMode)
	validator.Setup()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	store := &memStore{attempts: make(map[uuid.UUID]*model.ExamAttempt)}
	book := questionbank.NewWorkbook(writeBook(t, questions), zerolog.Nop())
	bank := service.NewBankService(book, rdb, time.Minute, zerolog.Nop())
	attempts := service.NewAttemptService(store, bank, rdb, zerolog.Nop())

	reg := NewRegistrationHandler(attempts)
	exam := NewExamHandler(bank, attempts)

	r := gin.New()
	r.POST("/api/v1/exam/register", reg.Register)
	r.GET("/api/v1/exam/schema", exam.GetSchema)
	r.GET("/api/v1/exam/paper", exam.GetPaper)
	r.POST("/api/v1/exam/attempts/:attempt_id/submit", exam.Submit)
	r.GET("/api/v1/exam/attempts/:attempt_id", exam.GetAttempt)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, url string, body interface{}) (*httptest.ResponseRecorder, response.Response) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var envelope response.Response
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode envelope: %v (body %s)", err, w.Body.String())
	}
	return w, envelope
}

func TestRegisterValidationFailure(t *testing.T) {
	r := setupRouter(t, 2)

	w, envelope := doJSON(t, r, http.MethodPost, "/api/v1/exam/register", map[string]string{"name": "x"})

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if envelope.Error == nil || envelope.Error.Code != response.ErrValidation {
		t.Fatalf("error = %+v, want VALIDATION_ERROR", envelope.Error)
	}
	if _, ok := envelope.Error.Fields["name"]; !ok {
		t.Fatalf("fields = %v, want a name entry", envelope.Error.Fields)
	}
}

func TestRegisterSubmitLifecycle(t *testing.T) {
	r := setupRouter(t, 2)

	w, envelope := doJSON(t, r, http.MethodPost, "/api/v1/exam/register", map[string]string{
		"name":        "Asha Rao",
		"institution": "City College",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("register status = %d, want 201", w.Code)
	}

	data, ok := envelope.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("register data = %T, want object", envelope.Data)
	}
	attemptID, _ := data["attempt_id"].(string)
	if attemptID == "" {
		t.Fatal("register response missing attempt_id")
	}

	submitURL := "/api/v1/exam/attempts/" + attemptID + "/submit"
	w, envelope = doJSON(t, r, http.MethodPost, submitURL, map[string]interface{}{
		"answers": map[string]map[string]string{"Math": {"0": "A", "1": "C"}},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("submit status = %d, want 200 (error %+v)", w.Code, envelope.Error)
	}
	result, ok := envelope.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("submit data = %T, want object", envelope.Data)
	}
	if got := result["normalized_total"].(float64); got != 50 {
		t.Fatalf("normalized total = %v, want 50", got)
	}

	// Resubmission is rejected.
	w, envelope = doJSON(t, r, http.MethodPost, submitURL, map[string]interface{}{
		"answers": map[string]map[string]string{"Math": {"0": "A", "1": "A"}},
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("resubmit status = %d, want 409", w.Code)
	}
	if envelope.Error == nil || envelope.Error.Code != response.ErrAlreadySubmitted {
		t.Fatalf("resubmit error = %+v, want ALREADY_SUBMITTED", envelope.Error)
	}

	// The attempt is retrievable with its score.
	w, envelope = doJSON(t, r, http.MethodGet, "/api/v1/exam/attempts/"+attemptID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get attempt status = %d, want 200", w.Code)
	}
}

func TestSubmitUnknownAttempt(t *testing.T) {
	r := setupRouter(t, 2)

	w, envelope := doJSON(t, r, http.MethodPost,
		"/api/v1/exam/attempts/"+uuid.NewString()+"/submit",
		map[string]interface{}{"answers": map[string]map[string]string{"Math": {"0": "A"}}})

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	if envelope.Error == nil || envelope.Error.Code != response.ErrRegistrationRequired {
		t.Fatalf("error = %+v, want REGISTRATION_REQUIRED", envelope.Error)
	}
}

func TestSubmitMalformedAttemptID(t *testing.T) {
	r := setupRouter(t, 2)

	w, envelope := doJSON(t, r, http.MethodPost, "/api/v1/exam/attempts/not-a-uuid/submit",
		map[string]interface{}{"answers": map[string]map[string]string{}})

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if envelope.Error == nil || envelope.Error.Code != response.ErrInvalidID {
		t.Fatalf("error = %+v, want INVALID_ID", envelope.Error)
	}
}

func TestPaperStripsCorrectAnswers(t *testing.T) {
	r := setupRouter(t, 3)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/exam/paper", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if bytes.Contains(w.Body.Bytes(), []byte("correct")) {
		t.Fatalf("paper leaks correct answers: %s", w.Body.String())
	}
}

func TestEmptyBankReturnsNoQuestions(t *testing.T) {
	r := setupRouter(t, 0)

	w, envelope := doJSON(t, r, http.MethodGet, "/api/v1/exam/paper", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	if envelope.Error == nil || envelope.Error.Code != response.ErrNoQuestions {
		t.Fatalf("error = %+v, want NO_QUESTIONS", envelope.Error)
	}
}
