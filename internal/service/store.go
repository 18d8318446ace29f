package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/prepsala/examhall-backend/internal/model"
)

// AttemptStore is the persistence contract the exam services operate
// through. Implementations must provide create-with-generated-id semantics
// that never collide, read-one/update-one by id, and read-all for
// aggregation. GetByID and SaveResult return repository.ErrAttemptNotFound
// for unknown ids.
type AttemptStore interface {
	Create(ctx context.Context, a *model.ExamAttempt) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.ExamAttempt, error)
	SaveResult(ctx context.Context, id uuid.UUID, result *model.ScoreResult, completedAt time.Time) error
	ListAll(ctx context.Context) ([]model.ExamAttempt, error)
}
