package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/prepsala/examhall-backend/internal/config"
	"github.com/prepsala/examhall-backend/internal/model"
)

func newDashboard(fx *fixture) *DashboardService {
	return NewDashboardService(fx.store, fx.bank, fx.rdb, zerolog.Nop())
}

func TestStatsComputedAndCachedOnMiss(t *testing.T) {
	fx := newFixture(t, map[string]int{"Math": 2})
	dash := newDashboard(fx)
	ctx := context.Background()

	first, _ := fx.svc.Register(ctx, &model.RegisterRequest{Name: "Asha Rao"})
	second, _ := fx.svc.Register(ctx, &model.RegisterRequest{Name: "Ravi Kumar"})

	if _, err := fx.svc.Submit(ctx, first.ID, map[string]map[string]string{"Math": {"0": "A", "1": "A"}}); err != nil {
		t.Fatalf("submit first: %v", err)
	}
	if _, err := fx.svc.Submit(ctx, second.ID, map[string]map[string]string{"Math": {"0": "A", "1": "B"}}); err != nil {
		t.Fatalf("submit second: %v", err)
	}

	stats, err := dash.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalStudents != 2 {
		t.Fatalf("students = %d, want 2", stats.TotalStudents)
	}
	if stats.HighestScore != 100 {
		t.Fatalf("highest = %d, want 100", stats.HighestScore)
	}
	// Mean of 100 and 50.
	if stats.AverageScore != 75 {
		t.Fatalf("average = %d, want 75", stats.AverageScore)
	}

	if !fx.mr.Exists(config.CacheKey.DashboardStatsKey()) {
		t.Fatal("stats not written back to cache")
	}
}

func TestStatsServedFromCache(t *testing.T) {
	fx := newFixture(t, map[string]int{"Math": 2})
	dash := newDashboard(fx)
	ctx := context.Background()

	fx.mr.Set(config.CacheKey.DashboardStatsKey(),
		`{"total_students":7,"highest_score":91,"average_score":64,"total_questions":2}`)

	stats, err := dash.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalStudents != 7 || stats.HighestScore != 91 {
		t.Fatalf("stats = %+v, want the cached document", stats)
	}
}

func TestStatsRecomputesOnCorruptCache(t *testing.T) {
	fx := newFixture(t, map[string]int{"Math": 2})
	dash := newDashboard(fx)
	ctx := context.Background()

	fx.mr.Set(config.CacheKey.DashboardStatsKey(), "{not json")

	stats, err := dash.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalStudents != 0 {
		t.Fatalf("students = %d, want 0 from recompute", stats.TotalStudents)
	}
}

func TestStudentsListingZeroFillsUnsubmitted(t *testing.T) {
	fx := newFixture(t, map[string]int{"Math": 2})
	dash := newDashboard(fx)
	ctx := context.Background()

	registered, _ := fx.svc.Register(ctx, &model.RegisterRequest{Name: "Asha Rao"})
	submitted, _ := fx.svc.Register(ctx, &model.RegisterRequest{Name: "Ravi Kumar"})
	if _, err := fx.svc.Submit(ctx, submitted.ID, map[string]map[string]string{"Math": {"0": "A", "1": "A"}}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	students, err := dash.Students(ctx)
	if err != nil {
		t.Fatalf("students: %v", err)
	}
	if len(students) != 2 {
		t.Fatalf("rows = %d, want 2", len(students))
	}

	byID := make(map[string]StudentSummary, len(students))
	for _, s := range students {
		byID[s.AttemptID] = s
	}

	row := byID[registered.ID.String()]
	if row.Status != model.AttemptStatusRegistered || row.TotalScore != 0 || row.CompletionTime != nil {
		t.Fatalf("registered row = %+v, want zero-filled", row)
	}

	row = byID[submitted.ID.String()]
	if row.Status != model.AttemptStatusCompleted || row.TotalScore != 100 || row.CompletionTime == nil {
		t.Fatalf("submitted row = %+v, want completed with 100", row)
	}
}
