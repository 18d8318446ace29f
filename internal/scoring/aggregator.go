package scoring

import (
	"math"

	"github.com/prepsala/examhall-backend/internal/model"
)

// Aggregate folds all attempts into the admin dashboard statistics.
//
// Only attempts that completed with a usable score count towards the student
// total and the mean. A corrupt record — completed but missing its score
// document, or carrying a normalized total outside 0..100 — contributes
// nothing instead of aborting the whole aggregation, so one bad record can
// never blank the dashboard.
//
// declaredTotal is the live schema's declared question count; it is carried
// through as global context and is independent of any individual attempt.
func Aggregate(attempts []model.ExamAttempt, declaredTotal int) model.DashboardStats {
	stats := model.DashboardStats{TotalQuestions: declaredTotal}

	sum := 0
	for i := range attempts {
		score, ok := usableScore(&attempts[i])
		if !ok {
			continue
		}

		stats.TotalStudents++
		sum += score
		if score > stats.HighestScore {
			stats.HighestScore = score
		}
	}

	if stats.TotalStudents > 0 {
		stats.AverageScore = int(math.Round(float64(sum) / float64(stats.TotalStudents)))
	}
	return stats
}

// usableScore extracts a sane normalized total from an attempt. The stored
// NormalizedTotal is trusted as a precomputed value when it is in range;
// otherwise the total is recomputed from the stored raw section marks, so a
// half-written score document still contributes its best-effort value.
func usableScore(a *model.ExamAttempt) (int, bool) {
	if a.Status != model.AttemptStatusCompleted || a.Score == nil {
		return 0, false
	}

	s := a.Score
	if s.NormalizedTotal >= 0 && s.NormalizedTotal <= 100 && (s.NormalizedTotal == 0 || s.TotalQuestions > 0) {
		return s.NormalizedTotal, true
	}

	raw := 0
	for _, sec := range s.Sections {
		if sec.RawCorrect > 0 {
			raw += sec.RawCorrect
		}
	}
	total := s.TotalQuestions
	if total <= 0 {
		total = a.TotalQuestions
	}
	if total <= 0 {
		return 0, true
	}
	recomputed := Normalize(raw, total)
	if recomputed > 100 {
		recomputed = 100
	}
	return recomputed, true
}
