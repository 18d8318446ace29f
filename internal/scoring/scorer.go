package scoring

import (
	"math"
	"strings"

	"github.com/prepsala/examhall-backend/internal/model"
)

// KeyEntry is one question of the authoritative answer key.
type KeyEntry struct {
	QuestionID    string `json:"question_id"`
	QuestionText  string `json:"question"`
	CorrectAnswer string `json:"correct_answer"`
}

// AnswerKey maps section name to that section's keyed questions, in original
// row order. The key is derived from stable question ids and is therefore
// independent of any presentation shuffle.
type AnswerKey map[string][]KeyEntry

// Score grades submitted answers against the answer key and produces the
// attempt's ScoreResult.
//
// The scored sections are the union of the frozen section totals and the
// sections present in the submission, so registered-but-unanswered sections
// appear zero-filled. Within a section the iteration is key-driven: questions
// never submitted count as incorrect, answers for unknown question ids earn
// nothing. Matching is case-insensitive; a missing submitted answer or a
// missing correct answer never matches. One raw mark per correct answer.
//
// Section denominators come from the frozen totals, not from the live key, so
// workbook edits between registration and submission cannot shift an
// attempt's normalization. Scoring is deterministic: the same inputs always
// yield the same result.
func Score(sectionTotals map[string]int, totalQuestions int, answers map[string]map[string]string, key AnswerKey) *model.ScoreResult {
	result := &model.ScoreResult{
		Sections: make(map[string]model.SectionScore, len(sectionTotals)),
	}

	for _, section := range scoredSections(sectionTotals, answers) {
		submitted := answers[section]
		entries := key[section]

		sec := model.SectionScore{
			SectionTotal: sectionTotals[section],
			Details:      make([]model.QuestionDetail, 0, len(entries)),
		}

		for _, entry := range entries {
			detail := model.QuestionDetail{
				QuestionID:      entry.QuestionID,
				QuestionText:    entry.QuestionText,
				SubmittedAnswer: submitted[entry.QuestionID],
				CorrectAnswer:   entry.CorrectAnswer,
			}
			if detail.SubmittedAnswer != "" && detail.CorrectAnswer != "" &&
				strings.EqualFold(detail.SubmittedAnswer, detail.CorrectAnswer) {
				detail.IsCorrect = true
				sec.RawCorrect++
			}
			sec.Details = append(sec.Details, detail)
		}

		sec.NormalizedScore = Normalize(sec.RawCorrect, sec.SectionTotal)
		result.RawTotal += sec.RawCorrect
		result.Sections[section] = sec
	}

	result.TotalQuestions = totalQuestions
	result.NormalizedTotal = Normalize(result.RawTotal, totalQuestions)
	return result
}

// Normalize rescales a raw mark to 0..100 with integer rounding. A zero or
// negative denominator yields 0 rather than a division error.
func Normalize(raw, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(raw) / float64(total) * 100))
}

// scoredSections returns the union of frozen and submitted section names.
// Map iteration order does not matter for the result, but building the union
// explicitly keeps the grading loop total over both sources.
func scoredSections(sectionTotals map[string]int, answers map[string]map[string]string) []string {
	seen := make(map[string]bool, len(sectionTotals)+len(answers))
	sections := make([]string, 0, len(sectionTotals)+len(answers))
	for name := range sectionTotals {
		if !seen[name] {
			seen[name] = true
			sections = append(sections, name)
		}
	}
	for name := range answers {
		if !seen[name] {
			seen[name] = true
			sections = append(sections, name)
		}
	}
	return sections
}
