package model

// QuestionSchema describes the exam layout derived from the question workbook:
// which sections exist, how many questions each contributes, the optional exam
// duration and the optional administrator-declared total question count.
//
// A schema is rebuilt fresh on every read of the workbook and is immutable
// once returned.
type QuestionSchema struct {
	// Sections maps section name to the number of valid questions in it.
	// Sheets contributing zero valid questions are omitted entirely.
	Sections map[string]int `json:"sections"`

	// DurationMinutes is the exam duration, nil when the workbook does not
	// declare one (or declares one outside the accepted 1..180 range).
	DurationMinutes *int `json:"duration_minutes,omitempty"`

	// DeclaredTotal is the authoritative override for the total question
	// count, sourced from the reserved totals sheet. Zero means "not declared".
	DeclaredTotal int `json:"declared_total"`
}

// TotalQuestions returns the effective overall question count: the declared
// override when present, otherwise the sum of per-section counts.
func (s *QuestionSchema) TotalQuestions() int {
	if s.DeclaredTotal > 0 {
		return s.DeclaredTotal
	}
	total := 0
	for _, n := range s.Sections {
		total += n
	}
	return total
}

// Question is a single multiple-choice question as presented to a candidate.
//
// ID is the question's original row position within its sheet and is stable
// across shuffles; DisplayIndex is the 1-based position assigned after the
// per-load shuffle and is purely presentational.
type Question struct {
	ID            string `json:"id"`
	Section       string `json:"section"`
	DisplayIndex  int    `json:"display_index"`
	Text          string `json:"question"`
	OptionA       string `json:"option_a"`
	OptionB       string `json:"option_b"`
	OptionC       string `json:"option_c"`
	OptionD       string `json:"option_d"`
	CorrectAnswer string `json:"-"`
}

// QuestionForCandidate is a question stripped of its correct answer, safe to
// send to the exam page.
type QuestionForCandidate struct {
	ID           string `json:"id"`
	DisplayIndex int    `json:"display_index"`
	Text         string `json:"question"`
	OptionA      string `json:"option_a"`
	OptionB      string `json:"option_b"`
	OptionC      string `json:"option_c"`
	OptionD      string `json:"option_d"`
}

// ExamPaper is the payload served to the exam page: shuffled questions per
// section plus the duration, without any correct answers.
type ExamPaper struct {
	Sections        map[string][]QuestionForCandidate `json:"sections"`
	DurationMinutes *int                              `json:"duration_minutes,omitempty"`
}
