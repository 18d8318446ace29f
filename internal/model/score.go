package model

// QuestionDetail records the outcome of a single question comparison.
type QuestionDetail struct {
	QuestionID      string `json:"question_id"`
	QuestionText    string `json:"question"`
	SubmittedAnswer string `json:"student"`
	CorrectAnswer   string `json:"correct"`
	IsCorrect       bool   `json:"match"`
}

// SectionScore holds the raw and normalized outcome for one section.
// NormalizedScore is round(RawCorrect/SectionTotal*100), or 0 when the
// section total is 0.
type SectionScore struct {
	RawCorrect      int              `json:"correct_answers"`
	SectionTotal    int              `json:"total_questions"`
	NormalizedScore int              `json:"marks"`
	Details         []QuestionDetail `json:"debug,omitempty"`
}

// ScoreResult is the complete scoring outcome for one attempt, embedded in
// the attempt record. TotalQuestions is the frozen denominator: the declared
// override from registration time when it was set, else the sum of frozen
// section totals.
type ScoreResult struct {
	Sections        map[string]SectionScore `json:"sections"`
	RawTotal        int                     `json:"raw_total"`
	TotalQuestions  int                     `json:"total_questions"`
	NormalizedTotal int                     `json:"normalized_total"`
}

// DashboardStats are the aggregate figures shown on the admin dashboard.
// TotalQuestions is the live schema's declared total, a global context value
// independent of any individual attempt.
type DashboardStats struct {
	TotalStudents  int `json:"total_students"`
	HighestScore   int `json:"highest_score"`
	AverageScore   int `json:"average_score"`
	TotalQuestions int `json:"total_questions"`
}
