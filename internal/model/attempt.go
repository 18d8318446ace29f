package model

import (
	"time"

	"github.com/google/uuid"
)

// AttemptStatus enumerates the lifecycle states of an exam attempt.
type AttemptStatus string

const (
	AttemptStatusRegistered AttemptStatus = "REGISTERED"
	AttemptStatusCompleted  AttemptStatus = "COMPLETED"
)

// ExamAttempt is one candidate's registration-to-submission record.
//
// SectionTotals is frozen from the schema current at registration time; later
// workbook edits must never retroactively change an attempt's denominators.
// TotalQuestions is frozen the same way (declared override, else the section
// sum). Score is written exactly once at submission.
type ExamAttempt struct {
	ID            uuid.UUID      `json:"id"`
	Name          string         `json:"name"`
	DOB           string         `json:"dob"`
	Institution   string         `json:"institution"`
	Stream        string         `json:"stream"`
	Phone         string         `json:"phone"`
	Address       string         `json:"address"`
	SectionTotals map[string]int `json:"section_totals"`
	TotalQuestions int           `json:"total_questions"`
	Status        AttemptStatus  `json:"status"`
	Score         *ScoreResult   `json:"score,omitempty"`
	RegisteredAt  time.Time      `json:"registered_at"`
	CompletedAt   *time.Time     `json:"completed_at,omitempty"`
}

// RegisterRequest is the candidate registration payload.
type RegisterRequest struct {
	Name        string `json:"name" binding:"required,min=2,max=120"`
	DOB         string `json:"dob" binding:"omitempty,max=32"`
	Institution string `json:"institution" binding:"omitempty,max=255"`
	Stream      string `json:"stream" binding:"omitempty,max=120"`
	Phone       string `json:"phone" binding:"omitempty,max=20"`
	Address     string `json:"address" binding:"omitempty,max=500"`
}

// SubmitRequest carries the candidate's answers at submission time, keyed
// section name -> question id -> chosen option letter. Question ids are the
// stable pre-shuffle ids, so answers submitted under any presentation order
// map back to the same questions.
type SubmitRequest struct {
	Answers map[string]map[string]string `json:"answers" binding:"required"`
}
