package model

import (
	"time"

	"github.com/google/uuid"
)

// AnswerInput is one incremental answer update sent by the client.
type AnswerInput struct {
	QuestionID      uuid.UUID `json:"question_id" binding:"required"`
	SelectedOptions []string  `json:"selected_options" binding:"omitempty,max=26,dive,max=64"`
	TextAnswer      string    `json:"text_answer" binding:"omitempty,max=10000"`
	TimeSpent       *int      `json:"time_spent" binding:"omitempty,min=0"`
	Flagged         *bool     `json:"flagged"`
}

// SaveProgressRequest is the payload for an autosave call.
type SaveProgressRequest struct {
	Answers []AnswerInput `json:"answers" binding:"required,min=1,max=500,dive"`
}

// SubmitRequest is the payload for a final submit. Answers are optional.
type SubmitRequest struct {
	Answers []AnswerInput `json:"answers" binding:"omitempty,max=500,dive"`
}

// RecordViolationRequest is the payload for a proctoring event.
type RecordViolationRequest struct {
	Type        ViolationType `json:"type" binding:"required,oneof=tab-switch window-blur copy-paste right-click full-screen-exit suspicious-activity"`
	Severity    Severity      `json:"severity" binding:"omitempty,oneof=low medium high"`
	Description string        `json:"description" binding:"omitempty,max=500"`
	Timestamp   *time.Time    `json:"timestamp"`
}

// StartSessionResponse is returned when a session is opened.
type StartSessionResponse struct {
	AttemptID       uuid.UUID `json:"attempt_id"`
	AttemptNumber   int       `json:"attempt_number"`
	StartTime       time.Time `json:"start_time"`
	DurationMinutes int       `json:"duration_minutes"`
	Deadline        time.Time `json:"deadline"`
}

// SubmitResult is returned when a session is closed.
type SubmitResult struct {
	AttemptID     uuid.UUID     `json:"attempt_id"`
	Status        AttemptStatus `json:"status"`
	MarksObtained float64       `json:"marks_obtained"`
	TotalMarks    float64       `json:"total_marks"`
	Percentage    float64       `json:"percentage"`
	Grade         string        `json:"grade"`
	Passed        bool          `json:"passed"`
	SubmittedAt   time.Time     `json:"submitted_at"`
}

// ProgressAck acknowledges an autosave.
type ProgressAck struct {
	AttemptID    uuid.UUID `json:"attempt_id"`
	SavedAnswers int       `json:"saved_answers"`
	SavedAt      time.Time `json:"saved_at"`
	Deadline     time.Time `json:"deadline"`
}

// ViolationAck acknowledges a recorded violation.
type ViolationAck struct {
	AttemptID      uuid.UUID `json:"attempt_id"`
	ViolationCount int       `json:"violation_count"`
}
