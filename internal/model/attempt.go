package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// AttemptStatus enumerates attempt lifecycle states.
type AttemptStatus string

const (
	AttemptStatusInProgress    AttemptStatus = "in-progress"
	AttemptStatusCompleted     AttemptStatus = "completed"
	AttemptStatusSubmitted     AttemptStatus = "submitted"
	AttemptStatusAutoSubmitted AttemptStatus = "auto-submitted"
	AttemptStatusIncomplete    AttemptStatus = "incomplete"
)

// IsTerminal reports whether the status closes the attempt.
// The closing status carries the scored payload; completed is kept for
// records imported from older data.
func (s AttemptStatus) IsTerminal() bool {
	switch s {
	case AttemptStatusCompleted, AttemptStatusSubmitted, AttemptStatusAutoSubmitted, AttemptStatusIncomplete:
		return true
	}
	return false
}

// Attempt is one student's try at one exam.
type Attempt struct {
	ID            uuid.UUID     `json:"id"`
	StudentID     int           `json:"student_id"`
	ExamID        uuid.UUID     `json:"exam_id"`
	AttemptNumber int           `json:"attempt_number"`
	Status        AttemptStatus `json:"status"`
	Answers       []Answer      `json:"answers"`
	Session       Session       `json:"session"`
	QuestionRefs  []QuestionRef `json:"question_refs"`
	Scoring       Scoring       `json:"scoring"`
	Stats         Stats         `json:"stats"`
	Analytics     Analytics     `json:"analytics"`
	Metadata      Metadata      `json:"metadata"`
	Version       int           `json:"-"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// Answer is the stored answer for one question.
type Answer struct {
	QuestionID      uuid.UUID `json:"question_id"`
	SelectedOptions []string  `json:"selected_options"`
	TextAnswer      string    `json:"text_answer,omitempty"`
	IsCorrect       bool      `json:"is_correct"`
	MarksObtained   float64   `json:"marks_obtained"`
	TimeSpent       int       `json:"time_spent"`
	Flagged         bool      `json:"flagged"`
}

// IsAnswered reports whether the answer carries a selection or non-blank text.
func (a *Answer) IsAnswered() bool {
	return len(a.SelectedOptions) > 0 || strings.TrimSpace(a.TextAnswer) != ""
}

// Session holds the live-phase data of an attempt.
type Session struct {
	StartTime  time.Time      `json:"start_time"`
	EndTime    *time.Time     `json:"end_time,omitempty"`
	Deadline   time.Time      `json:"deadline"`
	Client     ClientMetadata `json:"client"`
	Activities []Activity     `json:"activities"`
	Violations []Violation    `json:"violations"`
}

// ClientMetadata describes the device that opened the session.
type ClientMetadata struct {
	IPAddress string `json:"ip_address,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
}

// ActivityType names an entry of the session activity log.
type ActivityType string

const (
	ActivityStarted       ActivityType = "started"
	ActivityProgressSaved ActivityType = "progress-saved"
	ActivityViolation     ActivityType = "violation"
	ActivitySubmitted     ActivityType = "submitted"
	ActivityAutoSubmitted ActivityType = "auto-submitted"
	ActivityForceClosed   ActivityType = "force-closed"
)

// Activity is one entry of the session activity log.
type Activity struct {
	Type      ActivityType `json:"type"`
	Timestamp time.Time    `json:"timestamp"`
	Detail    string       `json:"detail,omitempty"`
}

// Scoring is the scored outcome of a closed attempt.
type Scoring struct {
	TotalMarks        float64  `json:"total_marks"`
	MarksObtained     float64  `json:"marks_obtained"`
	Percentage        float64  `json:"percentage"`
	Grade             string   `json:"grade,omitempty"`
	Passed            bool     `json:"passed"`
	PassingPercentage float64  `json:"passing_percentage"`
	PassingMarks      *float64 `json:"passing_marks,omitempty"`
	Rank              *int     `json:"rank,omitempty"`
	Percentile        *float64 `json:"percentile,omitempty"`
}

// Stats are the answer counters of a closed attempt.
type Stats struct {
	TotalQuestions         int     `json:"total_questions"`
	AttemptedQuestions     int     `json:"attempted_questions"`
	CorrectAnswers         int     `json:"correct_answers"`
	IncorrectAnswers       int     `json:"incorrect_answers"`
	SkippedQuestions       int     `json:"skipped_questions"`
	FlaggedQuestions       int     `json:"flagged_questions"`
	AverageTimePerQuestion float64 `json:"average_time_per_question"`
	TotalTimeSpent         int     `json:"total_time_spent"`
}

// Analytics holds the per-dimension breakdowns of a closed attempt.
type Analytics struct {
	SubjectWise    []SubjectSummary    `json:"subject_wise"`
	TopicWise      []TopicSummary      `json:"topic_wise"`
	DifficultyWise []DifficultySummary `json:"difficulty_wise"`
}

// SubjectSummary aggregates scored answers of one subject.
type SubjectSummary struct {
	Subject        string  `json:"subject"`
	TotalQuestions int     `json:"total_questions"`
	CorrectAnswers int     `json:"correct_answers"`
	MarksObtained  float64 `json:"marks_obtained"`
	TotalMarks     float64 `json:"total_marks"`
	Percentage     float64 `json:"percentage"`
}

// TopicSummary aggregates scored answers of one (subject, topic) pair.
type TopicSummary struct {
	Subject        string  `json:"subject"`
	Topic          string  `json:"topic"`
	TotalQuestions int     `json:"total_questions"`
	CorrectAnswers int     `json:"correct_answers"`
	Percentage     float64 `json:"percentage"`
}

// DifficultySummary aggregates scored answers of one difficulty bucket.
type DifficultySummary struct {
	Difficulty Difficulty `json:"difficulty"`
	Total      int        `json:"total"`
	Correct    int        `json:"correct"`
	Percentage float64    `json:"percentage"`
}

// Metadata carries bookkeeping kept in sync with the session logs.
type Metadata struct {
	ViolationCount int `json:"violation_count"`
}

// IsCompleted reports whether the attempt has been closed and scored.
func (a *Attempt) IsCompleted() bool {
	return a.Status.IsTerminal()
}

// Accuracy is correct answers over attempted questions, as a percentage.
func (a *Attempt) Accuracy() float64 {
	if a.Stats.AttemptedQuestions == 0 {
		return 0
	}
	return float64(a.Stats.CorrectAnswers) / float64(a.Stats.AttemptedQuestions) * 100
}

// CompletionRate is attempted questions over total questions, as a percentage.
func (a *Attempt) CompletionRate() float64 {
	if a.Stats.TotalQuestions == 0 {
		return 0
	}
	return float64(a.Stats.AttemptedQuestions) / float64(a.Stats.TotalQuestions) * 100
}

// HasQuestion reports whether the question belongs to the attempt snapshot.
func (a *Attempt) HasQuestion(id uuid.UUID) bool {
	for _, ref := range a.QuestionRefs {
		if ref.QuestionID == id {
			return true
		}
	}
	return false
}

// UpsertAnswer replaces the answer for the same question or appends a new one.
func (a *Attempt) UpsertAnswer(ans Answer) {
	for i := range a.Answers {
		if a.Answers[i].QuestionID == ans.QuestionID {
			a.Answers[i] = ans
			return
		}
	}
	a.Answers = append(a.Answers, ans)
}

// AddViolation appends a violation and keeps the violation counter in sync.
func (a *Attempt) AddViolation(v Violation) {
	a.Session.Violations = append(a.Session.Violations, v)
	a.Metadata.ViolationCount = len(a.Session.Violations)
}

// LogActivity appends an entry to the session activity log.
func (a *Attempt) LogActivity(t ActivityType, at time.Time, detail string) {
	a.Session.Activities = append(a.Session.Activities, Activity{Type: t, Timestamp: at, Detail: detail})
}
