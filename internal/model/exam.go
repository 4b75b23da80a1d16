package model

import (
	"time"

	"github.com/google/uuid"
)

// ExamStatus enumerates the possible states of an exam in the catalog.
type ExamStatus string

const (
	ExamStatusDraft      ExamStatus = "DRAFT"
	ExamStatusPublished  ExamStatus = "PUBLISHED"
	ExamStatusInProgress ExamStatus = "IN_PROGRESS"
	ExamStatusCompleted  ExamStatus = "COMPLETED"
	ExamStatusArchived   ExamStatus = "ARCHIVED"
)

// ExamSettings is the attempt policy of an exam.
type ExamSettings struct {
	AllowMultipleAttempts bool `json:"allow_multiple_attempts"`
	// MaxAttempts caps attempts when multiple attempts are allowed. 0 means unlimited.
	MaxAttempts int `json:"max_attempts"`
}

// QuestionRef is one entry of an exam's ordered question list.
type QuestionRef struct {
	QuestionID uuid.UUID `json:"question_id"`
	Marks      float64   `json:"marks"`
}

// Exam is the read-only exam snapshot consumed from the catalog.
type Exam struct {
	ID                uuid.UUID     `json:"id"`
	Title             string        `json:"title"`
	Status            ExamStatus    `json:"status"`
	DurationMinutes   int           `json:"duration_minutes"`
	ScheduledStart    *time.Time    `json:"scheduled_start,omitempty"`
	ScheduledEnd      *time.Time    `json:"scheduled_end,omitempty"`
	Settings          ExamSettings  `json:"settings"`
	PassingMarks      *float64      `json:"passing_marks,omitempty"`
	PassingPercentage *float64      `json:"passing_percentage,omitempty"`
	Questions         []QuestionRef `json:"questions"`
}

// Duration returns the exam duration as a time.Duration.
func (e *Exam) Duration() time.Duration {
	return time.Duration(e.DurationMinutes) * time.Minute
}

// IsActiveAt reports whether the exam accepts new attempts at t.
func (e *Exam) IsActiveAt(t time.Time) bool {
	if e.Status != ExamStatusPublished && e.Status != ExamStatusInProgress {
		return false
	}
	if e.ScheduledStart != nil && t.Before(*e.ScheduledStart) {
		return false
	}
	if e.ScheduledEnd != nil && !t.Before(*e.ScheduledEnd) {
		return false
	}
	return true
}

// Difficulty is the difficulty bucket of a question.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// QuestionType distinguishes option-based questions from free-text ones.
type QuestionType string

const (
	QuestionTypeSingleChoice QuestionType = "SINGLE_CHOICE"
	QuestionTypeMultiChoice  QuestionType = "MULTIPLE_CHOICE"
	QuestionTypeText         QuestionType = "TEXT"
)

// Option is a selectable answer option.
type Option struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Question is the question metadata consumed from the catalog.
type Question struct {
	ID              uuid.UUID    `json:"id"`
	Type            QuestionType `json:"type"`
	Subject         string       `json:"subject"`
	Topic           string       `json:"topic"`
	Difficulty      Difficulty   `json:"difficulty"`
	Marks           float64      `json:"marks"`
	Options         []Option     `json:"options,omitempty"`
	CorrectOptions  []string     `json:"correct_options,omitempty"`
	AcceptedAnswers []string     `json:"accepted_answers,omitempty"`
}

// IsText reports whether the question is answered with free text.
func (q *Question) IsText() bool {
	return q.Type == QuestionTypeText
}
