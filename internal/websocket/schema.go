package websocket

import (
	"github.com/google/uuid"
	"github.com/stemsi/exstem-session/internal/model"
)

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAutosave  Action = "autosave"
	ActionViolation Action = "violation"
	ActionSubmit    Action = "submit"
	ActionPing      Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// AutosaveRequest carries an incremental answer update.
type AutosaveRequest struct {
	Action  Action              `json:"action"`
	Answers []model.AnswerInput `json:"answers" binding:"required,min=1,max=500,dive"`
}

// ViolationRequest reports a proctoring event.
type ViolationRequest struct {
	Action    Action                       `json:"action"`
	Violation model.RecordViolationRequest `json:"violation"`
}

// SubmitRequest closes the attempt, optionally with a last batch of answers.
type SubmitRequest struct {
	Action  Action              `json:"action"`
	Answers []model.AnswerInput `json:"answers" binding:"omitempty,max=500,dive"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError     Event = "error"
	EventSaved     Event = "saved"
	EventViolation Event = "violation_recorded"
	EventSubmitted Event = "submitted"
	EventPong      Event = "pong"
)

type SavedResponse struct {
	Event Event             `json:"event"`
	Data  model.ProgressAck `json:"data"`
}

type ViolationResponse struct {
	Event Event              `json:"event"`
	Data  model.ViolationAck `json:"data"`
}

type SubmittedResponse struct {
	Event Event              `json:"event"`
	Data  model.SubmitResult `json:"data"`
}

type ErrorResponse struct {
	Event   Event             `json:"event"`
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

type PongResponse struct {
	Event     Event     `json:"event"`
	AttemptID uuid.UUID `json:"attempt_id"`
}
