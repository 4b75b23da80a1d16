package model

import "time"

// ViolationType names a proctoring event reported by the client.
type ViolationType string

const (
	ViolationTabSwitch          ViolationType = "tab-switch"
	ViolationWindowBlur         ViolationType = "window-blur"
	ViolationCopyPaste          ViolationType = "copy-paste"
	ViolationRightClick         ViolationType = "right-click"
	ViolationFullScreenExit     ViolationType = "full-screen-exit"
	ViolationSuspiciousActivity ViolationType = "suspicious-activity"
)

// Severity grades a violation for human review.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Violation is an append-only proctoring event.
type Violation struct {
	Type        ViolationType `json:"type"`
	Timestamp   time.Time     `json:"timestamp"`
	Severity    Severity      `json:"severity"`
	Description string        `json:"description,omitempty"`
}

// DefaultSeverity is used when the client reports a violation without a severity.
func DefaultSeverity(t ViolationType) Severity {
	switch t {
	case ViolationCopyPaste, ViolationSuspiciousActivity:
		return SeverityHigh
	case ViolationTabSwitch, ViolationFullScreenExit:
		return SeverityMedium
	default:
		return SeverityLow
	}
}
