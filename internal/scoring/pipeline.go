package scoring

import (
	"github.com/google/uuid"
	"github.com/stemsi/exstem-session/internal/model"
)

// PassRule is the exam's passing threshold. Marks takes precedence over
// Percentage when set.
type PassRule struct {
	Percentage float64
	Marks      *float64
}

// Passed reports whether the outcome clears the threshold.
func (r PassRule) Passed(marksObtained, percentage float64) bool {
	if r.Marks != nil {
		return marksObtained >= *r.Marks
	}
	return percentage >= r.Percentage
}

// Outcome is the full scored payload written to a closing attempt.
type Outcome struct {
	Answers    []model.Answer
	Stats      model.Stats
	Scoring    model.Scoring
	Analytics  model.Analytics
	Unresolved []uuid.UUID
}

// Run executes score, aggregate and grade in that order.
// totalMarks is the snapshot taken when the attempt started.
func Run(in Input, totalMarks float64, pass PassRule, opts Options) Outcome {
	scored := Score(in, opts)
	analytics := Aggregate(in.Refs, in.Questions, scored.Answers)

	pct := Percentage(scored.MarksObtained, totalMarks)
	return Outcome{
		Answers:   scored.Answers,
		Stats:     scored.Stats,
		Analytics: analytics,
		Scoring: model.Scoring{
			TotalMarks:        totalMarks,
			MarksObtained:     scored.MarksObtained,
			Percentage:        pct,
			Grade:             Grade(pct),
			Passed:            pass.Passed(scored.MarksObtained, pct),
			PassingPercentage: pass.Percentage,
			PassingMarks:      pass.Marks,
		},
		Unresolved: scored.Unresolved,
	}
}

// Apply writes the outcome onto the attempt, keeping rank and percentile.
func (o Outcome) Apply(a *model.Attempt) {
	rank, percentile := a.Scoring.Rank, a.Scoring.Percentile
	a.Answers = o.Answers
	a.Stats = o.Stats
	a.Analytics = o.Analytics
	a.Scoring = o.Scoring
	a.Scoring.Rank = rank
	a.Scoring.Percentile = percentile
}
