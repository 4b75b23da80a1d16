package scoring

import (
	"strings"

	"github.com/stemsi/exstem-session/internal/model"
)

// MarkingScheme decides how many marks a scored answer earns.
// correct is always the exact-match verdict; schemes may still award
// marks to answers that are not correct.
type MarkingScheme interface {
	Award(q *model.Question, marks float64, selected []string, correct bool) float64
}

// ExactMarks awards full marks to correct answers and nothing otherwise.
type ExactMarks struct{}

func (ExactMarks) Award(_ *model.Question, marks float64, _ []string, correct bool) float64 {
	if correct {
		return marks
	}
	return 0
}

// PartialMultiSelect awards proportional marks on multi-select questions
// when every selected option is correct. Any wrong option scores 0.
type PartialMultiSelect struct{}

func (PartialMultiSelect) Award(q *model.Question, marks float64, selected []string, correct bool) float64 {
	if correct {
		return marks
	}
	if q == nil || q.Type != model.QuestionTypeMultiChoice || len(q.CorrectOptions) == 0 {
		return 0
	}
	key := toSet(q.CorrectOptions)
	sel := toSet(selected)
	if len(sel) == 0 {
		return 0
	}
	for s := range sel {
		if _, ok := key[s]; !ok {
			return 0
		}
	}
	return marks * float64(len(sel)) / float64(len(key))
}

// TextEvaluator decides whether a free-text answer is correct.
type TextEvaluator interface {
	Evaluate(q *model.Question, text string) bool
}

// ExactTextEvaluator accepts a text answer equal to one of the accepted
// answers, ignoring case and surrounding whitespace.
type ExactTextEvaluator struct{}

func (ExactTextEvaluator) Evaluate(q *model.Question, text string) bool {
	got := strings.TrimSpace(text)
	if got == "" {
		return false
	}
	for _, accepted := range q.AcceptedAnswers {
		if strings.EqualFold(strings.TrimSpace(accepted), got) {
			return true
		}
	}
	return false
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		set[v] = struct{}{}
	}
	return set
}

// exactSetMatch reports whether selected equals the correct option set.
func exactSetMatch(selected, correct []string) bool {
	key := toSet(correct)
	if len(key) == 0 {
		return false
	}
	sel := toSet(selected)
	if len(sel) != len(key) {
		return false
	}
	for s := range sel {
		if _, ok := key[s]; !ok {
			return false
		}
	}
	return true
}
