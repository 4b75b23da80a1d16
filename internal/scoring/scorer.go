package scoring

import (
	"math"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-session/internal/model"
)

// precision is the resolution marks and percentages are snapped to before
// grading, so 0.1-mark sums land on band boundaries.
const precision = 1e9

func snap(v float64) float64 {
	return math.Round(v*precision) / precision
}

// TotalMarks sums the marks of a question snapshot.
func TotalMarks(refs []model.QuestionRef) float64 {
	var total float64
	for _, ref := range refs {
		total += ref.Marks
	}
	return snap(total)
}

// Input is everything the pipeline needs to score one attempt.
type Input struct {
	// Refs is the attempt's question snapshot, in exam order.
	Refs []model.QuestionRef
	// Questions holds the catalog entries that could be resolved.
	Questions map[uuid.UUID]model.Question
	// Answers are the answers saved during the session.
	Answers []model.Answer
}

// Options selects the marking policy of the pipeline.
type Options struct {
	Marking MarkingScheme
	Text    TextEvaluator
}

func (o Options) withDefaults() Options {
	if o.Marking == nil {
		o.Marking = ExactMarks{}
	}
	if o.Text == nil {
		o.Text = ExactTextEvaluator{}
	}
	return o
}

// ScoreResult is the output of Score.
type ScoreResult struct {
	// Answers are the scored answers, in exam order.
	Answers       []model.Answer
	Stats         model.Stats
	MarksObtained float64
	TotalMarks    float64
	// Unresolved lists questions missing from the catalog. They count toward
	// totals but never earn marks.
	Unresolved []uuid.UUID
}

// Score evaluates every saved answer against its question and aggregates
// the attempt statistics. Client-supplied correctness and marks are ignored.
func Score(in Input, opts Options) ScoreResult {
	opts = opts.withDefaults()

	byQuestion := make(map[uuid.UUID]model.Answer, len(in.Answers))
	for _, a := range in.Answers {
		byQuestion[a.QuestionID] = a
	}

	res := ScoreResult{
		Answers: make([]model.Answer, 0, len(in.Answers)),
	}
	res.Stats.TotalQuestions = len(in.Refs)

	var timeSpent int
	res.TotalMarks = TotalMarks(in.Refs)
	for _, ref := range in.Refs {
		q, resolved := in.Questions[ref.QuestionID]
		if !resolved {
			res.Unresolved = append(res.Unresolved, ref.QuestionID)
		}

		ans, ok := byQuestion[ref.QuestionID]
		if !ok {
			continue
		}

		ans.IsCorrect = false
		ans.MarksObtained = 0
		if ans.TimeSpent < 0 {
			ans.TimeSpent = 0
		}
		timeSpent += ans.TimeSpent
		if ans.Flagged {
			res.Stats.FlaggedQuestions++
		}

		if ans.IsAnswered() {
			res.Stats.AttemptedQuestions++
			if resolved {
				ans.IsCorrect = isCorrect(&q, &ans, opts.Text)
				ans.MarksObtained = opts.Marking.Award(&q, ref.Marks, ans.SelectedOptions, ans.IsCorrect)
			}
			if ans.IsCorrect {
				res.Stats.CorrectAnswers++
			}
		}

		res.MarksObtained += ans.MarksObtained
		res.Answers = append(res.Answers, ans)
	}

	res.MarksObtained = snap(res.MarksObtained)
	res.Stats.IncorrectAnswers = res.Stats.AttemptedQuestions - res.Stats.CorrectAnswers
	res.Stats.SkippedQuestions = res.Stats.TotalQuestions - res.Stats.AttemptedQuestions
	res.Stats.TotalTimeSpent = int(math.Round(float64(timeSpent) / 60))
	if res.Stats.AttemptedQuestions > 0 {
		res.Stats.AverageTimePerQuestion = float64(timeSpent) / float64(res.Stats.AttemptedQuestions)
	}

	return res
}

func isCorrect(q *model.Question, ans *model.Answer, text TextEvaluator) bool {
	if q.IsText() {
		return text.Evaluate(q, ans.TextAnswer)
	}
	return exactSetMatch(ans.SelectedOptions, q.CorrectOptions)
}

// Percentage returns obtained over total as a percentage, or 0 when total is 0.
// The result is snapped to precision.
func Percentage(obtained, total float64) float64 {
	if total == 0 {
		return 0
	}
	return snap(obtained / total * 100)
}
