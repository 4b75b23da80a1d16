package scoring

import (
	"fmt"
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-session/internal/model"
)

func TestGrade_Boundaries(t *testing.T) {
	tests := []struct {
		pct  float64
		want string
	}{
		{100, "A+"},
		{90, "A+"},
		{89.999, "A"},
		{85, "A"},
		{84.99, "B+"},
		{80, "B+"},
		{79.9, "B"},
		{75, "B"},
		{74.5, "C+"},
		{70, "C+"},
		{69.99, "C"},
		{60, "C"},
		{59.99, "D"},
		{50, "D"},
		{49.999, "F"},
		{0, "F"},
	}

	for _, tc := range tests {
		if got := Grade(tc.pct); got != tc.want {
			t.Errorf("Grade(%v) = %q, want %q", tc.pct, got, tc.want)
		}
	}
}

type fixture struct {
	refs      []model.QuestionRef
	questions map[uuid.UUID]model.Question
	ids       []uuid.UUID
}

func newFixture(qs ...model.Question) fixture {
	f := fixture{questions: make(map[uuid.UUID]model.Question, len(qs))}
	for _, q := range qs {
		q.ID = uuid.New()
		if q.Type == "" {
			q.Type = model.QuestionTypeSingleChoice
		}
		f.questions[q.ID] = q
		f.ids = append(f.ids, q.ID)
		f.refs = append(f.refs, model.QuestionRef{QuestionID: q.ID, Marks: q.Marks})
	}
	return f
}

func TestRun_ThreeQuestionScenario(t *testing.T) {
	f := newFixture(
		model.Question{Subject: "A", Topic: "t1", Difficulty: model.DifficultyEasy, Marks: 2, CorrectOptions: []string{"a"}},
		model.Question{Subject: "A", Topic: "t2", Difficulty: model.DifficultyMedium, Marks: 3, CorrectOptions: []string{"b"}},
		model.Question{Subject: "B", Topic: "t3", Difficulty: model.DifficultyHard, Marks: 5, CorrectOptions: []string{"c"}},
	)
	answers := []model.Answer{
		{QuestionID: f.ids[0], SelectedOptions: []string{"a"}, TimeSpent: 60},
		{QuestionID: f.ids[1], SelectedOptions: []string{"c"}, TimeSpent: 90},
	}

	out := Run(Input{Refs: f.refs, Questions: f.questions, Answers: answers}, 10, PassRule{Percentage: 40}, Options{})

	if out.Scoring.MarksObtained != 2 {
		t.Errorf("marks obtained = %v, want 2", out.Scoring.MarksObtained)
	}
	if out.Scoring.TotalMarks != 10 {
		t.Errorf("total marks = %v, want 10", out.Scoring.TotalMarks)
	}
	if out.Scoring.Percentage != 20 {
		t.Errorf("percentage = %v, want 20", out.Scoring.Percentage)
	}
	if out.Scoring.Grade != "F" {
		t.Errorf("grade = %q, want F", out.Scoring.Grade)
	}
	if out.Scoring.Passed {
		t.Error("passed = true, want false")
	}

	st := out.Stats
	if st.TotalQuestions != 3 || st.AttemptedQuestions != 2 || st.CorrectAnswers != 1 ||
		st.IncorrectAnswers != 1 || st.SkippedQuestions != 1 {
		t.Errorf("unexpected stats: %+v", st)
	}
	if st.TotalTimeSpent != 3 {
		t.Errorf("total time spent = %d min, want 3", st.TotalTimeSpent)
	}
	if st.AverageTimePerQuestion != 75 {
		t.Errorf("average time = %v, want 75", st.AverageTimePerQuestion)
	}

	subjects := out.Analytics.SubjectWise
	if len(subjects) != 2 {
		t.Fatalf("subject groups = %d, want 2", len(subjects))
	}
	if subjects[0].Subject != "A" || subjects[0].MarksObtained != 2 || subjects[0].TotalMarks != 5 {
		t.Errorf("subject A = %+v, want 2/5", subjects[0])
	}
	if subjects[1].Subject != "B" || subjects[1].MarksObtained != 0 || subjects[1].TotalMarks != 5 {
		t.Errorf("subject B = %+v, want 0/5", subjects[1])
	}
}

func TestScore_ExactSetMatch(t *testing.T) {
	tests := []struct {
		name     string
		correct  []string
		selected []string
		text     string
		want     bool
		answered bool
	}{
		{name: "exact single", correct: []string{"B"}, selected: []string{"B"}, want: true, answered: true},
		{name: "wrong single", correct: []string{"B"}, selected: []string{"A"}, want: false, answered: true},
		{name: "multi any order", correct: []string{"A", "D"}, selected: []string{"D", "A"}, want: true, answered: true},
		{name: "multi missing one", correct: []string{"A", "D"}, selected: []string{"A"}, want: false, answered: true},
		{name: "multi extra one", correct: []string{"A", "D"}, selected: []string{"A", "D", "B"}, want: false, answered: true},
		{name: "duplicate selection", correct: []string{"A"}, selected: []string{"A", "A"}, want: true, answered: true},
		{name: "empty selection", correct: []string{"A"}, selected: nil, want: false, answered: false},
		{name: "blank text only", correct: []string{"A"}, text: "   ", want: false, answered: false},
		{name: "empty answer key", correct: nil, selected: []string{"A"}, want: false, answered: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(model.Question{Subject: "S", Marks: 4, Type: model.QuestionTypeMultiChoice, CorrectOptions: tc.correct})
			res := Score(Input{
				Refs:      f.refs,
				Questions: f.questions,
				Answers:   []model.Answer{{QuestionID: f.ids[0], SelectedOptions: tc.selected, TextAnswer: tc.text}},
			}, Options{})

			if len(res.Answers) != 1 {
				t.Fatalf("scored answers = %d, want 1", len(res.Answers))
			}
			if res.Answers[0].IsCorrect != tc.want {
				t.Errorf("is correct = %v, want %v", res.Answers[0].IsCorrect, tc.want)
			}
			if (res.Stats.AttemptedQuestions == 1) != tc.answered {
				t.Errorf("attempted = %d, answered %v", res.Stats.AttemptedQuestions, tc.answered)
			}
			wantMarks := 0.0
			if tc.want {
				wantMarks = 4
			}
			if res.MarksObtained != wantMarks {
				t.Errorf("marks = %v, want %v", res.MarksObtained, wantMarks)
			}
		})
	}
}

func TestScore_IgnoresClientSuppliedMarks(t *testing.T) {
	f := newFixture(model.Question{Subject: "S", Marks: 1, CorrectOptions: []string{"a"}})
	res := Score(Input{
		Refs:      f.refs,
		Questions: f.questions,
		Answers: []model.Answer{{
			QuestionID:      f.ids[0],
			SelectedOptions: []string{"b"},
			IsCorrect:       true,
			MarksObtained:   100,
		}},
	}, Options{})

	if res.MarksObtained != 0 || res.Answers[0].IsCorrect {
		t.Errorf("client marks leaked into result: %+v", res.Answers[0])
	}
}

func TestScore_TextAnswers(t *testing.T) {
	f := newFixture(model.Question{
		Subject:         "S",
		Marks:           2,
		Type:            model.QuestionTypeText,
		AcceptedAnswers: []string{"Photosynthesis"},
	})

	res := Score(Input{
		Refs:      f.refs,
		Questions: f.questions,
		Answers:   []model.Answer{{QuestionID: f.ids[0], TextAnswer: "  photosynthesis "}},
	}, Options{})

	if !res.Answers[0].IsCorrect || res.MarksObtained != 2 {
		t.Errorf("text answer not accepted: %+v", res.Answers[0])
	}
}

func TestScore_UnresolvedQuestionCountsButEarnsNothing(t *testing.T) {
	f := newFixture(
		model.Question{Subject: "A", Marks: 2, CorrectOptions: []string{"a"}},
		model.Question{Subject: "B", Marks: 3, CorrectOptions: []string{"a"}},
	)
	missing := f.ids[1]
	delete(f.questions, missing)

	in := Input{
		Refs:      f.refs,
		Questions: f.questions,
		Answers: []model.Answer{
			{QuestionID: f.ids[0], SelectedOptions: []string{"a"}},
			{QuestionID: missing, SelectedOptions: []string{"a"}},
		},
	}
	out := Run(in, 5, PassRule{}, Options{})

	if out.Stats.TotalQuestions != 2 || out.Stats.AttemptedQuestions != 2 || out.Stats.IncorrectAnswers != 1 {
		t.Errorf("unexpected stats: %+v", out.Stats)
	}
	if len(out.Unresolved) != 1 || out.Unresolved[0] != missing {
		t.Errorf("unresolved = %v, want [%s]", out.Unresolved, missing)
	}
	if len(out.Analytics.SubjectWise) != 1 || out.Analytics.SubjectWise[0].Subject != "A" {
		t.Errorf("unresolved question leaked into analytics: %+v", out.Analytics.SubjectWise)
	}
	if out.Scoring.Percentage != 40 {
		t.Errorf("percentage = %v, want 40", out.Scoring.Percentage)
	}
}

func TestRun_ZeroTotalMarks(t *testing.T) {
	f := newFixture(model.Question{Subject: "A", Marks: 0, CorrectOptions: []string{"a"}})
	out := Run(Input{Refs: f.refs, Questions: f.questions}, 0, PassRule{}, Options{})

	if out.Scoring.Percentage != 0 {
		t.Errorf("percentage = %v, want 0", out.Scoring.Percentage)
	}
	if out.Analytics.SubjectWise[0].Percentage != 0 {
		t.Errorf("subject percentage = %v, want 0", out.Analytics.SubjectWise[0].Percentage)
	}
	if out.Stats.AverageTimePerQuestion != 0 {
		t.Errorf("average time = %v, want 0", out.Stats.AverageTimePerQuestion)
	}
}

func TestRun_Invariants(t *testing.T) {
	f := newFixture(
		model.Question{Subject: "Math", Topic: "Algebra", Difficulty: model.DifficultyEasy, Marks: 1, CorrectOptions: []string{"a"}},
		model.Question{Subject: "Math", Topic: "Algebra", Difficulty: model.DifficultyHard, Marks: 4, CorrectOptions: []string{"b", "c"}, Type: model.QuestionTypeMultiChoice},
		model.Question{Subject: "Math", Topic: "Geometry", Difficulty: model.DifficultyMedium, Marks: 2, CorrectOptions: []string{"d"}},
		model.Question{Subject: "Physics", Topic: "Optics", Difficulty: "Medium", Marks: 3, CorrectOptions: []string{"a"}},
		model.Question{Subject: "Physics", Topic: "Optics", Difficulty: model.DifficultyEasy, Marks: 5, CorrectOptions: []string{"e"}},
	)
	answers := []model.Answer{
		{QuestionID: f.ids[0], SelectedOptions: []string{"a"}, Flagged: true},
		{QuestionID: f.ids[1], SelectedOptions: []string{"c", "b"}},
		{QuestionID: f.ids[2], SelectedOptions: []string{"x"}, Flagged: true},
		{QuestionID: f.ids[3]},
		{QuestionID: f.ids[4], SelectedOptions: []string{"e"}},
	}

	out := Run(Input{Refs: f.refs, Questions: f.questions, Answers: answers}, 15, PassRule{Percentage: 50}, Options{})
	st := out.Stats

	if st.AttemptedQuestions+st.SkippedQuestions != st.TotalQuestions {
		t.Errorf("attempted + skipped != total: %+v", st)
	}
	if st.CorrectAnswers+st.IncorrectAnswers != st.AttemptedQuestions {
		t.Errorf("correct + incorrect != attempted: %+v", st)
	}
	if st.FlaggedQuestions != 2 {
		t.Errorf("flagged = %d, want 2", st.FlaggedQuestions)
	}

	var subjectSum float64
	for _, s := range out.Analytics.SubjectWise {
		subjectSum += s.MarksObtained
	}
	if math.Abs(subjectSum-out.Scoring.MarksObtained) > 1e-9 {
		t.Errorf("subject marks %v != total marks %v", subjectSum, out.Scoring.MarksObtained)
	}

	if len(out.Analytics.TopicWise) != 3 {
		t.Errorf("topic groups = %d, want 3", len(out.Analytics.TopicWise))
	}
	diff := out.Analytics.DifficultyWise
	if len(diff) != 3 || diff[0].Difficulty != model.DifficultyEasy || diff[2].Difficulty != model.DifficultyHard {
		t.Fatalf("unexpected difficulty buckets: %+v", diff)
	}
	if diff[1].Total != 2 || diff[1].Correct != 0 {
		t.Errorf("medium bucket = %+v, want 0/2", diff[1])
	}
	if out.Scoring.MarksObtained != 10 || out.Scoring.Grade != "C" || !out.Scoring.Passed {
		t.Errorf("unexpected scoring: %+v", out.Scoring)
	}
}

func TestPartialMultiSelect(t *testing.T) {
	q := &model.Question{Type: model.QuestionTypeMultiChoice, CorrectOptions: []string{"a", "b", "c", "d"}}
	scheme := PartialMultiSelect{}

	tests := []struct {
		name     string
		selected []string
		correct  bool
		want     float64
	}{
		{name: "all correct", selected: []string{"a", "b", "c", "d"}, correct: true, want: 4},
		{name: "half subset", selected: []string{"a", "b"}, want: 2},
		{name: "one wrong option", selected: []string{"a", "x"}, want: 0},
		{name: "nothing selected", selected: nil, want: 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := scheme.Award(q, 4, tc.selected, tc.correct); got != tc.want {
				t.Errorf("Award = %v, want %v", got, tc.want)
			}
		})
	}

	single := &model.Question{Type: model.QuestionTypeSingleChoice, CorrectOptions: []string{"a"}}
	if got := scheme.Award(single, 4, []string{"b"}, false); got != 0 {
		t.Errorf("single choice partial award = %v, want 0", got)
	}
}

func TestPassRule_MarksTakePrecedence(t *testing.T) {
	marks := 6.0
	rule := PassRule{Percentage: 90, Marks: &marks}
	if !rule.Passed(6, 60) {
		t.Error("expected pass on marks threshold")
	}
	if rule.Passed(5.5, 99) {
		t.Error("expected fail below marks threshold")
	}
}

func TestStandings(t *testing.T) {
	got := Standings([]float64{80, 90, 80, 50})
	want := []Standing{
		{Rank: 2, Percentile: 25},
		{Rank: 1, Percentile: 75},
		{Rank: 2, Percentile: 25},
		{Rank: 3, Percentile: 0},
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("standing[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}

	if len(Standings(nil)) != 0 {
		t.Error("expected no standings for empty input")
	}
}

func TestRun_FractionalMarksLandOnBands(t *testing.T) {
	bands := []struct {
		pct   int
		grade string
	}{
		{50, "D"}, {60, "C"}, {70, "C+"}, {75, "B"}, {80, "B+"}, {85, "A"}, {90, "A+"},
	}

	for _, n := range []int{10, 14, 20, 30, 40, 100} {
		for _, band := range bands {
			if n*band.pct%100 != 0 {
				continue
			}
			k := n * band.pct / 100

			t.Run(fmt.Sprintf("%d of %d", k, n), func(t *testing.T) {
				qs := make([]model.Question, n)
				for i := range qs {
					qs[i] = model.Question{Subject: "A", Marks: 0.1, CorrectOptions: []string{"a"}}
				}
				f := newFixture(qs...)

				answers := make([]model.Answer, 0, n)
				for i, id := range f.ids {
					opt := "b"
					if i < k {
						opt = "a"
					}
					answers = append(answers, model.Answer{QuestionID: id, SelectedOptions: []string{opt}})
				}

				in := Input{Refs: f.refs, Questions: f.questions, Answers: answers}
				total := TotalMarks(f.refs)
				out := Run(in, total, PassRule{Percentage: float64(band.pct)}, Options{})

				if out.Scoring.Percentage != float64(band.pct) {
					t.Errorf("percentage = %v, want %d", out.Scoring.Percentage, band.pct)
				}
				if out.Scoring.Grade != band.grade {
					t.Errorf("grade = %q, want %q", out.Scoring.Grade, band.grade)
				}
				if !out.Scoring.Passed {
					t.Error("passed = false at the passing percentage")
				}

				marks := float64(k) / 10
				byMarks := Run(in, total, PassRule{Marks: &marks}, Options{})
				if !byMarks.Scoring.Passed {
					t.Errorf("passed = false with %v marks against a %v threshold", byMarks.Scoring.MarksObtained, marks)
				}
				if got := out.Analytics.SubjectWise[0].Percentage; got != float64(band.pct) {
					t.Errorf("subject percentage = %v, want %d", got, band.pct)
				}
			})
		}
	}
}
