package scoring

import (
	"strings"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-session/internal/model"
)

var difficultyBuckets = []model.Difficulty{
	model.DifficultyEasy,
	model.DifficultyMedium,
	model.DifficultyHard,
}

type topicKey struct {
	subject string
	topic   string
}

// Aggregate groups the scored answers by subject, (subject, topic) and
// difficulty. Questions missing from the catalog are left out of every
// breakdown. Groups keep the order in which they first appear in refs.
func Aggregate(refs []model.QuestionRef, questions map[uuid.UUID]model.Question, scored []model.Answer) model.Analytics {
	byQuestion := make(map[uuid.UUID]*model.Answer, len(scored))
	for i := range scored {
		byQuestion[scored[i].QuestionID] = &scored[i]
	}

	var (
		subjects   []model.SubjectSummary
		subjectIdx = make(map[string]int)
		topics     []model.TopicSummary
		topicIdx   = make(map[topicKey]int)
		difficulty = make(map[model.Difficulty]*model.DifficultySummary, len(difficultyBuckets))
	)
	for _, d := range difficultyBuckets {
		difficulty[d] = &model.DifficultySummary{Difficulty: d}
	}

	for _, ref := range refs {
		q, ok := questions[ref.QuestionID]
		if !ok {
			continue
		}

		var correct bool
		var marks float64
		if a := byQuestion[ref.QuestionID]; a != nil {
			correct = a.IsCorrect
			marks = a.MarksObtained
		}

		si, ok := subjectIdx[q.Subject]
		if !ok {
			si = len(subjects)
			subjectIdx[q.Subject] = si
			subjects = append(subjects, model.SubjectSummary{Subject: q.Subject})
		}
		s := &subjects[si]
		s.TotalQuestions++
		s.TotalMarks += ref.Marks
		s.MarksObtained += marks
		if correct {
			s.CorrectAnswers++
		}

		tk := topicKey{subject: q.Subject, topic: q.Topic}
		ti, ok := topicIdx[tk]
		if !ok {
			ti = len(topics)
			topicIdx[tk] = ti
			topics = append(topics, model.TopicSummary{Subject: q.Subject, Topic: q.Topic})
		}
		t := &topics[ti]
		t.TotalQuestions++
		if correct {
			t.CorrectAnswers++
		}

		if d, ok := difficulty[model.Difficulty(strings.ToLower(string(q.Difficulty)))]; ok {
			d.Total++
			if correct {
				d.Correct++
			}
		}
	}

	for i := range subjects {
		subjects[i].MarksObtained = snap(subjects[i].MarksObtained)
		subjects[i].TotalMarks = snap(subjects[i].TotalMarks)
		subjects[i].Percentage = Percentage(subjects[i].MarksObtained, subjects[i].TotalMarks)
	}
	for i := range topics {
		topics[i].Percentage = Percentage(float64(topics[i].CorrectAnswers), float64(topics[i].TotalQuestions))
	}

	out := model.Analytics{
		SubjectWise:    subjects,
		TopicWise:      topics,
		DifficultyWise: make([]model.DifficultySummary, 0, len(difficultyBuckets)),
	}
	if out.SubjectWise == nil {
		out.SubjectWise = []model.SubjectSummary{}
	}
	if out.TopicWise == nil {
		out.TopicWise = []model.TopicSummary{}
	}
	for _, d := range difficultyBuckets {
		b := difficulty[d]
		b.Percentage = Percentage(float64(b.Correct), float64(b.Total))
		out.DifficultyWise = append(out.DifficultyWise, *b)
	}
	return out
}
