package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-session/internal/config"
	"github.com/stemsi/exstem-session/internal/model"
	"github.com/stemsi/exstem-session/internal/repository"
)

type cacheFixture struct {
	mr      *miniredis.Miniredis
	cache   *CachedCatalog
	backing *repository.MemoryCatalog
	exam    model.Exam
	q       []model.Question
}

func newCacheFixture(t *testing.T) *cacheFixture {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	backing := repository.NewMemoryCatalog()
	q := []model.Question{
		{ID: uuid.New(), Type: model.QuestionTypeSingleChoice, Subject: "Fisika", Marks: 2, CorrectOptions: []string{"a"}},
		{ID: uuid.New(), Type: model.QuestionTypeSingleChoice, Subject: "Fisika", Marks: 3, CorrectOptions: []string{"b"}},
	}
	for _, question := range q {
		backing.PutQuestion(question)
	}
	exam := model.Exam{
		ID:              uuid.New(),
		Title:           "Ujian Fisika",
		Status:          model.ExamStatusPublished,
		DurationMinutes: 60,
		Questions: []model.QuestionRef{
			{QuestionID: q[0].ID, Marks: 2},
			{QuestionID: q[1].ID, Marks: 3},
		},
	}
	backing.PutExam(exam)

	return &cacheFixture{
		mr:      mr,
		cache:   NewCachedCatalog(backing, rdb, time.Hour, zerolog.Nop()),
		backing: backing,
		exam:    exam,
		q:       q,
	}
}

func (f *cacheFixture) questionIDs() []uuid.UUID {
	return []uuid.UUID{f.q[0].ID, f.q[1].ID}
}

func TestCachedCatalog_ReadThrough(t *testing.T) {
	f := newCacheFixture(t)
	ctx := context.Background()

	if _, err := f.cache.GetExam(ctx, f.exam.ID); err != nil {
		t.Fatalf("GetExam: %v", err)
	}
	if _, err := f.cache.GetQuestions(ctx, f.questionIDs()); err != nil {
		t.Fatalf("GetQuestions: %v", err)
	}
	if ok, err := f.cache.IsEligible(ctx, studentID, f.exam.ID); err != nil || ok {
		t.Fatalf("IsEligible = %v, %v; want false", ok, err)
	}

	edited := f.exam
	edited.Title = "Ujian Fisika (revisi)"
	f.backing.PutExam(edited)
	f.backing.DeleteQuestion(f.q[0].ID)
	f.backing.Allow(f.exam.ID, studentID)

	exam, err := f.cache.GetExam(ctx, f.exam.ID)
	if err != nil {
		t.Fatalf("GetExam: %v", err)
	}
	if exam.Title != f.exam.Title {
		t.Errorf("title = %q, want cached %q", exam.Title, f.exam.Title)
	}
	questions, err := f.cache.GetQuestions(ctx, f.questionIDs())
	if err != nil {
		t.Fatalf("GetQuestions: %v", err)
	}
	if len(questions) != 2 {
		t.Errorf("questions = %d, want 2 served from cache", len(questions))
	}
	if ok, _ := f.cache.IsEligible(ctx, studentID, f.exam.ID); ok {
		t.Error("eligibility verdict not served from cache")
	}
}

func TestCachedCatalog_InvalidateDropsExamEntries(t *testing.T) {
	f := newCacheFixture(t)
	ctx := context.Background()

	if err := f.cache.Prewarm(ctx, []uuid.UUID{f.exam.ID}); err != nil {
		t.Fatalf("Prewarm: %v", err)
	}
	if _, err := f.cache.IsEligible(ctx, studentID, f.exam.ID); err != nil {
		t.Fatalf("IsEligible: %v", err)
	}
	if !f.mr.Exists(config.CacheKey.QuestionKey(f.q[0].ID.String())) {
		t.Fatal("question not warmed")
	}

	// The exam drops the first question, which is then deleted; the second
	// gets a corrected answer key.
	edited := f.exam
	edited.Questions = edited.Questions[1:]
	f.backing.PutExam(edited)
	f.backing.DeleteQuestion(f.q[0].ID)
	corrected := f.q[1]
	corrected.CorrectOptions = []string{"c"}
	f.backing.PutQuestion(corrected)
	f.backing.Allow(f.exam.ID, studentID)

	if err := f.cache.Invalidate(ctx, f.exam.ID); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}

	questions, err := f.cache.GetQuestions(ctx, f.questionIDs())
	if err != nil {
		t.Fatalf("GetQuestions: %v", err)
	}
	if _, ok := questions[f.q[0].ID]; ok {
		t.Error("deleted question still resolved after invalidation")
	}
	if got := questions[f.q[1].ID].CorrectOptions; len(got) != 1 || got[0] != "c" {
		t.Errorf("correct options = %v, want corrected [c]", got)
	}
	exam, err := f.cache.GetExam(ctx, f.exam.ID)
	if err != nil {
		t.Fatalf("GetExam: %v", err)
	}
	if len(exam.Questions) != 1 {
		t.Errorf("exam questions = %d, want 1", len(exam.Questions))
	}
	if ok, _ := f.cache.IsEligible(ctx, studentID, f.exam.ID); !ok {
		t.Error("stale eligibility verdict survived invalidation")
	}
}

func TestCachedCatalog_InvalidateUnknownExam(t *testing.T) {
	f := newCacheFixture(t)

	if err := f.cache.Invalidate(context.Background(), uuid.New()); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
}

func TestCachedCatalog_RedisDownFallsThrough(t *testing.T) {
	f := newCacheFixture(t)
	ctx := context.Background()
	f.mr.Close()

	exam, err := f.cache.GetExam(ctx, f.exam.ID)
	if err != nil {
		t.Fatalf("GetExam: %v", err)
	}
	if exam.Title != f.exam.Title {
		t.Errorf("title = %q, want %q", exam.Title, f.exam.Title)
	}
	questions, err := f.cache.GetQuestions(ctx, f.questionIDs())
	if err != nil {
		t.Fatalf("GetQuestions: %v", err)
	}
	if len(questions) != 2 {
		t.Errorf("questions = %d, want 2", len(questions))
	}
}
