package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-session/internal/model"
	"github.com/stemsi/exstem-session/internal/scoring"
)

// MemoryAttemptRepository is an in-process attempt store with the same
// constraints as the Postgres one. Used by tests and local tooling.
type MemoryAttemptRepository struct {
	mu       sync.RWMutex
	attempts map[uuid.UUID]*model.Attempt
	clock    func() time.Time
}

// NewMemoryAttemptRepository creates an empty in-memory attempt store.
func NewMemoryAttemptRepository() *MemoryAttemptRepository {
	return &MemoryAttemptRepository{
		attempts: make(map[uuid.UUID]*model.Attempt),
		clock:    time.Now,
	}
}

func (r *MemoryAttemptRepository) Create(_ context.Context, a *model.Attempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.attempts {
		if existing.StudentID != a.StudentID || existing.ExamID != a.ExamID {
			continue
		}
		if existing.AttemptNumber == a.AttemptNumber {
			return ErrDuplicateAttempt
		}
		if existing.Status == model.AttemptStatusInProgress && a.Status == model.AttemptStatusInProgress {
			return ErrDuplicateAttempt
		}
	}

	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	now := r.clock()
	a.Version = 0
	a.CreatedAt = now
	a.UpdatedAt = now
	r.attempts[a.ID] = cloneAttempt(a)
	return nil
}

func (r *MemoryAttemptRepository) GetByID(_ context.Context, id uuid.UUID) (*model.Attempt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.attempts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneAttempt(a), nil
}

func (r *MemoryAttemptRepository) ListByStudentExam(_ context.Context, studentID int, examID uuid.UUID) ([]model.Attempt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []model.Attempt
	for _, a := range r.attempts {
		if a.StudentID == studentID && a.ExamID == examID {
			out = append(out, *cloneAttempt(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AttemptNumber < out[j].AttemptNumber })
	return out, nil
}

func (r *MemoryAttemptRepository) UpdateProgress(_ context.Context, id uuid.UUID, fn func(*model.Attempt) error) (*model.Attempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.attempts[id]
	if !ok {
		return nil, ErrNotFound
	}
	a := cloneAttempt(stored)
	if a.Status != model.AttemptStatusInProgress {
		return a, ErrNotInProgress
	}
	if err := fn(a); err != nil {
		return a, err
	}

	stored.Answers = cloneAnswers(a.Answers)
	stored.Session = cloneSession(a.Session)
	stored.Metadata = a.Metadata
	stored.Version++
	stored.UpdatedAt = r.clock()
	return cloneAttempt(stored), nil
}

func (r *MemoryAttemptRepository) Close(_ context.Context, a *model.Attempt, expectedVersion int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.attempts[a.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.Status != model.AttemptStatusInProgress {
		return ErrNotInProgress
	}
	if stored.Version != expectedVersion {
		return ErrStaleAttempt
	}

	r.commitClose(stored, a)
	return nil
}

func (r *MemoryAttemptRepository) CloseLocked(_ context.Context, id uuid.UUID, fn func(*model.Attempt) error) (*model.Attempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.attempts[id]
	if !ok {
		return nil, ErrNotFound
	}
	a := cloneAttempt(stored)
	if a.Status != model.AttemptStatusInProgress {
		return a, ErrNotInProgress
	}
	if err := fn(a); err != nil {
		return a, err
	}

	r.commitClose(stored, a)
	return a, nil
}

// commitClose replaces stored with the closed payload a, keeping the fields
// fixed at start. a receives the new version.
func (r *MemoryAttemptRepository) commitClose(stored, a *model.Attempt) {
	next := cloneAttempt(a)
	next.StudentID, next.ExamID, next.AttemptNumber = stored.StudentID, stored.ExamID, stored.AttemptNumber
	next.QuestionRefs = stored.QuestionRefs
	next.CreatedAt = stored.CreatedAt
	next.Version = stored.Version + 1
	next.UpdatedAt = r.clock()
	r.attempts[a.ID] = next

	a.Version = next.Version
	a.UpdatedAt = next.UpdatedAt
}

func (r *MemoryAttemptRepository) ListExpired(_ context.Context, now time.Time, limit int, exclude []uuid.UUID) ([]uuid.UUID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	skip := make(map[uuid.UUID]struct{}, len(exclude))
	for _, id := range exclude {
		skip[id] = struct{}{}
	}

	var expired []*model.Attempt
	for _, a := range r.attempts {
		if _, skipped := skip[a.ID]; skipped {
			continue
		}
		if a.Status == model.AttemptStatusInProgress && !a.Session.Deadline.After(now) {
			expired = append(expired, a)
		}
	}
	sort.Slice(expired, func(i, j int) bool { return expired[i].Session.Deadline.Before(expired[j].Session.Deadline) })

	ids := make([]uuid.UUID, 0, len(expired))
	for _, a := range expired {
		if limit > 0 && len(ids) == limit {
			break
		}
		ids = append(ids, a.ID)
	}
	return ids, nil
}

func (r *MemoryAttemptRepository) closedByExam(examID uuid.UUID) []*model.Attempt {
	var closed []*model.Attempt
	for _, a := range r.attempts {
		if a.ExamID == examID && a.Status != model.AttemptStatusInProgress {
			closed = append(closed, a)
		}
	}
	sort.Slice(closed, func(i, j int) bool {
		if closed[i].Scoring.Percentage != closed[j].Scoring.Percentage {
			return closed[i].Scoring.Percentage > closed[j].Scoring.Percentage
		}
		return closed[i].CreatedAt.Before(closed[j].CreatedAt)
	})
	return closed
}

func (r *MemoryAttemptRepository) ListByExam(_ context.Context, examID uuid.UUID, limit, offset int) ([]model.Attempt, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	closed := r.closedByExam(examID)
	total := len(closed)
	if offset >= total {
		return []model.Attempt{}, total, nil
	}
	end := offset + limit
	if limit <= 0 || end > total {
		end = total
	}

	out := make([]model.Attempt, 0, end-offset)
	for _, a := range closed[offset:end] {
		out = append(out, *cloneAttempt(a))
	}
	return out, total, nil
}

func (r *MemoryAttemptRepository) RecomputeRanks(_ context.Context, examID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	closed := r.closedByExam(examID)
	pcts := make([]float64, len(closed))
	for i, a := range closed {
		pcts[i] = a.Scoring.Percentage
	}
	for i, st := range scoring.Standings(pcts) {
		rank, pct := st.Rank, st.Percentile
		closed[i].Scoring.Rank = &rank
		closed[i].Scoring.Percentile = &pct
	}
	return len(closed), nil
}

// MemoryCatalog is an in-process catalog reader.
type MemoryCatalog struct {
	mu        sync.RWMutex
	exams     map[uuid.UUID]model.Exam
	questions map[uuid.UUID]model.Question
	eligible  map[uuid.UUID]map[int]bool
}

// NewMemoryCatalog creates an empty in-memory catalog.
func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{
		exams:     make(map[uuid.UUID]model.Exam),
		questions: make(map[uuid.UUID]model.Question),
		eligible:  make(map[uuid.UUID]map[int]bool),
	}
}

// PutExam stores or replaces an exam.
func (c *MemoryCatalog) PutExam(e model.Exam) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e.Questions = append([]model.QuestionRef(nil), e.Questions...)
	c.exams[e.ID] = e
}

// PutQuestion stores or replaces a question.
func (c *MemoryCatalog) PutQuestion(q model.Question) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.questions[q.ID] = q
}

// DeleteQuestion removes a question from the catalog.
func (c *MemoryCatalog) DeleteQuestion(id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.questions, id)
}

// Allow makes the students eligible for the exam.
func (c *MemoryCatalog) Allow(examID uuid.UUID, studentIDs ...int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.eligible[examID] == nil {
		c.eligible[examID] = make(map[int]bool)
	}
	for _, id := range studentIDs {
		c.eligible[examID][id] = true
	}
}

func (c *MemoryCatalog) GetExam(_ context.Context, id uuid.UUID) (*model.Exam, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.exams[id]
	if !ok {
		return nil, ErrNotFound
	}
	e.Questions = append([]model.QuestionRef(nil), e.Questions...)
	return &e, nil
}

func (c *MemoryCatalog) GetQuestions(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]model.Question, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[uuid.UUID]model.Question, len(ids))
	for _, id := range ids {
		if q, ok := c.questions[id]; ok {
			out[id] = q
		}
	}
	return out, nil
}

func (c *MemoryCatalog) IsEligible(_ context.Context, studentID int, examID uuid.UUID) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.eligible[examID][studentID], nil
}

func cloneAttempt(a *model.Attempt) *model.Attempt {
	c := *a
	c.Answers = cloneAnswers(a.Answers)
	c.Session = cloneSession(a.Session)
	c.QuestionRefs = append([]model.QuestionRef(nil), a.QuestionRefs...)
	c.Analytics = model.Analytics{
		SubjectWise:    append([]model.SubjectSummary(nil), a.Analytics.SubjectWise...),
		TopicWise:      append([]model.TopicSummary(nil), a.Analytics.TopicWise...),
		DifficultyWise: append([]model.DifficultySummary(nil), a.Analytics.DifficultyWise...),
	}
	if a.Scoring.Rank != nil {
		v := *a.Scoring.Rank
		c.Scoring.Rank = &v
	}
	if a.Scoring.Percentile != nil {
		v := *a.Scoring.Percentile
		c.Scoring.Percentile = &v
	}
	if a.Scoring.PassingMarks != nil {
		v := *a.Scoring.PassingMarks
		c.Scoring.PassingMarks = &v
	}
	return &c
}

func cloneAnswers(in []model.Answer) []model.Answer {
	if in == nil {
		return nil
	}
	out := make([]model.Answer, len(in))
	for i, a := range in {
		a.SelectedOptions = append([]string(nil), a.SelectedOptions...)
		out[i] = a
	}
	return out
}

func cloneSession(s model.Session) model.Session {
	c := s
	if s.EndTime != nil {
		t := *s.EndTime
		c.EndTime = &t
	}
	c.Activities = append([]model.Activity(nil), s.Activities...)
	c.Violations = append([]model.Violation(nil), s.Violations...)
	return c
}
