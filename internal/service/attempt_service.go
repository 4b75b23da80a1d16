package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-session/internal/metrics"
	"github.com/stemsi/exstem-session/internal/model"
	"github.com/stemsi/exstem-session/internal/repository"
	"github.com/stemsi/exstem-session/internal/response"
	"github.com/stemsi/exstem-session/internal/scoring"
)

// maxCloseAttempts bounds the optimistic closes tried while progress saves
// keep landing between read and write. The last attempt holds the row lock.
const maxCloseAttempts = 3

// errDeadlinePassed aborts a locked progress update so the attempt can be
// auto-submitted instead.
var errDeadlinePassed = errors.New("deadline passed")

// AttemptStore persists attempts and enforces the lifecycle constraints.
type AttemptStore interface {
	Create(ctx context.Context, a *model.Attempt) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Attempt, error)
	ListByStudentExam(ctx context.Context, studentID int, examID uuid.UUID) ([]model.Attempt, error)
	UpdateProgress(ctx context.Context, id uuid.UUID, fn func(*model.Attempt) error) (*model.Attempt, error)
	Close(ctx context.Context, a *model.Attempt, expectedVersion int) error
	CloseLocked(ctx context.Context, id uuid.UUID, fn func(*model.Attempt) error) (*model.Attempt, error)
	ListExpired(ctx context.Context, now time.Time, limit int, exclude []uuid.UUID) ([]uuid.UUID, error)
	ListByExam(ctx context.Context, examID uuid.UUID, limit, offset int) ([]model.Attempt, int, error)
	RecomputeRanks(ctx context.Context, examID uuid.UUID) (int, error)
}

// AttemptOptions tunes scoring policy for every attempt.
type AttemptOptions struct {
	// DefaultPassingPercentage applies when the exam defines no threshold.
	DefaultPassingPercentage float64
	Scoring                  scoring.Options
}

// AttemptService runs the attempt lifecycle: start, progress, violations and close.
type AttemptService struct {
	attempts AttemptStore
	catalog  CatalogReader
	events   EventPublisher
	opts     AttemptOptions
	backoff  *sweepBackoff
	log      zerolog.Logger
	now      func() time.Time
}

// NewAttemptService creates a new AttemptService.
func NewAttemptService(
	attempts AttemptStore,
	catalog CatalogReader,
	events EventPublisher,
	opts AttemptOptions,
	log zerolog.Logger,
) *AttemptService {
	if events == nil {
		events = NopPublisher{}
	}
	return &AttemptService{
		attempts: attempts,
		catalog:  catalog,
		events:   events,
		opts:     opts,
		backoff:  newSweepBackoff(),
		log:      log.With().Str("component", "attempt_service").Logger(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the service clock. Used by tests and tooling.
func (s *AttemptService) WithClock(now func() time.Time) *AttemptService {
	s.now = now
	return s
}

// ─── Start ──────────────────────────────────────────────────────────

// StartSession opens a new in-progress attempt for the student.
func (s *AttemptService) StartSession(ctx context.Context, studentID int, examID uuid.UUID, client model.ClientMetadata) (*model.StartSessionResponse, error) {
	exam, err := s.catalog.GetExam(ctx, examID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("get exam: %w", err)
	}

	eligible, err := s.catalog.IsEligible(ctx, studentID, examID)
	if err != nil {
		return nil, fmt.Errorf("check eligibility: %w", err)
	}
	if !eligible {
		return nil, ErrNotEligible
	}

	now := s.now()
	if !exam.IsActiveAt(now) {
		return nil, ErrExamNotActive
	}

	existing, err := s.attempts.ListByStudentExam(ctx, studentID, examID)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}

	// An expired open attempt is closed before it is counted.
	for i := range existing {
		a := &existing[i]
		if a.Status != model.AttemptStatusInProgress {
			continue
		}
		if now.Before(a.Session.Deadline) {
			return nil, ErrAlreadyAttempted
		}
		if _, err := s.AutoSubmit(ctx, a.ID); err != nil && !errors.Is(err, ErrAlreadySubmitted) {
			return nil, fmt.Errorf("close expired attempt: %w", err)
		}
	}

	if len(existing) > 0 {
		if !exam.Settings.AllowMultipleAttempts {
			return nil, ErrAlreadyAttempted
		}
		if exam.Settings.MaxAttempts > 0 && len(existing) >= exam.Settings.MaxAttempts {
			return nil, ErrAlreadyAttempted
		}
	}

	attemptNumber := 1
	if n := len(existing); n > 0 {
		attemptNumber = existing[n-1].AttemptNumber + 1
	}

	refs, err := s.snapshotRefs(ctx, exam)
	if err != nil {
		return nil, err
	}
	totalMarks := scoring.TotalMarks(refs)

	deadline := now.Add(exam.Duration())
	if exam.ScheduledEnd != nil && exam.ScheduledEnd.Before(deadline) {
		deadline = *exam.ScheduledEnd
	}

	pass := s.passRule(exam)
	attempt := &model.Attempt{
		ID:            uuid.New(),
		StudentID:     studentID,
		ExamID:        examID,
		AttemptNumber: attemptNumber,
		Status:        model.AttemptStatusInProgress,
		Answers:       []model.Answer{},
		Session: model.Session{
			StartTime:  now,
			Deadline:   deadline,
			Client:     client,
			Activities: []model.Activity{{Type: model.ActivityStarted, Timestamp: now}},
			Violations: []model.Violation{},
		},
		QuestionRefs: refs,
		Scoring: model.Scoring{
			TotalMarks:        totalMarks,
			PassingPercentage: pass.Percentage,
			PassingMarks:      pass.Marks,
		},
		Stats: model.Stats{TotalQuestions: len(refs)},
		Analytics: model.Analytics{
			SubjectWise:    []model.SubjectSummary{},
			TopicWise:      []model.TopicSummary{},
			DifficultyWise: []model.DifficultySummary{},
		},
	}

	if err := s.attempts.Create(ctx, attempt); err != nil {
		if errors.Is(err, repository.ErrDuplicateAttempt) {
			return nil, ErrAlreadyAttempted
		}
		return nil, fmt.Errorf("create attempt: %w", err)
	}

	metrics.AttemptsStarted.Inc()
	s.events.Publish(ctx, MonitorEvent{
		Type:      MonitorEventStarted,
		ExamID:    examID,
		AttemptID: attempt.ID,
		StudentID: studentID,
		Status:    attempt.Status,
		Timestamp: now,
	})

	s.log.Info().
		Str("attempt_id", attempt.ID.String()).
		Str("exam_id", examID.String()).
		Int("student_id", studentID).
		Int("attempt_number", attemptNumber).
		Time("deadline", deadline).
		Msg("Attempt started")

	return &model.StartSessionResponse{
		AttemptID:       attempt.ID,
		AttemptNumber:   attemptNumber,
		StartTime:       now,
		DurationMinutes: exam.DurationMinutes,
		Deadline:        deadline,
	}, nil
}

// snapshotRefs copies the exam's question list, filling missing marks from the catalog.
func (s *AttemptService) snapshotRefs(ctx context.Context, exam *model.Exam) ([]model.QuestionRef, error) {
	refs := append([]model.QuestionRef{}, exam.Questions...)

	var unpriced []uuid.UUID
	for _, ref := range refs {
		if ref.Marks == 0 {
			unpriced = append(unpriced, ref.QuestionID)
		}
	}
	if len(unpriced) == 0 {
		return refs, nil
	}

	questions, err := s.catalog.GetQuestions(ctx, unpriced)
	if err != nil {
		return nil, fmt.Errorf("get questions: %w", err)
	}
	for i := range refs {
		if q, ok := questions[refs[i].QuestionID]; ok && refs[i].Marks == 0 {
			refs[i].Marks = q.Marks
		}
	}
	return refs, nil
}

func (s *AttemptService) passRule(exam *model.Exam) scoring.PassRule {
	rule := scoring.PassRule{Percentage: s.opts.DefaultPassingPercentage, Marks: exam.PassingMarks}
	if exam.PassingPercentage != nil {
		rule.Percentage = *exam.PassingPercentage
	}
	return rule
}

// ─── Progress ───────────────────────────────────────────────────────

// SaveProgress upserts answers into an open attempt without scoring them.
func (s *AttemptService) SaveProgress(ctx context.Context, studentID int, attemptID uuid.UUID, inputs []model.AnswerInput) (*model.ProgressAck, error) {
	a, err := s.ownedAttempt(ctx, studentID, attemptID)
	if err != nil {
		return nil, err
	}
	if a.Status != model.AttemptStatusInProgress {
		return nil, ErrSessionNotActive
	}
	if err := validateInputs(a, inputs); err != nil {
		return nil, err
	}

	var savedAt time.Time
	updated, err := s.attempts.UpdateProgress(ctx, attemptID, func(cur *model.Attempt) error {
		savedAt = s.now()
		if !savedAt.Before(cur.Session.Deadline) {
			return errDeadlinePassed
		}
		applyInputs(cur, inputs)
		cur.LogActivity(model.ActivityProgressSaved, savedAt, fmt.Sprintf("%d answers", len(inputs)))
		return nil
	})
	if err != nil {
		return nil, s.progressError(ctx, attemptID, err)
	}

	return &model.ProgressAck{
		AttemptID:    attemptID,
		SavedAnswers: len(inputs),
		SavedAt:      savedAt,
		Deadline:     updated.Session.Deadline,
	}, nil
}

// RecordViolation appends a proctoring event to an open attempt.
// Violations never change scoring and never block a later submit.
func (s *AttemptService) RecordViolation(ctx context.Context, studentID int, attemptID uuid.UUID, req model.RecordViolationRequest) (*model.ViolationAck, error) {
	a, err := s.ownedAttempt(ctx, studentID, attemptID)
	if err != nil {
		return nil, err
	}
	if a.Status != model.AttemptStatusInProgress {
		return nil, ErrSessionNotActive
	}

	var v model.Violation
	updated, err := s.attempts.UpdateProgress(ctx, attemptID, func(cur *model.Attempt) error {
		now := s.now()
		if !now.Before(cur.Session.Deadline) {
			return errDeadlinePassed
		}

		v = model.Violation{
			Type:        req.Type,
			Timestamp:   now,
			Severity:    req.Severity,
			Description: req.Description,
		}
		if req.Timestamp != nil && !req.Timestamp.After(now) && !req.Timestamp.Before(cur.Session.StartTime) {
			v.Timestamp = req.Timestamp.UTC()
		}
		if v.Severity == "" {
			v.Severity = model.DefaultSeverity(req.Type)
		}

		cur.AddViolation(v)
		cur.LogActivity(model.ActivityViolation, now, string(v.Type))
		return nil
	})
	if err != nil {
		return nil, s.progressError(ctx, attemptID, err)
	}

	metrics.Violations.WithLabelValues(string(v.Type), string(v.Severity)).Inc()
	s.events.Publish(ctx, MonitorEvent{
		Type:      MonitorEventViolation,
		ExamID:    updated.ExamID,
		AttemptID: attemptID,
		StudentID: studentID,
		Status:    updated.Status,
		Violation: &v,
		Timestamp: v.Timestamp,
	})

	s.log.Warn().
		Str("attempt_id", attemptID.String()).
		Int("student_id", studentID).
		Str("type", string(v.Type)).
		Str("severity", string(v.Severity)).
		Int("violation_count", updated.Metadata.ViolationCount).
		Msg("Violation recorded")

	return &model.ViolationAck{
		AttemptID:      attemptID,
		ViolationCount: updated.Metadata.ViolationCount,
	}, nil
}

// progressError maps a failed locked update to the caller-facing error.
// A passed deadline closes the attempt on the spot.
func (s *AttemptService) progressError(ctx context.Context, attemptID uuid.UUID, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotInProgress):
		return ErrSessionNotActive
	case errors.Is(err, repository.ErrNotFound):
		return ErrAttemptNotFound
	case errors.Is(err, errDeadlinePassed):
		if _, cerr := s.AutoSubmit(ctx, attemptID); cerr != nil && !errors.Is(cerr, ErrAlreadySubmitted) {
			s.log.Error().Err(cerr).Str("attempt_id", attemptID.String()).Msg("Lazy auto-submit failed")
		}
		return ErrSessionNotActive
	}
	return fmt.Errorf("update progress: %w", err)
}

func validateInputs(a *model.Attempt, inputs []model.AnswerInput) error {
	for _, in := range inputs {
		if !a.HasQuestion(in.QuestionID) {
			return fmt.Errorf("%w: %s", ErrUnknownQuestion, in.QuestionID)
		}
	}
	return nil
}

// applyInputs upserts each input by question. Omitted time and flag fields
// keep their previously saved values.
func applyInputs(a *model.Attempt, inputs []model.AnswerInput) {
	prev := make(map[uuid.UUID]model.Answer, len(a.Answers))
	for _, ans := range a.Answers {
		prev[ans.QuestionID] = ans
	}

	for _, in := range inputs {
		ans := prev[in.QuestionID]
		ans.QuestionID = in.QuestionID
		ans.SelectedOptions = append([]string{}, in.SelectedOptions...)
		ans.TextAnswer = in.TextAnswer
		ans.IsCorrect = false
		ans.MarksObtained = 0
		if in.TimeSpent != nil {
			ans.TimeSpent = *in.TimeSpent
		}
		if in.Flagged != nil {
			ans.Flagged = *in.Flagged
		}
		prev[in.QuestionID] = ans
		a.UpsertAnswer(ans)
	}
}

// ─── Close ──────────────────────────────────────────────────────────

// Submit closes the attempt on the student's request. Answers sent with the
// submit are saved first, unless the deadline has passed: then the attempt
// closes as auto-submitted with only the answers saved before it.
func (s *AttemptService) Submit(ctx context.Context, studentID int, attemptID uuid.UUID, inputs []model.AnswerInput) (*model.SubmitResult, error) {
	a, err := s.ownedAttempt(ctx, studentID, attemptID)
	if err != nil {
		return nil, err
	}
	if a.Status.IsTerminal() {
		return nil, ErrAlreadySubmitted
	}
	if err := validateInputs(a, inputs); err != nil {
		return nil, err
	}
	return s.close(ctx, attemptID, model.AttemptStatusSubmitted, inputs)
}

// AutoSubmit closes an attempt whose deadline has passed.
func (s *AttemptService) AutoSubmit(ctx context.Context, attemptID uuid.UUID) (*model.SubmitResult, error) {
	a, err := s.attempts.GetByID(ctx, attemptID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	if a.Status.IsTerminal() {
		return nil, ErrAlreadySubmitted
	}
	if s.now().Before(a.Session.Deadline) {
		return nil, ErrNotExpired
	}
	return s.close(ctx, attemptID, model.AttemptStatusAutoSubmitted, nil)
}

// ForceClose closes an open attempt as incomplete on an administrator's request.
func (s *AttemptService) ForceClose(ctx context.Context, attemptID uuid.UUID) (*model.SubmitResult, error) {
	return s.close(ctx, attemptID, model.AttemptStatusIncomplete, nil)
}

// close runs score, aggregate and grade on a fresh read of the attempt and
// writes the result with a compare-and-swap. Exactly one concurrent close
// wins; the others observe a terminal status and fail with ErrAlreadySubmitted.
// If saves keep invalidating the read, the final try closes under the row lock.
func (s *AttemptService) close(ctx context.Context, attemptID uuid.UUID, status model.AttemptStatus, inputs []model.AnswerInput) (*model.SubmitResult, error) {
	a, err := s.GetAttempt(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if a.Status.IsTerminal() {
		return nil, ErrAlreadySubmitted
	}

	// Question refs are fixed at start, so one catalog read serves every try.
	questions, err := s.loadQuestions(ctx, a.QuestionRefs)
	if err != nil {
		return nil, err
	}

	for try := 1; try < maxCloseAttempts; try++ {
		if try > 1 {
			if a, err = s.GetAttempt(ctx, attemptID); err != nil {
				return nil, err
			}
			if a.Status.IsTerminal() {
				return nil, ErrAlreadySubmitted
			}
		}

		expected := a.Version
		s.finish(a, status, inputs, questions)

		err = s.attempts.Close(ctx, a, expected)
		switch {
		case err == nil:
			s.closed(ctx, a, status)
			return submitResult(a), nil
		case errors.Is(err, repository.ErrNotInProgress):
			return nil, ErrAlreadySubmitted
		case errors.Is(err, repository.ErrStaleAttempt):
			metrics.CloseRetries.Inc()
			s.log.Debug().Str("attempt_id", attemptID.String()).Int("try", try).Msg("Attempt changed during close, rescoring")
		default:
			return nil, fmt.Errorf("close attempt: %w", err)
		}
	}

	a, err = s.attempts.CloseLocked(ctx, attemptID, func(cur *model.Attempt) error {
		s.finish(cur, status, inputs, questions)
		return nil
	})
	switch {
	case errors.Is(err, repository.ErrNotInProgress):
		return nil, ErrAlreadySubmitted
	case errors.Is(err, repository.ErrNotFound):
		return nil, ErrAttemptNotFound
	case err != nil:
		return nil, fmt.Errorf("close attempt: %w", err)
	}
	s.closed(ctx, a, status)
	return submitResult(a), nil
}

// finish turns an open attempt into its closed form: carried answers,
// scored payload, end time and closing activity. A submit at or after the
// deadline becomes an auto-submit and its carried answers are dropped.
func (s *AttemptService) finish(a *model.Attempt, status model.AttemptStatus, inputs []model.AnswerInput, questions map[uuid.UUID]model.Question) {
	now := s.now()
	final := status
	if final == model.AttemptStatusSubmitted && !now.Before(a.Session.Deadline) {
		final = model.AttemptStatusAutoSubmitted
	}
	if final == model.AttemptStatusSubmitted && len(inputs) > 0 {
		applyInputs(a, inputs)
	}

	s.score(a, questions)

	a.Status = final
	a.Session.EndTime = &now
	a.LogActivity(closingActivity(final), now, "")
}

func (s *AttemptService) loadQuestions(ctx context.Context, refs []model.QuestionRef) (map[uuid.UUID]model.Question, error) {
	ids := make([]uuid.UUID, len(refs))
	for i, ref := range refs {
		ids[i] = ref.QuestionID
	}
	questions, err := s.catalog.GetQuestions(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get questions: %w", err)
	}
	return questions, nil
}

// score runs the pipeline on the attempt's snapshot and applies the outcome.
func (s *AttemptService) score(a *model.Attempt, questions map[uuid.UUID]model.Question) {
	pass := scoring.PassRule{Percentage: a.Scoring.PassingPercentage, Marks: a.Scoring.PassingMarks}
	outcome := scoring.Run(scoring.Input{
		Refs:      a.QuestionRefs,
		Questions: questions,
		Answers:   a.Answers,
	}, a.Scoring.TotalMarks, pass, s.opts.Scoring)

	if len(outcome.Unresolved) > 0 {
		missing := make([]string, len(outcome.Unresolved))
		for i, id := range outcome.Unresolved {
			missing[i] = id.String()
		}
		s.log.Warn().
			Str("attempt_id", a.ID.String()).
			Strs("question_ids", missing).
			Msg("Questions missing from catalog, excluded from analytics")
	}

	outcome.Apply(a)
}

func (s *AttemptService) closed(ctx context.Context, a *model.Attempt, requested model.AttemptStatus) {
	metrics.AttemptsClosed.WithLabelValues(string(a.Status)).Inc()
	metrics.FinalPercentage.Observe(a.Scoring.Percentage)

	pct := a.Scoring.Percentage
	s.events.Publish(ctx, MonitorEvent{
		Type:       MonitorEventClosed,
		ExamID:     a.ExamID,
		AttemptID:  a.ID,
		StudentID:  a.StudentID,
		Status:     a.Status,
		Percentage: &pct,
		Timestamp:  *a.Session.EndTime,
	})

	s.log.Info().
		Str("attempt_id", a.ID.String()).
		Int("student_id", a.StudentID).
		Str("status", string(a.Status)).
		Str("requested", string(requested)).
		Float64("marks", a.Scoring.MarksObtained).
		Float64("total_marks", a.Scoring.TotalMarks).
		Str("grade", a.Scoring.Grade).
		Msg("Attempt closed")
}

func closingActivity(status model.AttemptStatus) model.ActivityType {
	switch status {
	case model.AttemptStatusAutoSubmitted:
		return model.ActivityAutoSubmitted
	case model.AttemptStatusIncomplete:
		return model.ActivityForceClosed
	default:
		return model.ActivitySubmitted
	}
}

func submitResult(a *model.Attempt) *model.SubmitResult {
	res := &model.SubmitResult{
		AttemptID:     a.ID,
		Status:        a.Status,
		MarksObtained: a.Scoring.MarksObtained,
		TotalMarks:    a.Scoring.TotalMarks,
		Percentage:    a.Scoring.Percentage,
		Grade:         a.Scoring.Grade,
		Passed:        a.Scoring.Passed,
	}
	if a.Session.EndTime != nil {
		res.SubmittedAt = *a.Session.EndTime
	}
	return res
}

// SweepExpired auto-submits up to limit attempts whose deadline has passed
// and returns how many this call closed. An attempt that fails to close is
// skipped by the following sweeps for sweepRetryDelay.
func (s *AttemptService) SweepExpired(ctx context.Context, limit int) (int, error) {
	now := s.now()
	ids, err := s.attempts.ListExpired(ctx, now, limit, s.backoff.held(now))
	if err != nil {
		return 0, fmt.Errorf("list expired: %w", err)
	}

	closed := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			return closed, ctx.Err()
		}
		if _, err := s.AutoSubmit(ctx, id); err != nil {
			if errors.Is(err, ErrAlreadySubmitted) {
				continue
			}
			retryAt := now.Add(sweepRetryDelay)
			s.backoff.fail(id, retryAt)
			s.log.Error().Err(err).
				Str("attempt_id", id.String()).
				Time("retry_at", retryAt).
				Msg("Auto-submit failed")
			continue
		}
		closed++
	}
	return closed, nil
}

// ─── Read ───────────────────────────────────────────────────────────

func (s *AttemptService) ownedAttempt(ctx context.Context, studentID int, attemptID uuid.UUID) (*model.Attempt, error) {
	a, err := s.GetAttempt(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if a.StudentID != studentID {
		return nil, ErrInvalidSession
	}
	return a, nil
}

// GetAttempt returns the full attempt record.
func (s *AttemptService) GetAttempt(ctx context.Context, attemptID uuid.UUID) (*model.Attempt, error) {
	a, err := s.attempts.GetByID(ctx, attemptID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	return a, nil
}

// GetResult returns the student's own attempt record.
func (s *AttemptService) GetResult(ctx context.Context, studentID int, attemptID uuid.UUID) (*model.Attempt, error) {
	return s.ownedAttempt(ctx, studentID, attemptID)
}

// ListMyAttempts returns every attempt the student made at an exam.
func (s *AttemptService) ListMyAttempts(ctx context.Context, studentID int, examID uuid.UUID) ([]model.Attempt, error) {
	attempts, err := s.attempts.ListByStudentExam(ctx, studentID, examID)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	if attempts == nil {
		attempts = []model.Attempt{}
	}
	return attempts, nil
}

// ListExamResults returns the closed attempts of an exam, best first.
func (s *AttemptService) ListExamResults(ctx context.Context, examID uuid.UUID, page, perPage int) ([]model.Attempt, *response.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}
	if perPage > 100 {
		perPage = 100
	}

	attempts, total, err := s.attempts.ListByExam(ctx, examID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, nil, fmt.Errorf("list results: %w", err)
	}
	if attempts == nil {
		attempts = []model.Attempt{}
	}
	return attempts, response.NewPagination(page, perPage, total), nil
}

// RecomputeRanks refreshes rank and percentile of every closed attempt of an exam.
func (s *AttemptService) RecomputeRanks(ctx context.Context, examID uuid.UUID) (int, error) {
	if _, err := s.catalog.GetExam(ctx, examID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, ErrExamNotFound
		}
		return 0, fmt.Errorf("get exam: %w", err)
	}

	n, err := s.attempts.RecomputeRanks(ctx, examID)
	if err != nil {
		return 0, fmt.Errorf("recompute ranks: %w", err)
	}
	s.log.Info().Str("exam_id", examID.String()).Int("ranked", n).Msg("Ranks recomputed")
	return n, nil
}
