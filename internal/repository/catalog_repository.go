package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-session/internal/model"
)

// CatalogRepository reads exam and question metadata owned by the
// authoring side. It never writes.
type CatalogRepository struct {
	pool *pgxpool.Pool
}

// NewCatalogRepository creates a new CatalogRepository.
func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

// GetExam retrieves an exam together with its ordered question references.
// A reference without its own marks falls back to the question's marks.
func (r *CatalogRepository) GetExam(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	e := &model.Exam{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, title, status, duration_minutes, scheduled_start, scheduled_end,
		        allow_multiple_attempts, max_attempts, passing_marks, passing_percentage
		 FROM exams WHERE id = $1`, id,
	).Scan(&e.ID, &e.Title, &e.Status, &e.DurationMinutes, &e.ScheduledStart, &e.ScheduledEnd,
		&e.Settings.AllowMultipleAttempts, &e.Settings.MaxAttempts, &e.PassingMarks, &e.PassingPercentage)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT eq.question_id, COALESCE(eq.marks, q.marks, 0)
		 FROM exam_questions eq
		 LEFT JOIN questions q ON q.id = eq.question_id
		 WHERE eq.exam_id = $1
		 ORDER BY eq.position`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	e.Questions = make([]model.QuestionRef, 0)
	for rows.Next() {
		var ref model.QuestionRef
		if err := rows.Scan(&ref.QuestionID, &ref.Marks); err != nil {
			return nil, err
		}
		e.Questions = append(e.Questions, ref)
	}
	return e, rows.Err()
}

// GetQuestions resolves question metadata by ID. Missing questions are
// simply absent from the result.
func (r *CatalogRepository) GetQuestions(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]model.Question, error) {
	out := make(map[uuid.UUID]model.Question, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, type, subject, topic, difficulty, marks, options, correct_options, accepted_answers
		 FROM questions WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.Type, &q.Subject, &q.Topic, &q.Difficulty, &q.Marks,
			&q.Options, &q.CorrectOptions, &q.AcceptedAnswers); err != nil {
			return nil, err
		}
		out[q.ID] = q
	}
	return out, rows.Err()
}

// IsEligible reports whether any target rule of the exam matches the student.
// A rule matches on its class, or on every non-null grade/major/religion field.
func (r *CatalogRepository) IsEligible(ctx context.Context, studentID int, examID uuid.UUID) (bool, error) {
	var eligible bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (
		     SELECT 1
		     FROM exam_target_rules etr
		     JOIN students s ON s.id = $1
		     WHERE etr.exam_id = $2
		       AND (
		           etr.class_id = s.class_id
		           OR (
		               etr.class_id IS NULL
		               AND (etr.grade_level IS NULL OR etr.grade_level = s.grade_level)
		               AND (etr.major_code IS NULL OR etr.major_code = s.major_code)
		               AND (etr.religion IS NULL OR etr.religion = s.religion)
		           )
		       )
		 )`, studentID, examID,
	).Scan(&eligible)
	return eligible, err
}

// ListActiveExamIDs returns exams that currently accept attempts.
// Used for cache prewarming on application startup.
func (r *CatalogRepository) ListActiveExamIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id FROM exams
		 WHERE status IN ($1, $2)
		   AND (scheduled_end IS NULL OR scheduled_end > NOW())
		 ORDER BY scheduled_start NULLS FIRST`,
		model.ExamStatusPublished, model.ExamStatusInProgress)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
