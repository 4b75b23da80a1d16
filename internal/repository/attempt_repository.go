package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-session/internal/model"
)

const attemptColumns = `id, student_id, exam_id, attempt_number, status, answers, session,
	question_refs, scoring, stats, analytics, metadata, version, created_at, updated_at`

// closeAssignments is the SET list shared by both close paths ($1 to $8).
const closeAssignments = `status = $1, answers = $2, session = $3, scoring = $4, stats = $5,
		     analytics = $6, metadata = $7, percentage = $8,
		     version = version + 1, updated_at = NOW()`

// AttemptRepository handles attempt data access.
// The nested attempt documents are stored as JSONB; status, deadline and
// percentage are mirrored into plain columns for indexing.
type AttemptRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

func scanAttempt(row pgx.Row) (*model.Attempt, error) {
	a := &model.Attempt{}
	err := row.Scan(&a.ID, &a.StudentID, &a.ExamID, &a.AttemptNumber, &a.Status,
		&a.Answers, &a.Session, &a.QuestionRefs, &a.Scoring, &a.Stats, &a.Analytics,
		&a.Metadata, &a.Version, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return a, nil
}

func collectAttempts(rows pgx.Rows) ([]model.Attempt, error) {
	defer rows.Close()

	var attempts []model.Attempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, *a)
	}
	return attempts, rows.Err()
}

// Create inserts a new in-progress attempt. Both the (student, exam,
// attempt_number) constraint and the one-open-attempt index map to
// ErrDuplicateAttempt.
func (r *AttemptRepository) Create(ctx context.Context, a *model.Attempt) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO attempts (id, student_id, exam_id, attempt_number, status, answers, session,
		                       question_refs, scoring, stats, analytics, metadata, deadline)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 RETURNING version, created_at, updated_at`,
		a.ID, a.StudentID, a.ExamID, a.AttemptNumber, a.Status, a.Answers, a.Session,
		a.QuestionRefs, a.Scoring, a.Stats, a.Analytics, a.Metadata, a.Session.Deadline,
	).Scan(&a.Version, &a.CreatedAt, &a.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateAttempt
		}
		return err
	}
	return nil
}

// GetByID retrieves an attempt by its UUID.
func (r *AttemptRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Attempt, error) {
	return scanAttempt(r.pool.QueryRow(ctx,
		`SELECT `+attemptColumns+` FROM attempts WHERE id = $1`, id))
}

// ListByStudentExam returns every attempt of a student at an exam, oldest first.
func (r *AttemptRepository) ListByStudentExam(ctx context.Context, studentID int, examID uuid.UUID) ([]model.Attempt, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+attemptColumns+`
		 FROM attempts
		 WHERE student_id = $1 AND exam_id = $2
		 ORDER BY attempt_number`, studentID, examID)
	if err != nil {
		return nil, err
	}
	return collectAttempts(rows)
}

// UpdateProgress applies fn to the attempt under a row lock and persists the
// live-session fields. Concurrent callers are serialized in lock order.
// When the attempt is no longer in progress fn is not called and the current
// record is returned together with ErrNotInProgress.
func (r *AttemptRepository) UpdateProgress(ctx context.Context, id uuid.UUID, fn func(*model.Attempt) error) (*model.Attempt, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	a, err := scanAttempt(tx.QueryRow(ctx,
		`SELECT `+attemptColumns+` FROM attempts WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, err
	}
	if a.Status != model.AttemptStatusInProgress {
		return a, ErrNotInProgress
	}

	if err := fn(a); err != nil {
		return a, err
	}

	err = tx.QueryRow(ctx,
		`UPDATE attempts
		 SET answers = $1, session = $2, metadata = $3, version = version + 1, updated_at = NOW()
		 WHERE id = $4
		 RETURNING version, updated_at`,
		a.Answers, a.Session, a.Metadata, a.ID,
	).Scan(&a.Version, &a.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("update progress: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return a, nil
}

// Close writes the scored payload and terminal status, guarded by
// status = 'in-progress' and the version the payload was computed from.
// A terminal record yields ErrNotInProgress, a newer open version ErrStaleAttempt.
func (r *AttemptRepository) Close(ctx context.Context, a *model.Attempt, expectedVersion int) error {
	err := r.pool.QueryRow(ctx,
		`UPDATE attempts
		 SET `+closeAssignments+`
		 WHERE id = $9 AND status = $10 AND version = $11
		 RETURNING version, updated_at`,
		a.Status, a.Answers, a.Session, a.Scoring, a.Stats, a.Analytics, a.Metadata,
		a.Scoring.Percentage, a.ID, model.AttemptStatusInProgress, expectedVersion,
	).Scan(&a.Version, &a.UpdatedAt)
	if err == nil {
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	var status model.AttemptStatus
	if err := r.pool.QueryRow(ctx,
		`SELECT status FROM attempts WHERE id = $1`, a.ID,
	).Scan(&status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if status != model.AttemptStatusInProgress {
		return ErrNotInProgress
	}
	return ErrStaleAttempt
}

// CloseLocked closes the attempt inside a row lock: fn turns the locked
// record into its terminal form and the result is written in the same
// transaction. Progress saves wait for the lock, so the close cannot go stale.
func (r *AttemptRepository) CloseLocked(ctx context.Context, id uuid.UUID, fn func(*model.Attempt) error) (*model.Attempt, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	a, err := scanAttempt(tx.QueryRow(ctx,
		`SELECT `+attemptColumns+` FROM attempts WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, err
	}
	if a.Status != model.AttemptStatusInProgress {
		return a, ErrNotInProgress
	}

	if err := fn(a); err != nil {
		return a, err
	}

	err = tx.QueryRow(ctx,
		`UPDATE attempts
		 SET `+closeAssignments+`
		 WHERE id = $9
		 RETURNING version, updated_at`,
		a.Status, a.Answers, a.Session, a.Scoring, a.Stats, a.Analytics, a.Metadata,
		a.Scoring.Percentage, a.ID,
	).Scan(&a.Version, &a.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("close attempt: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return a, nil
}

// ListExpired returns open attempts whose deadline is at or before now,
// earliest deadline first, leaving out the excluded IDs.
func (r *AttemptRepository) ListExpired(ctx context.Context, now time.Time, limit int, exclude []uuid.UUID) ([]uuid.UUID, error) {
	if exclude == nil {
		exclude = []uuid.UUID{}
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id FROM attempts
		 WHERE status = $1 AND deadline <= $2 AND NOT (id = ANY($4))
		 ORDER BY deadline
		 LIMIT $3`, model.AttemptStatusInProgress, now, limit, exclude)
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

// ListByExam returns the closed attempts of an exam, best percentage first,
// with the total count for pagination.
func (r *AttemptRepository) ListByExam(ctx context.Context, examID uuid.UUID, limit, offset int) ([]model.Attempt, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM attempts WHERE exam_id = $1 AND status <> $2`,
		examID, model.AttemptStatusInProgress,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+attemptColumns+`
		 FROM attempts
		 WHERE exam_id = $1 AND status <> $2
		 ORDER BY percentage DESC, created_at
		 LIMIT $3 OFFSET $4`,
		examID, model.AttemptStatusInProgress, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	attempts, err := collectAttempts(rows)
	if err != nil {
		return nil, 0, err
	}
	return attempts, total, nil
}

// RecomputeRanks stores dense rank and percentile on every closed attempt of
// an exam and returns how many attempts were ranked.
func (r *AttemptRepository) RecomputeRanks(ctx context.Context, examID uuid.UUID) (int, error) {
	tag, err := r.pool.Exec(ctx,
		`WITH ranked AS (
		     SELECT id,
		            DENSE_RANK() OVER (ORDER BY percentage DESC) AS rnk,
		            100.0 * (RANK() OVER (ORDER BY percentage ASC) - 1) / COUNT(*) OVER () AS pct
		     FROM attempts
		     WHERE exam_id = $1 AND status <> $2
		 )
		 UPDATE attempts a
		 SET scoring = jsonb_set(jsonb_set(a.scoring, '{rank}', to_jsonb(r.rnk)),
		                         '{percentile}', to_jsonb(r.pct::float8)),
		     updated_at = NOW()
		 FROM ranked r
		 WHERE a.id = r.id`, examID, model.AttemptStatusInProgress)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}
