package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-session/internal/config"
	"github.com/stemsi/exstem-session/internal/model"
	"github.com/stemsi/exstem-session/internal/repository"
)

// CatalogReader is the read-only view of the exam and question catalog.
type CatalogReader interface {
	GetExam(ctx context.Context, examID uuid.UUID) (*model.Exam, error)
	// GetQuestions returns the questions that still exist; missing IDs are absent.
	GetQuestions(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]model.Question, error)
	IsEligible(ctx context.Context, studentID int, examID uuid.UUID) (bool, error)
}

// CachedCatalog fronts a CatalogReader with Redis. Every Redis failure falls
// through to the underlying reader; the cache never fails a request.
type CachedCatalog struct {
	next CatalogReader
	rdb  *redis.Client
	ttl  time.Duration
	log  zerolog.Logger
}

// NewCachedCatalog creates a new CachedCatalog.
func NewCachedCatalog(next CatalogReader, rdb *redis.Client, ttl time.Duration, log zerolog.Logger) *CachedCatalog {
	return &CachedCatalog{
		next: next,
		rdb:  rdb,
		ttl:  ttl,
		log:  log.With().Str("component", "catalog_cache").Logger(),
	}
}

func (c *CachedCatalog) GetExam(ctx context.Context, examID uuid.UUID) (*model.Exam, error) {
	key := config.CacheKey.ExamSnapshotKey(examID.String())

	data, err := c.rdb.Get(ctx, key).Bytes()
	if err == nil {
		var exam model.Exam
		if err := json.Unmarshal(data, &exam); err == nil {
			return &exam, nil
		}
		c.log.Warn().Str("key", key).Msg("Corrupt exam snapshot in cache, reloading")
	} else if !errors.Is(err, redis.Nil) {
		c.log.Warn().Err(err).Msg("Exam snapshot cache read failed")
	}

	exam, err := c.next.GetExam(ctx, examID)
	if err != nil {
		return nil, err
	}
	if payload, err := json.Marshal(exam); err == nil {
		if err := c.rdb.Set(ctx, key, payload, c.ttl).Err(); err != nil {
			c.log.Warn().Err(err).Msg("Exam snapshot cache write failed")
		}
	}
	return exam, nil
}

func (c *CachedCatalog) GetQuestions(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]model.Question, error) {
	out := make(map[uuid.UUID]model.Question, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = config.CacheKey.QuestionKey(id.String())
	}

	var missing []uuid.UUID
	values, err := c.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		c.log.Warn().Err(err).Msg("Question cache read failed")
		missing = ids
	} else {
		for i, v := range values {
			s, ok := v.(string)
			if !ok {
				missing = append(missing, ids[i])
				continue
			}
			var q model.Question
			if err := json.Unmarshal([]byte(s), &q); err != nil {
				missing = append(missing, ids[i])
				continue
			}
			out[q.ID] = q
		}
	}

	if len(missing) == 0 {
		return out, nil
	}

	loaded, err := c.next.GetQuestions(ctx, missing)
	if err != nil {
		return nil, err
	}

	pipe := c.rdb.Pipeline()
	for id, q := range loaded {
		out[id] = q
		if payload, err := json.Marshal(q); err == nil {
			pipe.Set(ctx, config.CacheKey.QuestionKey(id.String()), payload, c.ttl)
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		c.log.Warn().Err(err).Msg("Question cache write failed")
	}
	return out, nil
}

func (c *CachedCatalog) IsEligible(ctx context.Context, studentID int, examID uuid.UUID) (bool, error) {
	key := config.CacheKey.StudentEligibilityKey(examID.String(), studentID)

	v, err := c.rdb.Get(ctx, key).Result()
	if err == nil {
		return v == "1", nil
	}
	if !errors.Is(err, redis.Nil) {
		c.log.Warn().Err(err).Msg("Eligibility cache read failed")
	}

	eligible, err := c.next.IsEligible(ctx, studentID, examID)
	if err != nil {
		return false, err
	}
	flag := "0"
	if eligible {
		flag = "1"
	}
	if err := c.rdb.Set(ctx, key, flag, c.ttl).Err(); err != nil {
		c.log.Warn().Err(err).Msg("Eligibility cache write failed")
	}
	return eligible, nil
}

// Invalidate drops everything cached for an exam: the snapshot, the
// questions referenced by the cached and the current snapshot, and the
// eligibility verdicts of its students.
func (c *CachedCatalog) Invalidate(ctx context.Context, examID uuid.UUID) error {
	snapshotKey := config.CacheKey.ExamSnapshotKey(examID.String())
	keys := []string{snapshotKey}
	seen := make(map[uuid.UUID]struct{})
	addRefs := func(refs []model.QuestionRef) {
		for _, ref := range refs {
			if _, ok := seen[ref.QuestionID]; ok {
				continue
			}
			seen[ref.QuestionID] = struct{}{}
			keys = append(keys, config.CacheKey.QuestionKey(ref.QuestionID.String()))
		}
	}

	data, err := c.rdb.Get(ctx, snapshotKey).Bytes()
	switch {
	case err == nil:
		var cached model.Exam
		if json.Unmarshal(data, &cached) == nil {
			addRefs(cached.Questions)
		}
	case !errors.Is(err, redis.Nil):
		return fmt.Errorf("read exam snapshot: %w", err)
	}

	exam, err := c.next.GetExam(ctx, examID)
	switch {
	case err == nil:
		addRefs(exam.Questions)
	case !errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("load exam: %w", err)
	}

	iter := c.rdb.Scan(ctx, 0, config.CacheKey.StudentEligibilityPattern(examID.String()), 200).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan eligibility keys: %w", err)
	}

	pipe := c.rdb.Pipeline()
	for _, key := range keys {
		pipe.Del(ctx, key)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete cache keys: %w", err)
	}

	c.log.Debug().Str("exam_id", examID.String()).Int("keys", len(keys)).Msg("Exam cache invalidated")
	return nil
}

// Prewarm loads the exams and their questions into Redis on startup.
func (c *CachedCatalog) Prewarm(ctx context.Context, examIDs []uuid.UUID) error {
	if len(examIDs) == 0 {
		c.log.Info().Msg("No active exams to prewarm")
		return nil
	}

	warmed := 0
	for _, id := range examIDs {
		if err := c.Invalidate(ctx, id); err != nil {
			return fmt.Errorf("invalidate exam %s: %w", id, err)
		}
		exam, err := c.GetExam(ctx, id)
		if err != nil {
			c.log.Warn().Err(err).Str("exam_id", id.String()).Msg("Failed to warm exam, skipping")
			continue
		}
		qids := make([]uuid.UUID, len(exam.Questions))
		for i, ref := range exam.Questions {
			qids[i] = ref.QuestionID
		}
		if _, err := c.GetQuestions(ctx, qids); err != nil {
			c.log.Warn().Err(err).Str("exam_id", id.String()).Msg("Failed to warm questions, skipping")
			continue
		}
		warmed++
	}

	c.log.Info().
		Int("warmed", warmed).
		Int("total", len(examIDs)).
		Msg("Prewarming complete")
	return nil
}
