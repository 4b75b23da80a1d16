// Command seed-exam inserts a published demo exam, its questions, a student
// and a class target rule so the attempt flow can be exercised locally.
package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stemsi/exstem-session/internal/config"
	"github.com/stemsi/exstem-session/internal/database"
	"github.com/stemsi/exstem-session/internal/logger"
	"github.com/stemsi/exstem-session/internal/model"
)

type seedQuestion struct {
	q     model.Question
	marks *float64
}

func main() {
	var (
		duration int
		classID  int
		nis      string
	)
	flag.IntVar(&duration, "duration", 90, "Exam duration in minutes")
	flag.IntVar(&classID, "class", 1, "Class ID of the seeded student and target rule")
	flag.StringVar(&nis, "nis", "0012345678", "NIS of the seeded student")
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat).With().Str("component", "seed_exam").Logger()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	tx, err := pool.Begin(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to begin transaction")
	}
	defer tx.Rollback(ctx)

	var studentID int
	err = tx.QueryRow(ctx,
		`INSERT INTO students (nis, name, class_id, grade_level, major_code, religion)
		 VALUES ($1, 'Siswa Uji Coba', $2, 'XII', 'TKJ', 'Islam')
		 ON CONFLICT (nis) DO UPDATE SET class_id = EXCLUDED.class_id
		 RETURNING id`, nis, classID,
	).Scan(&studentID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to upsert student")
	}

	now := time.Now().UTC()
	examID := uuid.New()
	passing := 60.0
	_, err = tx.Exec(ctx,
		`INSERT INTO exams (id, title, status, duration_minutes, scheduled_start, scheduled_end,
		                    allow_multiple_attempts, max_attempts, passing_percentage)
		 VALUES ($1, $2, $3, $4, $5, $6, TRUE, 2, $7)`,
		examID, "Ujian Demo Fisika Dasar", model.ExamStatusPublished, duration,
		now.Add(-time.Hour), now.Add(7*24*time.Hour), passing)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to insert exam")
	}

	bonus := 4.0
	questions := []seedQuestion{
		{q: model.Question{
			Type: model.QuestionTypeSingleChoice, Subject: "Fisika", Topic: "Kinematika",
			Difficulty: model.DifficultyEasy, Marks: 2,
			Options:        []model.Option{{ID: "a", Text: "m/s"}, {ID: "b", Text: "m/s²"}, {ID: "c", Text: "N"}},
			CorrectOptions: []string{"a"},
		}},
		{q: model.Question{
			Type: model.QuestionTypeMultiChoice, Subject: "Fisika", Topic: "Besaran",
			Difficulty: model.DifficultyMedium, Marks: 3,
			Options:        []model.Option{{ID: "a", Text: "Massa"}, {ID: "b", Text: "Gaya"}, {ID: "c", Text: "Waktu"}},
			CorrectOptions: []string{"a", "c"},
		}},
		{q: model.Question{
			Type: model.QuestionTypeText, Subject: "Matematika", Topic: "Aljabar",
			Difficulty: model.DifficultyHard, Marks: 5,
			AcceptedAnswers: []string{"12", "dua belas"},
		}, marks: &bonus},
	}

	batch := &pgx.Batch{}
	for i, sq := range questions {
		q := sq.q
		q.ID = uuid.New()
		batch.Queue(
			`INSERT INTO questions (id, type, subject, topic, difficulty, marks, options, correct_options, accepted_answers)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			q.ID, q.Type, q.Subject, q.Topic, q.Difficulty, q.Marks,
			nonNil(q.Options), nonNil(q.CorrectOptions), nonNil(q.AcceptedAnswers))
		batch.Queue(
			`INSERT INTO exam_questions (exam_id, question_id, position, marks) VALUES ($1, $2, $3, $4)`,
			examID, q.ID, i+1, sq.marks)
	}
	batch.Queue(`INSERT INTO exam_target_rules (exam_id, class_id) VALUES ($1, $2)`, examID, classID)

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		log.Fatal().Err(err).Msg("Failed to insert questions")
	}
	if err := tx.Commit(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to commit seed")
	}

	log.Info().
		Str("exam_id", examID.String()).
		Int("student_id", studentID).
		Int("class_id", classID).
		Msg("Seeded demo exam")
	fmt.Printf("exam_id=%s student_id=%d class_id=%d\n", examID, studentID, classID)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
