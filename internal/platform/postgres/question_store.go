package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/lectern-api/internal/domain"
	"github.com/phrazzld/lectern-api/internal/platform/logger"
	"github.com/phrazzld/lectern-api/internal/store"
)

// PostgresQuestionStore implements the store.QuestionStore interface
// using a PostgreSQL database as the storage backend.
type PostgresQuestionStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresQuestionStore creates a new PostgreSQL implementation of the
// QuestionStore interface.
func NewPostgresQuestionStore(db store.DBTX, logger *slog.Logger) *PostgresQuestionStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresQuestionStore{
		db:     db,
		logger: logger.With(slog.String("component", "question_store")),
	}
}

// Ensure PostgresQuestionStore implements store.QuestionStore interface
var _ store.QuestionStore = (*PostgresQuestionStore)(nil)

// WithTx implements store.QuestionStore.WithTx
func (s *PostgresQuestionStore) WithTx(tx *sql.Tx) store.QuestionStore {
	return &PostgresQuestionStore{
		db:     tx,
		logger: s.logger,
	}
}

// CreateBatch implements store.QuestionStore.CreateBatch
func (s *PostgresQuestionStore) CreateBatch(ctx context.Context, questions []*domain.QuizQuestion) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if len(questions) == 0 {
		return nil
	}

	query := `
		INSERT INTO quiz_questions (id, job_id, question, question_type, answer, context, max_score, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	for _, q := range questions {
		if err := q.Validate(); err != nil {
			log.Warn("question validation failed during create",
				slog.String("error", err.Error()),
				slog.String("question_id", q.ID.String()))
			return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
		}

		_, err := s.db.ExecContext(
			ctx,
			query,
			q.ID,
			q.JobID,
			q.Question,
			q.QuestionType,
			[]byte(q.Answer),
			q.Context,
			q.MaxScore,
			q.CreatedAt,
		)
		if err != nil {
			if IsForeignKeyViolation(err) {
				return fmt.Errorf("%w: job with ID %s not found",
					store.ErrInvalidEntity, q.JobID)
			}

			log.Error("failed to create quiz question",
				slog.String("error", err.Error()),
				slog.String("question_id", q.ID.String()),
				slog.String("job_id", q.JobID.String()))
			return err
		}
	}

	log.Info("quiz questions created",
		slog.Int("count", len(questions)),
		slog.String("job_id", questions[0].JobID.String()))
	return nil
}

// FindByJobID implements store.QuestionStore.FindByJobID
func (s *PostgresQuestionStore) FindByJobID(ctx context.Context, jobID uuid.UUID) ([]*domain.QuizQuestion, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, job_id, question, question_type, answer, context, max_score, created_at
		FROM quiz_questions
		WHERE job_id = $1
		ORDER BY created_at
	`

	rows, err := s.db.QueryContext(ctx, query, jobID)
	if err != nil {
		log.Error("failed to query quiz questions",
			slog.String("error", err.Error()),
			slog.String("job_id", jobID.String()))
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	questions := make([]*domain.QuizQuestion, 0)
	for rows.Next() {
		var (
			q        domain.QuizQuestion
			answer   []byte
			qContext sql.NullString
		)
		err := rows.Scan(
			&q.ID,
			&q.JobID,
			&q.Question,
			&q.QuestionType,
			&answer,
			&qContext,
			&q.MaxScore,
			&q.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		q.Answer = answer
		if qContext.Valid {
			q.Context = &qContext.String
		}
		questions = append(questions, &q)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return questions, nil
}

// DeleteByJobID implements store.QuestionStore.DeleteByJobID
func (s *PostgresQuestionStore) DeleteByJobID(ctx context.Context, jobID uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	_, err := s.db.ExecContext(ctx, `DELETE FROM quiz_questions WHERE job_id = $1`, jobID)
	if err != nil {
		log.Error("failed to delete quiz questions",
			slog.String("error", err.Error()),
			slog.String("job_id", jobID.String()))
		return err
	}

	return nil
}
