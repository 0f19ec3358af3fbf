// Package store is the Postgres-backed session service.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sqlc-dev/pqtype"

	"github.com/mcdev12/quizlive/go/internal/quiz"
	"github.com/mcdev12/quizlive/go/internal/quiz/store/db"
	"github.com/mcdev12/quizlive/go/internal/sqlutil"
)

//go:embed schema/schema.sql
var schemaSQL string

// FinishedMessage is reported once a session has no questions left
const FinishedMessage = "Quiz completed"

// Session lifecycle as persisted in quiz_sessions.status
const (
	StatusPending    = "PENDING"
	StatusInProgress = "IN_PROGRESS"
	StatusFinished   = "FINISHED"
)

type Repository struct {
	db      *sql.DB
	queries *db.Queries
	now     func() time.Time
}

var _ quiz.SessionService = (*Repository)(nil)

func NewRepository(conn *sql.DB) *Repository {
	return &Repository{
		db:      conn,
		queries: db.New(conn),
		now:     time.Now,
	}
}

// EnsureSchema creates the quiz tables if they do not exist
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create quiz schema: %w", err)
	}
	return nil
}

func (r *Repository) CurrentQuestion(ctx context.Context, sessionCode string) (*quiz.Question, error) {
	session, err := r.queries.GetSession(ctx, sessionCode)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", quiz.ErrSessionNotFound, sessionCode)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session.CurrentIndex < 0 || session.Status == StatusFinished {
		return nil, nil
	}

	row, err := r.queries.GetQuestionAt(ctx, db.GetQuestionAtParams{
		SessionCode: sessionCode,
		Position:    session.CurrentIndex,
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get current question: %w", err)
	}
	return toQuestion(row)
}

// NextQuestion advances the session inside one transaction, holding the session row lock
func (r *Repository) NextQuestion(ctx context.Context, sessionCode string) (*quiz.AdvanceResult, error) {
	var result *quiz.AdvanceResult

	err := sqlutil.Run(ctx, r.db, r.queries.WithTx, func(q *db.Queries) error {
		session, err := q.GetSessionForUpdate(ctx, sessionCode)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s", quiz.ErrSessionNotFound, sessionCode)
		}
		if err != nil {
			return fmt.Errorf("failed to lock session: %w", err)
		}

		count, err := q.CountQuestions(ctx, sessionCode)
		if err != nil {
			return fmt.Errorf("failed to count questions: %w", err)
		}
		total := int(count)
		next := int(session.CurrentIndex) + 1
		now := r.now()

		if session.Status == StatusFinished || next >= total {
			err := q.UpdateSessionProgress(ctx, db.UpdateSessionProgressParams{
				Code:         sessionCode,
				CurrentIndex: int32(total),
				Status:       StatusFinished,
				StartedAt:    sqlutil.ToSqlTime(&now),
				EndedAt:      sqlutil.ToSqlTime(&now),
			})
			if err != nil {
				return fmt.Errorf("failed to finish session: %w", err)
			}
			result = &quiz.AdvanceResult{
				Finished:       true,
				TotalQuestions: quiz.IntPtr(total),
				Message:        FinishedMessage,
			}
			return nil
		}

		row, err := q.GetQuestionAt(ctx, db.GetQuestionAtParams{SessionCode: sessionCode, Position: int32(next)})
		if err != nil {
			return fmt.Errorf("failed to get question %d: %w", next, err)
		}
		question, err := toQuestion(row)
		if err != nil {
			return err
		}

		err = q.UpdateSessionProgress(ctx, db.UpdateSessionProgressParams{
			Code:         sessionCode,
			CurrentIndex: int32(next),
			Status:       StatusInProgress,
			StartedAt:    sqlutil.ToSqlTime(&now),
		})
		if err != nil {
			return fmt.Errorf("failed to update session progress: %w", err)
		}

		result = &quiz.AdvanceResult{
			Finished:             false,
			CurrentQuestionIndex: quiz.IntPtr(next),
			TotalQuestions:       quiz.IntPtr(total),
			Question:             question,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// SeedSession replaces a session and its questions, resetting progress
func (r *Repository) SeedSession(ctx context.Context, code, title string, questions []quiz.Question) error {
	return sqlutil.Run(ctx, r.db, r.queries.WithTx, func(q *db.Queries) error {
		if err := q.UpsertSession(ctx, db.UpsertSessionParams{Code: code, Title: title}); err != nil {
			return fmt.Errorf("failed to upsert session %s: %w", code, err)
		}
		if err := q.DeleteQuestions(ctx, code); err != nil {
			return fmt.Errorf("failed to clear questions for %s: %w", code, err)
		}
		for i := range questions {
			params, err := toInsertParams(code, i, questions[i])
			if err != nil {
				return err
			}
			if err := q.InsertQuestion(ctx, params); err != nil {
				return fmt.Errorf("failed to insert question %s: %w", questions[i].ID, err)
			}
		}
		return nil
	})
}

// toQuestion converts a stored row into the wire schema and validates it
func toQuestion(row db.QuizQuestion) (*quiz.Question, error) {
	q := &quiz.Question{
		ID:           row.ID,
		Text:         row.Text,
		Type:         quiz.QuestionType(strings.ToLower(row.Type)),
		TimeLimitSec: int(row.TimeLimitSec),
		Points:       int(row.Points),
	}
	if row.Choices.Valid && len(row.Choices.RawMessage) > 0 {
		if err := json.Unmarshal(row.Choices.RawMessage, &q.Choices); err != nil {
			return nil, fmt.Errorf("%w: question %s has malformed choices: %v", quiz.ErrInvalidQuestion, row.ID, err)
		}
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}
	return q, nil
}

func toInsertParams(code string, position int, q quiz.Question) (db.InsertQuestionParams, error) {
	if err := q.Validate(); err != nil {
		return db.InsertQuestionParams{}, err
	}
	var choices pqtype.NullRawMessage
	if len(q.Choices) > 0 {
		raw, err := json.Marshal(q.Choices)
		if err != nil {
			return db.InsertQuestionParams{}, fmt.Errorf("failed to encode choices: %w", err)
		}
		choices = pqtype.NullRawMessage{RawMessage: raw, Valid: true}
	}
	return db.InsertQuestionParams{
		SessionCode:  code,
		Position:     int32(position),
		ID:           q.ID,
		Text:         q.Text,
		Type:         string(q.Type),
		Choices:      choices,
		TimeLimitSec: int32(q.TimeLimitSec),
		Points:       int32(q.Points),
	}, nil
}
