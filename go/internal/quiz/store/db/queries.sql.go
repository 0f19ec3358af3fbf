package db

import (
	"context"
	"database/sql"

	"github.com/sqlc-dev/pqtype"
)

const getSession = `-- name: GetSession :one
SELECT code, title, status, current_index, started_at, ended_at, created_at, updated_at
FROM quiz_sessions
WHERE code = $1
`

func (q *Queries) GetSession(ctx context.Context, code string) (QuizSession, error) {
	row := q.db.QueryRowContext(ctx, getSession, code)
	var i QuizSession
	err := row.Scan(
		&i.Code,
		&i.Title,
		&i.Status,
		&i.CurrentIndex,
		&i.StartedAt,
		&i.EndedAt,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getSessionForUpdate = `-- name: GetSessionForUpdate :one
SELECT code, title, status, current_index, started_at, ended_at, created_at, updated_at
FROM quiz_sessions
WHERE code = $1
FOR UPDATE
`

func (q *Queries) GetSessionForUpdate(ctx context.Context, code string) (QuizSession, error) {
	row := q.db.QueryRowContext(ctx, getSessionForUpdate, code)
	var i QuizSession
	err := row.Scan(
		&i.Code,
		&i.Title,
		&i.Status,
		&i.CurrentIndex,
		&i.StartedAt,
		&i.EndedAt,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const countQuestions = `-- name: CountQuestions :one
SELECT count(*) FROM quiz_questions WHERE session_code = $1
`

func (q *Queries) CountQuestions(ctx context.Context, sessionCode string) (int64, error) {
	row := q.db.QueryRowContext(ctx, countQuestions, sessionCode)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const getQuestionAt = `-- name: GetQuestionAt :one
SELECT session_code, position, id, text, type, choices, time_limit_sec, points
FROM quiz_questions
WHERE session_code = $1 AND position = $2
`

type GetQuestionAtParams struct {
	SessionCode string
	Position    int32
}

func (q *Queries) GetQuestionAt(ctx context.Context, arg GetQuestionAtParams) (QuizQuestion, error) {
	row := q.db.QueryRowContext(ctx, getQuestionAt, arg.SessionCode, arg.Position)
	var i QuizQuestion
	err := row.Scan(
		&i.SessionCode,
		&i.Position,
		&i.ID,
		&i.Text,
		&i.Type,
		&i.Choices,
		&i.TimeLimitSec,
		&i.Points,
	)
	return i, err
}

const updateSessionProgress = `-- name: UpdateSessionProgress :exec
UPDATE quiz_sessions
SET current_index = $2,
    status = $3,
    started_at = COALESCE(started_at, $4),
    ended_at = $5,
    updated_at = now()
WHERE code = $1
`

type UpdateSessionProgressParams struct {
	Code         string
	CurrentIndex int32
	Status       string
	StartedAt    sql.NullTime
	EndedAt      sql.NullTime
}

func (q *Queries) UpdateSessionProgress(ctx context.Context, arg UpdateSessionProgressParams) error {
	_, err := q.db.ExecContext(ctx, updateSessionProgress,
		arg.Code,
		arg.CurrentIndex,
		arg.Status,
		arg.StartedAt,
		arg.EndedAt,
	)
	return err
}

const upsertSession = `-- name: UpsertSession :exec
INSERT INTO quiz_sessions (code, title)
VALUES ($1, $2)
ON CONFLICT (code) DO UPDATE
SET title = EXCLUDED.title,
    status = 'PENDING',
    current_index = -1,
    started_at = NULL,
    ended_at = NULL,
    updated_at = now()
`

type UpsertSessionParams struct {
	Code  string
	Title string
}

func (q *Queries) UpsertSession(ctx context.Context, arg UpsertSessionParams) error {
	_, err := q.db.ExecContext(ctx, upsertSession, arg.Code, arg.Title)
	return err
}

const deleteQuestions = `-- name: DeleteQuestions :exec
DELETE FROM quiz_questions WHERE session_code = $1
`

func (q *Queries) DeleteQuestions(ctx context.Context, sessionCode string) error {
	_, err := q.db.ExecContext(ctx, deleteQuestions, sessionCode)
	return err
}

const insertQuestion = `-- name: InsertQuestion :exec
INSERT INTO quiz_questions (session_code, position, id, text, type, choices, time_limit_sec, points)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`

type InsertQuestionParams struct {
	SessionCode  string
	Position     int32
	ID           string
	Text         string
	Type         string
	Choices      pqtype.NullRawMessage
	TimeLimitSec int32
	Points       int32
}

func (q *Queries) InsertQuestion(ctx context.Context, arg InsertQuestionParams) error {
	_, err := q.db.ExecContext(ctx, insertQuestion,
		arg.SessionCode,
		arg.Position,
		arg.ID,
		arg.Text,
		arg.Type,
		arg.Choices,
		arg.TimeLimitSec,
		arg.Points,
	)
	return err
}
