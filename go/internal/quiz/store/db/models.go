package db

import (
	"database/sql"
	"time"

	"github.com/sqlc-dev/pqtype"
)

type QuizSession struct {
	Code         string
	Title        string
	Status       string
	CurrentIndex int32
	StartedAt    sql.NullTime
	EndedAt      sql.NullTime
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type QuizQuestion struct {
	SessionCode  string
	Position     int32
	ID           string
	Text         string
	Type         string
	Choices      pqtype.NullRawMessage
	TimeLimitSec int32
	Points       int32
}
