// Package cache adds a Redis read-through cache in front of a session service.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/quizlive/go/internal/quiz"
)

const DefaultTTL = 30 * time.Second

// noQuestion marks a cached "no active question" answer
const noQuestion = "null"

// QuestionCache caches CurrentQuestion per session and refreshes it on NextQuestion.
// Redis failures are logged and fall through to the wrapped service.
type QuestionCache struct {
	next   quiz.SessionService
	client redis.Cmdable
	ttl    time.Duration
}

var _ quiz.SessionService = (*QuestionCache)(nil)

func NewQuestionCache(next quiz.SessionService, client redis.Cmdable, ttl time.Duration) *QuestionCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &QuestionCache{next: next, client: client, ttl: ttl}
}

func key(sessionCode string) string {
	return "quiz:session:" + sessionCode + ":current"
}

func (c *QuestionCache) CurrentQuestion(ctx context.Context, sessionCode string) (*quiz.Question, error) {
	data, err := c.client.Get(ctx, key(sessionCode)).Result()
	switch {
	case err == nil:
		if data == noQuestion {
			return nil, nil
		}
		var q quiz.Question
		if err := json.Unmarshal([]byte(data), &q); err == nil {
			return &q, nil
		}
		log.Warn().Str("session_code", sessionCode).Msg("discarding malformed cached question")
	case errors.Is(err, redis.Nil):
	default:
		log.Warn().Err(err).Str("session_code", sessionCode).Msg("question cache read failed")
	}

	q, err := c.next.CurrentQuestion(ctx, sessionCode)
	if err != nil {
		return nil, err
	}
	c.store(ctx, sessionCode, q)
	return q, nil
}

func (c *QuestionCache) NextQuestion(ctx context.Context, sessionCode string) (*quiz.AdvanceResult, error) {
	res, err := c.next.NextQuestion(ctx, sessionCode)
	if err != nil {
		c.Invalidate(ctx, sessionCode)
		return nil, err
	}
	if res.Finished || res.Question == nil {
		c.store(ctx, sessionCode, nil)
	} else {
		c.store(ctx, sessionCode, res.Question)
	}
	return res, nil
}

// Invalidate drops the cached question for a session
func (c *QuestionCache) Invalidate(ctx context.Context, sessionCode string) {
	if err := c.client.Del(ctx, key(sessionCode)).Err(); err != nil {
		log.Warn().Err(err).Str("session_code", sessionCode).Msg("question cache invalidate failed")
	}
}

func (c *QuestionCache) store(ctx context.Context, sessionCode string, q *quiz.Question) {
	data := []byte(noQuestion)
	if q != nil {
		var err error
		if data, err = json.Marshal(q); err != nil {
			return
		}
	}
	if err := c.client.Set(ctx, key(sessionCode), data, c.ttl).Err(); err != nil {
		log.Warn().Err(err).Str("session_code", sessionCode).Msg("question cache write failed")
	}
}
