package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcdev12/quizlive/go/internal/quiz"
)

type stubService struct {
	current      *quiz.Question
	advance      *quiz.AdvanceResult
	err          error
	currentCalls int
}

func (s *stubService) CurrentQuestion(ctx context.Context, code string) (*quiz.Question, error) {
	s.currentCalls++
	return s.current, s.err
}

func (s *stubService) NextQuestion(ctx context.Context, code string) (*quiz.AdvanceResult, error) {
	return s.advance, s.err
}

// unreachableRedis returns a client whose every command fails fast
func unreachableRedis() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
}

func TestCacheFallsThroughWhenRedisIsDown(t *testing.T) {
	client := unreachableRedis()
	defer client.Close()

	svc := &stubService{current: &quiz.Question{ID: "q1", Text: "?", Type: quiz.QuestionTypeText, TimeLimitSec: 10}}
	c := NewQuestionCache(svc, client, time.Minute)

	q, err := c.CurrentQuestion(context.Background(), "ABC123")
	if err != nil {
		t.Fatalf("CurrentQuestion() failed: %v", err)
	}
	if q == nil || q.ID != "q1" {
		t.Errorf("Expected q1 from the wrapped service, got %+v", q)
	}
	if svc.currentCalls != 1 {
		t.Errorf("Expected 1 upstream call, got %d", svc.currentCalls)
	}
}

func TestCachePropagatesUpstreamErrors(t *testing.T) {
	client := unreachableRedis()
	defer client.Close()

	boom := errors.New("boom")
	c := NewQuestionCache(&stubService{err: boom}, client, 0)

	if _, err := c.CurrentQuestion(context.Background(), "ABC123"); !errors.Is(err, boom) {
		t.Errorf("Expected upstream error, got %v", err)
	}
	if _, err := c.NextQuestion(context.Background(), "ABC123"); !errors.Is(err, boom) {
		t.Errorf("Expected upstream error, got %v", err)
	}
}

func TestNextQuestionPassesResultThrough(t *testing.T) {
	client := unreachableRedis()
	defer client.Close()

	want := &quiz.AdvanceResult{Finished: true, Message: "done"}
	c := NewQuestionCache(&stubService{advance: want}, client, 0)

	got, err := c.NextQuestion(context.Background(), "ABC123")
	if err != nil {
		t.Fatalf("NextQuestion() failed: %v", err)
	}
	if got != want {
		t.Errorf("Expected the wrapped result, got %+v", got)
	}
}

func TestKeyFormat(t *testing.T) {
	if got := key("ABC123"); got != "quiz:session:ABC123:current" {
		t.Errorf("Unexpected cache key %q", got)
	}
}
