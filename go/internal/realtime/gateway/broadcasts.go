package gateway

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/quizlive/go/internal/quiz"
)

func (h *Handler) now() string {
	return formatTimestamp(h.clock.Now())
}

func (h *Handler) BroadcastSessionStarted(sessionCode string) {
	h.rooms.Broadcast(sessionCode, EventSessionStarted, SessionLifecyclePayload{
		SessionCode: sessionCode,
		Timestamp:   h.now(),
	})
	log.Debug().Str("session_code", sessionCode).Msg("session started")
}

// BroadcastSessionEnded clears the session's countdown before announcing the end,
// so no time:up follows session:ended
func (h *Handler) BroadcastSessionEnded(sessionCode string) {
	unlock := h.progress.lock(sessionCode)
	defer unlock()

	h.timers.Clear(sessionCode)
	h.rooms.Broadcast(sessionCode, EventSessionEnded, SessionLifecyclePayload{
		SessionCode: sessionCode,
		Timestamp:   h.now(),
	})
	log.Debug().Str("session_code", sessionCode).Msg("session ended")
}

// BroadcastQuestionStarted validates q, announces it and arms a countdown for its time limit.
// Concurrent starts for one session leave the countdown matching the last announced question.
func (h *Handler) BroadcastQuestionStarted(sessionCode string, questionIndex int, q quiz.Question) error {
	if err := q.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidQuestionData, err)
	}

	unlock := h.progress.lock(sessionCode)
	defer unlock()

	h.rooms.Broadcast(sessionCode, EventQuestionStarted, QuestionStartedPayload{
		SessionCode:   sessionCode,
		QuestionIndex: questionIndex,
		Question:      q,
	})
	log.Debug().
		Str("session_code", sessionCode).
		Str("question_id", q.ID).
		Int("question_index", questionIndex).
		Msg("question started")

	if err := h.timers.Start(sessionCode, q.TimeLimitSec, questionIndex); err != nil {
		// Validate guarantees a positive limit, so this is a programming error
		log.Error().Err(err).Str("session_code", sessionCode).Msg("failed to arm question timer")
	}
	return nil
}

func (h *Handler) BroadcastQuestionTimeWarning(sessionCode string, questionIndex, remainingSeconds int) {
	h.rooms.Broadcast(sessionCode, EventQuestionTimeWarning, QuestionTimeWarningPayload{
		SessionCode:      sessionCode,
		QuestionIndex:    questionIndex,
		RemainingSeconds: remainingSeconds,
	})
}

func (h *Handler) BroadcastQuestionEnded(sessionCode string, questionIndex int) {
	h.rooms.Broadcast(sessionCode, EventQuestionEnded, QuestionEndedPayload{
		SessionCode:   sessionCode,
		QuestionIndex: questionIndex,
		Timestamp:     h.now(),
	})
}

func (h *Handler) BroadcastAnswerSubmitted(sessionCode, teamID string) {
	h.rooms.Broadcast(sessionCode, EventAnswerSubmitted, AnswerSubmittedPayload{
		SessionCode: sessionCode,
		TeamID:      teamID,
		Timestamp:   h.now(),
	})
}

func (h *Handler) BroadcastAnswerStatsUpdated(sessionCode string, stats quiz.AnswerStats) {
	h.rooms.Broadcast(sessionCode, EventAnswerStatsUpdated, AnswerStatsPayload{
		SessionCode: sessionCode,
		Stats:       stats,
	})
}

func (h *Handler) BroadcastScoreboardUpdated(sessionCode string, leaderboard []quiz.LeaderboardEntry) {
	if leaderboard == nil {
		leaderboard = []quiz.LeaderboardEntry{}
	}
	h.rooms.Broadcast(sessionCode, EventScoreboardUpdated, ScoreboardPayload{
		SessionCode: sessionCode,
		Leaderboard: leaderboard,
		Timestamp:   h.now(),
	})
}
