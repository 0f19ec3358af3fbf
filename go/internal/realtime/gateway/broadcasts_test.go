package gateway

import (
	"sync"
	"testing"
	"time"
)

func TestConcurrentQuestionStartsKeepCountdownInStep(t *testing.T) {
	h := newHarness(t, &fakeSessions{}, HandlerOptions{})
	member := h.connect(t, teamToken(t, "team-a"))
	h.join(t, member, "ABC123")

	const starts = 16
	var wg sync.WaitGroup
	for i := 0; i < starts; i++ {
		wg.Add(1)
		go func(index int) {
			defer wg.Done()
			if err := h.handler.BroadcastQuestionStarted("ABC123", index, *sampleQuestion()); err != nil {
				t.Errorf("BroadcastQuestionStarted(%d) failed: %v", index, err)
			}
		}(i)
	}
	wg.Wait()

	last := -1
	for i := 0; i < starts; i++ {
		f := expectEvent(t, member, EventQuestionStarted)
		var p QuestionStartedPayload
		f.decode(t, &p)
		last = p.QuestionIndex
	}

	if armed := h.timers.Armed(); armed != 1 {
		t.Fatalf("Expected one armed timer, got %d", armed)
	}
	if n := h.handler.progress.len(); n != 0 {
		t.Errorf("Expected session locks to be released, got %d", n)
	}

	h.clock.Advance(20 * time.Second)
	expectEvent(t, member, EventTimeUp)
	ended := expectEvent(t, member, EventQuestionEnded)
	var ep QuestionEndedPayload
	ended.decode(t, &ep)
	if ep.QuestionIndex != last {
		t.Errorf("Expected question:ended for the last announced index %d, got %d", last, ep.QuestionIndex)
	}
	expectNoFrame(t, member)
}

func TestSessionEndedAfterStartLeavesNoCountdown(t *testing.T) {
	h := newHarness(t, &fakeSessions{}, HandlerOptions{})
	member := h.connect(t, teamToken(t, "team-a"))
	h.join(t, member, "ABC123")

	if err := h.handler.BroadcastQuestionStarted("ABC123", 0, *sampleQuestion()); err != nil {
		t.Fatalf("BroadcastQuestionStarted failed: %v", err)
	}
	h.handler.BroadcastSessionEnded("ABC123")

	expectEvent(t, member, EventQuestionStarted)
	expectEvent(t, member, EventSessionEnded)
	if armed := h.timers.Armed(); armed != 0 {
		t.Errorf("Expected no armed timer, got %d", armed)
	}

	h.clock.Advance(20 * time.Second)
	expectNoFrame(t, member)
}

func TestSessionLocksSerializePerCode(t *testing.T) {
	locks := newSessionLocks()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		maxSeen int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.lock("ABC123")
			defer unlock()

			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
		}()
	}
	wg.Wait()

	if maxSeen != 1 {
		t.Errorf("Expected one holder at a time, saw %d", maxSeen)
	}
	if n := locks.len(); n != 0 {
		t.Errorf("Expected no retained locks, got %d", n)
	}

	// Other codes are not blocked by a held lock
	unlock := locks.lock("ABC123")
	done := make(chan struct{})
	go func() {
		locks.lock("XYZ789")()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Expected an unrelated session code to lock independently")
	}
	unlock()
}
