// Package timer runs the per-session question countdowns.
//
// Each session code is Idle or Armed. Start moves it to Armed, superseding any armed
// countdown; Clear and natural expiry move it back to Idle. A superseded or cleared
// countdown never reaches the listener.
package timer

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/quizlive/go/internal/realtime/shard"
)

// ErrInvalidDuration is a scheduling fault: countdowns are whole, positive seconds
var ErrInvalidDuration = errors.New("timer duration must be a positive number of seconds")

// ErrEmptySessionCode is returned when Start is called without a session code
var ErrEmptySessionCode = errors.New("timer requires a session code")

type State int

const (
	Idle State = iota
	Armed
)

func (s State) String() string {
	if s == Armed {
		return "armed"
	}
	return "idle"
}

// Listener receives countdown notifications. Calls happen on the timer's own
// goroutine and outside any manager lock, so they may call back into the Manager.
type Listener interface {
	QuestionExpired(sessionCode string, questionIndex int)
	QuestionWarning(sessionCode string, questionIndex, remainingSeconds int)
}

type entry struct {
	gen           uint64
	questionIndex int
	deadline      time.Time
	timer         clockwork.Timer
	warning       clockwork.Timer
	stop          chan struct{}
}

// cancel must be called at most once, by whoever removes the entry from the map
func (e *entry) cancel() {
	stopAndDrainTimer(e.timer)
	if e.warning != nil {
		stopAndDrainTimer(e.warning)
	}
	close(e.stop)
}

type Manager struct {
	clock      clockwork.Clock
	warnBefore time.Duration
	listener   Listener
	timers     *shard.Map[*entry]
	gen        atomic.Uint64
}

// NewManager creates a manager. warnBefore > 0 enables a warning that many seconds
// before expiry for countdowns longer than the warning window.
func NewManager(clock clockwork.Clock, warnBefore time.Duration) *Manager {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Manager{
		clock:      clock,
		warnBefore: warnBefore,
		timers:     shard.New[*entry](shard.DefaultShards),
	}
}

// SetListener registers the expiry listener. It must be called before the first Start.
func (m *Manager) SetListener(l Listener) {
	m.listener = l
}

// Start arms a countdown of seconds for sessionCode, cancelling any armed one first
func (m *Manager) Start(sessionCode string, seconds int, questionIndex int) error {
	if sessionCode == "" {
		return ErrEmptySessionCode
	}
	if seconds <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidDuration, seconds)
	}

	d := time.Duration(seconds) * time.Second
	e := &entry{
		gen:           m.gen.Add(1),
		questionIndex: questionIndex,
		deadline:      m.clock.Now().Add(d),
		timer:         m.clock.NewTimer(d),
		stop:          make(chan struct{}),
	}
	if m.warnBefore > 0 && d > m.warnBefore {
		e.warning = m.clock.NewTimer(d - m.warnBefore)
	}

	m.timers.Do(sessionCode, func(cur *entry, ok bool) (*entry, bool) {
		if ok {
			cur.cancel()
			log.Debug().Str("session_code", sessionCode).Msg("replaced existing question timer")
		}
		return e, true
	})

	go m.wait(sessionCode, e)

	log.Info().
		Str("session_code", sessionCode).
		Int("question_index", questionIndex).
		Time("deadline", e.deadline).
		Dur("duration", d).
		Msg("question timer armed")
	return nil
}

// Clear cancels the armed countdown for sessionCode. It reports whether one was armed.
func (m *Manager) Clear(sessionCode string) bool {
	cleared := false
	m.timers.Do(sessionCode, func(cur *entry, ok bool) (*entry, bool) {
		if ok {
			cur.cancel()
			cleared = true
		}
		return nil, false
	})
	if cleared {
		log.Info().Str("session_code", sessionCode).Msg("question timer cleared")
	}
	return cleared
}

func (m *Manager) State(sessionCode string) State {
	if _, ok := m.timers.Load(sessionCode); ok {
		return Armed
	}
	return Idle
}

// Remaining returns the time left on an armed countdown
func (m *Manager) Remaining(sessionCode string) (time.Duration, bool) {
	e, ok := m.timers.Load(sessionCode)
	if !ok {
		return 0, false
	}
	return e.deadline.Sub(m.clock.Now()), true
}

// Armed returns the number of armed countdowns
func (m *Manager) Armed() int {
	return m.timers.Len()
}

// Stop clears every armed countdown
func (m *Manager) Stop() {
	var codes []string
	m.timers.Range(func(code string, _ *entry) bool {
		codes = append(codes, code)
		return true
	})
	for _, code := range codes {
		m.Clear(code)
	}
}

func (m *Manager) wait(sessionCode string, e *entry) {
	var warnCh <-chan time.Time
	if e.warning != nil {
		warnCh = e.warning.Chan()
	}

	for {
		select {
		case <-warnCh:
			warnCh = nil
			if m.isCurrent(sessionCode, e.gen) && m.listener != nil {
				m.listener.QuestionWarning(sessionCode, e.questionIndex, int(m.warnBefore/time.Second))
			}
		case <-e.timer.Chan():
			if m.expire(sessionCode, e) && m.listener != nil {
				log.Info().
					Str("session_code", sessionCode).
					Int("question_index", e.questionIndex).
					Msg("question timer fired")
				m.listener.QuestionExpired(sessionCode, e.questionIndex)
			}
			return
		case <-e.stop:
			return
		}
	}
}

// expire moves the session back to Idle if e is still its live countdown
func (m *Manager) expire(sessionCode string, e *entry) bool {
	fired := false
	m.timers.Do(sessionCode, func(cur *entry, ok bool) (*entry, bool) {
		if !ok || cur.gen != e.gen {
			return cur, ok
		}
		if e.warning != nil {
			stopAndDrainTimer(e.warning)
		}
		fired = true
		return nil, false
	})
	return fired
}

func (m *Manager) isCurrent(sessionCode string, gen uint64) bool {
	current := false
	m.timers.View(sessionCode, func(cur *entry, ok bool) {
		current = ok && cur.gen == gen
	})
	return current
}

// stopAndDrainTimer stops a timer and drains its channel if it already fired
func stopAndDrainTimer(t clockwork.Timer) {
	if !t.Stop() {
		select {
		case <-t.Chan():
		default:
		}
	}
}
