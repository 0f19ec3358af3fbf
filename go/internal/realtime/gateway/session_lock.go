package gateway

import (
	"sync"

	"github.com/mcdev12/quizlive/go/internal/realtime/shard"
)

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// sessionLocks hands out one mutex per session code. Entries are dropped once no
// caller holds or waits on them.
type sessionLocks struct {
	m *shard.Map[*sessionLock]
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{m: shard.New[*sessionLock](0)}
}

// lock blocks until the session's mutex is held and returns its release func
func (l *sessionLocks) lock(sessionCode string) func() {
	var sl *sessionLock
	l.m.Do(sessionCode, func(cur *sessionLock, ok bool) (*sessionLock, bool) {
		if !ok {
			cur = &sessionLock{}
		}
		cur.refs++
		sl = cur
		return cur, true
	})

	sl.mu.Lock()
	return func() {
		sl.mu.Unlock()
		l.m.Do(sessionCode, func(cur *sessionLock, ok bool) (*sessionLock, bool) {
			cur.refs--
			return cur, cur.refs > 0
		})
	}
}

func (l *sessionLocks) len() int {
	return l.m.Len()
}
