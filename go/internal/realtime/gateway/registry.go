package gateway

import (
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/quizlive/go/internal/realtime/shard"
)

type members map[*Connection]struct{}

// Registry tracks which connections are in which session room.
// A connection is in at most one room; joining another room moves it.
type Registry struct {
	rooms *shard.Map[members]
}

func NewRegistry() *Registry {
	return &Registry{rooms: shard.New[members](shard.DefaultShards)}
}

// Add puts c in the room for sessionCode, leaving any room it was in before
func (r *Registry) Add(sessionCode string, c *Connection) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if prev := c.room; prev != "" && prev != sessionCode {
		r.removeFrom(prev, c)
		log.Debug().
			Str("connection_id", c.ID).
			Str("from", prev).
			Str("to", sessionCode).
			Msg("connection moved between rooms")
	}
	c.room = sessionCode

	r.rooms.Do(sessionCode, func(m members, ok bool) (members, bool) {
		if !ok {
			m = make(members)
		}
		m[c] = struct{}{}
		return m, true
	})
}

// Remove takes c out of whichever room it is in. It returns that room, or "" if none.
func (r *Registry) Remove(c *Connection) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	room := c.room
	if room == "" {
		return ""
	}
	c.room = ""
	r.removeFrom(room, c)
	return room
}

func (r *Registry) removeFrom(sessionCode string, c *Connection) {
	r.rooms.Do(sessionCode, func(m members, ok bool) (members, bool) {
		if !ok {
			return nil, false
		}
		delete(m, c)
		return m, len(m) > 0
	})
}

// Broadcast delivers an event to every current member of the room and returns the
// number of members it was queued for. An empty room is a no-op.
func (r *Registry) Broadcast(sessionCode, event string, data any) int {
	targets := r.snapshot(sessionCode)
	if len(targets) == 0 {
		return 0
	}

	msg, err := encodeEnvelope(event, data)
	if err != nil {
		log.Error().Err(err).Str("session_code", sessionCode).Msg("failed to marshal event for broadcast")
		return 0
	}

	delivered := 0
	for _, c := range targets {
		if c.enqueue(msg) {
			delivered++
		}
	}

	log.Debug().
		Str("event", event).
		Str("session_code", sessionCode).
		Int("connections", delivered).
		Msg("event broadcasted")
	return delivered
}

func (r *Registry) snapshot(sessionCode string) []*Connection {
	var targets []*Connection
	r.rooms.View(sessionCode, func(m members, ok bool) {
		if !ok {
			return
		}
		targets = make([]*Connection, 0, len(m))
		for c := range m {
			targets = append(targets, c)
		}
	})
	return targets
}

// MemberCount returns the number of connections in a room
func (r *Registry) MemberCount(sessionCode string) int {
	n := 0
	r.rooms.View(sessionCode, func(m members, _ bool) {
		n = len(m)
	})
	return n
}

// RoomCount returns the number of non-empty rooms
func (r *Registry) RoomCount() int {
	return r.rooms.Len()
}

// RoomSizes returns member counts keyed by session code
func (r *Registry) RoomSizes() map[string]int {
	sizes := make(map[string]int)
	r.rooms.Range(func(code string, m members) bool {
		sizes[code] = len(m)
		return true
	})
	return sizes
}
