package gateway

import (
	"fmt"
	"sync"
	"testing"

	"github.com/mcdev12/quizlive/go/internal/auth"
)

func testConn(id string) *Connection {
	return newConnection(nil, auth.Identity{ID: id, Domain: auth.DomainTeam}, auth.Handshake{}, DefaultConnectionConfig())
}

func TestRegistryAddAndBroadcast(t *testing.T) {
	r := NewRegistry()
	a := testConn("a")
	b := testConn("b")
	r.Add("ABC123", a)
	r.Add("ABC123", b)

	if n := r.Broadcast("ABC123", EventSessionStarted, SessionLifecyclePayload{SessionCode: "ABC123"}); n != 2 {
		t.Errorf("Expected delivery to 2 connections, got %d", n)
	}
	expectEvent(t, a, EventSessionStarted)
	expectEvent(t, b, EventSessionStarted)
}

func TestRegistryBroadcastEmptyRoom(t *testing.T) {
	r := NewRegistry()
	if n := r.Broadcast("NOBODY", EventTimeUp, TimeUpPayload{SessionCode: "NOBODY"}); n != 0 {
		t.Errorf("Expected no deliveries, got %d", n)
	}
	if r.RoomCount() != 0 {
		t.Errorf("Expected broadcast not to create a room")
	}
}

func TestRegistryJoinMovesBetweenRooms(t *testing.T) {
	r := NewRegistry()
	c := testConn("a")

	r.Add("ROOM-A", c)
	r.Add("ROOM-B", c)

	if c.Room() != "ROOM-B" {
		t.Errorf("Expected room ROOM-B, got %q", c.Room())
	}
	if r.MemberCount("ROOM-A") != 0 {
		t.Errorf("Expected the connection to leave ROOM-A")
	}
	if r.RoomCount() != 1 {
		t.Errorf("Expected the empty room to be dropped, got %d rooms", r.RoomCount())
	}

	// Joining the same room again is a no-op
	r.Add("ROOM-B", c)
	if r.MemberCount("ROOM-B") != 1 {
		t.Errorf("Expected 1 member, got %d", r.MemberCount("ROOM-B"))
	}
}

func TestRegistryRemoveIsIdempotent(t *testing.T) {
	r := NewRegistry()
	c := testConn("a")

	if room := r.Remove(c); room != "" {
		t.Errorf("Expected no room for an unregistered connection, got %q", room)
	}

	r.Add("ABC123", c)
	if room := r.Remove(c); room != "ABC123" {
		t.Errorf("Expected ABC123, got %q", room)
	}
	if room := r.Remove(c); room != "" {
		t.Errorf("Expected second remove to be a no-op, got %q", room)
	}
	if r.RoomCount() != 0 {
		t.Errorf("Expected no rooms, got %d", r.RoomCount())
	}
}

func TestRegistrySkipsClosedConnections(t *testing.T) {
	r := NewRegistry()
	open := testConn("open")
	closed := testConn("closed")
	r.Add("ABC123", open)
	r.Add("ABC123", closed)
	closed.Close()

	if n := r.Broadcast("ABC123", EventTimeUp, TimeUpPayload{SessionCode: "ABC123"}); n != 1 {
		t.Errorf("Expected delivery to 1 connection, got %d", n)
	}
}

func TestRegistryClosesSlowConsumer(t *testing.T) {
	r := NewRegistry()
	cfg := DefaultConnectionConfig()
	cfg.SendBufferSize = 1
	slow := newConnection(nil, auth.Identity{ID: "slow"}, auth.Handshake{}, cfg)
	r.Add("ABC123", slow)

	r.Broadcast("ABC123", EventTimeUp, TimeUpPayload{SessionCode: "ABC123"})
	r.Broadcast("ABC123", EventTimeUp, TimeUpPayload{SessionCode: "ABC123"})

	if !slow.Closed() {
		t.Errorf("Expected a connection with a full send queue to be closed")
	}
}

func TestRegistryBroadcastOrderPerCaller(t *testing.T) {
	r := NewRegistry()
	c := testConn("a")
	r.Add("ABC123", c)

	for i := 0; i < 10; i++ {
		r.Broadcast("ABC123", EventQuestionEnded, QuestionEndedPayload{SessionCode: "ABC123", QuestionIndex: i})
	}
	for i := 0; i < 10; i++ {
		f := expectEvent(t, c, EventQuestionEnded)
		var p QuestionEndedPayload
		f.decode(t, &p)
		if p.QuestionIndex != i {
			t.Fatalf("Expected question index %d, got %d", i, p.QuestionIndex)
		}
	}
}

func TestRegistryConcurrentUse(t *testing.T) {
	r := NewRegistry()
	const rooms = 8
	const perRoom = 25

	var wg sync.WaitGroup
	conns := make([]*Connection, 0, rooms*perRoom)
	for i := 0; i < rooms*perRoom; i++ {
		conns = append(conns, testConn(fmt.Sprintf("c%d", i)))
	}
	for i, c := range conns {
		wg.Add(1)
		go func(i int, c *Connection) {
			defer wg.Done()
			code := fmt.Sprintf("ROOM-%d", i%rooms)
			r.Add(code, c)
			r.Broadcast(code, EventTimeUp, TimeUpPayload{SessionCode: code})
		}(i, c)
	}
	wg.Wait()

	if r.RoomCount() != rooms {
		t.Fatalf("Expected %d rooms, got %d", rooms, r.RoomCount())
	}
	for code, n := range r.RoomSizes() {
		if n != perRoom {
			t.Errorf("Expected %d members in %s, got %d", perRoom, code, n)
		}
	}

	for i, c := range conns {
		if i%2 == 0 {
			wg.Add(1)
			go func(c *Connection) {
				defer wg.Done()
				r.Remove(c)
			}(c)
		}
	}
	wg.Wait()

	total := 0
	for _, n := range r.RoomSizes() {
		total += n
	}
	if total != len(conns)/2 {
		t.Errorf("Expected %d members after removals, got %d", len(conns)/2, total)
	}
}
