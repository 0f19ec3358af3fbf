package gateway

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mcdev12/quizlive/go/internal/quiz"
	"github.com/mcdev12/quizlive/go/internal/quiz/memory"
)

func newTestServer(t *testing.T, sessions quiz.SessionService) (*Service, *httptest.Server) {
	t.Helper()
	cfg := DefaultConfig()
	cfg.WarningBefore = 0
	svc, err := NewService(testContext(t), cfg, sessions, testVerifier())
	if err != nil {
		t.Fatalf("NewService() failed: %v", err)
	}
	mux := http.NewServeMux()
	svc.RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(func() {
		srv.Close()
		svc.Stop()
	})
	return svc, srv
}

func wsURL(srv *httptest.Server, query string) string {
	u := "ws" + strings.TrimPrefix(srv.URL, "http") + "/realtime"
	if query != "" {
		u += "?" + query
	}
	return u
}

func dial(t *testing.T, url string, header http.Header) *websocket.Conn {
	t.Helper()
	ws, resp, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		t.Fatalf("Dial() failed (status %d): %v", status, err)
	}
	t.Cleanup(func() { ws.Close() })
	return ws
}

func writeEvent(t *testing.T, ws *websocket.Conn, event, code string) {
	t.Helper()
	msg := map[string]any{"event": event, "data": SessionRequest{SessionCode: code}}
	if err := ws.WriteJSON(msg); err != nil {
		t.Fatalf("WriteJSON() failed: %v", err)
	}
}

func readEvent(t *testing.T, ws *websocket.Conn, event string) frame {
	t.Helper()
	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	var f frame
	if err := ws.ReadJSON(&f); err != nil {
		t.Fatalf("ReadJSON() waiting for %s failed: %v", event, err)
	}
	if f.Event != event {
		t.Fatalf("Expected event %q, got %q (%s)", event, f.Event, f.Data)
	}
	return f
}

func TestWebSocketRejectsMissingToken(t *testing.T) {
	_, srv := newTestServer(t, memory.NewStore())

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, ""), nil)
	if err == nil {
		t.Fatal("Expected the handshake to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("Expected 401, got %+v", resp)
	}
}

func TestWebSocketRejectsInvalidToken(t *testing.T) {
	_, srv := newTestServer(t, memory.NewStore())

	header := http.Header{"Authorization": []string{"Bearer not-a-token"}}
	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, ""), header)
	if err == nil {
		t.Fatal("Expected the handshake to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("Expected 401, got %+v", resp)
	}
}

func TestWebSocketSessionFlow(t *testing.T) {
	store := memory.NewStore()
	store.Put("ABC123", []quiz.Question{*sampleQuestion()})
	svc, srv := newTestServer(t, store)

	admin := dial(t, wsURL(srv, "token="+adminToken(t, "admin-1")), nil)
	team := dial(t, wsURL(srv, ""), http.Header{"Authorization": []string{"Bearer " + teamToken(t, "team-1")}})

	writeEvent(t, admin, EventJoinSession, "ABC123")
	readEvent(t, admin, EventJoinSuccess)
	writeEvent(t, team, EventJoinSession, "ABC123")
	readEvent(t, team, EventJoinSuccess)

	stats := svc.GetStats()
	if stats.TotalConnections != 2 || stats.ActiveRooms != 1 {
		t.Errorf("Unexpected stats %+v", stats)
	}

	writeEvent(t, admin, EventAdminNextQuestion, "ABC123")
	f := readEvent(t, team, EventQuestionStarted)
	var qs QuestionStartedPayload
	f.decode(t, &qs)
	if qs.Question.ID != "q1" || qs.Question.TimeLimitSec != 20 {
		t.Errorf("Unexpected question %s", f.Data)
	}
	readEvent(t, admin, EventQuestionStarted)
	readEvent(t, admin, EventNextQuestionAck)

	writeEvent(t, team, EventGetCurrentQuestion, "ABC123")
	f = readEvent(t, team, EventQuestionCurrent)
	var qc QuestionCurrentPayload
	f.decode(t, &qc)
	if qc.Question == nil || qc.Question.ID != "q1" {
		t.Errorf("Unexpected current question %s", f.Data)
	}

	writeEvent(t, admin, EventAdminEndSession, "ABC123")
	readEvent(t, team, EventSessionEnded)
	readEvent(t, admin, EventSessionEnded)
	readEvent(t, admin, EventEndSessionAck)

	if svc.GetStats().ArmedTimers != 0 {
		t.Errorf("Expected the session end to clear the question timer")
	}
}

func TestWebSocketErrorsKeepConnectionOpen(t *testing.T) {
	_, srv := newTestServer(t, memory.NewStore())
	ws := dial(t, wsURL(srv, "token="+teamToken(t, "team-1")), nil)

	writeEvent(t, ws, EventJoinSession, "")
	f := readEvent(t, ws, EventError)
	var p ErrorPayload
	f.decode(t, &p)
	if p.Message != "Session code is required" {
		t.Errorf("Unexpected error message %q", p.Message)
	}

	writeEvent(t, ws, EventJoinSession, "ABC123")
	readEvent(t, ws, EventJoinSuccess)
}

func TestWebSocketStatsEndpoint(t *testing.T) {
	_, srv := newTestServer(t, memory.NewStore())

	resp, err := http.Get(srv.URL + "/realtime/stats")
	if err != nil {
		t.Fatalf("GET stats failed: %v", err)
	}
	defer resp.Body.Close()

	var stats ConnectionStats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatalf("Failed to decode stats: %v", err)
	}
	if stats.TotalConnections != 0 || stats.ActiveRooms != 0 {
		t.Errorf("Unexpected stats %+v", stats)
	}
}

func TestWebSocketDisconnectLeavesRoom(t *testing.T) {
	svc, srv := newTestServer(t, memory.NewStore())
	ws := dial(t, wsURL(srv, "token="+teamToken(t, "team-1")), nil)

	writeEvent(t, ws, EventJoinSession, "ABC123")
	readEvent(t, ws, EventJoinSuccess)
	ws.Close()

	deadline := time.Now().Add(2 * time.Second)
	for svc.GetStats().ActiveRooms != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("Expected the room to be dropped after disconnect, stats %+v", svc.GetStats())
		}
		time.Sleep(10 * time.Millisecond)
	}
}
