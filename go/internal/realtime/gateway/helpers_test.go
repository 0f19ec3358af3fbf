package gateway

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"

	"github.com/mcdev12/quizlive/go/internal/auth"
	"github.com/mcdev12/quizlive/go/internal/quiz"
	"github.com/mcdev12/quizlive/go/internal/realtime/timer"
)

const (
	testAdminSecret = "admin-secret"
	testTeamSecret  = "team-secret"
	settle          = 100 * time.Millisecond
)

type frame struct {
	V     int             `json:"v"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func (f frame) decode(t *testing.T, v any) {
	t.Helper()
	if err := json.Unmarshal(f.Data, v); err != nil {
		t.Fatalf("Failed to decode %s payload %s: %v", f.Event, f.Data, err)
	}
}

// readFrame pops the next queued outbound frame of a socketless connection
func readFrame(t *testing.T, c *Connection) frame {
	t.Helper()
	select {
	case raw := <-c.send:
		var f frame
		if err := json.Unmarshal(raw, &f); err != nil {
			t.Fatalf("Failed to decode frame %s: %v", raw, err)
		}
		return f
	case <-time.After(time.Second):
		t.Fatalf("Expected a frame on connection %s, got none", c.ID)
	}
	return frame{}
}

func expectEvent(t *testing.T, c *Connection, event string) frame {
	t.Helper()
	f := readFrame(t, c)
	if f.Event != event {
		t.Fatalf("Expected event %q, got %q (%s)", event, f.Event, f.Data)
	}
	if f.V != quiz.WireSchemaVersion {
		t.Errorf("Expected wire version %d, got %d", quiz.WireSchemaVersion, f.V)
	}
	return f
}

func expectError(t *testing.T, c *Connection, message string) {
	t.Helper()
	f := expectEvent(t, c, EventError)
	var p ErrorPayload
	f.decode(t, &p)
	if p.Message != message {
		t.Errorf("Expected error message %q, got %q", message, p.Message)
	}
}

func expectNoFrame(t *testing.T, c *Connection) {
	t.Helper()
	select {
	case raw := <-c.send:
		t.Fatalf("Expected no frame on connection %s, got %s", c.ID, raw)
	case <-time.After(settle):
	}
}

func signToken(t *testing.T, secret string, claims *auth.Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}
	return token
}

func adminToken(t *testing.T, id string) string {
	t.Helper()
	token, err := auth.NewIssuer(auth.DomainAdmin, testAdminSecret, time.Hour).Issue(id)
	if err != nil {
		t.Fatalf("Failed to issue admin token: %v", err)
	}
	return token
}

func teamToken(t *testing.T, id string) string {
	t.Helper()
	token, err := auth.NewIssuer(auth.DomainTeam, testTeamSecret, time.Hour).Issue(id)
	if err != nil {
		t.Fatalf("Failed to issue team token: %v", err)
	}
	return token
}

func testVerifier() *auth.Verifier {
	return auth.NewVerifier(testAdminSecret, testTeamSecret)
}

// fakeSessions is a scripted session service
type fakeSessions struct {
	mu        sync.Mutex
	current   *quiz.Question
	currentEr error
	results   []*quiz.AdvanceResult
	nextErr   error
	nextCalls int
}

func (f *fakeSessions) CurrentQuestion(ctx context.Context, sessionCode string) (*quiz.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current, f.currentEr
}

func (f *fakeSessions) NextQuestion(ctx context.Context, sessionCode string) (*quiz.AdvanceResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextCalls++
	if f.nextErr != nil {
		return nil, f.nextErr
	}
	if len(f.results) == 0 {
		return nil, nil
	}
	res := f.results[0]
	f.results = f.results[1:]
	return res, nil
}

func (f *fakeSessions) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.nextCalls
}

type harness struct {
	clock   *clockwork.FakeClock
	rooms   *Registry
	timers  *timer.Manager
	handler *Handler
}

func newHarness(t *testing.T, sessions quiz.SessionService, opts HandlerOptions) *harness {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 14, 15, 9, 26, 535000000, time.UTC))
	opts.Clock = clock
	rooms := NewRegistry()
	timers := timer.NewManager(clock, 0)
	h := &harness{
		clock:   clock,
		rooms:   rooms,
		timers:  timers,
		handler: NewHandler(rooms, timers, sessions, NewAuthenticator(testVerifier()), opts),
	}
	t.Cleanup(timers.Stop)
	return h
}

// connect returns a socketless connection authenticated with token
func (h *harness) connect(t *testing.T, token string) *Connection {
	t.Helper()
	hs := auth.Handshake{Token: token}
	identity, err := h.handler.authn.Connect(context.Background(), hs)
	if err != nil {
		t.Fatalf("Connect() failed: %v", err)
	}
	return newConnection(nil, identity, hs, DefaultConnectionConfig())
}

func (h *harness) send(c *Connection, event string, data any) {
	raw, err := json.Marshal(map[string]any{"event": event, "data": data})
	if err != nil {
		panic(err)
	}
	h.handler.HandleMessage(context.Background(), c, raw)
}

func (h *harness) join(t *testing.T, c *Connection, code string) {
	t.Helper()
	h.send(c, EventJoinSession, SessionRequest{SessionCode: code})
	expectEvent(t, c, EventJoinSuccess)
}

func sampleQuestion() *quiz.Question {
	return &quiz.Question{
		ID:           "q1",
		Text:         "Capital of France?",
		Type:         quiz.QuestionTypeSingle,
		Choices:      []string{"Paris", "Rome"},
		TimeLimitSec: 20,
		Points:       10,
	}
}

// testContext stands in for testing.T.Context (Go 1.24+): a context that is
// canceled when the test finishes.
func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}
