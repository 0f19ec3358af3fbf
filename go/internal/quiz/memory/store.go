// Package memory is an in-process session service backed by a YAML quiz fixture.
package memory

import (
	"context"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/mcdev12/quizlive/go/internal/quiz"
)

// FinishedMessage is reported once a session has no questions left
const FinishedMessage = "Quiz completed"

// Fixture is the on-disk quiz file format
type Fixture struct {
	Sessions []SessionFixture `yaml:"sessions"`
}

type SessionFixture struct {
	Code      string          `yaml:"code"`
	Title     string          `yaml:"title"`
	Questions []quiz.Question `yaml:"questions"`
}

type session struct {
	questions []quiz.Question
	// current is -1 before the first advance and len(questions) once finished
	current int
}

// Store implements quiz.SessionService in memory
type Store struct {
	mu       sync.Mutex
	sessions map[string]*session
}

var _ quiz.SessionService = (*Store)(nil)

func NewStore() *Store {
	return &Store{sessions: make(map[string]*session)}
}

// LoadFile reads a YAML fixture from path
func LoadFile(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read quiz file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML fixture
func Parse(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse quiz file: %w", err)
	}
	seen := make(map[string]bool, len(f.Sessions))
	for i := range f.Sessions {
		s := &f.Sessions[i]
		if s.Code == "" {
			return nil, fmt.Errorf("session %d: code is required", i)
		}
		if seen[s.Code] {
			return nil, fmt.Errorf("session %s: duplicate code", s.Code)
		}
		seen[s.Code] = true
		for j := range s.Questions {
			if err := s.Questions[j].Validate(); err != nil {
				return nil, fmt.Errorf("session %s question %d: %w", s.Code, j, err)
			}
		}
	}
	return &f, nil
}

// NewStoreFromFixture creates a store with every fixture session loaded
func NewStoreFromFixture(f *Fixture) *Store {
	s := NewStore()
	for _, sf := range f.Sessions {
		s.Put(sf.Code, sf.Questions)
	}
	return s
}

// Put registers (or resets) a session with its ordered questions
func (s *Store) Put(code string, questions []quiz.Question) {
	qs := make([]quiz.Question, len(questions))
	copy(qs, questions)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[code] = &session{questions: qs, current: -1}
}

func (s *Store) CurrentQuestion(ctx context.Context, sessionCode string) (*quiz.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionCode]
	if !ok {
		return nil, fmt.Errorf("%w: %s", quiz.ErrSessionNotFound, sessionCode)
	}
	if sess.current < 0 || sess.current >= len(sess.questions) {
		return nil, nil
	}
	q := sess.questions[sess.current]
	return &q, nil
}

func (s *Store) NextQuestion(ctx context.Context, sessionCode string) (*quiz.AdvanceResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionCode]
	if !ok {
		return nil, fmt.Errorf("%w: %s", quiz.ErrSessionNotFound, sessionCode)
	}

	total := len(sess.questions)
	if sess.current+1 >= total {
		sess.current = total
		return &quiz.AdvanceResult{
			Finished:       true,
			TotalQuestions: quiz.IntPtr(total),
			Message:        FinishedMessage,
		}, nil
	}

	sess.current++
	q := sess.questions[sess.current]
	return &quiz.AdvanceResult{
		Finished:             false,
		CurrentQuestionIndex: quiz.IntPtr(sess.current),
		TotalQuestions:       quiz.IntPtr(total),
		Question:             &q,
	}, nil
}
