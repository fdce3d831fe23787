// Package store provides in-memory storage for evaluation history.
package store

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lemonberrylabs/intcalc/pkg/types"
)

// EvaluationState represents the outcome of an evaluation.
type EvaluationState string

const (
	EvaluationSucceeded EvaluationState = "SUCCEEDED"
	EvaluationFailed    EvaluationState = "FAILED"
)

// Token is a stored token dump entry.
type Token struct {
	Kind string `json:"kind"`
	Text string `json:"text"`
}

// Evaluation is one stored evaluation of an expression.
type Evaluation struct {
	ID          string             `json:"id"`
	Expression  string             `json:"expression"`
	State       EvaluationState    `json:"state"`
	Value       int64              `json:"value"`
	Tokens      []Token            `json:"tokens"`
	Diagnostics []types.Diagnostic `json:"diagnostics,omitempty"`
	Error       *EvaluationError   `json:"error,omitempty"`
	CreateTime  time.Time          `json:"createTime"`
}

// EvaluationError is the stored form of a failed evaluation's error.
type EvaluationError struct {
	Message string   `json:"message"`
	Code    int64    `json:"code"`
	Tags    []string `json:"tags"`
}

// Store is a thread-safe in-memory history of evaluations. When a capacity
// is set the oldest evaluations are evicted first.
type Store struct {
	mu          sync.RWMutex
	evaluations map[string]*Evaluation
	order       []string // IDs, oldest first
	capacity    int
}

// New creates an empty store keeping at most capacity evaluations; 0 keeps all.
func New(capacity int) *Store {
	return &Store{
		evaluations: make(map[string]*Evaluation),
		capacity:    capacity,
	}
}

// Record stores a new evaluation, assigning its ID and creation time.
func (s *Store) Record(expression string, value int64, tokens []Token, diags []types.Diagnostic, err error) *Evaluation {
	e := &Evaluation{
		ID:          uuid.NewString(),
		Expression:  expression,
		State:       EvaluationSucceeded,
		Value:       value,
		Tokens:      tokens,
		Diagnostics: diags,
		CreateTime:  time.Now(),
	}
	if err != nil {
		e.State = EvaluationFailed
		e.Value = 0
		e.Error = &EvaluationError{Message: err.Error()}
		if ce, ok := types.AsCalcError(err); ok {
			e.Error = &EvaluationError{Message: ce.Message, Code: ce.Code, Tags: ce.Tags}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.evaluations[e.ID] = e
	s.order = append(s.order, e.ID)
	for s.capacity > 0 && len(s.order) > s.capacity {
		delete(s.evaluations, s.order[0])
		s.order = s.order[1:]
	}
	return e
}

// Get retrieves an evaluation by ID.
func (s *Store) Get(id string) (*Evaluation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.evaluations[id]
	if !ok {
		return nil, types.NewNotFoundError(fmt.Sprintf("evaluation '%s' not found", id))
	}
	return e, nil
}

// List returns up to limit evaluations, newest first. A limit of 0 or less
// returns all of them.
func (s *Store) List(limit int) []*Evaluation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.order)
	if limit > 0 && limit < n {
		n = limit
	}
	result := make([]*Evaluation, 0, n)
	for i := len(s.order) - 1; i >= 0 && len(result) < n; i-- {
		result = append(result, s.evaluations[s.order[i]])
	}
	return result
}

// Delete removes an evaluation.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.evaluations[id]; !ok {
		return types.NewNotFoundError(fmt.Sprintf("evaluation '%s' not found", id))
	}
	delete(s.evaluations, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// Len returns the number of stored evaluations.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}
