package statemachine

import (
	"context"
	"fmt"
	"sync"
)

// State represents a state in the state machine.
type State interface {
	Name() string
}

// Event represents an event that can trigger a state transition.
type Event interface {
	Name() string
}

// Action executes side effects during a transition. Returning an error prevents the transition.
type Action func(ctx context.Context, from, to State, event Event, data any) error

// Guard decides whether a transition may be taken.
type Guard func(ctx context.Context, from State, event Event, data any) bool

// Transition defines a state change triggered by an event.
type Transition struct {
	From    State
	To      State
	Event   Event
	Guards  []Guard
	Actions []Action
}

// StateMachine defines the finite state machine operations.
type StateMachine interface {
	Current() State
	Fire(ctx context.Context, event Event, data any) error
	CanFire(ctx context.Context, event Event, data any) bool
	Reset()
}

// StringState is a string-backed State.
type StringState string

func (s StringState) Name() string { return string(s) }

// StringEvent is a string-backed Event.
type StringEvent string

func (e StringEvent) Name() string { return string(e) }

// machine is the in-memory StateMachine. Transitions are indexed by
// [from][event]; the first candidate whose guards pass wins.
type machine struct {
	mu          sync.RWMutex
	initial     State
	current     State
	transitions map[string]map[string][]Transition
}

func (m *machine) add(t Transition) error {
	if t.From == nil || t.To == nil || t.Event == nil {
		return ErrInvalidTransition
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	byEvent, ok := m.transitions[t.From.Name()]
	if !ok {
		byEvent = make(map[string][]Transition)
		m.transitions[t.From.Name()] = byEvent
	}
	byEvent[t.Event.Name()] = append(byEvent[t.Event.Name()], t)
	return nil
}

func (m *machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

func (m *machine) Fire(ctx context.Context, event Event, data any) error {
	if event == nil {
		return ErrInvalidEvent
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	t, err := m.selectLocked(ctx, event, data)
	if err != nil {
		return err
	}

	for _, action := range t.Actions {
		if err := action(ctx, m.current, t.To, event, data); err != nil {
			return fmt.Errorf("action failed: %w", err)
		}
	}

	m.current = t.To
	return nil
}

func (m *machine) CanFire(ctx context.Context, event Event, data any) bool {
	if event == nil {
		return false
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	_, err := m.selectLocked(ctx, event, data)
	return err == nil
}

func (m *machine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = m.initial
}

// Must be called with lock held.
func (m *machine) selectLocked(ctx context.Context, event Event, data any) (*Transition, error) {
	from := m.current.Name()
	candidates := m.transitions[from][event.Name()]
	if len(candidates) == 0 {
		return nil, NewErrNoTransitionAvailable(from, event.Name())
	}

	for i := range candidates {
		if guardsPass(ctx, candidates[i].Guards, m.current, event, data) {
			return &candidates[i], nil
		}
	}
	return nil, NewErrTransitionRejected(from, event.Name())
}

func guardsPass(ctx context.Context, guards []Guard, from State, event Event, data any) bool {
	for _, guard := range guards {
		if !guard(ctx, from, event, data) {
			return false
		}
	}
	return true
}
