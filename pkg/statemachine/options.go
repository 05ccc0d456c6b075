package statemachine

import "fmt"

// Option configures a state machine during construction.
type Option func(*machine) error

// TransitionOption configures a single transition.
type TransitionOption func(*Transition)

// New creates a state machine in initialState.
func New(initialState State, opts ...Option) (StateMachine, error) {
	if initialState == nil {
		return nil, ErrNilInitialState
	}

	m := &machine{
		initial:     initialState,
		current:     initialState,
		transitions: make(map[string]map[string][]Transition),
	}
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// MustNew is like New but panics on misconfiguration.
func MustNew(initialState State, opts ...Option) StateMachine {
	sm, err := New(initialState, opts...)
	if err != nil {
		panic(fmt.Sprintf("failed to create state machine: %v", err))
	}
	return sm
}

// WithTransition registers a transition from -> to on event.
func WithTransition(from, to State, event Event, opts ...TransitionOption) Option {
	return func(m *machine) error {
		t := Transition{From: from, To: to, Event: event}
		for _, opt := range opts {
			opt(&t)
		}
		return m.add(t)
	}
}

// WithGuard adds a guard to a transition. Nil guards are ignored.
func WithGuard(guard Guard) TransitionOption {
	return func(t *Transition) {
		if guard != nil {
			t.Guards = append(t.Guards, guard)
		}
	}
}

// WithAction adds an action to a transition. Nil actions are ignored.
func WithAction(action Action) TransitionOption {
	return func(t *Transition) {
		if action != nil {
			t.Actions = append(t.Actions, action)
		}
	}
}
