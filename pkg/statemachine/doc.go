// Package statemachine provides a small, concurrency-safe finite state machine.
//
// States and events are modeled by the State and Event interfaces; StringState
// and StringEvent cover the common case. Transitions are registered through
// functional options and may carry Guards, which must all pass for the
// transition to be taken, and Actions, which run in order while the machine is
// locked. A failing action aborts the transition and leaves the state unchanged.
//
// # Usage
//
//	const (
//	    Stopped = statemachine.StringState("stopped")
//	    Running = statemachine.StringState("running")
//	    Start   = statemachine.StringEvent("start")
//	    Stop    = statemachine.StringEvent("stop")
//	)
//
//	sm := statemachine.MustNew(Stopped,
//	    statemachine.WithTransition(Stopped, Running, Start,
//	        statemachine.WithAction(launch),
//	    ),
//	    statemachine.WithTransition(Running, Stopped, Stop,
//	        statemachine.WithAction(halt),
//	    ),
//	)
//
//	if err := sm.Fire(ctx, Start, nil); statemachine.IsNoTransitionAvailableError(err) {
//	    // already running
//	}
//
// # Error Handling
//
// Fire returns *ErrNoTransitionAvailable when the current state has no
// transition for the event and *ErrTransitionRejected when every candidate
// transition was blocked by a guard. Action failures are wrapped and returned
// as-is.
package statemachine
