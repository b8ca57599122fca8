package engine

// State is the lifecycle position of one playback session.
type State int

const (
	// StateCreated indicates the session has not been started.
	StateCreated State = iota
	// StatePreparing indicates clips are being resolved and devices allocated.
	StatePreparing
	// StateArmed indicates the session is ready and waits for the start trigger.
	StateArmed
	// StatePlaying indicates the sequence is being played.
	StatePlaying
	// StateRepeating indicates the pause between two passes of the sequence.
	StateRepeating
	// StateCompleting indicates the sequence finished and resources are being released.
	StateCompleting
	// StateReleased is terminal: all resources are released.
	StateReleased
	// StateErrored is terminal: the session failed.
	StateErrored
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StatePreparing:
		return "preparing"
	case StateArmed:
		return "armed"
	case StatePlaying:
		return "playing"
	case StateRepeating:
		return "repeating"
	case StateCompleting:
		return "completing"
	case StateReleased:
		return "released"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateReleased || s == StateErrored
}

// StateMachine enforces the session lifecycle. It is not safe for concurrent
// use; sessions guard it with their own mutex.
type StateMachine struct {
	current     State
	transitions map[State][]State
	onEnter     map[State]func()
}

// NewStateMachine creates a state machine in StateCreated.
func NewStateMachine() *StateMachine {
	return &StateMachine{
		current: StateCreated,
		transitions: map[State][]State{
			StateCreated:    {StatePreparing, StateErrored, StateReleased},
			StatePreparing:  {StateArmed, StateErrored, StateReleased},
			StateArmed:      {StatePlaying, StateErrored, StateReleased},
			StatePlaying:    {StateRepeating, StateCompleting, StateErrored, StateReleased},
			StateRepeating:  {StatePlaying, StateErrored, StateReleased},
			StateCompleting: {StateErrored, StateReleased},
		},
		onEnter: make(map[State]func()),
	}
}

// Transition moves to the given state if the move is allowed.
func (sm *StateMachine) Transition(to State) bool {
	valid := false
	for _, state := range sm.transitions[sm.current] {
		if state == to {
			valid = true
			break
		}
	}
	if !valid {
		return false
	}

	sm.current = to

	if enterFn, ok := sm.onEnter[to]; ok && enterFn != nil {
		enterFn()
	}
	return true
}

// Current returns the current state.
func (sm *StateMachine) Current() State {
	return sm.current
}

// OnEnter registers a callback for entering a state.
func (sm *StateMachine) OnEnter(state State, fn func()) {
	sm.onEnter[state] = fn
}
