package horizon

import (
	"log/slog"
	"sync"
)

// streamState is the lifecycle state of one stream session.
type streamState string

const (
	// stateIdle means no subscription is open.
	stateIdle streamState = "idle"

	// stateStreaming means the subscription is live and events are flowing.
	stateStreaming streamState = "streaming"

	// stateReconnecting means a transient fault occurred and a restart is
	// scheduled after the check interval.
	stateReconnecting streamState = "reconnecting"
)

// legalStreamTransitions defines the allowed session state transitions.
// Idle is entered only through explicit cancellation or a clean stream end;
// a fault always passes through reconnecting.
var legalStreamTransitions = map[streamState]map[streamState]bool{
	stateIdle: {
		stateStreaming: true,
	},
	stateStreaming: {
		stateReconnecting: true,
		stateIdle:         true,
	},
	stateReconnecting: {
		stateStreaming: true,
		stateIdle:      true,
	},
}

// validTransition reports whether moving from "from" to "to" is legal.
func validTransition(from, to streamState) bool {
	toStates, ok := legalStreamTransitions[from]
	if !ok {
		return false
	}
	return toStates[to]
}

// stateMachine tracks one session's state with validated transitions.
type stateMachine struct {
	mu     sync.Mutex
	state  streamState
	logger *slog.Logger
}

func newStateMachine(logger *slog.Logger) *stateMachine {
	return &stateMachine{
		state:  stateIdle,
		logger: logger,
	}
}

// to transitions the machine to next. An illegal transition indicates a bug
// in the session loop; it is logged and refused rather than applied.
func (m *stateMachine) to(next streamState) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == next {
		return
	}
	if !validTransition(m.state, next) {
		m.logger.Error("illegal stream state transition refused",
			"from", m.state, "to", next)
		return
	}

	m.logger.Debug("stream state transition", "from", m.state, "to", next)
	m.state = next
}

func (m *stateMachine) current() streamState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}
