package horizon

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidTransition(t *testing.T) {
	cases := []struct {
		from, to streamState
		legal    bool
	}{
		{stateIdle, stateStreaming, true},
		{stateIdle, stateReconnecting, false},
		{stateStreaming, stateReconnecting, true},
		{stateStreaming, stateIdle, true},
		{stateReconnecting, stateStreaming, true},
		{stateReconnecting, stateIdle, true},
		{stateIdle, stateIdle, false},
		{streamState("bogus"), stateStreaming, false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.legal, validTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestStateMachineRefusesIllegalTransition(t *testing.T) {
	m := newStateMachine(testLogger())
	assert.Equal(t, stateIdle, m.current())

	// Reconnecting is only reachable from streaming.
	m.to(stateReconnecting)
	assert.Equal(t, stateIdle, m.current())

	m.to(stateStreaming)
	assert.Equal(t, stateStreaming, m.current())

	m.to(stateReconnecting)
	assert.Equal(t, stateReconnecting, m.current())

	m.to(stateIdle)
	assert.Equal(t, stateIdle, m.current())
}

func TestStateMachineSameStateNoOp(t *testing.T) {
	m := newStateMachine(testLogger())
	m.to(stateIdle)
	assert.Equal(t, stateIdle, m.current())

	m.to(stateStreaming)
	m.to(stateStreaming)
	assert.Equal(t, stateStreaming, m.current())
}
