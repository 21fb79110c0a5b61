package drive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBus struct {
	in          InputPdos
	controlWord uint16
	mode        int8
	targetsSet  int
	position    int32
	velocity    int32
	torque      int16
}

func (b *fakeBus) ReadInputs() InputPdos { return b.in }

func (b *fakeBus) WriteControl(controlWord uint16, mode int8) {
	b.controlWord = controlWord
	b.mode = mode
}

func (b *fakeBus) WriteTargets(position int32, velocity int32, torque int16) {
	b.targetsSet++
	b.position, b.velocity, b.torque = position, velocity, torque
}

const (
	swSwitchOnDisabled    uint16 = 0x0040
	swReadyToSwitchOn     uint16 = 0x0021
	swSwitchedOn          uint16 = 0x0023
	swOperationEnabled    uint16 = 0x0027
	swQuickStopActive     uint16 = 0x0007
	swFaultReactionActive uint16 = 0x000F
	swFault               uint16 = 0x0008
)

func TestDetermineStateIsTotal(t *testing.T) {
	valid := map[State]bool{
		SwitchOnDisabled: true, ReadyToSwitchOn: true, SwitchOn: true, OperationEnabled: true,
		QuickStopActive: true, FaultReactionActive: true, Fault: true,
	}
	seen := make(map[State]int)
	for w := 0; w <= 0xFFFF; w++ {
		s := DetermineState(uint16(w))
		require.True(t, valid[s], "status word 0x%04X decoded to %v", w, s)
		seen[s]++
	}
	assert.Len(t, seen, 7, "every state must be reachable")
}

func TestDetermineStateKnownWords(t *testing.T) {
	cases := []struct {
		word uint16
		want State
	}{
		{swSwitchOnDisabled, SwitchOnDisabled},
		{swReadyToSwitchOn, ReadyToSwitchOn},
		{swSwitchedOn, SwitchOn},
		{swOperationEnabled, OperationEnabled},
		{swQuickStopActive, QuickStopActive},
		{swFaultReactionActive, FaultReactionActive},
		{swFault, Fault},
		// бит off имеет наивысший приоритет
		{swFault | swSwitchOnDisabled, SwitchOnDisabled},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, DetermineState(c.word), "word 0x%04X", c.word)
	}
}

func TestEnableSequence(t *testing.T) {
	bus := &fakeBus{in: InputPdos{StatusWord: swSwitchOnDisabled, PositionActualValue: 1234}}
	d := New(3, bus, nil)

	d.Enable()
	d.ReadInputs()
	d.WriteOutputs()
	require.Equal(t, SwitchOnDisabled, d.State())
	assert.Equal(t, uint16(0x0006), bus.controlWord, "shutdown command")
	assert.Zero(t, bus.targetsSet, "targets are not written before switch on")

	confirmed := 0
	for _, word := range []uint16{swReadyToSwitchOn, swSwitchedOn, swOperationEnabled} {
		bus.in.StatusWord = word
		d.ReadInputs()
		d.WriteOutputs()
		confirmed++
		if d.State() == OperationEnabled && d.PendingRequest() == NullState {
			break
		}
	}

	assert.Equal(t, 3, confirmed)
	assert.Equal(t, OperationEnabled, d.State())
	assert.Equal(t, NullState, d.PendingRequest())
	assert.Equal(t, uint16(0x000F), bus.controlWord, "enable operation command")
	assert.Equal(t, int8(CyclicPosition), bus.mode)
	assert.Equal(t, int32(1234), bus.position, "position target primed from actual value")
	assert.Equal(t, 2, bus.targetsSet)
}

func TestEnableSequenceControlWords(t *testing.T) {
	bus := &fakeBus{in: InputPdos{StatusWord: swSwitchOnDisabled}}
	d := New(0, bus, nil)
	d.Enable()

	steps := []struct {
		status  uint16
		control uint16
		request State
	}{
		{swSwitchOnDisabled, 0x0006, ReadyToSwitchOn},
		{swReadyToSwitchOn, 0x0007, SwitchOn},
		{swSwitchedOn, 0x000F, OperationEnabled},
		{swOperationEnabled, 0x000F, NullState},
	}
	for _, s := range steps {
		bus.in.StatusWord = s.status
		d.ReadInputs()
		d.WriteOutputs()
		assert.Equal(t, s.control, bus.controlWord, "status 0x%04X", s.status)
		assert.Equal(t, s.request, d.PendingRequest(), "status 0x%04X", s.status)
	}
}

func TestDisableFromOperationEnabled(t *testing.T) {
	bus := &fakeBus{in: InputPdos{StatusWord: swOperationEnabled}}
	d := New(0, bus, nil)
	d.out.ControlWord = 0x000F

	d.Disable()
	d.ReadInputs()
	d.WriteOutputs()
	assert.Zero(t, bus.controlWord)

	bus.in.StatusWord = swSwitchOnDisabled
	d.ReadInputs()
	assert.Equal(t, SwitchOnDisabled, d.State())
	assert.Equal(t, NullState, d.PendingRequest())
}

func TestFaultAcceptsOnlyReset(t *testing.T) {
	bus := &fakeBus{in: InputPdos{StatusWord: swFault}}
	d := New(0, bus, nil)
	d.out.ControlWord = 0x0006

	for _, req := range []State{ReadyToSwitchOn, SwitchOn, OperationEnabled} {
		d.RequestState(req)
		d.ReadInputs()
		assert.Equal(t, Fault, d.State())
		assert.Equal(t, NullState, d.PendingRequest(), "request %v must be dropped", req)
		assert.Equal(t, uint16(0x0006), d.Outputs().ControlWord, "no register side effects")
	}

	d.FaultReset()
	d.ReadInputs()
	d.WriteOutputs()
	assert.Equal(t, uint16(1<<ControlFaultResetBit), bus.controlWord)
	assert.Zero(t, bus.targetsSet)

	bus.in.StatusWord = swSwitchOnDisabled
	d.ReadInputs()
	assert.Equal(t, SwitchOnDisabled, d.State())
	assert.Equal(t, NullState, d.PendingRequest())
}

func TestAutonomousStatesClearRequest(t *testing.T) {
	for _, word := range []uint16{swQuickStopActive, swFaultReactionActive} {
		bus := &fakeBus{in: InputPdos{StatusWord: word}}
		d := New(0, bus, nil)
		d.RequestState(OperationEnabled)
		d.ReadInputs()
		assert.Equal(t, NullState, d.PendingRequest())
	}
}

func TestOperationSwitch(t *testing.T) {
	bus := &fakeBus{in: InputPdos{
		StatusWord:              swOperationEnabled,
		ModesOfOperationDisplay: int8(CyclicPosition),
		PositionActualValue:     500,
		TorqueActualValue:       42,
		VelocityActualValue:     -7,
	}}
	d := New(0, bus, nil)
	d.ReadInputs()
	require.Equal(t, CyclicPosition, d.OperationState())

	d.RequestOperation(CyclicTorque)
	d.ReadInputs()
	assert.Equal(t, int8(CyclicTorque), d.Outputs().ModesOfOperation)
	assert.Equal(t, int16(42), d.Outputs().TargetTorque, "safe hold on current torque")
	assert.Equal(t, CyclicTorque, d.PendingOperation())

	bus.in.ModesOfOperationDisplay = int8(CyclicTorque)
	d.ReadInputs()
	assert.Equal(t, CyclicTorque, d.OperationState())
	assert.Equal(t, NullOperation, d.PendingOperation())

	d.RequestOperation(CyclicVelocity)
	d.ReadInputs()
	assert.Equal(t, int8(CyclicVelocity), d.Outputs().ModesOfOperation)
	assert.Equal(t, int32(-7), d.Outputs().TargetVelocity)
}

func TestSetTargetDefaults(t *testing.T) {
	bus := &fakeBus{in: InputPdos{
		StatusWord:              swOperationEnabled,
		ModesOfOperationDisplay: int8(CyclicVelocity),
		VelocityActualValue:     99,
	}}
	d := New(0, bus, nil)
	d.ReadInputs()
	d.SetTargetDefaults()
	assert.Equal(t, int32(99), d.Outputs().TargetVelocity)
}

func TestTransitionTableIsPure(t *testing.T) {
	a := Transition(SwitchOn, SwitchOn)
	b := Transition(SwitchOn, SwitchOn)
	assert.Equal(t, a, b)
	assert.True(t, a.Confirmed)
	assert.Equal(t, OperationEnabled, a.Request)

	assert.True(t, Transition(Fault, OperationEnabled).Illegal)
	assert.False(t, Transition(Fault, NullState).Illegal)
	assert.True(t, Transition(OperationEnabled, NullState).RunOperation)
}
