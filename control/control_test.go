package control

import (
	"testing"
	"time"

	"github.com/iwtcode/cableRobot/models"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func status(id uint8, pos int32, torque int16) []models.ActuatorStatus {
	var s models.ActuatorStatus
	s.ID = id
	s.MotorPosition = pos
	s.MotorTorque = torque
	return []models.ActuatorStatus{s}
}

func newTestController(t *testing.T, period time.Duration) (*SingleDrive, *fakeClock, *test.Hook) {
	t.Helper()
	logger, hook := test.NewNullLogger()
	clock := &fakeClock{t: time.Unix(1000, 0)}
	cfg := DefaultConfig(period)
	return NewSingleDrive(1, cfg, logger, WithClock(clock.now)), clock, hook
}

func TestPIDCalculate(t *testing.T) {
	pid := NewPID(0.1)
	pid.SetParams(PIDParams{Kp: 0.5, Ki: 1, Kd: 0.1})

	// первая итерация: prevErr = err, производная нулевая
	assert.InDelta(t, 106.0, pid.Calculate(100, 90), 1e-9)
	assert.Equal(t, pid.Error(), pid.PrevError())

	assert.InDelta(t, 99.0, pid.Calculate(100, 95), 1e-9)
	assert.Equal(t, 5.0, pid.Error())
	assert.Equal(t, 10.0, pid.PrevError())

	pid.Reset()
	assert.Zero(t, pid.Error())
	assert.InDelta(t, 106.0, pid.Calculate(100, 90), 1e-9)
}

func TestPIDOutputClamp(t *testing.T) {
	pid := NewPID(0.01)
	pid.SetParams(PIDParams{Kp: 1, OutMin: 0, OutMax: 50})
	assert.Equal(t, 50.0, pid.Calculate(40, 0))
	assert.Equal(t, 0.0, pid.Calculate(-10, 0))
}

func TestPoly5Profile(t *testing.T) {
	p := NewPoly5(0, 100, 2)

	assert.Equal(t, 0.0, p.Eval(0))
	assert.InDelta(t, 50.0, p.Eval(1), 1e-9)
	assert.Equal(t, 100.0, p.Eval(2))
	assert.Equal(t, 100.0, p.Eval(5))

	const h = 1e-4
	assert.InDelta(t, 0, (p.Eval(h)-p.Eval(0))/h, 1e-3, "zero slope at start")
	assert.InDelta(t, 0, (p.Eval(2)-p.Eval(2-h))/h, 1e-3, "zero slope at end")

	for ts := 0.0; ts < 2; ts += 0.05 {
		assert.LessOrEqual(t, p.Eval(ts), p.Eval(ts+0.05), "monotonic at %v", ts)
	}

	step := NewPoly5(10, 20, 0)
	assert.Equal(t, 20.0, step.Eval(0))
}

func TestPositionHysteresisHold(t *testing.T) {
	c, _, _ := newTestController(t, time.Millisecond)
	c.SetMode(models.ControlMotorPosition)
	c.SetMotorPosTarget(1000, 0)

	actions := c.CalcCtrlActions(status(1, 0, 0))
	require.Len(t, actions, 1)
	assert.Equal(t, models.ControlMotorPosition, actions[0].CtrlMode)
	assert.Equal(t, int32(1200), actions[0].MotorPosition)
	assert.False(t, c.OnTarget())

	c.CalcCtrlActions(status(1, 1000, 0))
	assert.False(t, c.OnTarget(), "previous error still large")

	actions = c.CalcCtrlActions(status(1, 1000, 0))
	assert.True(t, c.OnTarget())
	assert.Equal(t, int32(1000), actions[0].MotorPosition)

	// цель удерживается без пересчета, даже если позиция уходит
	actions = c.CalcCtrlActions(status(1, 1500, 0))
	assert.True(t, c.OnTarget())
	assert.Equal(t, int32(1000), actions[0].MotorPosition)
	assert.True(t, c.TargetReached(nil))

	c.SetMotorPosTarget(2000, 0)
	assert.False(t, c.OnTarget())
}

func TestPositionTrajectory(t *testing.T) {
	c, clock, _ := newTestController(t, time.Millisecond)
	c.SetMode(models.ControlMotorPosition)
	c.SetMotorPosTarget(100, 2*time.Second)

	actions := c.CalcCtrlActions(status(1, 0, 0))
	assert.Equal(t, int32(0), actions[0].MotorPosition)

	clock.advance(time.Second)
	actions = c.CalcCtrlActions(status(1, 50, 0))
	assert.Equal(t, int32(50), actions[0].MotorPosition)
	assert.False(t, c.OnTarget(), "not on target before the move finishes")

	clock.advance(time.Second)
	actions = c.CalcCtrlActions(status(1, 100, 0))
	assert.Equal(t, int32(100), actions[0].MotorPosition)
	assert.True(t, c.OnTarget())
}

func TestTargetMismatchFallback(t *testing.T) {
	c, _, hook := newTestController(t, time.Millisecond)
	c.SetMode(models.ControlMotorPosition)
	c.SetMotorPosTarget(700, 0)

	for i := 0; i < 3; i++ {
		actions := c.CalcCtrlActions(status(9, 0, 0))
		assert.Equal(t, int32(700), actions[0].MotorPosition)
	}
	require.Len(t, hook.AllEntries(), 1, "logged once per streak")
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)

	c.CalcCtrlActions(status(1, 0, 0))
	c.CalcCtrlActions(status(9, 0, 0))
	assert.Len(t, hook.AllEntries(), 2)
}

func TestTorqueJog(t *testing.T) {
	c, _, _ := newTestController(t, 100*time.Millisecond)
	c.SetMode(models.ControlMotorTorque)
	c.SetMotorTorqueTarget(100)
	c.MotorTorqueIncrement(true, Positive)

	actions := c.CalcCtrlActions(status(1, 0, 100))
	assert.Equal(t, int16(101), actions[0].MotorTorque)
	actions = c.CalcCtrlActions(status(1, 0, 100))
	assert.Equal(t, int16(102), actions[0].MotorTorque)

	c.MotorTorqueIncrement(false, Positive)
	actions = c.CalcCtrlActions(status(1, 0, 102))
	assert.True(t, c.OnTarget())
	assert.Equal(t, int16(102), actions[0].MotorTorque)
}

func TestCableLengthJogAndTrajectory(t *testing.T) {
	c, clock, _ := newTestController(t, 100*time.Millisecond)
	c.SetMode(models.ControlCableLength)
	c.SetCableLenTarget(1.0)
	c.CableLenIncrement(true, Negative, false)

	c.CalcCtrlActions(nil)
	actions := c.CalcCtrlActions(nil)
	assert.InDelta(t, 0.998, actions[0].CableLength, 1e-12)

	c.CableLenIncrement(false, Negative, false)
	actions = c.CalcCtrlActions(nil)
	assert.InDelta(t, 0.998, actions[0].CableLength, 1e-12)

	traj, err := models.NewTrajectory[float64](1, []float64{1.0, 1.2}, []float64{5, 7})
	require.NoError(t, err)
	c.SetCableLenTrajectory(traj)
	assert.True(t, c.CableLenTrajectoryActive())

	actions = c.CalcCtrlActions(nil)
	assert.InDelta(t, 1.0, actions[0].CableLength, 1e-12)
	clock.advance(time.Second)
	actions = c.CalcCtrlActions(nil)
	assert.InDelta(t, 1.1, actions[0].CableLength, 1e-12)
	clock.advance(5 * time.Second)
	actions = c.CalcCtrlActions(nil)
	assert.InDelta(t, 1.2, actions[0].CableLength, 1e-12)
	assert.False(t, c.CableLenTrajectoryActive())
}

func TestDegradesToNone(t *testing.T) {
	c, _, _ := newTestController(t, time.Millisecond)

	actions := c.CalcCtrlActions(nil)
	assert.Equal(t, models.ControlNone, actions[0].CtrlMode)

	c.SetMode(models.ControlMotorPosition)
	actions = c.CalcCtrlActions(nil)
	assert.Equal(t, models.ControlNone, actions[0].CtrlMode, "no position target set")
	assert.Equal(t, uint8(1), actions[0].MotorID)

	c.SetMotorSpeedTarget(500)
	actions = c.CalcCtrlActions(nil)
	assert.Equal(t, models.ControlNone, actions[0].CtrlMode, "target set for another mode")

	c.SetMode(models.ControlMotorSpeed)
	next := c.CalcCtrlActions(nil)
	assert.Equal(t, int32(500), next[0].MotorSpeed)
	assert.Same(t, &actions[0], &next[0], "action buffer is reused")
}

func TestScaleMotorSpeed(t *testing.T) {
	c, _, _ := newTestController(t, time.Millisecond)
	c.SetMode(models.ControlMotorSpeed)
	c.SetMotorSpeedTarget(0)
	c.ScaleMotorSpeed(0.5)

	actions := c.CalcCtrlActions(nil)
	assert.Equal(t, int32(400000), actions[0].MotorSpeed)

	var s models.ActuatorStatus
	s.ID = 1
	s.MotorSpeed = 399500
	assert.True(t, c.TargetReached([]models.ActuatorStatus{s}))
	s.MotorSpeed = 100
	assert.False(t, c.TargetReached([]models.ActuatorStatus{s}))
}
