package models

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/iwtcode/cableRobot/drive"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaypointFromAbsTime(t *testing.T) {
	traj, err := NewTrajectory[float64](1, []float64{0, 10, 20}, []float64{0, 1, 2})
	require.NoError(t, err)

	wp := traj.WaypointFromAbsTime(0.5, DefaultWaypointEps)
	assert.InDelta(t, 5.0, wp.Value, 1e-9)
	assert.Equal(t, 0.5, wp.TS)

	assert.Equal(t, WayPoint[float64]{TS: 0, Value: 0}, traj.WaypointFromAbsTime(-1, DefaultWaypointEps))
	assert.Equal(t, WayPoint[float64]{TS: 2, Value: 20}, traj.WaypointFromAbsTime(3, DefaultWaypointEps))

	// в пределах eps возвращается узел без интерполяции
	wp = traj.WaypointFromAbsTime(1+1e-7, DefaultWaypointEps)
	assert.Equal(t, 10.0, wp.Value)
	wp = traj.WaypointFromAbsTime(1, DefaultWaypointEps)
	assert.Equal(t, 10.0, wp.Value)
}

func TestWaypointFromRelTime(t *testing.T) {
	traj, err := NewTrajectory[int32](2, []int32{100, 200}, []float64{10, 12})
	require.NoError(t, err)

	wp := traj.WaypointFromRelTime(1, DefaultWaypointEps)
	assert.Equal(t, int32(150), wp.Value)
	assert.Equal(t, 11.0, wp.TS)

	wp = traj.WaypointFromRelTime(0.25, DefaultWaypointEps)
	assert.Equal(t, int32(113), wp.Value, "integer values are rounded")
}

func TestNewTrajectoryRejectsMismatch(t *testing.T) {
	_, err := NewTrajectory[int16](0, []int16{1, 2, 3}, []float64{0, 1})
	require.ErrorIs(t, err, ErrTrajectoryShape)

	_, err = NewTrajectory[int16](0, []int16{1, 2}, []float64{1, 0})
	require.Error(t, err)
}

func TestTrajectoryAppend(t *testing.T) {
	var traj Trajectory[float64]
	require.NoError(t, traj.Append(0, 1))
	require.NoError(t, traj.Append(0.5, 2))
	require.Error(t, traj.Append(0.1, 3))
	assert.Equal(t, 2, traj.Len())
	assert.Equal(t, 0.5, traj.Duration())

	_, err := traj.WaypointFromIndex(2)
	require.Error(t, err)
	wp, err := traj.WaypointFromIndex(1)
	require.NoError(t, err)
	assert.Equal(t, 2.0, wp.Value)

	var empty Trajectory[float64]
	assert.Equal(t, -1.0, empty.WaypointFromAbsTime(0, DefaultWaypointEps).TS)
}

func TestTargetFlags(t *testing.T) {
	var f TargetFlags
	f.Set(TargetPosition)
	assert.True(t, f.Has(TargetPosition))
	assert.False(t, f.Has(TargetTorque))
	f.Set(TargetTorque)
	f.Clear(TargetPosition)
	assert.False(t, f.Has(TargetPosition))
	assert.True(t, f.Has(TargetTorque))
	f.ClearAll()
	assert.Zero(t, f)
}

func TestRecordFieldShape(t *testing.T) {
	assert.Len(t, RecordFields(MotorRecord), 5)
	assert.Len(t, RecordFields(WinchRecord), 7)
	assert.Equal(t,
		[]string{"id", "op_mode", "motor_position", "motor_speed", "motor_torque", "cable_length", "aux_position", "state", "pulley_angle"},
		RecordFields(ActuatorRecord))

	s := NewActuatorStatus(4, drive.InputPdos{
		ModesOfOperationDisplay: 10,
		PositionActualValue:     -1200,
		VelocityActualValue:     35,
		TorqueActualValue:       -80,
		AuxPositionActualValue:  77,
	}, drive.OperationEnabled, 1.25, 0.3)

	for _, kind := range []RecordKind{MotorRecord, WinchRecord, ActuatorRecord} {
		assert.Len(t, s.Record(kind), len(RecordFields(kind)), kind.String())
	}

	// запись проходит через внешний кодировщик (здесь JSON) без потери формы
	raw, err := json.Marshal(s.Record(ActuatorRecord))
	require.NoError(t, err)
	var decoded []any
	require.NoError(t, json.Unmarshal(raw, &decoded))

	back, err := StatusFromRecord(ActuatorRecord, decoded)
	require.NoError(t, err)
	assert.Equal(t, s, back)

	_, err = StatusFromRecord(WinchRecord, decoded)
	require.Error(t, err)
}

func TestStatusFromRecordRejectsOutOfRange(t *testing.T) {
	cases := []struct {
		name   string
		values []any
	}{
		{"id overflow", []any{300, 8, 0, 0, 0}},
		{"negative id", []any{-1, 8, 0, 0, 0}},
		{"fractional position", []any{1, 8, 10.5, 0, 0}},
		{"torque overflow", []any{1, 8, 0, 0, 40000.0}},
		{"op mode overflow", []any{1, 200, 0, 0, 0}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := StatusFromRecord(MotorRecord, tc.values)
			require.Error(t, err)
		})
	}

	s, err := StatusFromRecord(MotorRecord, []any{255.0, -128, int64(math.MaxInt32), 0, int16(-500)})
	require.NoError(t, err)
	assert.Equal(t, uint8(255), s.ID)
	assert.Equal(t, int16(-500), s.MotorTorque)
}

func TestFindStatus(t *testing.T) {
	statuses := []ActuatorStatus{
		{WinchStatus: WinchStatus{MotorStatus: MotorStatus{ID: 1}}},
		{WinchStatus: WinchStatus{MotorStatus: MotorStatus{ID: 5, MotorPosition: 9}}},
	}
	s, ok := FindStatus(statuses, 5)
	require.True(t, ok)
	assert.Equal(t, int32(9), s.MotorPosition)
	_, ok = FindStatus(statuses, 2)
	assert.False(t, ok)
}
