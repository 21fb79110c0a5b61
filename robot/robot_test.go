package robot

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/iwtcode/cableRobot/control"
	"github.com/iwtcode/cableRobot/drive"
	"github.com/iwtcode/cableRobot/models"
	apperrors "github.com/iwtcode/cableRobot/pkg/errors"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(ids ...uint8) Config {
	cfg := DefaultConfig()
	cfg.ActiveMotors = ids
	cfg.PollPeriod = 2 * time.Millisecond
	cfg.MaxWait = 3 * time.Second
	cfg.SteadyWindow = 20
	return cfg
}

func startSim(t *testing.T, cfg Config) *Simulator {
	t.Helper()
	logger, _ := test.NewNullLogger()
	sim, err := NewSimulator(cfg, logger)
	require.NoError(t, err)
	require.NoError(t, sim.Start())
	t.Cleanup(func() { require.NoError(t, sim.Close()) })
	return sim
}

func enable(t *testing.T, sim *Simulator) {
	t.Helper()
	sim.EnableMotors()
	err := NewWaiter().PollUntil(context.Background(), time.Millisecond, 2*time.Second, sim.MotorsEnabled)
	require.NoError(t, err, "motors did not reach operationEnabled")
}

func TestWaiterResults(t *testing.T) {
	w := NewWaiter()
	ctx := context.Background()

	assert.Equal(t, Reached, w.Poll(ctx, time.Millisecond, time.Second, func() bool { return true }))
	assert.Equal(t, TimedOut, w.Poll(ctx, time.Millisecond, 20*time.Millisecond, func() bool { return false }))
	assert.ErrorIs(t, TimedOut.Err(), apperrors.ErrTimeout)

	go func() {
		for !w.IsWaiting() {
			time.Sleep(time.Millisecond)
		}
		w.Stop()
	}()
	res := w.Poll(ctx, time.Millisecond, 5*time.Second, func() bool { return false })
	assert.Equal(t, Cancelled, res)
	assert.ErrorIs(t, res.Err(), apperrors.ErrUserAbort)
	assert.False(t, w.IsWaiting())

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	assert.Equal(t, Cancelled, w.Poll(cctx, time.Millisecond, 5*time.Second, func() bool { return false }))

	// Stop без ожидающих не влияет на следующее ожидание
	w.Stop()
	assert.Equal(t, Reached, w.Poll(ctx, time.Millisecond, time.Second, func() bool { return true }))
}

func TestNewSimulatorValidation(t *testing.T) {
	_, err := NewSimulator(testConfig(), nil)
	require.Error(t, err)
	_, err = NewSimulator(testConfig(1, 1), nil)
	require.Error(t, err)
}

func TestStatusAvailableBeforeFirstCycle(t *testing.T) {
	cfg := testConfig(1, 2)
	cfg.CycleTime = time.Second
	sim := startSim(t, cfg)

	st, ok := sim.ActuatorStatus(1)
	require.True(t, ok)
	assert.Equal(t, uint8(1), st.ID)
	assert.Equal(t, drive.SwitchOnDisabled, st.State)

	_, ok = sim.ActuatorStatus(0)
	assert.False(t, ok)

	all := sim.ActuatorsStatus()
	require.Len(t, all, 2)
	assert.Equal(t, uint8(2), all[1].ID)
}

func TestEnableAndDisable(t *testing.T) {
	sim := startSim(t, testConfig(1, 2))
	assert.False(t, sim.AnyMotorEnabled())

	enable(t, sim)
	assert.True(t, sim.MotorEnabled(1))
	assert.True(t, sim.MotorEnabled(2))
	assert.False(t, sim.MotorEnabled(7))

	sim.DisableMotors()
	err := NewWaiter().PollUntil(context.Background(), time.Millisecond, 2*time.Second, func() bool {
		return !sim.AnyMotorEnabled()
	})
	require.NoError(t, err)
	st, ok := sim.ActuatorStatus(1)
	require.True(t, ok)
	assert.Equal(t, drive.SwitchOnDisabled, st.State)
}

func TestFaultAndClear(t *testing.T) {
	sim := startSim(t, testConfig(3))
	enable(t, sim)

	require.NoError(t, sim.InjectFault(3))
	require.Error(t, sim.InjectFault(9))
	err := NewWaiter().PollUntil(context.Background(), time.Millisecond, time.Second, func() bool {
		st, _ := sim.ActuatorStatus(3)
		return st.State == drive.Fault
	})
	require.NoError(t, err)

	sim.ClearFaults()
	err = NewWaiter().PollUntil(context.Background(), time.Millisecond, time.Second, func() bool {
		st, _ := sim.ActuatorStatus(3)
		return st.State == drive.SwitchOnDisabled
	})
	require.NoError(t, err)
}

func TestTorqueTargetAndSteady(t *testing.T) {
	cfg := testConfig(1)
	sim := startSim(t, cfg)
	enable(t, sim)

	logger, _ := test.NewNullLogger()
	ctrl := control.NewSingleDrive(1, control.DefaultConfig(cfg.CycleTime), logger)
	sim.SetController(ctrl)

	sim.Lock()
	ctrl.SetMode(models.ControlMotorTorque)
	ctrl.SetMotorTorqueTarget(100)
	sim.Unlock()

	require.Equal(t, Reached, sim.WaitUntilTargetReached(context.Background()))
	require.Equal(t, Reached, sim.WaitUntilPlatformSteady(context.Background(), 2*time.Second))

	st, ok := sim.ActuatorStatus(1)
	require.True(t, ok)
	assert.InDelta(t, 100, float64(st.MotorTorque), 10)
	assert.Equal(t, int8(drive.CyclicTorque), st.OpMode)
}

func TestHomeConfigAndGoHome(t *testing.T) {
	cfg := testConfig(1)
	sim := startSim(t, cfg)
	enable(t, sim)

	require.NoError(t, sim.UpdateHomeConfig(1, 1.5, 0.25))
	require.Error(t, sim.UpdateHomeConfig(4, 1, 0))

	logger, _ := test.NewNullLogger()
	ctrl := control.NewSingleDrive(1, control.DefaultConfig(cfg.CycleTime), logger)
	sim.SetController(ctrl)

	offset := sim.LengthToCounts(1, 0.01)
	assert.Equal(t, int32(2000), offset)

	sim.Lock()
	ctrl.SetMode(models.ControlMotorPosition)
	ctrl.SetMotorPosTarget(offset, 50*time.Millisecond)
	sim.Unlock()
	require.Equal(t, Reached, sim.WaitUntilTargetReached(context.Background()))

	st, _ := sim.ActuatorStatus(1)
	assert.InDelta(t, 1.51, st.CableLength, 1e-4)

	require.True(t, sim.GoHome(context.Background()))
	st, _ = sim.ActuatorStatus(1)
	assert.InDelta(t, 1.5, st.CableLength, 1e-4)
	assert.InDelta(t, 0.25, st.PulleyAngle, 1e-3)

	pose := models.Pose{0.1, 0.2, 0.3}
	sim.SetPlatformPose(pose)
	assert.Equal(t, pose, sim.PlatformPose())
}

func TestCollectAndDumpMeas(t *testing.T) {
	cfg := testConfig(1, 2)
	cfg.MeasLogPath = filepath.Join(t.TempDir(), "meas.csv")
	logger, _ := test.NewNullLogger()
	sim, err := NewSimulator(cfg, logger)
	require.NoError(t, err)
	sim.Cycle()

	require.NoError(t, sim.CollectAndDumpMeas())
	require.NoError(t, sim.CollectAndDumpMeas(2))
	require.ErrorIs(t, sim.CollectAndDumpMeas(5), apperrors.ErrTargetMismatch)
	assert.Equal(t, 1, sim.MeasCount(1))
	assert.Equal(t, 2, sim.MeasCount(2))
	require.NoError(t, sim.Close())

	f, err := os.Open(cfg.MeasLogPath)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "timestamp", rows[0][0])
	assert.Len(t, rows[1], 2+len(models.RecordFields(models.ActuatorRecord)))
	assert.Equal(t, "2", rows[3][1])
	assert.Equal(t, "2", rows[3][2])
}

func TestWaitStoppedFromOutside(t *testing.T) {
	sim := startSim(t, testConfig(1))

	done := make(chan WaitResult, 1)
	go func() {
		done <- sim.WaitUntilPlatformSteady(context.Background(), 5*time.Second)
	}()
	// окно еще не заполнено либо платформа неподвижна; ожидание либо завершится само,
	// либо будет прервано
	for !sim.IsWaiting() {
		select {
		case res := <-done:
			assert.Equal(t, Reached, res)
			return
		default:
			time.Sleep(time.Millisecond)
		}
	}
	sim.StopWaiting()
	res := <-done
	assert.Contains(t, []WaitResult{Reached, Cancelled}, res)
}
