package homing

import (
	"fmt"

	"github.com/iwtcode/cableRobot/drive"
	"github.com/iwtcode/cableRobot/models"
	apperrors "github.com/iwtcode/cableRobot/pkg/errors"
	"github.com/iwtcode/cableRobot/robot"
)

// guard проверяет, можно ли войти в next. Может перенаправить переход
// в другое состояние; false оставляет автомат в текущем состоянии.
func (a *App) guard(next State, req request) (State, bool) {
	cur := a.State()
	switch next {
	case Idle:
		return Idle, a.guardIdle(cur)
	case Enabled:
		return Enabled, a.guardEnabled()
	case StartUp:
		return StartUp, req.start != nil
	case SwitchCable:
		return a.guardSwitchCable(cur)
	default:
		return next, true
	}
}

// guardIdle: после аварии сбрасывает аварии приводов и ждет, пока ни один
// привод не останется в fault.
func (a *App) guardIdle(cur State) bool {
	if cur != Fault {
		return true
	}
	a.robot.ClearFaults()
	res := a.waiter.Poll(a.ctx, a.cfg.PollPeriod, a.cfg.FaultClearWait, func() bool {
		for _, st := range a.robot.ActuatorsStatus() {
			if st.State == drive.Fault {
				return false
			}
		}
		return true
	})
	if res != robot.Reached {
		a.warn("Drive faults could not be cleared", res.Err())
		return false
	}
	return true
}

// guardEnabled включает приводы и ждет подтверждения не дольше EnableWait.
func (a *App) guardEnabled() bool {
	if a.robot.MotorsEnabled() {
		return true
	}
	a.robot.EnableMotors()
	res := a.waiter.Poll(a.ctx, a.cfg.PollPeriod, a.cfg.EnableWait, a.robot.MotorsEnabled)
	if res != robot.Reached {
		a.warn("Motors could not be enabled", res.Err())
		return false
	}
	return true
}

// guardSwitchCable пропускает переход, пока есть необработанные приводы;
// после последнего перенаправляет в ENABLED с уведомлением о завершении сбора.
func (a *App) guardSwitchCable(cur State) (State, bool) {
	if cur == StartUp || a.sess.idx < len(a.sess.ids) {
		return SwitchCable, true
	}
	a.setProgress(100)
	a.notifier.Message("Data acquisition complete")
	a.notifier.AcquisitionComplete(a.SessionID())
	return Enabled, true
}

func (a *App) validateStart(data *models.HomingStartData) error {
	if data == nil {
		return fmt.Errorf("missing start data: %w", apperrors.ErrInvalidPayload)
	}
	n := len(a.robot.ActiveActuatorsID())
	if len(data.MaxTorques) != n {
		return fmt.Errorf("expected %d max torques, got %d: %w", n, len(data.MaxTorques), apperrors.ErrInvalidPayload)
	}
	if len(data.InitTorques) != 0 && len(data.InitTorques) != n {
		return fmt.Errorf("expected %d initial torques, got %d: %w", n, len(data.InitTorques), apperrors.ErrInvalidPayload)
	}
	if data.NumMeas < 2 {
		return fmt.Errorf("at least 2 measurements required, got %d: %w", data.NumMeas, apperrors.ErrInvalidPayload)
	}
	return nil
}

func (a *App) validateHome(data *models.HomingHomeData) error {
	if data == nil {
		return fmt.Errorf("missing home data: %w", apperrors.ErrInvalidPayload)
	}
	n := len(a.robot.ActiveActuatorsID())
	if len(data.InitLengths) != n || len(data.InitAngles) != n {
		return fmt.Errorf("expected %d initial lengths and angles, got %d and %d: %w",
			n, len(data.InitLengths), len(data.InitAngles), apperrors.ErrInvalidPayload)
	}
	return nil
}
