package homing

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/iwtcode/cableRobot/models"
	apperrors "github.com/iwtcode/cableRobot/pkg/errors"
	"github.com/iwtcode/cableRobot/robot"
	"github.com/sirupsen/logrus"
)

// session - рабочие массивы одного сеанса сбора данных.
type session struct {
	ids         []uint8
	maxTorques  []int16
	initTorques []int16
	numMeas     int
	totalMeas   int

	idx  int // индекс текущего привода в ids
	step int // номер измерения для текущего привода

	torques   []int16
	positions []int32
	regPos    []int32
}

func newSession(ids []uint8, data *models.HomingStartData) session {
	n := int(data.NumMeas)
	return session{
		ids:         ids,
		maxTorques:  data.MaxTorques,
		initTorques: append([]int16(nil), data.InitTorques...),
		numMeas:     n,
		totalMeas:   len(ids) * (2*n - 1),
		torques:     make([]int16, n),
		positions:   make([]int32, n),
		regPos:      make([]int32, n),
	}
}

func (s *session) actuator() uint8 { return s.ids[s.idx] }

// entryAction выполняет действие входа в состояние. Если второе значение true,
// автомат сразу переходит в возвращенное состояние.
func (a *App) entryAction(st State, req request) (State, bool) {
	switch st {
	case Idle:
		a.entryIdle()
	case Enabled:
		if a.disablePending.Load() {
			return Idle, true
		}
	case StartUp:
		return a.entryStartUp(req.start)
	case SwitchCable:
		return a.entrySwitchCable()
	case Coiling:
		return a.entryCoiling()
	case Uncoiling:
		return a.entryUncoiling()
	case Optimizing:
		a.entryOptimizing()
	case Home:
		return a.entryHome(req.home)
	}
	return st, false
}

func (a *App) entryIdle() {
	if a.robot.AnyMotorEnabled() {
		a.robot.DisableMotors()
	}
	a.disablePending.Store(false)
}

// fallback - возврат в ENABLED после неудачи.
func (a *App) fallback() (State, bool) { return Enabled, true }

func (a *App) entryStartUp(data *models.HomingStartData) (State, bool) {
	ids := a.robot.ActiveActuatorsID()
	if data == nil || len(ids) == 0 {
		a.warn("Homing cannot start without start data and active actuators", apperrors.ErrInvalidPayload)
		return a.fallback()
	}
	a.sess = newSession(ids, data)
	if len(a.sess.initTorques) == 0 {
		for _, id := range ids {
			st, _ := a.robot.ActuatorStatus(id)
			a.sess.initTorques = append(a.sess.initTorques, st.MotorTorque)
		}
	}

	sid := a.newSession()
	a.logger.WithField("session", sid).Info("Data acquisition started")
	a.notifier.Message(fmt.Sprintf("Homing start data: %s", data))
	a.setProgress(0)

	a.robot.SetController(a.ctrl)
	a.robot.Lock()
	a.ctrl.SetMotorTorqueTolerance(a.cfg.TorqueTolerance)
	a.robot.Unlock()

	for i, id := range ids {
		if a.aborted() {
			return a.fallback()
		}
		a.setTorque(id, a.sess.initTorques[i])
		if !a.waitReached(id) {
			return a.fallback()
		}
	}
	if !a.waitSteady() {
		return a.fallback()
	}
	// текущая конфигурация становится временной домашней
	for _, id := range ids {
		if err := a.robot.UpdateHomeConfig(id, 0, 0); err != nil {
			a.warn(fmt.Sprintf("Home configuration of actuator %d not updated", id), err)
			return a.fallback()
		}
	}
	return SwitchCable, true
}

// entrySwitchCable готовит развертку для очередного привода и выставляет первую уставку.
func (a *App) entrySwitchCable() (State, bool) {
	s := &a.sess
	id := s.actuator()
	s.step = 0
	n := s.numMeas

	st, ok := a.robot.ActuatorStatus(id)
	if !ok {
		a.warn(fmt.Sprintf("Actuator %d missing from status", id), apperrors.ErrTargetMismatch)
		return a.fallback()
	}
	a.notifier.Message(fmt.Sprintf("Collecting measurements for actuator %d (%d of %d)", id, s.idx+1, len(s.ids)))

	switch a.cfg.Mode {
	case PositionMode:
		span := int(a.robot.LengthToCounts(id, a.cfg.DeltaLength))
		for i := range s.positions {
			s.positions[i] = st.MotorPosition + int32(i*span/(n-1))
		}
		a.setPosition(id, s.positions[0])
	default:
		lo, hi := int(s.initTorques[s.idx]), int(s.maxTorques[s.idx])
		for i := range s.torques {
			s.torques[i] = int16(lo + i*(hi-lo)/(n-1))
		}
		s.torques[n-1] = int16(hi)
		a.setTorque(id, s.torques[0])
	}

	if !a.waitReached(id) || !a.waitSteady() {
		return a.fallback()
	}
	return Coiling, true
}

// entryCoiling: первая точка снимается в исходной конфигурации, далее
// по одной на каждую установившуюся уставку развертки.
func (a *App) entryCoiling() (State, bool) {
	s := &a.sess
	id := s.actuator()

	s.regPos[0] = a.motorPosition(id)
	if !a.dumpAndMoveNext() {
		return a.fallback()
	}
	for s.step < s.numMeas {
		if a.aborted() {
			return a.fallback()
		}
		if a.cfg.Mode == PositionMode {
			a.setPosition(id, s.positions[s.step])
		} else {
			a.setTorque(id, s.torques[s.step])
		}
		if !a.waitReached(id) || !a.waitSteady() {
			return a.fallback()
		}
		s.regPos[s.step] = a.motorPosition(id)
		if !a.dumpAndMoveNext() {
			return a.fallback()
		}
	}
	return Uncoiling, true
}

// entryUncoiling проходит уставки в обратном порядке в позиционном режиме,
// затем возвращает привод в режим момента.
func (a *App) entryUncoiling() (State, bool) {
	s := &a.sess
	id := s.actuator()
	offset := 2*s.numMeas - 2

	for s.step < 2*s.numMeas-1 {
		if a.aborted() {
			return a.fallback()
		}
		target := s.regPos[offset-s.step]
		if a.cfg.Mode == PositionMode {
			target = s.positions[offset-s.step]
		}
		a.setPosition(id, target)
		if !a.waitReached(id) || !a.waitSteady() {
			return a.fallback()
		}
		if st, ok := a.robot.ActuatorStatus(id); ok {
			a.logger.WithFields(logrus.Fields{
				"actuator": id,
				"torque":   st.MotorTorque,
			}).Debug("Position setpoint reached")
		}
		if !a.dumpAndMoveNext() {
			return a.fallback()
		}
	}

	restore := s.torques[0]
	if a.cfg.Mode == PositionMode {
		restore = s.initTorques[s.idx]
	}
	a.setTorque(id, restore)
	if !a.waitReached(id) || !a.waitSteady() {
		return a.fallback()
	}
	s.idx++
	return SwitchCable, true
}

func (a *App) entryOptimizing() {
	a.mu.Lock()
	a.optToken++
	token := a.optToken
	ctx, cancel := context.WithCancel(a.ctx)
	a.optCancel = cancel
	a.mu.Unlock()

	a.setProgress(0)
	n := len(a.robot.ActiveActuatorsID())
	a.notifier.Message("Optimization started")

	go a.optimize(ctx, token, n)
}

type optResult struct {
	data *models.HomingHomeData
	err  error
}

func (a *App) optimize(ctx context.Context, token uint64, n int) {
	results := make(chan optResult, 1)
	go func() {
		if a.optimizer == nil {
			results <- optResult{err: fmt.Errorf("no optimizer configured")}
			return
		}
		data, err := a.optimizer.Optimize(ctx, n)
		results <- optResult{data: data, err: err}
	}()

	interval := a.cfg.OptProgressInterval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	counter := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			counter = min(counter+1, 95)
			a.setProgress(counter)
		case res := <-results:
			req := request{optimization: true, token: token}
			if res.err != nil {
				a.warn("Optimization failed", res.err)
			} else {
				a.setProgress(100)
				a.notifier.Message("Optimization complete")
				req.optOK = true
				req.home = res.data
			}
			select {
			case a.requests <- req:
			case <-ctx.Done():
			}
			return
		}
	}
}

func (a *App) entryHome(data *models.HomingHomeData) (State, bool) {
	if err := a.validateHome(data); err != nil {
		a.warn("Invalid homing results", err)
		return a.fallback()
	}
	if !a.robot.GoHome(a.ctx) {
		a.warn("Something went unexpectedly wrong, please start over", apperrors.ErrTimeout)
		return a.fallback()
	}
	for i, id := range a.robot.ActiveActuatorsID() {
		if err := a.robot.UpdateHomeConfig(id, data.InitLengths[i], data.InitAngles[i]); err != nil {
			a.warn(fmt.Sprintf("Home configuration of actuator %d not updated", id), err)
			return a.fallback()
		}
		a.notifier.Message(fmt.Sprintf("Homing results for drive #%d: cable length = %g [m], pulley angle = %g [rad]",
			id, data.InitLengths[i], data.InitAngles[i]))
	}
	a.robot.SetPlatformPose(data.InitPose)
	a.notifier.Message(fmt.Sprintf("Initial platform pose: %s", data.InitPose))
	a.notifier.HomingComplete(*data)
	return Home, false
}

// dumpAndMoveNext записывает измерение и обновляет прогресс.
func (a *App) dumpAndMoveNext() bool {
	if err := a.robot.CollectAndDumpMeas(); err != nil {
		a.warn("Measurement could not be collected", err)
		return false
	}
	s := &a.sess
	s.step++
	n := float64(len(s.ids))
	p := 100 * (float64(s.idx)/n + float64(s.step)/float64(s.totalMeas))
	a.setProgress(int(math.Round(p)))
	return true
}

func (a *App) setTorque(id uint8, torque int16) {
	a.robot.Lock()
	defer a.robot.Unlock()
	a.ctrl.SetMotorID(id)
	a.ctrl.SetMode(models.ControlMotorTorque)
	a.ctrl.SetMotorTorqueTarget(torque)
}

func (a *App) setPosition(id uint8, pos int32) {
	a.robot.Lock()
	defer a.robot.Unlock()
	a.ctrl.SetMotorID(id)
	a.ctrl.SetMode(models.ControlMotorPosition)
	a.ctrl.SetMotorPosTarget(pos, a.cfg.PositionStepTime)
}

func (a *App) motorPosition(id uint8) int32 {
	st, _ := a.robot.ActuatorStatus(id)
	return st.MotorPosition
}

func (a *App) waitReached(id uint8) bool {
	res := a.robot.WaitUntilTargetReached(a.ctx)
	if res != robot.Reached {
		a.warn(fmt.Sprintf("Target of actuator %d not reached: %s", id, res), res.Err())
		return false
	}
	return true
}

func (a *App) waitSteady() bool {
	res := a.robot.WaitUntilPlatformSteady(a.ctx, a.cfg.SteadyWait)
	if res != robot.Reached {
		a.warn(fmt.Sprintf("Platform not steady: %s", res), res.Err())
		return false
	}
	return true
}
