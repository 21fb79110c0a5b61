package control

import (
	"math"
	"time"

	"github.com/iwtcode/cableRobot/models"
	apperrors "github.com/iwtcode/cableRobot/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Sign - направление толчкового перемещения.
type Sign int8

const (
	Positive Sign = 1
	Negative Sign = -1
)

// Config - настройки контроллера одного привода.
type Config struct {
	Period                 time.Duration
	PosTolerance           float64 // [отсчеты]
	TorqueTolerance        float64 // [промилле]
	CableLenTolerance      float64 // [м]
	SpeedTolerance         int32   // [отсчеты/с]
	DeltaLengthPerSec      float64 // [м/с]
	DeltaLengthMicroPerSec float64 // [м/с]
	DeltaTorquePerSec      float64 // [промилле/с]
	MaxSpeed               int32   // [отсчеты/с]
	PosPID                 PIDParams
	TorquePID              PIDParams
}

// DefaultConfig возвращает настройки по умолчанию для заданного периода цикла.
func DefaultConfig(period time.Duration) Config {
	return Config{
		Period:                 period,
		PosTolerance:           10,
		TorqueTolerance:        5,
		CableLenTolerance:      1e-6,
		SpeedTolerance:         1000,
		DeltaLengthPerSec:      0.01,
		DeltaLengthMicroPerSec: 0.001,
		DeltaTorquePerSec:      10,
		MaxSpeed:               800000,
		PosPID:                 PIDParams{Kp: 0.2},
		TorquePID:              PIDParams{Kp: 0.2},
	}
}

// Option настраивает SingleDrive.
type Option func(*SingleDrive)

// WithClock подменяет источник времени для генератора траекторий.
func WithClock(now func() time.Time) Option {
	return func(c *SingleDrive) { c.now = now }
}

// moveSession - состояние одного движения точка-точка.
type moveSession struct {
	duration     float64
	pending      bool // q0 будет зафиксирован при первом вычислении
	profile      Poly5
	start        time.Time
	prevSetpoint int32
	hasPrev      bool
}

// SingleDrive - контроллер одного привода. Методы установки целей вызываются
// из супервизорного контекста под мьютексом робота, CalcCtrlActions - раз в цикл.
type SingleDrive struct {
	cfg    Config
	period float64
	logger logrus.FieldLogger
	now    func() time.Time

	motorID uint8
	mode    models.ControlMode
	flags   models.TargetFlags

	onTarget bool
	mismatch bool

	lengthTarget    float64
	changeLength    bool
	deltaLength     float64
	lengthTraj      *models.Trajectory[float64]
	lengthTrajStart time.Time
	lengthTrajRun   bool

	posTargetTrue int32
	posTarget     float64
	posPID        *PID
	move          moveSession

	speedTargetTrue int32

	torqueTargetTrue int16
	torqueTarget     float64
	changeTorque     bool
	deltaTorque      float64
	absDeltaTorque   float64
	torquePID        *PID

	actions []models.ControlAction
}

// NewSingleDrive создает контроллер для привода motorID.
func NewSingleDrive(motorID uint8, cfg Config, logger logrus.FieldLogger, opts ...Option) *SingleDrive {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	period := cfg.Period.Seconds()
	c := &SingleDrive{
		cfg:            cfg,
		period:         period,
		logger:         logger.WithField("component", "controller"),
		now:            time.Now,
		motorID:        motorID,
		posPID:         NewPID(period),
		torquePID:      NewPID(period),
		absDeltaTorque: period * cfg.DeltaTorquePerSec,
		actions:        make([]models.ControlAction, 0, 1),
	}
	c.posPID.SetParams(cfg.PosPID)
	c.torquePID.SetParams(cfg.TorquePID)
	for _, opt := range opts {
		opt(c)
	}
	c.clear()
	return c
}

func (c *SingleDrive) MotorID() uint8               { return c.motorID }
func (c *SingleDrive) SetMotorID(id uint8)          { c.motorID = id }
func (c *SingleDrive) Mode() models.ControlMode     { return c.mode }
func (c *SingleDrive) SetMode(m models.ControlMode) { c.mode = m }
func (c *SingleDrive) OnTarget() bool               { return c.onTarget }
func (c *SingleDrive) Flags() models.TargetFlags    { return c.flags }

func (c *SingleDrive) SetMotorPosTolerance(tol float64)    { c.cfg.PosTolerance = tol }
func (c *SingleDrive) SetMotorTorqueTolerance(tol float64) { c.cfg.TorqueTolerance = tol }
func (c *SingleDrive) SetCableLenTolerance(tol float64)    { c.cfg.CableLenTolerance = tol }

// SetCableLenTarget задает целевую длину троса.
func (c *SingleDrive) SetCableLenTarget(target float64) {
	c.clear()
	c.lengthTarget = target
	c.flags.Set(models.TargetLength)
}

// SetCableLenTrajectory задает траекторию длины троса, которая проигрывается
// по относительному времени начиная со следующего цикла. По окончании
// удерживается последнее значение.
func (c *SingleDrive) SetCableLenTrajectory(traj *models.Trajectory[float64]) {
	c.clear()
	if traj == nil || traj.Len() == 0 {
		return
	}
	c.lengthTraj = traj
	c.lengthTarget = traj.Values[0]
	c.flags.Set(models.TargetLength)
}

// CableLenTrajectoryActive сообщает, проигрывается ли еще траектория длины.
func (c *SingleDrive) CableLenTrajectoryActive() bool {
	if c.lengthTraj == nil {
		return false
	}
	if !c.lengthTrajRun {
		return true
	}
	return c.now().Sub(c.lengthTrajStart).Seconds() < c.lengthTraj.Duration()
}

// SetMotorPosTarget задает целевую позицию. При duration > 0 движение
// формируется полиномом пятой степени, иначе цель применяется сразу.
func (c *SingleDrive) SetMotorPosTarget(target int32, duration time.Duration) {
	c.clear()
	c.posTargetTrue = target
	c.posTarget = float64(target)
	c.posPID.Reset()
	c.move = moveSession{duration: duration.Seconds(), pending: true}
	c.flags.Set(models.TargetPosition)
}

func (c *SingleDrive) SetMotorSpeedTarget(target int32) {
	c.clear()
	c.speedTargetTrue = target
	c.flags.Set(models.TargetSpeed)
}

func (c *SingleDrive) SetMotorTorqueTarget(target int16) {
	c.clear()
	c.torqueTargetTrue = target
	c.torqueTarget = float64(target)
	c.torquePID.Reset()
	c.flags.Set(models.TargetTorque)
}

// CableLenIncrement включает или выключает непрерывное изменение длины.
func (c *SingleDrive) CableLenIncrement(active bool, sign Sign, micromove bool) {
	if active == c.changeLength {
		return
	}
	c.changeLength = active
	if !active {
		return
	}
	rate := c.cfg.DeltaLengthPerSec
	if micromove {
		rate = c.cfg.DeltaLengthMicroPerSec
	}
	c.deltaLength = float64(sign) * rate * c.period
}

// MotorTorqueIncrement включает или выключает непрерывное изменение момента.
func (c *SingleDrive) MotorTorqueIncrement(active bool, sign Sign) {
	if active == c.changeTorque {
		return
	}
	c.changeTorque = active
	if active {
		c.deltaTorque = float64(sign) * c.absDeltaTorque
	}
}

// ScaleMotorSpeed задает скорость как долю максимальной.
func (c *SingleDrive) ScaleMotorSpeed(scale float64) {
	c.speedTargetTrue = int32(math.Round(scale * float64(c.cfg.MaxSpeed)))
}

func (c *SingleDrive) CableLenTargetReached(current float64) bool {
	return math.Abs(c.lengthTarget-current) <= c.cfg.CableLenTolerance
}

func (c *SingleDrive) MotorPosTargetReached(current int32) bool {
	return math.Abs(float64(c.posTargetTrue)-float64(current)) < c.cfg.PosTolerance
}

func (c *SingleDrive) MotorSpeedTargetReached(current int32) bool {
	d := int64(c.speedTargetTrue) - int64(current)
	if d < 0 {
		d = -d
	}
	return d < int64(c.cfg.SpeedTolerance)
}

// TargetReached проверяет достижение цели текущего режима по снимку состояния.
func (c *SingleDrive) TargetReached(statuses []models.ActuatorStatus) bool {
	switch c.mode {
	case models.ControlMotorPosition, models.ControlMotorTorque:
		return c.onTarget
	case models.ControlCableLength:
		s, ok := models.FindStatus(statuses, c.motorID)
		return ok && !c.CableLenTrajectoryActive() && c.CableLenTargetReached(s.CableLength)
	case models.ControlMotorSpeed:
		s, ok := models.FindStatus(statuses, c.motorID)
		return ok && c.MotorSpeedTargetReached(s.MotorSpeed)
	default:
		return true
	}
}

// CalcCtrlActions вычисляет управляющее воздействие за один цикл.
// Возвращаемый срез переиспользуется между вызовами.
func (c *SingleDrive) CalcCtrlActions(statuses []models.ActuatorStatus) []models.ControlAction {
	res := models.ControlAction{CtrlMode: c.mode, MotorID: c.motorID}

	switch c.mode {
	case models.ControlCableLength:
		if c.flags.Has(models.TargetLength) {
			c.updateLengthTarget()
			res.CableLength = c.lengthTarget
		} else {
			res.CtrlMode = models.ControlNone
		}
	case models.ControlMotorPosition:
		if c.flags.Has(models.TargetPosition) {
			res.MotorPosition = c.calcMotorPos(statuses)
		} else {
			res.CtrlMode = models.ControlNone
		}
	case models.ControlMotorSpeed:
		if c.flags.Has(models.TargetSpeed) {
			res.MotorSpeed = c.speedTargetTrue
		} else {
			res.CtrlMode = models.ControlNone
		}
	case models.ControlMotorTorque:
		if c.flags.Has(models.TargetTorque) {
			if c.changeTorque {
				c.torqueTarget += c.deltaTorque
				c.torqueTargetTrue = int16(math.Round(c.torqueTarget))
				c.torquePID.Reset()
				c.onTarget = false
			}
			res.MotorTorque = c.calcMotorTorque(statuses)
		} else {
			res.CtrlMode = models.ControlNone
		}
	default:
		res.CtrlMode = models.ControlNone
	}

	c.actions = append(c.actions[:0], res)
	return c.actions
}

func (c *SingleDrive) updateLengthTarget() {
	if c.lengthTraj != nil {
		if !c.lengthTrajRun {
			c.lengthTrajStart = c.now()
			c.lengthTrajRun = true
		}
		elapsed := c.now().Sub(c.lengthTrajStart).Seconds()
		c.lengthTarget = c.lengthTraj.WaypointFromRelTime(elapsed, models.DefaultWaypointEps).Value
		return
	}
	if c.changeLength {
		c.lengthTarget += c.deltaLength
	}
}

func (c *SingleDrive) calcMotorPos(statuses []models.ActuatorStatus) int32 {
	if c.onTarget {
		return c.posTargetTrue
	}

	status, ok := models.FindStatus(statuses, c.motorID)
	if !ok {
		c.reportMismatch()
		return int32(math.Round(c.posTarget))
	}
	c.mismatch = false

	setpoint := c.trajectorySetpoint(status.MotorPosition)
	if !c.move.hasPrev || setpoint != c.move.prevSetpoint {
		c.posPID.Reset()
		c.move.prevSetpoint = setpoint
		c.move.hasPrev = true
	}
	out := c.posPID.Calculate(float64(setpoint), float64(status.MotorPosition))

	c.onTarget = c.moveFinished() &&
		math.Abs(c.posPID.Error())+math.Abs(c.posPID.PrevError()) < 2*c.cfg.PosTolerance
	return int32(math.Round(out))
}

func (c *SingleDrive) calcMotorTorque(statuses []models.ActuatorStatus) int16 {
	if c.onTarget {
		return c.torqueTargetTrue
	}

	status, ok := models.FindStatus(statuses, c.motorID)
	if !ok {
		c.reportMismatch()
		return int16(math.Round(c.torqueTarget))
	}
	c.mismatch = false

	out := c.torquePID.Calculate(c.torqueTarget, float64(status.MotorTorque))
	c.onTarget = math.Abs(c.torquePID.Error())+math.Abs(c.torquePID.PrevError()) < 2*c.cfg.TorqueTolerance
	return int16(math.Round(out))
}

// trajectorySetpoint возвращает промежуточную уставку движения точка-точка.
// Начальная позиция фиксируется при первом вычислении нового движения.
func (c *SingleDrive) trajectorySetpoint(q int32) int32 {
	if c.move.duration <= 0 {
		return c.posTargetTrue
	}
	if c.move.pending {
		c.move.profile = NewPoly5(float64(q), float64(c.posTargetTrue), c.move.duration)
		c.move.start = c.now()
		c.move.pending = false
	}
	t := c.now().Sub(c.move.start).Seconds()
	return int32(math.Round(c.move.profile.Eval(t)))
}

func (c *SingleDrive) moveFinished() bool {
	if c.move.duration <= 0 {
		return true
	}
	return !c.move.pending && c.now().Sub(c.move.start).Seconds() >= c.move.duration
}

func (c *SingleDrive) reportMismatch() {
	if c.mismatch {
		return
	}
	c.mismatch = true
	c.logger.WithError(apperrors.ErrTargetMismatch).
		WithField("motor_id", c.motorID).
		Warn("Actuator missing from status snapshot, holding last target")
}

func (c *SingleDrive) clear() {
	c.flags.ClearAll()
	c.onTarget = false
	c.mismatch = false
	c.changeLength = false
	c.changeTorque = false
	c.deltaLength = 0
	c.lengthTraj = nil
	c.lengthTrajRun = false
}
