package robot

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/iwtcode/cableRobot/drive"
	"github.com/iwtcode/cableRobot/models"
	apperrors "github.com/iwtcode/cableRobot/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
	"gonum.org/v1/gonum/stat"
)

// Config - настройки симулированного робота.
type Config struct {
	ActiveMotors     []uint8
	CycleTime        time.Duration
	CountsPerMeter   float64
	AuxCountsPerRad  float64
	PollPeriod       time.Duration
	MaxWait          time.Duration
	SteadyWindow     int
	SteadyThreshold  float64 // СКО позиции мотора в окне, [отсчеты]
	HomePosTolerance float64 // [отсчеты]
	MeasLogPath      string
	Plant            PlantParams
}

func DefaultConfig() Config {
	return Config{
		ActiveMotors:     []uint8{0, 1, 2, 3},
		CycleTime:        time.Millisecond,
		CountsPerMeter:   200000,
		AuxCountsPerRad:  10000,
		PollPeriod:       10 * time.Millisecond,
		MaxWait:          10 * time.Second,
		SteadyWindow:     50,
		SteadyThreshold:  2,
		HomePosTolerance: 10,
		Plant:            DefaultPlantParams(),
	}
}

type homeConfig struct {
	length float64
	angle  float64
	counts int32
	aux    int32
}

// Simulator - робот с эмулированными приводами и циклом реального времени.
// Цикл: шаг эмуляторов, ReadInputs всех приводов, снимок состояния,
// расчет контроллера, WriteOutputs.
type Simulator struct {
	cfg    Config
	logger logrus.FieldLogger

	// mu - мьютекс контроллера; цикл удерживает его от чтения до записи.
	mu      sync.Mutex
	ctrl    Controller
	devices []*Device
	drives  []*drive.Drive
	index   map[uint8]int
	home    []homeConfig
	buf     []models.ActuatorStatus

	statusMu   sync.RWMutex
	snapshot   []models.ActuatorStatus
	window     [][]float64
	windowPos  int
	windowFill int

	poseMu sync.RWMutex
	pose   models.Pose

	waiter *Waiter
	meas   *measLog

	runMu sync.Mutex
	done  chan struct{}
	wg    sync.WaitGroup
}

// NewSimulator создает симулятор. Цикл не запущен до вызова Start.
func NewSimulator(cfg Config, logger logrus.FieldLogger) (*Simulator, error) {
	if len(cfg.ActiveMotors) == 0 {
		return nil, fmt.Errorf("no active motors configured")
	}
	if cfg.CycleTime <= 0 {
		return nil, fmt.Errorf("invalid cycle time %v", cfg.CycleTime)
	}
	if cfg.CountsPerMeter == 0 {
		return nil, fmt.Errorf("counts per meter must be non-zero")
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if cfg.SteadyWindow < 2 {
		cfg.SteadyWindow = 2
	}

	meas, err := newMeasLog(cfg.MeasLogPath)
	if err != nil {
		return nil, err
	}

	n := len(cfg.ActiveMotors)
	s := &Simulator{
		cfg:      cfg,
		logger:   logger.WithField("component", "robot"),
		index:    make(map[uint8]int, n),
		home:     make([]homeConfig, n),
		buf:      make([]models.ActuatorStatus, n),
		snapshot: make([]models.ActuatorStatus, n),
		window:   make([][]float64, n),
		waiter:   NewWaiter(),
		meas:     meas,
	}
	for i, id := range cfg.ActiveMotors {
		if _, dup := s.index[id]; dup {
			return nil, fmt.Errorf("duplicate motor id %d", id)
		}
		dev := NewDevice(cfg.Plant, cfg.CycleTime.Seconds(), cfg.Plant.RestPosition)
		s.devices = append(s.devices, dev)
		s.drives = append(s.drives, drive.New(id, dev, logger))
		s.index[id] = i
		s.window[i] = make([]float64, cfg.SteadyWindow)
	}

	// Снимок доступен сразу после создания, до первого цикла.
	for i, d := range s.drives {
		d.ReadInputs()
		s.buf[i] = s.status(i, d)
	}
	copy(s.snapshot, s.buf)
	return s, nil
}

// Start запускает цикл реального времени в отдельной горутине.
func (s *Simulator) Start() error {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	if s.done != nil {
		return fmt.Errorf("real-time loop already running")
	}

	ticker := time.NewTicker(s.cfg.CycleTime)
	done := make(chan struct{})
	s.done = done

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer ticker.Stop()
		s.logger.WithField("cycle_time", s.cfg.CycleTime).Info("Real-time loop started")
		for {
			select {
			case <-done:
				s.logger.Info("Real-time loop stopped")
				return
			case <-ticker.C:
				s.Cycle()
			}
		}
	}()
	return nil
}

// Close останавливает цикл, прерывает ожидания и закрывает журнал измерений.
func (s *Simulator) Close() error {
	s.runMu.Lock()
	if s.done != nil {
		close(s.done)
		s.done = nil
	}
	s.runMu.Unlock()
	s.wg.Wait()
	s.waiter.Stop()

	var err error
	if s.meas != nil {
		err = multierr.Append(err, s.meas.Close())
	}
	return err
}

// Cycle выполняет один цикл реального времени.
func (s *Simulator) Cycle() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, d := range s.drives {
		s.devices[i].Step()
		d.ReadInputs()
		s.buf[i] = s.status(i, d)
	}
	s.publish()

	if s.ctrl != nil {
		for _, a := range s.ctrl.CalcCtrlActions(s.buf) {
			s.apply(a)
		}
	}

	for _, d := range s.drives {
		d.WriteOutputs()
	}
}

func (s *Simulator) status(i int, d *drive.Drive) models.ActuatorStatus {
	in := d.Inputs()
	return models.NewActuatorStatus(d.ID(), in, d.State(), s.cableLength(i, in.PositionActualValue), s.pulleyAngle(i, in.AuxPositionActualValue))
}

func (s *Simulator) publish() {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	copy(s.snapshot, s.buf)
	for i := range s.buf {
		s.window[i][s.windowPos] = float64(s.buf[i].MotorPosition)
	}
	s.windowPos = (s.windowPos + 1) % s.cfg.SteadyWindow
	if s.windowFill < s.cfg.SteadyWindow {
		s.windowFill++
	}
}

func (s *Simulator) apply(a models.ControlAction) {
	i, ok := s.index[a.MotorID]
	if !ok {
		return
	}
	d := s.drives[i]
	if d.State() != drive.OperationEnabled {
		return
	}

	var op drive.OperationState
	switch a.CtrlMode {
	case models.ControlCableLength, models.ControlMotorPosition:
		op = drive.CyclicPosition
	case models.ControlMotorSpeed:
		op = drive.CyclicVelocity
	case models.ControlMotorTorque:
		op = drive.CyclicTorque
	default:
		return
	}
	if d.OperationState() != op || d.PendingOperation() != drive.NullOperation {
		d.RequestOperation(op)
		return
	}

	switch a.CtrlMode {
	case models.ControlCableLength:
		d.SetTargetPosition(s.lengthToPosition(i, a.CableLength))
	case models.ControlMotorPosition:
		d.SetTargetPosition(a.MotorPosition)
	case models.ControlMotorSpeed:
		d.SetTargetVelocity(a.MotorSpeed)
	case models.ControlMotorTorque:
		d.SetTargetTorque(a.MotorTorque)
	}
}

func (s *Simulator) cableLength(i int, pos int32) float64 {
	h := s.home[i]
	return h.length + float64(pos-h.counts)/s.cfg.CountsPerMeter
}

func (s *Simulator) pulleyAngle(i int, aux int32) float64 {
	h := s.home[i]
	if s.cfg.AuxCountsPerRad == 0 {
		return h.angle
	}
	return h.angle + float64(aux-h.aux)/s.cfg.AuxCountsPerRad
}

func (s *Simulator) lengthToPosition(i int, length float64) int32 {
	h := s.home[i]
	return h.counts + int32(math.Round((length-h.length)*s.cfg.CountsPerMeter))
}

func (s *Simulator) Lock()   { s.mu.Lock() }
func (s *Simulator) Unlock() { s.mu.Unlock() }

// SetController устанавливает закон управления; nil отключает расчет.
func (s *Simulator) SetController(c Controller) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctrl = c
}

func (s *Simulator) ActiveActuatorsID() []uint8 {
	return append([]uint8(nil), s.cfg.ActiveMotors...)
}

func (s *Simulator) ActuatorStatus(id uint8) (models.ActuatorStatus, bool) {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	return models.FindStatus(s.snapshot, id)
}

func (s *Simulator) ActuatorsStatus() []models.ActuatorStatus {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	return append([]models.ActuatorStatus(nil), s.snapshot...)
}

func (s *Simulator) EnableMotors() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.drives {
		d.Enable()
	}
	s.logger.Info("Enable requested for all motors")
}

func (s *Simulator) DisableMotors() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.drives {
		d.Disable()
	}
	s.logger.Info("Disable requested for all motors")
}

// ClearFaults запрашивает сброс аварии у приводов в состоянии fault.
func (s *Simulator) ClearFaults() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.drives {
		if d.State() == drive.Fault {
			d.FaultReset()
			s.logger.WithError(apperrors.ErrProtocolFault).WithField("drive", d.ID()).Warn("Fault reset requested")
		}
	}
}

func (s *Simulator) MotorsEnabled() bool {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	for _, st := range s.snapshot {
		if st.State != drive.OperationEnabled {
			return false
		}
	}
	return true
}

func (s *Simulator) AnyMotorEnabled() bool {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	for _, st := range s.snapshot {
		if st.State == drive.OperationEnabled {
			return true
		}
	}
	return false
}

func (s *Simulator) MotorEnabled(id uint8) bool {
	st, ok := s.ActuatorStatus(id)
	return ok && st.State == drive.OperationEnabled
}

// InjectFault имитирует аварию привода id.
func (s *Simulator) InjectFault(id uint8) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[id]
	if !ok {
		return fmt.Errorf("motor %d: %w", id, apperrors.ErrDataNotFound)
	}
	s.devices[i].InjectFault()
	return nil
}

// UpdateHomeConfig связывает текущую позицию мотора с длиной троса и углом шкива.
func (s *Simulator) UpdateHomeConfig(id uint8, cableLen, pulleyAngle float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[id]
	if !ok {
		return fmt.Errorf("motor %d: %w", id, apperrors.ErrDataNotFound)
	}
	in := s.drives[i].Inputs()
	s.home[i] = homeConfig{
		length: cableLen,
		angle:  pulleyAngle,
		counts: in.PositionActualValue,
		aux:    in.AuxPositionActualValue,
	}
	s.logger.WithFields(logrus.Fields{
		"actuator":     id,
		"cable_length": cableLen,
		"pulley_angle": pulleyAngle,
		"counts":       in.PositionActualValue,
	}).Info("Home configuration updated")
	return nil
}

// LengthToCounts переводит приращение длины троса в отсчеты мотора.
func (s *Simulator) LengthToCounts(_ uint8, length float64) int32 {
	return int32(math.Round(length * s.cfg.CountsPerMeter))
}

// GoHome возвращает все приводы в позиции последней домашней конфигурации
// и оставляет их удерживаться там в позиционном режиме.
func (s *Simulator) GoHome(ctx context.Context) bool {
	s.mu.Lock()
	hc := newHomeController(s.cfg.ActiveMotors, s.cfg.HomePosTolerance)
	for i := range s.home {
		hc.targets[i] = s.home[i].counts
	}
	s.ctrl = hc
	s.mu.Unlock()

	res := s.WaitUntilTargetReached(ctx)
	if res != Reached {
		s.logger.WithField("result", res).Warn("Going home failed")
		return false
	}
	s.logger.Info("Robot is at home configuration")
	return true
}

func (s *Simulator) SetPlatformPose(pose models.Pose) {
	s.poseMu.Lock()
	defer s.poseMu.Unlock()
	s.pose = pose
}

func (s *Simulator) PlatformPose() models.Pose {
	s.poseMu.RLock()
	defer s.poseMu.RUnlock()
	return s.pose
}

// CollectAndDumpMeas пишет в журнал текущий снимок указанных приводов.
func (s *Simulator) CollectAndDumpMeas(ids ...uint8) error {
	statuses := s.ActuatorsStatus()
	if len(ids) > 0 {
		selected := make([]models.ActuatorStatus, 0, len(ids))
		for _, id := range ids {
			st, ok := models.FindStatus(statuses, id)
			if !ok {
				return fmt.Errorf("motor %d: %w", id, apperrors.ErrTargetMismatch)
			}
			selected = append(selected, st)
		}
		statuses = selected
	}
	return s.meas.Dump(time.Now(), statuses)
}

// MeasCount возвращает число измерений, записанных по приводу id.
func (s *Simulator) MeasCount(id uint8) int { return s.meas.Count(id) }

func (s *Simulator) WaitUntilTargetReached(ctx context.Context) WaitResult {
	return s.waiter.Poll(ctx, s.cfg.PollPeriod, s.cfg.MaxWait, func() bool {
		statuses := s.ActuatorsStatus()
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.ctrl == nil || s.ctrl.TargetReached(statuses)
	})
}

func (s *Simulator) WaitUntilPlatformSteady(ctx context.Context, maxWait time.Duration) WaitResult {
	scratch := make([]float64, s.cfg.SteadyWindow)
	return s.waiter.Poll(ctx, s.cfg.PollPeriod, maxWait, func() bool {
		return s.platformSteady(scratch)
	})
}

// platformSteady: окно заполнено и СКО позиции каждого мотора ниже порога.
func (s *Simulator) platformSteady(scratch []float64) bool {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	if s.windowFill < s.cfg.SteadyWindow {
		return false
	}
	for _, w := range s.window {
		copy(scratch, w)
		if stat.StdDev(scratch, nil) >= s.cfg.SteadyThreshold {
			return false
		}
	}
	return true
}

func (s *Simulator) IsWaiting() bool { return s.waiter.IsWaiting() }
func (s *Simulator) StopWaiting()    { s.waiter.Stop() }

var _ Robot = (*Simulator)(nil)

// homeController удерживает все приводы в заданных позициях.
type homeController struct {
	ids     []uint8
	targets []int32
	tol     float64
	actions []models.ControlAction
}

func newHomeController(ids []uint8, tol float64) *homeController {
	return &homeController{
		ids:     ids,
		targets: make([]int32, len(ids)),
		tol:     tol,
		actions: make([]models.ControlAction, len(ids)),
	}
}

func (h *homeController) CalcCtrlActions(_ []models.ActuatorStatus) []models.ControlAction {
	for i, id := range h.ids {
		h.actions[i] = models.ControlAction{
			CtrlMode:      models.ControlMotorPosition,
			MotorID:       id,
			MotorPosition: h.targets[i],
		}
	}
	return h.actions
}

func (h *homeController) TargetReached(statuses []models.ActuatorStatus) bool {
	for i, id := range h.ids {
		st, ok := models.FindStatus(statuses, id)
		if !ok || math.Abs(float64(st.MotorPosition-h.targets[i])) >= h.tol {
			return false
		}
	}
	return true
}
