package homing

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/iwtcode/cableRobot/control"
	"github.com/iwtcode/cableRobot/models"
	apperrors "github.com/iwtcode/cableRobot/pkg/errors"
	"github.com/iwtcode/cableRobot/robot"
	"github.com/sirupsen/logrus"
)

// Config - настройки процедуры хоминга.
type Config struct {
	Mode Mode
	// DeltaLength - полный ход троса при развертке по позиции, [м].
	DeltaLength      float64
	TorqueTolerance  float64 // [промилле]
	PositionStepTime time.Duration
	PollPeriod       time.Duration
	EnableWait       time.Duration
	FaultClearWait   time.Duration
	SteadyWait       time.Duration
	// OptProgressInterval - период приращения прогресса во время оптимизации.
	OptProgressInterval time.Duration
}

func DefaultConfig() Config {
	return Config{
		Mode:                TorqueMode,
		DeltaLength:         -0.1,
		TorqueTolerance:     5,
		PositionStepTime:    time.Second,
		PollPeriod:          10 * time.Millisecond,
		EnableWait:          3 * time.Second,
		FaultClearWait:      3 * time.Second,
		SteadyWait:          10 * time.Second,
		OptProgressInterval: 3 * time.Second,
	}
}

// request - переход, ожидающий выполнения в рабочей горутине.
type request struct {
	ev    Event
	start *models.HomingStartData
	home  *models.HomingHomeData

	// optimization отмечает результат оптимизации; token связывает его с запуском.
	optimization bool
	optOK        bool
	token        uint64
}

// App - супервизорный автомат процедуры хоминга. Внешние события проверяются
// по таблице сразу, а принятые переходы (со сторожевыми условиями и действиями
// входа) выполняются последовательно в рабочей горутине.
type App struct {
	cfg       Config
	robot     robot.Robot
	ctrl      *control.SingleDrive
	optimizer Optimizer
	notifier  Notifier
	logger    logrus.FieldLogger

	mu        sync.Mutex
	state     State
	prevState State
	sessionID string
	optToken  uint64
	optCancel context.CancelFunc

	faultPending   atomic.Bool
	disablePending atomic.Bool
	progress       atomic.Int32

	sess   session
	waiter *robot.Waiter

	requests chan request
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewApp создает автомат в состоянии IDLE. Рабочая горутина запускается Open.
func NewApp(r robot.Robot, ctrl *control.SingleDrive, optimizer Optimizer, notifier Notifier, cfg Config, logger logrus.FieldLogger) *App {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if notifier == nil {
		notifier = NewLogNotifier(logger)
	}
	return &App{
		cfg:       cfg,
		robot:     r,
		ctrl:      ctrl,
		optimizer: optimizer,
		notifier:  notifier,
		logger:    logger.WithField("component", "homing"),
		state:     Idle,
		prevState: MaxStates,
		waiter:    robot.NewWaiter(),
		requests:  make(chan request, 16),
	}
}

// Open запускает рабочую горутину.
func (a *App) Open() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancel != nil {
		return fmt.Errorf("homing worker already running")
	}
	a.ctx, a.cancel = context.WithCancel(context.Background())
	a.notifier.Message(fmt.Sprintf("Homing initial state: %s", a.state))

	a.wg.Add(1)
	go a.worker()
	return nil
}

// Close останавливает рабочую горутину, прерывая текущие ожидания.
func (a *App) Close() error {
	a.mu.Lock()
	cancel := a.cancel
	a.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	a.stopWaiting()
	a.wg.Wait()

	a.mu.Lock()
	a.cancel = nil
	if a.optCancel != nil {
		a.optCancel()
		a.optCancel = nil
	}
	a.mu.Unlock()
	return nil
}

func (a *App) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// IsCollectingData сообщает, идет ли сбор измерений.
func (a *App) IsCollectingData() bool { return a.State().Collecting() }

// SessionID - идентификатор текущего или последнего сеанса сбора данных.
func (a *App) SessionID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sessionID
}

func (a *App) Progress() int { return int(a.progress.Load()) }

// Start включает приводы: IDLE -> ENABLED.
func (a *App) Start() error { return a.post(request{ev: EvStart}) }

// StartUp запускает сбор измерений: ENABLED -> START_UP.
func (a *App) StartUp(data *models.HomingStartData) error {
	if err := a.validateStart(data); err != nil {
		return err
	}
	cp := *data
	cp.InitTorques = append([]int16(nil), data.InitTorques...)
	cp.MaxTorques = append([]int16(nil), data.MaxTorques...)
	return a.post(request{ev: EvStartUp, start: &cp})
}

// Optimize запускает внешнюю оптимизацию: ENABLED|HOME -> OPTIMIZING.
func (a *App) Optimize() error { return a.post(request{ev: EvOptimize}) }

// GoHome применяет готовые результаты калибровки: ENABLED -> HOME.
func (a *App) GoHome(data *models.HomingHomeData) error {
	if err := a.validateHome(data); err != nil {
		return err
	}
	cp := *data
	cp.InitLengths = append([]float64(nil), data.InitLengths...)
	cp.InitAngles = append([]float64(nil), data.InitAngles...)
	return a.post(request{ev: EvGoHome, home: &cp})
}

// Disable выключает приводы. Во время сбора данных событие откладывается:
// текущее ожидание прерывается, а выключение выполняется после возврата в ENABLED.
func (a *App) Disable() error {
	a.mu.Lock()
	collecting := a.state.Collecting()
	a.mu.Unlock()
	if collecting {
		a.disablePending.Store(true)
		a.stopWaiting()
		a.logger.Info("Disable requested during data acquisition, aborting")
		return nil
	}
	return a.post(request{ev: EvDisable})
}

// FaultTrigger переводит автомат в FAULT из любого состояния.
func (a *App) FaultTrigger() error {
	a.mu.Lock()
	_, disp := Lookup(EvFaultTrigger, a.state)
	a.mu.Unlock()
	if disp == Accept {
		// флаг выставляется до постановки в очередь: текущая цепочка переходов
		// свернет в FAULT, не дожидаясь обработки события
		a.faultPending.Store(true)
		a.stopWaiting()
	}
	if err := a.post(request{ev: EvFaultTrigger}); err != nil {
		if disp == Accept {
			a.faultPending.Store(false)
		}
		return err
	}
	return nil
}

// FaultReset сбрасывает аварию: FAULT -> IDLE после очистки аварий приводов.
func (a *App) FaultReset() error { return a.post(request{ev: EvFaultReset}) }

// Stop прерывает текущее ожидание, если робот ждет.
func (a *App) Stop() {
	if a.robot.IsWaiting() || a.waiter.IsWaiting() {
		a.stopWaiting()
		a.logger.Info("Waiting stopped by user")
	}
}

func (a *App) stopWaiting() {
	a.robot.StopWaiting()
	a.waiter.Stop()
}

// post проверяет событие по таблице и ставит принятый переход в очередь.
func (a *App) post(req request) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	cur := a.state
	next, disp := Lookup(req.ev, cur)
	fields := logrus.Fields{"event": req.ev, "state": cur}
	switch disp {
	case Ignore:
		a.logger.WithFields(fields).Debug("Event ignored")
		return fmt.Errorf("%s in %s: %w", req.ev, cur, apperrors.ErrEventIgnored)
	case CannotHappen:
		a.logger.WithFields(fields).Warn("Event cannot happen in current state")
		return fmt.Errorf("%s in %s: %w", req.ev, cur, apperrors.ErrIllegalTransition)
	}
	if a.cancel == nil {
		return fmt.Errorf("homing worker is not running")
	}

	select {
	case a.requests <- req:
		a.logger.WithFields(fields).WithField("next", next).Debug("Event accepted")
		return nil
	default:
		return fmt.Errorf("homing event queue is full")
	}
}

func (a *App) worker() {
	defer a.wg.Done()
	for {
		select {
		case <-a.ctx.Done():
			return
		case req := <-a.requests:
			a.handle(req)
		}
	}
}

func (a *App) handle(req request) {
	a.mu.Lock()
	cur := a.state
	token := a.optToken
	a.mu.Unlock()

	if req.optimization {
		if cur != Optimizing || req.token != token {
			a.logger.WithField("state", cur).Debug("Stale optimization result dropped")
			return
		}
		if req.optOK {
			a.run(Home, req)
		} else {
			a.run(Enabled, request{})
		}
		return
	}

	next, disp := Lookup(req.ev, cur)
	if disp != Accept {
		a.logger.WithFields(logrus.Fields{"event": req.ev, "state": cur}).Debug("Queued event no longer applies")
		return
	}
	a.run(next, req)
}

// run выполняет переход в next и затем цепочку внутренних переходов,
// которые возвращают действия входа.
func (a *App) run(next State, req request) {
	for {
		if a.faultPending.Load() {
			next = Fault
		}

		dest, ok := a.guard(next, req)
		if !ok {
			return
		}
		if dest != next {
			next = dest
			continue
		}

		a.enter(next)
		follow, chained := a.entryAction(next, req)
		if !chained {
			return
		}
		next, req = follow, request{}
	}
}

// enter фиксирует новое состояние и сообщает о переходе.
func (a *App) enter(next State) {
	a.mu.Lock()
	prev := a.state
	a.prevState = prev
	a.state = next
	if prev == Optimizing && next != Optimizing && a.optCancel != nil {
		a.optCancel()
		a.optCancel = nil
	}
	a.mu.Unlock()

	if next == Fault {
		a.faultPending.Store(false)
	}
	a.notifier.Message(fmt.Sprintf("Homing state transition: %s --> %s", prev, next))
	a.notifier.StateChanged(prev, next)
}

func (a *App) newSession() string {
	id := uuid.New().String()
	a.mu.Lock()
	a.sessionID = id
	a.mu.Unlock()
	return id
}

// aborted сообщает о запрошенной аварии или выключении.
func (a *App) aborted() bool {
	return a.faultPending.Load() || a.disablePending.Load() || a.ctx.Err() != nil
}

func (a *App) warn(msg string, err error) {
	a.logger.WithError(err).Warn(msg)
	a.notifier.Message("WARNING: " + msg)
}

func (a *App) setProgress(p int) {
	a.progress.Store(int32(p))
	a.notifier.Progress(p)
}
