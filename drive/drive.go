package drive

import (
	"github.com/sirupsen/logrus"
)

// Drive - машина состояний одного сетевого сервопривода.
// Методы не потокобезопасны: вызываются из циклического контекста
// либо под мьютексом робота.
type Drive struct {
	id     uint8
	bus    Bus
	logger logrus.FieldLogger

	in  InputPdos
	out OutputPdos

	state       State
	requested   State
	opState     OperationState
	requestedOp OperationState
}

// New создает машину состояний привода, подключенную к регистрам bus.
func New(id uint8, bus Bus, logger logrus.FieldLogger) *Drive {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Drive{
		id:          id,
		bus:         bus,
		logger:      logger.WithField("drive", id),
		state:       SwitchOnDisabled,
		requested:   NullState,
		opState:     CyclicPosition,
		requestedOp: NullOperation,
	}
}

func (d *Drive) ID() uint8                        { return d.id }
func (d *Drive) State() State                     { return d.state }
func (d *Drive) OperationState() OperationState   { return d.opState }
func (d *Drive) PendingRequest() State            { return d.requested }
func (d *Drive) PendingOperation() OperationState { return d.requestedOp }
func (d *Drive) Inputs() InputPdos                { return d.in }
func (d *Drive) Outputs() OutputPdos              { return d.out }

// RequestState выставляет запрос перехода. Подтверждение приходит
// на одном из следующих циклов, когда декодированное состояние совпадет с запросом.
func (d *Drive) RequestState(s State) {
	d.requested = s
}

// Enable запускает последовательность включения.
func (d *Drive) Enable() { d.RequestState(ReadyToSwitchOn) }

// Disable переводит привод в switchOnDisabled.
func (d *Drive) Disable() { d.RequestState(SwitchOnDisabled) }

// FaultReset запрашивает сброс аварии; допустим только в состоянии fault.
func (d *Drive) FaultReset() { d.RequestState(SwitchOnDisabled) }

// RequestOperation запрашивает смену подсостояния режима работы.
func (d *Drive) RequestOperation(op OperationState) {
	d.requestedOp = op
}

func (d *Drive) SetTargetPosition(v int32) { d.out.TargetPosition = v }
func (d *Drive) SetTargetVelocity(v int32) { d.out.TargetVelocity = v }
func (d *Drive) SetTargetTorque(v int16)   { d.out.TargetTorque = v }

// SetTargetDefaults копирует фактическое значение в цель отображаемого режима.
func (d *Drive) SetTargetDefaults() {
	switch OperationState(d.in.ModesOfOperationDisplay) {
	case CyclicPosition:
		d.out.TargetPosition = d.in.PositionActualValue
	case CyclicVelocity:
		d.out.TargetVelocity = d.in.VelocityActualValue
	case CyclicTorque:
		d.out.TargetTorque = d.in.TorqueActualValue
	}
}

// ReadInputs читает входные регистры, декодирует состояние и выполняет
// обработчик перехода для текущего состояния.
func (d *Drive) ReadInputs() {
	d.in = d.bus.ReadInputs()
	d.state = DetermineState(d.in.StatusWord)
	if d.state == OperationEnabled {
		d.opState = DetermineOperationState(d.in.ModesOfOperationDisplay, d.opState)
	}
	d.handleTransition()
}

// WriteOutputs записывает управляющее слово, режим и, только в switchOn
// и operationEnabled, целевые значения.
func (d *Drive) WriteOutputs() {
	d.bus.WriteControl(d.out.ControlWord, d.out.ModesOfOperation)
	if d.state == OperationEnabled || d.state == SwitchOn {
		d.bus.WriteTargets(d.out.TargetPosition, d.out.TargetVelocity, d.out.TargetTorque)
	}
}

func (d *Drive) handleTransition() {
	requested := d.requested
	step := Transition(d.state, requested)

	if step.Illegal {
		d.logger.WithFields(logrus.Fields{
			"status_word": d.in.StatusWord,
			"request":     requested,
		}).Error("Illegal state change request while in fault, request dropped")
		d.requested = NullState
		return
	}

	if step.Confirmed {
		d.logger.WithFields(logrus.Fields{
			"status_word": d.in.StatusWord,
			"state":       d.state,
		}).Debug("Drive state change confirmed")
	}

	d.out.ControlWord = step.Apply(d.out.ControlWord)
	if step.PrimePosition {
		d.out.ModesOfOperation = int8(CyclicPosition)
		d.out.TargetPosition = d.in.PositionActualValue
	}
	if step.Request != KeepRequest {
		d.requested = step.Request
	}
	if step.RunOperation {
		d.handleOperation()
	}
}

// handleOperation: при совпадении запроса с текущим подсостоянием запрос снимается,
// иначе режим и цель нового подсостояния готовятся из фактического значения.
func (d *Drive) handleOperation() {
	switch d.requestedOp {
	case NullOperation:
		return
	case d.opState:
		d.requestedOp = NullOperation
	case CyclicPosition:
		d.out.ModesOfOperation = int8(CyclicPosition)
		d.out.TargetPosition = d.in.PositionActualValue
	case CyclicVelocity:
		d.out.ModesOfOperation = int8(CyclicVelocity)
		d.out.TargetVelocity = d.in.VelocityActualValue
	case CyclicTorque:
		d.out.ModesOfOperation = int8(CyclicTorque)
		d.out.TargetTorque = d.in.TorqueActualValue
	}
}
