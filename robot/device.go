package robot

import (
	"math"

	"github.com/iwtcode/cableRobot/drive"
)

// PlantParams - параметры упрощенной модели лебедки с упругим тросом.
type PlantParams struct {
	// Stiffness - момент на отсчет растяжения троса, [промилле/отсчет].
	Stiffness float64
	// Alpha - коэффициент фильтра первого порядка за цикл, (0, 1].
	Alpha float64
	// AuxRatio - отношение отсчетов вспомогательного энкодера к отсчетам мотора.
	AuxRatio float64
	// RestPosition - позиция мотора, при которой трос провисает.
	RestPosition float64
}

func DefaultPlantParams() PlantParams {
	return PlantParams{Stiffness: 0.05, Alpha: 0.2, AuxRatio: 0.1}
}

// statusWords - слова состояния, которые выставляет эмулятор.
var statusWords = map[drive.State]uint16{
	drive.SwitchOnDisabled:    0x40,
	drive.ReadyToSwitchOn:     0x21,
	drive.SwitchOn:            0x23,
	drive.OperationEnabled:    0x27,
	drive.QuickStopActive:     0x07,
	drive.FaultReactionActive: 0x0F,
	drive.Fault:               0x08,
}

// Device эмулирует сервопривод с протоколом включения на уровне регистров.
// Используется вместо полевой шины в симуляторе и тестах.
type Device struct {
	plant PlantParams
	dt    float64

	state       drive.State
	controlWord uint16
	prevReset   bool
	mode        int8

	pos, vel float64
	torque   float64

	targetPos    float64
	targetVel    float64
	targetTorque float64

	faultPending bool
}

// NewDevice создает эмулятор в состоянии switchOnDisabled с мотором в позиции pos.
func NewDevice(plant PlantParams, cycleSec float64, pos float64) *Device {
	if plant.Alpha <= 0 || plant.Alpha > 1 {
		plant.Alpha = 1
	}
	return &Device{
		plant:     plant,
		dt:        cycleSec,
		state:     drive.SwitchOnDisabled,
		mode:      int8(drive.CyclicPosition),
		pos:       pos,
		targetPos: pos,
	}
}

func (d *Device) ReadInputs() drive.InputPdos {
	return drive.InputPdos{
		StatusWord:              statusWords[d.state],
		ModesOfOperationDisplay: d.mode,
		PositionActualValue:     int32(math.Round(d.pos)),
		VelocityActualValue:     int32(math.Round(d.vel)),
		TorqueActualValue:       int16(math.Round(d.torque)),
		AuxPositionActualValue:  int32(math.Round(d.pos * d.plant.AuxRatio)),
	}
}

func (d *Device) WriteControl(controlWord uint16, modesOfOperation int8) {
	d.controlWord = controlWord
	if modesOfOperation != int8(drive.NullOperation) {
		d.mode = modesOfOperation
	}
}

func (d *Device) WriteTargets(position int32, velocity int32, torque int16) {
	d.targetPos = float64(position)
	d.targetVel = float64(velocity)
	d.targetTorque = float64(torque)
}

// InjectFault переводит привод в faultReactionActive на следующем шаге.
func (d *Device) InjectFault() { d.faultPending = true }

func (d *Device) State() drive.State { return d.state }

// Step продвигает автомат протокола и модель на один цикл.
func (d *Device) Step() {
	d.stepProtocol()
	d.stepPlant()
}

func (d *Device) stepProtocol() {
	cw := d.controlWord
	reset := cw&(1<<drive.ControlFaultResetBit) != 0
	risingReset := reset && !d.prevReset
	d.prevReset = reset

	if d.faultPending && d.state != drive.Fault && d.state != drive.FaultReactionActive {
		d.faultPending = false
		d.state = drive.FaultReactionActive
		return
	}

	voltage := cw&(1<<drive.ControlEnableVoltageBit) != 0
	quickStop := cw&(1<<drive.ControlQuickStopBit) != 0
	switchOn := cw&(1<<drive.ControlSwitchOnBit) != 0
	enableOp := cw&(1<<drive.ControlEnableOpBit) != 0
	shutdown := voltage && quickStop && !switchOn

	switch d.state {
	case drive.FaultReactionActive:
		d.state = drive.Fault
	case drive.Fault:
		if risingReset {
			d.state = drive.SwitchOnDisabled
		}
	case drive.QuickStopActive:
		d.state = drive.SwitchOnDisabled
	case drive.SwitchOnDisabled:
		if shutdown {
			d.state = drive.ReadyToSwitchOn
		}
	case drive.ReadyToSwitchOn:
		switch {
		case !voltage || !quickStop:
			d.state = drive.SwitchOnDisabled
		case switchOn:
			d.state = drive.SwitchOn
		}
	case drive.SwitchOn:
		switch {
		case !voltage || !quickStop:
			d.state = drive.SwitchOnDisabled
		case shutdown:
			d.state = drive.ReadyToSwitchOn
		case enableOp:
			d.state = drive.OperationEnabled
		}
	case drive.OperationEnabled:
		switch {
		case !voltage:
			d.state = drive.SwitchOnDisabled
		case !quickStop:
			d.state = drive.QuickStopActive
		case shutdown:
			d.state = drive.ReadyToSwitchOn
		case !enableOp:
			d.state = drive.SwitchOn
		}
	}
}

func (d *Device) stepPlant() {
	prev := d.pos
	if d.state == drive.OperationEnabled {
		a := d.plant.Alpha
		switch drive.OperationState(d.mode) {
		case drive.CyclicPosition:
			d.pos += a * (d.targetPos - d.pos)
		case drive.CyclicVelocity:
			d.pos += d.targetVel * d.dt
		case drive.CyclicTorque:
			eq := d.plant.RestPosition
			if d.plant.Stiffness > 0 && d.targetTorque > 0 {
				eq += d.targetTorque / d.plant.Stiffness
			}
			d.pos += a * (eq - d.pos)
		}
	}
	if d.dt > 0 {
		d.vel = (d.pos - prev) / d.dt
	}
	d.torque = math.Max(0, d.plant.Stiffness*(d.pos-d.plant.RestPosition))
}
