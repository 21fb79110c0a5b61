package drive

// Биты слова состояния (status word) привода.
const (
	StatusReadyToSwitchOnBit uint = 0
	StatusSwitchedOnBit      uint = 1 // "switched-on"
	StatusEnabledBit         uint = 2 // "operation enabled"
	StatusFaultBit           uint = 3
	StatusVoltageEnabledBit  uint = 4
	StatusOnBit              uint = 5 // quick stop не активен
	StatusOffBit             uint = 6 // switch on disabled
)

// Биты управляющего слова (control word) привода.
const (
	ControlSwitchOnBit      uint = 0
	ControlEnableVoltageBit uint = 1
	ControlQuickStopBit     uint = 2
	ControlEnableOpBit      uint = 3
	ControlFaultResetBit    uint = 7
)

// InputPdos - входные регистры привода, читаемые каждый цикл.
type InputPdos struct {
	StatusWord              uint16
	ModesOfOperationDisplay int8
	PositionActualValue     int32
	VelocityActualValue     int32
	TorqueActualValue       int16
	DigitalInputs           uint32
	AuxPositionActualValue  int32
}

// OutputPdos - выходные регистры привода, записываемые каждый цикл.
type OutputPdos struct {
	ControlWord      uint16
	ModesOfOperation int8
	TargetPosition   int32
	TargetVelocity   int32
	TargetTorque     int16
}

// Bus - регистровый интерфейс полевой шины для одного привода.
// Сам транспорт находится снаружи, здесь важна только семантика регистров.
type Bus interface {
	ReadInputs() InputPdos
	WriteControl(controlWord uint16, modesOfOperation int8)
	WriteTargets(position int32, velocity int32, torque int16)
}

func bitSet(word uint16, bit uint) bool {
	return word&(1<<bit) != 0
}

func setBit(word uint16, bit uint) uint16 {
	return word | 1<<bit
}

func clearBit(word uint16, bit uint) uint16 {
	return word &^ (1 << bit)
}
