package drive

import "fmt"

// State - дискретное состояние привода по протоколу управления движением.
type State uint8

const (
	SwitchOnDisabled State = iota
	ReadyToSwitchOn
	SwitchOn
	OperationEnabled
	QuickStopActive
	FaultReactionActive
	Fault

	// NullState означает отсутствие незавершенного запроса на переход.
	NullState State = 0xFF
)

// OperationState - подсостояние режима работы внутри OperationEnabled.
// Значения совпадают с кодами регистра modes of operation.
type OperationState int8

const (
	NullOperation  OperationState = 0
	CyclicPosition OperationState = 8
	CyclicVelocity OperationState = 9
	CyclicTorque   OperationState = 10
)

// DetermineState декодирует слово состояния. Декодирование тотально:
// любое 16-битное значение отображается ровно в одно из семи состояний.
func DetermineState(statusWord uint16) State {
	if bitSet(statusWord, StatusOffBit) {
		return SwitchOnDisabled
	}
	if bitSet(statusWord, StatusOnBit) {
		if !bitSet(statusWord, StatusSwitchedOnBit) {
			return ReadyToSwitchOn
		}
		if !bitSet(statusWord, StatusEnabledBit) {
			return SwitchOn
		}
		return OperationEnabled
	}
	// остановка или авария
	if !bitSet(statusWord, StatusFaultBit) {
		return QuickStopActive
	}
	if bitSet(statusWord, StatusEnabledBit) {
		return FaultReactionActive
	}
	return Fault
}

// DetermineOperationState интерпретирует регистр modes of operation display.
// Неизвестный код оставляет текущее подсостояние без изменений.
func DetermineOperationState(display int8, current OperationState) OperationState {
	switch OperationState(display) {
	case CyclicPosition, CyclicVelocity, CyclicTorque:
		return OperationState(display)
	default:
		return current
	}
}

func (s State) String() string {
	switch s {
	case SwitchOnDisabled:
		return "switchOnDisabled"
	case ReadyToSwitchOn:
		return "readyToSwitchOn"
	case SwitchOn:
		return "switchOn"
	case OperationEnabled:
		return "operationEnabled"
	case QuickStopActive:
		return "quickStopActive"
	case FaultReactionActive:
		return "faultReactionActive"
	case Fault:
		return "fault"
	case NullState:
		return "nullState"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", uint8(s))
	}
}

func (o OperationState) String() string {
	switch o {
	case NullOperation:
		return "nullOperation"
	case CyclicPosition:
		return "cyclicPosition"
	case CyclicVelocity:
		return "cyclicVelocity"
	case CyclicTorque:
		return "cyclicTorque"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int8(o))
	}
}
