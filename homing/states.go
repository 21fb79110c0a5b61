package homing

import "fmt"

// State - состояние процедуры хоминга.
type State uint8

const (
	Idle State = iota
	Enabled
	StartUp
	SwitchCable
	Coiling
	Uncoiling
	Optimizing
	Home
	Fault
	// MaxStates - число состояний; как предыдущее состояние означает "еще не было".
	MaxStates
)

var stateNames = [...]string{
	Idle:        "IDLE",
	Enabled:     "ENABLED",
	StartUp:     "START_UP",
	SwitchCable: "SWITCH_CABLE",
	Coiling:     "COILING",
	Uncoiling:   "UNCOILING",
	Optimizing:  "OPTIMIZING",
	Home:        "HOME",
	Fault:       "FAULT",
}

func (s State) String() string {
	if s < MaxStates {
		return stateNames[s]
	}
	return fmt.Sprintf("UNKNOWN(%d)", uint8(s))
}

// Collecting сообщает, идет ли в этом состоянии сбор измерений.
func (s State) Collecting() bool {
	switch s {
	case StartUp, SwitchCable, Coiling, Uncoiling:
		return true
	default:
		return false
	}
}

// Event - внешнее событие процедуры.
type Event uint8

const (
	EvStart Event = iota
	EvStartUp
	EvOptimize
	EvGoHome
	EvDisable
	EvFaultTrigger
	EvFaultReset
	numEvents
)

var eventNames = [...]string{
	EvStart:        "START",
	EvStartUp:      "START_UP",
	EvOptimize:     "OPTIMIZE",
	EvGoHome:       "GO_HOME",
	EvDisable:      "DISABLE",
	EvFaultTrigger: "FAULT_TRIGGER",
	EvFaultReset:   "FAULT_RESET",
}

func (e Event) String() string {
	if e < numEvents {
		return eventNames[e]
	}
	return fmt.Sprintf("UNKNOWN(%d)", uint8(e))
}

// Mode - способ развертки при сборе измерений.
type Mode uint8

const (
	TorqueMode Mode = iota
	PositionMode
)

func (m Mode) String() string {
	if m == PositionMode {
		return "POSITION"
	}
	return "TORQUE"
}

// ParseMode разбирает "torque" или "position".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "torque", "TORQUE", "":
		return TorqueMode, nil
	case "position", "POSITION":
		return PositionMode, nil
	default:
		return TorqueMode, fmt.Errorf("unknown homing mode %q", s)
	}
}
