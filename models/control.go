package models

import "fmt"

// ControlMode - режим управления одним приводом.
type ControlMode int8

const (
	ControlNone ControlMode = iota
	ControlCableLength
	ControlMotorPosition
	ControlMotorSpeed
	ControlMotorTorque
)

func (m ControlMode) String() string {
	switch m {
	case ControlNone:
		return "NONE"
	case ControlCableLength:
		return "CABLE_LENGTH"
	case ControlMotorPosition:
		return "MOTOR_POSITION"
	case ControlMotorSpeed:
		return "MOTOR_SPEED"
	case ControlMotorTorque:
		return "MOTOR_TORQUE"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int8(m))
	}
}

// ControlAction - выход контроллера за один цикл. Значим только
// один из полезных полей, соответствующий CtrlMode.
type ControlAction struct {
	CtrlMode      ControlMode `json:"ctrl_mode"`
	MotorID       uint8       `json:"motor_id"`
	CableLength   float64     `json:"cable_length"`
	MotorPosition int32       `json:"motor_position"`
	MotorSpeed    int32       `json:"motor_speed"`
	MotorTorque   int16       `json:"motor_torque"`
}

// TargetFlag - вид активной цели.
type TargetFlag uint8

const (
	TargetLength TargetFlag = 1 << iota
	TargetPosition
	TargetSpeed
	TargetTorque
)

// TargetFlags - битовый набор активных целей.
type TargetFlags uint8

func (f *TargetFlags) Set(flag TargetFlag)     { *f |= TargetFlags(flag) }
func (f *TargetFlags) Clear(flag TargetFlag)   { *f &^= TargetFlags(flag) }
func (f *TargetFlags) ClearAll()               { *f = 0 }
func (f TargetFlags) Has(flag TargetFlag) bool { return f&TargetFlags(flag) != 0 }
