package models

import (
	"github.com/iwtcode/cableRobot/drive"
)

// MotorStatus содержит состояние двигателя за один цикл
type MotorStatus struct {
	ID            uint8 `json:"id"`
	OpMode        int8  `json:"op_mode"`
	MotorPosition int32 `json:"motor_position"` // отсчеты энкодера
	MotorSpeed    int32 `json:"motor_speed"`    // отсчеты/с
	MotorTorque   int16 `json:"motor_torque"`   // промилле номинального момента
}

// WinchStatus расширяет состояние двигателя данными лебедки
type WinchStatus struct {
	MotorStatus
	AuxPosition int32   `json:"aux_position"` // вспомогательный энкодер (поворотный шкив)
	CableLength float64 `json:"cable_length"` // [м]
}

// ActuatorStatus - неизменяемый снимок одного актуатора за цикл.
// Создается путем чтения полевой шины и дальше только читается.
type ActuatorStatus struct {
	WinchStatus
	State       drive.State `json:"state"`
	PulleyAngle float64     `json:"pulley_angle"` // [рад]
}

// NewActuatorStatus собирает снимок из входных регистров привода.
func NewActuatorStatus(id uint8, in drive.InputPdos, state drive.State, cableLength, pulleyAngle float64) ActuatorStatus {
	return ActuatorStatus{
		WinchStatus: WinchStatus{
			MotorStatus: MotorStatus{
				ID:            id,
				OpMode:        in.ModesOfOperationDisplay,
				MotorPosition: in.PositionActualValue,
				MotorSpeed:    in.VelocityActualValue,
				MotorTorque:   in.TorqueActualValue,
			},
			AuxPosition: in.AuxPositionActualValue,
			CableLength: cableLength,
		},
		State:       state,
		PulleyAngle: pulleyAngle,
	}
}

// FindStatus ищет снимок актуатора по id.
func FindStatus(statuses []ActuatorStatus, id uint8) (ActuatorStatus, bool) {
	for _, s := range statuses {
		if s.ID == id {
			return s, true
		}
	}
	return ActuatorStatus{}, false
}
