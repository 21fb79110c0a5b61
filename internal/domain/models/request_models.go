package models

import (
	core "github.com/iwtcode/cableRobot/models"
)

// HomingStartRequest определяет параметры сбора измерений хоминга.
type HomingStartRequest struct {
	InitTorques []int16 `json:"init_torques"`
	MaxTorques  []int16 `json:"max_torques" binding:"required"`
	NumMeas     uint8   `json:"num_meas" binding:"required,gte=2"`
}

func (r HomingStartRequest) ToCore() *core.HomingStartData {
	return &core.HomingStartData{
		InitTorques: r.InitTorques,
		MaxTorques:  r.MaxTorques,
		NumMeas:     r.NumMeas,
	}
}

// HomingHomeRequest определяет готовые результаты калибровки.
type HomingHomeRequest struct {
	InitLengths []float64 `json:"init_lengths" binding:"required"`
	InitAngles  []float64 `json:"init_angles" binding:"required"`
	InitPose    core.Pose `json:"init_pose"`
}

func (r HomingHomeRequest) ToCore() *core.HomingHomeData {
	return &core.HomingHomeData{
		InitLengths: r.InitLengths,
		InitAngles:  r.InitAngles,
		InitPose:    r.InitPose,
	}
}

// ActuatorRequest определяет структуру для запросов к одному актуатору.
type ActuatorRequest struct {
	ActuatorID *uint8 `json:"actuator_id" binding:"required"`
}

// StreamingRequest определяет структуру для запроса на запуск публикации состояния.
type StreamingRequest struct {
	Interval int `json:"interval" binding:"required,gt=0"` // в миллисекундах
}
