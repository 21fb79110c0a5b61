package models

import (
	"fmt"
	"strings"
)

// PoseDim - размерность вектора позы платформы (положение + ориентация).
const PoseDim = 6

// Pose - поза платформы.
type Pose [PoseDim]float64

func (p Pose) String() string {
	return "[ " + joinFloats(p[:]) + " ]"
}

// HomingStartData - параметры фазы сбора данных. Передаются автомату
// на один переход и после него не используются.
type HomingStartData struct {
	InitTorques []int16 `json:"init_torques"`
	MaxTorques  []int16 `json:"max_torques"`
	NumMeas     uint8   `json:"num_meas"`
}

func (d *HomingStartData) String() string {
	init := "default"
	if len(d.InitTorques) > 0 {
		init = joinInts(d.InitTorques)
	}
	return fmt.Sprintf("initial torques = [ %s ], maximum torques = [ %s ], number of measurements = %d",
		init, joinInts(d.MaxTorques), d.NumMeas)
}

// HomingHomeData - результат калибровки: начальные длины тросов, углы шкивов и поза.
type HomingHomeData struct {
	InitLengths []float64 `json:"init_lengths"`
	InitAngles  []float64 `json:"init_angles"`
	InitPose    Pose      `json:"init_pose"`
}

func (d *HomingHomeData) String() string {
	return fmt.Sprintf("initial cable lengths = [ %s ], initial pulley angles = [ %s ], initial platform pose = %s",
		joinFloats(d.InitLengths), joinFloats(d.InitAngles), d.InitPose)
}

func joinInts(values []int16) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, " ")
}

func joinFloats(values []float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%g", v)
	}
	return strings.Join(parts, " ")
}
