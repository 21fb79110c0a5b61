package models

import (
	core "github.com/iwtcode/cableRobot/models"
)

// ErrorResponse представляет стандартный ответ с ошибкой.
type ErrorResponse struct {
	Status string `json:"status" example:"error"`
	Error  struct {
		Code    int    `json:"code" example:"409"`
		Message string `json:"message" example:"conflict"`
	} `json:"error"`
}

// MessageResponse представляет стандартный успешный ответ с сообщением.
type MessageResponse struct {
	Status  string `json:"status" example:"ok"`
	Message string `json:"message" example:"Homing start requested"`
}

// HomingState - состояние процедуры хоминга.
type HomingState struct {
	State          string `json:"state" example:"ENABLED"`
	Progress       int    `json:"progress" example:"40"`
	CollectingData bool   `json:"collecting_data"`
	SessionID      string `json:"session_id,omitempty"`
	Waiting        bool   `json:"waiting"`
}

// HomingStateResponse представляет ответ с состоянием хоминга.
type HomingStateResponse struct {
	Status string      `json:"status" example:"ok"`
	Homing HomingState `json:"homing"`
}

// ActuatorsResponse представляет ответ со снимком состояния актуаторов.
type ActuatorsResponse struct {
	Status    string                `json:"status" example:"ok"`
	Count     int                   `json:"count" example:"4"`
	Actuators []core.ActuatorStatus `json:"actuators"`
}
