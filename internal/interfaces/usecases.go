package interfaces

import (
	"time"

	"github.com/iwtcode/cableRobot/internal/domain/models"
	core "github.com/iwtcode/cableRobot/models"
)

// Usecases - это агрегирующий интерфейс для всех use cases
type Usecases interface {
	HomingUsecase
	ActuatorUsecase
	StartStreaming(interval time.Duration) error
	StopStreaming() error
}

// HomingUsecase - операции оператора над процедурой хоминга.
type HomingUsecase interface {
	HomingState() models.HomingState
	StartHoming() error
	StartUp(req models.HomingStartRequest) error
	Optimize() error
	GoHome(req models.HomingHomeRequest) error
	DisableHoming() error
	StopWaiting()
	FaultTrigger() error
	FaultReset() error
}

// ActuatorUsecase - состояние актуаторов и идентификация одного привода.
type ActuatorUsecase interface {
	GetActuators() []core.ActuatorStatus
	GetActuator(id uint8) (core.ActuatorStatus, error)
	HoldCableLength(id uint8) error
	StartSysID() error
}
