package robot

import (
	"context"
	"time"

	"github.com/iwtcode/cableRobot/models"
)

// Controller - закон управления, вызываемый раз в цикл реального времени.
type Controller interface {
	CalcCtrlActions(statuses []models.ActuatorStatus) []models.ControlAction
	TargetReached(statuses []models.ActuatorStatus) bool
}

// Robot - интерфейс реального времени, которым пользуются супервизорные процедуры.
//
// Lock/Unlock - мьютекс контроллера: любые изменения цели или режима
// контроллера выполняются под ним и вступают в силу со следующего цикла.
// Остальные методы нельзя вызывать, удерживая Lock.
type Robot interface {
	ActuatorStatus(id uint8) (models.ActuatorStatus, bool)
	ActuatorsStatus() []models.ActuatorStatus
	ActiveActuatorsID() []uint8

	EnableMotors()
	DisableMotors()
	MotorsEnabled() bool
	AnyMotorEnabled() bool
	MotorEnabled(id uint8) bool
	ClearFaults()

	Lock()
	Unlock()
	SetController(c Controller)

	UpdateHomeConfig(id uint8, cableLen, pulleyAngle float64) error
	LengthToCounts(id uint8, length float64) int32
	GoHome(ctx context.Context) bool
	SetPlatformPose(pose models.Pose)
	PlatformPose() models.Pose

	// CollectAndDumpMeas записывает одно измерение по указанным приводам
	// (по всем активным, если ids пуст).
	CollectAndDumpMeas(ids ...uint8) error

	WaitUntilTargetReached(ctx context.Context) WaitResult
	WaitUntilPlatformSteady(ctx context.Context, maxWait time.Duration) WaitResult
	IsWaiting() bool
	StopWaiting()
}
