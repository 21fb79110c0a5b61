package usecases

import (
	"time"

	cablerobot "github.com/iwtcode/cableRobot"
	"github.com/iwtcode/cableRobot/internal/domain/models"
	"github.com/iwtcode/cableRobot/internal/interfaces"
	core "github.com/iwtcode/cableRobot/models"
)

type Usecase struct {
	client   *cablerobot.Client
	streamer interfaces.StatusStreamer
}

func NewUsecase(client *cablerobot.Client, streamer interfaces.StatusStreamer) interfaces.Usecases {
	return &Usecase{
		client:   client,
		streamer: streamer,
	}
}

func (u *Usecase) HomingState() models.HomingState {
	app := u.client.Homing()
	return models.HomingState{
		State:          app.State().String(),
		Progress:       app.Progress(),
		CollectingData: app.IsCollectingData(),
		SessionID:      app.SessionID(),
		Waiting:        u.client.Robot().IsWaiting(),
	}
}

func (u *Usecase) StartHoming() error { return u.client.Homing().Start() }

func (u *Usecase) StartUp(req models.HomingStartRequest) error {
	return u.client.Homing().StartUp(req.ToCore())
}

func (u *Usecase) Optimize() error { return u.client.Homing().Optimize() }

func (u *Usecase) GoHome(req models.HomingHomeRequest) error {
	return u.client.Homing().GoHome(req.ToCore())
}

func (u *Usecase) DisableHoming() error { return u.client.Homing().Disable() }
func (u *Usecase) StopWaiting()         { u.client.Homing().Stop() }
func (u *Usecase) FaultTrigger() error  { return u.client.Homing().FaultTrigger() }
func (u *Usecase) FaultReset() error    { return u.client.Homing().FaultReset() }

func (u *Usecase) GetActuators() []core.ActuatorStatus {
	return u.client.GetActuatorsStatus()
}

func (u *Usecase) GetActuator(id uint8) (core.ActuatorStatus, error) {
	return u.client.GetActuatorStatus(id)
}

func (u *Usecase) HoldCableLength(id uint8) error { return u.client.HoldCableLength(id) }
func (u *Usecase) StartSysID() error              { return u.client.StartSysID() }

func (u *Usecase) StartStreaming(interval time.Duration) error {
	return u.streamer.StartStreaming(interval)
}

func (u *Usecase) StopStreaming() error { return u.streamer.StopStreaming() }
