package usecases

import (
	cablerobot "github.com/iwtcode/cableRobot"
	"github.com/iwtcode/cableRobot/internal/interfaces"
)

// NewUsecases - конструктор для UseCases
func NewUsecases(
	client *cablerobot.Client,
	streamer interfaces.StatusStreamer,
) interfaces.Usecases {
	return NewUsecase(client, streamer)
}
