package homing

import (
	"github.com/iwtcode/cableRobot/models"
	"github.com/sirupsen/logrus"
)

// Notifier получает события процедуры хоминга. Вызывается из рабочей горутины
// и из горутины оптимизации; реализации должны быть потокобезопасны и не блокироваться надолго.
type Notifier interface {
	StateChanged(from, to State)
	Progress(percent int)
	Message(msg string)
	AcquisitionComplete(sessionID string)
	HomingComplete(data models.HomingHomeData)
}

// LogNotifier пишет события в лог.
type LogNotifier struct {
	logger logrus.FieldLogger
}

func NewLogNotifier(logger logrus.FieldLogger) *LogNotifier {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &LogNotifier{logger: logger.WithField("component", "homing")}
}

func (n *LogNotifier) StateChanged(from, to State) {
	n.logger.WithFields(logrus.Fields{"from": from, "to": to}).Debug("Homing state changed")
}

func (n *LogNotifier) Progress(percent int) {
	n.logger.WithField("progress", percent).Debug("Homing progress")
}

func (n *LogNotifier) Message(msg string) { n.logger.Info(msg) }

func (n *LogNotifier) AcquisitionComplete(sessionID string) {
	n.logger.WithField("session", sessionID).Info("Data acquisition complete")
}

func (n *LogNotifier) HomingComplete(data models.HomingHomeData) {
	n.logger.WithField("result", data.String()).Info("Homing complete")
}

// Notifiers рассылает события всем получателям по порядку.
type Notifiers []Notifier

func (ns Notifiers) StateChanged(from, to State) {
	for _, n := range ns {
		n.StateChanged(from, to)
	}
}

func (ns Notifiers) Progress(percent int) {
	for _, n := range ns {
		n.Progress(percent)
	}
}

func (ns Notifiers) Message(msg string) {
	for _, n := range ns {
		n.Message(msg)
	}
}

func (ns Notifiers) AcquisitionComplete(sessionID string) {
	for _, n := range ns {
		n.AcquisitionComplete(sessionID)
	}
}

func (ns Notifiers) HomingComplete(data models.HomingHomeData) {
	for _, n := range ns {
		n.HomingComplete(data)
	}
}
