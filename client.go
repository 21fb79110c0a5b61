package cablerobot

import (
	"fmt"
	"io"
	"os"

	"github.com/iwtcode/cableRobot/control"
	"github.com/iwtcode/cableRobot/homing"
	"github.com/iwtcode/cableRobot/models"
	apperrors "github.com/iwtcode/cableRobot/pkg/errors"
	"github.com/iwtcode/cableRobot/robot"
	"github.com/iwtcode/cableRobot/sysid"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

// Client является основной точкой входа для взаимодействия с библиотекой.
// Собирает робот, контроллер одного привода, процедуру хоминга и идентификацию.
type Client struct {
	config *Config
	logger logrus.FieldLogger

	robot  *robot.Simulator
	ctrl   *control.SingleDrive
	homing *homing.App
	sysid  *sysid.Procedure
}

type options struct {
	logger    logrus.FieldLogger
	notifiers []homing.Notifier
}

// Option настраивает Client.
type Option func(*options)

// WithLogger заменяет логгер, создаваемый по LogLevel.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(o *options) { o.logger = logger }
}

// WithNotifier добавляет получателя событий хоминга к стандартному логирующему.
func WithNotifier(n homing.Notifier) Option {
	return func(o *options) { o.notifiers = append(o.notifiers, n) }
}

// New создает клиента.
func New(cfg *Config, opts ...Option) (*Client, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger
	if logger == nil {
		logger = NewLogger(cfg.LogLevel)
	}

	sim, err := robot.NewSimulator(cfg.Robot, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create robot: %w", err)
	}

	ids := sim.ActiveActuatorsID()
	ctrl := control.NewSingleDrive(ids[0], cfg.Control, logger)

	var optimizer homing.Optimizer
	if cfg.Optimizer.Command != "" {
		optimizer = &homing.ExecOptimizer{
			Command:    cfg.Optimizer.Command,
			Args:       cfg.Optimizer.Args,
			ResultPath: cfg.Optimizer.ResultPath,
			Logger:     logger,
		}
	}

	notifier := append(homing.Notifiers{homing.NewLogNotifier(logger)}, o.notifiers...)
	app := homing.NewApp(sim, ctrl, optimizer, notifier, cfg.Homing, logger)

	return &Client{
		config: cfg,
		logger: logger,
		robot:  sim,
		ctrl:   ctrl,
		homing: app,
		sysid:  sysid.New(sim, ctrl, cfg.SysID, logger),
	}, nil
}

// NewLogger создает логгер с уровнем level; "off" и "none" отключают вывод.
func NewLogger(level string) *logrus.Logger {
	logger := logrus.New()

	if level == "off" || level == "none" {
		logger.SetOutput(io.Discard)
	} else {
		lvl, err := logrus.ParseLevel(level)
		if err != nil {
			lvl = logrus.InfoLevel
		}
		logger.SetLevel(lvl)
		logger.SetOutput(os.Stdout)
	}

	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		ForceColors:     true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	return logger
}

// Open запускает цикл реального времени и рабочую горутину хоминга.
func (c *Client) Open() error {
	if err := c.robot.Start(); err != nil {
		return fmt.Errorf("failed to start robot loop: %w", err)
	}
	if err := c.homing.Open(); err != nil {
		return multierr.Append(fmt.Errorf("failed to start homing: %w", err), c.robot.Close())
	}
	c.logger.WithField("actuators", c.robot.ActiveActuatorsID()).Info("Cable robot started")
	return nil
}

// Close останавливает процедуры и цикл реального времени.
func (c *Client) Close() error {
	c.sysid.Stop()
	<-c.sysid.Done()
	err := c.homing.Close()
	if c.robot.AnyMotorEnabled() {
		c.robot.DisableMotors()
	}
	return multierr.Append(err, c.robot.Close())
}

// GetLogger возвращает используемый логгер.
func (c *Client) GetLogger() logrus.FieldLogger {
	return c.logger
}

func (c *Client) Config() *Config          { return c.config }
func (c *Client) Robot() *robot.Simulator { return c.robot }
func (c *Client) Homing() *homing.App     { return c.homing }
func (c *Client) SysID() *sysid.Procedure { return c.sysid }

// GetActuatorsStatus возвращает снимок состояния всех активных актуаторов.
func (c *Client) GetActuatorsStatus() []models.ActuatorStatus {
	return c.robot.ActuatorsStatus()
}

// GetActuatorStatus возвращает состояние одного актуатора.
func (c *Client) GetActuatorStatus(id uint8) (models.ActuatorStatus, error) {
	st, ok := c.robot.ActuatorStatus(id)
	if !ok {
		return st, fmt.Errorf("actuator %d: %w", id, apperrors.ErrDataNotFound)
	}
	return st, nil
}

// HoldCableLength передает привод id контроллеру одного привода
// в режиме длины троса с удержанием текущей длины.
func (c *Client) HoldCableLength(id uint8) error {
	if c.homing.IsCollectingData() {
		return fmt.Errorf("homing data acquisition in progress: %w", apperrors.ErrIllegalTransition)
	}
	st, err := c.GetActuatorStatus(id)
	if err != nil {
		return err
	}
	c.robot.SetController(c.ctrl)
	c.robot.Lock()
	defer c.robot.Unlock()
	c.ctrl.SetMotorID(id)
	c.ctrl.SetMode(models.ControlCableLength)
	c.ctrl.SetCableLenTarget(st.CableLength)
	return nil
}

// StartSysID запускает идентификацию для привода, удерживаемого HoldCableLength.
func (c *Client) StartSysID() error {
	if c.homing.IsCollectingData() {
		return fmt.Errorf("homing data acquisition in progress: %w", apperrors.ErrIllegalTransition)
	}
	return c.sysid.Start()
}
