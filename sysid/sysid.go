// Package sysid - идентификация динамики одного привода: проигрывание
// заданных смещений длины троса с периодической записью измерений.
package sysid

import (
	"bufio"
	"context"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/iwtcode/cableRobot/control"
	"github.com/iwtcode/cableRobot/models"
	apperrors "github.com/iwtcode/cableRobot/pkg/errors"
	"github.com/iwtcode/cableRobot/robot"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var (
	ErrNotEnabled = errors.Wrap(apperrors.ErrNotReady, "actuator is not enabled")
	ErrWrongMode  = errors.Wrap(apperrors.ErrNotReady, "controller is not in cable length mode")
	ErrBusy       = errors.Wrap(apperrors.ErrNotReady, "identification already running")
)

type Config struct {
	// TrajFile - смещения длины троса [м], разделенные пробелами или переводами строк.
	TrajFile     string
	LogInterval  time.Duration
	Length       time.Duration
	SamplePeriod time.Duration
}

func DefaultConfig() Config {
	return Config{
		TrajFile:     "/tmp/trajectory.txt",
		LogInterval:  10 * time.Millisecond,
		Length:       10 * time.Second,
		SamplePeriod: time.Millisecond,
	}
}

// Procedure запускает идентификацию для привода, которым управляет контроллер.
type Procedure struct {
	robot  robot.Robot
	ctrl   *control.SingleDrive
	cfg    Config
	logger logrus.FieldLogger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func New(r robot.Robot, ctrl *control.SingleDrive, cfg Config, logger logrus.FieldLogger) *Procedure {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	closed := make(chan struct{})
	close(closed)
	return &Procedure{
		robot:  r,
		ctrl:   ctrl,
		cfg:    cfg,
		logger: logger.WithField("component", "sysid"),
		done:   closed,
	}
}

// Start проверяет готовность привода, строит траекторию вокруг текущей длины
// и запускает ее проигрывание. Возвращается сразу; окончание - по Done.
func (p *Procedure) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return ErrBusy
	}

	p.robot.Lock()
	id, mode := p.ctrl.MotorID(), p.ctrl.Mode()
	p.robot.Unlock()

	if !p.robot.MotorEnabled(id) {
		return errors.Wrapf(ErrNotEnabled, "actuator %d", id)
	}
	if mode != models.ControlCableLength {
		return errors.Wrapf(ErrWrongMode, "mode %s", mode)
	}
	st, ok := p.robot.ActuatorStatus(id)
	if !ok {
		return errors.Wrapf(apperrors.ErrTargetMismatch, "actuator %d", id)
	}

	samples := p.samples()
	offsets, err := LoadOffsets(p.cfg.TrajFile, samples)
	if err != nil {
		return err
	}
	traj, err := BuildTrajectory(id, st.CableLength, offsets, samples, p.cfg.SamplePeriod)
	if err != nil {
		return errors.Wrap(err, "build identification trajectory")
	}

	p.robot.SetController(p.ctrl)
	p.robot.Lock()
	p.ctrl.SetCableLenTrajectory(traj)
	p.robot.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})
	p.logger.WithFields(logrus.Fields{
		"actuator": id,
		"samples":  samples,
		"offsets":  len(offsets),
	}).Info("System identification started")

	go p.run(ctx, id, p.done)
	return nil
}

// Stop прерывает проигрывание; удержание текущей длины восстанавливается как при штатном завершении.
func (p *Procedure) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	p.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (p *Procedure) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

// Done закрывается по окончании текущего (или последнего) запуска.
func (p *Procedure) Done() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

func (p *Procedure) samples() int {
	if p.cfg.SamplePeriod <= 0 {
		return 1
	}
	return max(1, int(p.cfg.Length/p.cfg.SamplePeriod))
}

func (p *Procedure) run(ctx context.Context, id uint8, done chan struct{}) {
	defer close(done)

	interval := p.cfg.LogInterval
	if interval <= 0 {
		interval = DefaultConfig().LogInterval
	}
	logTicker := time.NewTicker(interval)
	defer logTicker.Stop()
	end := time.NewTimer(p.cfg.Length)
	defer end.Stop()

	dumps := 0
loop:
	for {
		select {
		case <-ctx.Done():
			p.logger.WithField("actuator", id).Info("System identification stopped")
			break loop
		case <-end.C:
			break loop
		case <-logTicker.C:
			if err := p.robot.CollectAndDumpMeas(id); err != nil {
				p.logger.WithError(err).Warn("Measurement could not be collected")
				continue
			}
			dumps++
		}
	}

	p.hold(id)
	p.logger.WithFields(logrus.Fields{"actuator": id, "measurements": dumps}).Info("System identification finished")

	p.mu.Lock()
	p.cancel()
	p.cancel = nil
	p.mu.Unlock()
}

// hold фиксирует текущую длину троса как цель.
func (p *Procedure) hold(id uint8) {
	st, ok := p.robot.ActuatorStatus(id)
	p.robot.Lock()
	defer p.robot.Unlock()
	if !ok {
		p.ctrl.SetCableLenTrajectory(nil)
		return
	}
	p.ctrl.SetCableLenTarget(st.CableLength)
	p.ctrl.SetMode(models.ControlCableLength)
}

// LoadOffsets читает не более limit смещений из файла.
func LoadOffsets(path string, limit int) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(apperrors.ErrParse, "open %s: %v", path, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Split(bufio.ScanWords)
	var offsets []float64
	for sc.Scan() && len(offsets) < limit {
		v, err := strconv.ParseFloat(sc.Text(), 64)
		if err != nil {
			return nil, errors.Wrapf(apperrors.ErrParse, "%s, sample %d: %v", path, len(offsets), err)
		}
		offsets = append(offsets, v)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrapf(apperrors.ErrParse, "read %s: %v", path, err)
	}
	return offsets, nil
}

// BuildTrajectory строит samples точек с шагом period вокруг base.
// Точки без смещения остаются на base.
func BuildTrajectory(id uint8, base float64, offsets []float64, samples int, period time.Duration) (*models.Trajectory[float64], error) {
	values := make([]float64, samples)
	stamps := make([]float64, samples)
	for i := range values {
		values[i] = base
		if i < len(offsets) {
			values[i] += offsets[i]
		}
		stamps[i] = float64(i) * period.Seconds()
	}
	return models.NewTrajectory(id, values, stamps)
}
