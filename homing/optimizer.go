package homing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"

	"github.com/iwtcode/cableRobot/models"
	apperrors "github.com/iwtcode/cableRobot/pkg/errors"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

// Optimizer - внешняя оффлайн-оптимизация начальных длин и позы
// по журналу измерений.
type Optimizer interface {
	Optimize(ctx context.Context, numActuators int) (*models.HomingHomeData, error)
}

// ExecOptimizer запускает внешнюю команду и разбирает файл результата.
type ExecOptimizer struct {
	Command    string
	Args       []string
	ResultPath string
	Logger     logrus.FieldLogger
}

func (o *ExecOptimizer) Optimize(ctx context.Context, numActuators int) (*models.HomingHomeData, error) {
	if o.Command == "" {
		return nil, errors.New("optimizer command is not configured")
	}
	cmd := exec.CommandContext(ctx, o.Command, o.Args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return nil, errors.Wrapf(err, "optimizer %q failed: %s", o.Command, bytes.TrimSpace(out.Bytes()))
	}
	if o.Logger != nil && out.Len() > 0 {
		o.Logger.WithField("output", out.String()).Debug("Optimizer finished")
	}
	return ParseResult(o.ResultPath, numActuators)
}

// ParseResult читает результат оптимизации: массивы init_angles и init_lengths
// по одному значению на активный привод и вектор позы init_pose.
// Все отсутствующие или некорректные ключи сообщаются вместе, каждая ошибка оборачивает ErrParse.
func ParseResult(path string, numActuators int) (*models.HomingHomeData, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(apperrors.ErrParse, "read %s: %v", path, err)
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, errors.Wrapf(apperrors.ErrParse, "decode %s: %v", path, err)
	}

	var (
		data models.HomingHomeData
		errs error
		pose []float64
	)
	errs = multierr.Append(errs, parseArray(doc, "init_angles", numActuators, &data.InitAngles))
	errs = multierr.Append(errs, parseArray(doc, "init_lengths", numActuators, &data.InitLengths))
	if err := parseArray(doc, "init_pose", models.PoseDim, &pose); err != nil {
		errs = multierr.Append(errs, err)
	} else {
		copy(data.InitPose[:], pose)
	}
	if errs != nil {
		return nil, errs
	}
	return &data, nil
}

func parseArray(doc map[string]json.RawMessage, key string, size int, dst *[]float64) error {
	raw, ok := doc[key]
	if !ok {
		return fmt.Errorf("key %q missing: %w", key, apperrors.ErrParse)
	}
	var values []float64
	if err := json.Unmarshal(raw, &values); err != nil {
		return fmt.Errorf("key %q: %v: %w", key, err, apperrors.ErrParse)
	}
	if len(values) != size {
		return fmt.Errorf("key %q: expected %d values, got %d: %w", key, size, len(values), apperrors.ErrParse)
	}
	*dst = values
	return nil
}
