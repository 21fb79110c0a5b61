package cablerobot

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/iwtcode/cableRobot/control"
	"github.com/iwtcode/cableRobot/homing"
	"github.com/iwtcode/cableRobot/robot"
	"github.com/iwtcode/cableRobot/sysid"
	"github.com/joho/godotenv"
)

// OptimizerConfig - внешний процесс оптимизации результатов хоминга.
type OptimizerConfig struct {
	Command    string
	Args       []string
	ResultPath string
}

// Config хранит конфигурацию библиотеки
type Config struct {
	Robot     robot.Config
	Control   control.Config
	Homing    homing.Config
	Optimizer OptimizerConfig
	SysID     sysid.Config
	LogLevel  string
}

// Load загружает конфигурацию из .env файла (если есть) и переменных окружения.
func Load() (*Config, error) {
	_ = godotenv.Load()

	rc := robot.DefaultConfig()
	ids, err := getEnvAsUint8List("ROBOT_ACTIVE_MOTORS", rc.ActiveMotors)
	if err != nil {
		return nil, err
	}
	rc.ActiveMotors = ids
	rc.CycleTime = getEnvAsDuration("ROBOT_CYCLE_TIME", rc.CycleTime)
	rc.CountsPerMeter = getEnvAsFloat("ROBOT_COUNTS_PER_METER", rc.CountsPerMeter)
	rc.PollPeriod = getEnvAsDuration("ROBOT_POLL_PERIOD", rc.PollPeriod)
	rc.MaxWait = getEnvAsDuration("ROBOT_MAX_WAIT", rc.MaxWait)
	rc.SteadyWindow = getEnvAsInt("ROBOT_STEADY_WINDOW", rc.SteadyWindow)
	rc.SteadyThreshold = getEnvAsFloat("ROBOT_STEADY_THRESHOLD", rc.SteadyThreshold)
	rc.MeasLogPath = getEnv("ROBOT_MEAS_LOG", rc.MeasLogPath)

	cc := control.DefaultConfig(rc.CycleTime)
	cc.PosTolerance = getEnvAsFloat("CTRL_POS_TOL", cc.PosTolerance)
	cc.TorqueTolerance = getEnvAsFloat("CTRL_TORQUE_TOL", cc.TorqueTolerance)
	cc.CableLenTolerance = getEnvAsFloat("CTRL_CABLE_LEN_TOL", cc.CableLenTolerance)
	cc.SpeedTolerance = int32(getEnvAsInt("CTRL_SPEED_TOL", int(cc.SpeedTolerance)))
	cc.DeltaLengthPerSec = getEnvAsFloat("CTRL_DELTA_LEN_PER_SEC", cc.DeltaLengthPerSec)
	cc.DeltaLengthMicroPerSec = getEnvAsFloat("CTRL_DELTA_LEN_MICRO_PER_SEC", cc.DeltaLengthMicroPerSec)
	cc.DeltaTorquePerSec = getEnvAsFloat("CTRL_DELTA_TORQUE_PER_SEC", cc.DeltaTorquePerSec)
	cc.MaxSpeed = int32(getEnvAsInt("CTRL_MAX_SPEED", int(cc.MaxSpeed)))
	cc.PosPID = loadPID("CTRL_POS_PID", cc.PosPID)
	cc.TorquePID = loadPID("CTRL_TORQUE_PID", cc.TorquePID)

	hc := homing.DefaultConfig()
	mode, err := homing.ParseMode(getEnv("HOMING_MODE", hc.Mode.String()))
	if err != nil {
		return nil, err
	}
	hc.Mode = mode
	hc.DeltaLength = getEnvAsFloat("HOMING_DELTA_LENGTH", hc.DeltaLength)
	hc.TorqueTolerance = getEnvAsFloat("HOMING_TORQUE_TOL", hc.TorqueTolerance)
	hc.PositionStepTime = getEnvAsDuration("HOMING_POS_STEP_TIME", hc.PositionStepTime)
	hc.OptProgressInterval = getEnvAsDuration("HOMING_OPT_PROGRESS_INTERVAL", hc.OptProgressInterval)
	hc.PollPeriod = rc.PollPeriod

	sc := sysid.DefaultConfig()
	sc.TrajFile = getEnv("SYSID_TRAJ_FILE", sc.TrajFile)
	sc.LogInterval = getEnvAsDuration("SYSID_LOG_INTERVAL", sc.LogInterval)
	sc.Length = getEnvAsDuration("SYSID_TRAJ_LENGTH", sc.Length)
	sc.SamplePeriod = rc.CycleTime

	return &Config{
		Robot:   rc,
		Control: cc,
		Homing:  hc,
		Optimizer: OptimizerConfig{
			Command:    getEnv("HOMING_OPT_COMMAND", ""),
			Args:       strings.Fields(getEnv("HOMING_OPT_ARGS", "")),
			ResultPath: getEnv("HOMING_OPT_RESULT", "/tmp/homing_results.json"),
		},
		SysID:    sc,
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}, nil
}

func loadPID(prefix string, p control.PIDParams) control.PIDParams {
	p.Kp = getEnvAsFloat(prefix+"_KP", p.Kp)
	p.Ki = getEnvAsFloat(prefix+"_KI", p.Ki)
	p.Kd = getEnvAsFloat(prefix+"_KD", p.Kd)
	p.OutMin = getEnvAsFloat(prefix+"_OUT_MIN", p.OutMin)
	p.OutMax = getEnvAsFloat(prefix+"_OUT_MAX", p.OutMax)
	return p
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(name string, defaultValue int) int {
	if value, err := strconv.Atoi(getEnv(name, "")); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(name string, defaultValue float64) float64 {
	if value, err := strconv.ParseFloat(getEnv(name, ""), 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(name string, defaultValue time.Duration) time.Duration {
	if value, err := time.ParseDuration(getEnv(name, "")); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsUint8List разбирает список идентификаторов через запятую, например "0,1,2,3".
func getEnvAsUint8List(name string, defaultValue []uint8) ([]uint8, error) {
	raw := strings.TrimSpace(getEnv(name, ""))
	if raw == "" {
		return defaultValue, nil
	}
	var ids []uint8
	for _, part := range strings.Split(raw, ",") {
		v, err := strconv.ParseUint(strings.TrimSpace(part), 10, 8)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid actuator id %q: %w", name, part, err)
		}
		ids = append(ids, uint8(v))
	}
	return ids, nil
}
