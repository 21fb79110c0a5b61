package models

import (
	"fmt"
	"math"

	"github.com/iwtcode/cableRobot/drive"
)

// RecordKind - вид проводной записи состояния.
type RecordKind uint8

const (
	MotorRecord RecordKind = iota
	WinchRecord
	ActuatorRecord
)

var recordFields = [...][]string{
	MotorRecord:    {"id", "op_mode", "motor_position", "motor_speed", "motor_torque"},
	WinchRecord:    {"id", "op_mode", "motor_position", "motor_speed", "motor_torque", "cable_length", "aux_position"},
	ActuatorRecord: {"id", "op_mode", "motor_position", "motor_speed", "motor_torque", "cable_length", "aux_position", "state", "pulley_angle"},
}

func (k RecordKind) String() string {
	switch k {
	case MotorRecord:
		return "MOTOR_STATUS"
	case WinchRecord:
		return "WINCH_STATUS"
	case ActuatorRecord:
		return "ACTUATOR_STATUS"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", uint8(k))
	}
}

// RecordFields возвращает имена полей записи в фиксированном порядке.
func RecordFields(kind RecordKind) []string {
	if int(kind) >= len(recordFields) {
		return nil
	}
	return recordFields[kind]
}

// Record раскладывает снимок в значения полей записи указанного вида.
// Кодирование самих значений остается за потребителем.
func (s ActuatorStatus) Record(kind RecordKind) []any {
	values := []any{s.ID, s.OpMode, s.MotorPosition, s.MotorSpeed, s.MotorTorque}
	if kind == MotorRecord {
		return values
	}
	values = append(values, s.CableLength, s.AuxPosition)
	if kind == WinchRecord {
		return values
	}
	return append(values, uint8(s.State), s.PulleyAngle)
}

// fieldRanges - допустимые значения целочисленных полей записи.
var fieldRanges = map[string][2]float64{
	"id":             {0, math.MaxUint8},
	"op_mode":        {math.MinInt8, math.MaxInt8},
	"motor_position": {math.MinInt32, math.MaxInt32},
	"motor_speed":    {math.MinInt32, math.MaxInt32},
	"motor_torque":   {math.MinInt16, math.MaxInt16},
	"aux_position":   {math.MinInt32, math.MaxInt32},
	"state":          {0, math.MaxUint8},
}

// StatusFromRecord собирает снимок из значений полей записи.
// Числа принимаются любого целого или вещественного типа (например, после JSON);
// целочисленные поля должны быть целыми и помещаться в свою разрядность.
func StatusFromRecord(kind RecordKind, values []any) (ActuatorStatus, error) {
	fields := RecordFields(kind)
	if fields == nil {
		return ActuatorStatus{}, fmt.Errorf("unknown record kind %d", kind)
	}
	if len(values) != len(fields) {
		return ActuatorStatus{}, fmt.Errorf("%s record expects %d fields, got %d", kind, len(fields), len(values))
	}

	num := make([]float64, len(values))
	for i, v := range values {
		f, ok := toFloat(v)
		if !ok {
			return ActuatorStatus{}, fmt.Errorf("%s field %q: unsupported value %v (%T)", kind, fields[i], v, v)
		}
		if r, integer := fieldRanges[fields[i]]; integer && (f != math.Trunc(f) || f < r[0] || f > r[1]) {
			return ActuatorStatus{}, fmt.Errorf("%s field %q: value %v does not fit [%v, %v]", kind, fields[i], v, r[0], r[1])
		}
		num[i] = f
	}

	var s ActuatorStatus
	s.ID = uint8(num[0])
	s.OpMode = int8(num[1])
	s.MotorPosition = int32(num[2])
	s.MotorSpeed = int32(num[3])
	s.MotorTorque = int16(num[4])
	if kind == MotorRecord {
		return s, nil
	}
	s.CableLength = num[5]
	s.AuxPosition = int32(num[6])
	if kind == WinchRecord {
		return s, nil
	}
	s.State = drive.State(uint8(num[7]))
	s.PulleyAngle = num[8]
	return s, nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
