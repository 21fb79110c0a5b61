package models

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"golang.org/x/exp/constraints"
)

// DefaultWaypointEps - допуск совпадения времени с узлом траектории, [с].
const DefaultWaypointEps = 1e-6

var ErrTrajectoryShape = errors.New("trajectory timestamps and values differ in length")

// Number - допустимые скалярные типы значений траектории.
type Number interface {
	constraints.Integer | constraints.Float
}

// WayPoint - значение с отметкой времени.
type WayPoint[T Number] struct {
	TS    float64 `json:"ts"`
	Value T       `json:"value"`
}

// Trajectory - упорядоченные по времени значения (например, уставки одного мотора).
type Trajectory[T Number] struct {
	ID         uint8     `json:"id"`
	Timestamps []float64 `json:"timestamps"`
	Values     []T       `json:"values"`
}

// NewTrajectory создает траекторию. Длины массивов обязаны совпадать,
// а отметки времени не должны убывать.
func NewTrajectory[T Number](id uint8, values []T, timestamps []float64) (*Trajectory[T], error) {
	if len(values) != len(timestamps) {
		return nil, fmt.Errorf("%w: %d timestamps, %d values", ErrTrajectoryShape, len(timestamps), len(values))
	}
	if !sort.Float64sAreSorted(timestamps) {
		return nil, errors.New("trajectory timestamps must be non-decreasing")
	}
	return &Trajectory[T]{ID: id, Timestamps: timestamps, Values: values}, nil
}

// Append добавляет точку в конец траектории.
func (t *Trajectory[T]) Append(ts float64, value T) error {
	if n := len(t.Timestamps); n > 0 && ts < t.Timestamps[n-1] {
		return fmt.Errorf("timestamp %.6f precedes last waypoint %.6f", ts, t.Timestamps[n-1])
	}
	t.Timestamps = append(t.Timestamps, ts)
	t.Values = append(t.Values, value)
	return nil
}

func (t *Trajectory[T]) Len() int { return len(t.Values) }

// Duration - длительность траектории от первой до последней точки, [с].
func (t *Trajectory[T]) Duration() float64 {
	if len(t.Timestamps) == 0 {
		return 0
	}
	return t.Timestamps[len(t.Timestamps)-1] - t.Timestamps[0]
}

func (t *Trajectory[T]) WaypointFromIndex(index int) (WayPoint[T], error) {
	if index < 0 || index >= len(t.Values) {
		return WayPoint[T]{}, fmt.Errorf("waypoint index %d out of range [0, %d)", index, len(t.Values))
	}
	return WayPoint[T]{TS: t.Timestamps[index], Value: t.Values[index]}, nil
}

// WaypointFromAbsTime возвращает точку для абсолютного времени: граничную точку
// вне диапазона, узел при совпадении в пределах eps, иначе линейную интерполяцию.
// Для пустой траектории возвращается нулевая точка с TS = -1.
func (t *Trajectory[T]) WaypointFromAbsTime(time, eps float64) WayPoint[T] {
	n := len(t.Timestamps)
	if n == 0 {
		return WayPoint[T]{TS: -1}
	}
	if time <= t.Timestamps[0] {
		return WayPoint[T]{TS: t.Timestamps[0], Value: t.Values[0]}
	}
	if time >= t.Timestamps[n-1] {
		return WayPoint[T]{TS: t.Timestamps[n-1], Value: t.Values[n-1]}
	}

	upper := sort.SearchFloat64s(t.Timestamps, time)
	lower := upper - 1
	if t.Timestamps[upper] == time {
		return WayPoint[T]{TS: time, Value: t.Values[upper]}
	}

	dtLeft := time - t.Timestamps[lower]
	dtRight := t.Timestamps[upper] - time
	if math.Min(dtLeft, dtRight) <= eps {
		if dtLeft < dtRight {
			return WayPoint[T]{TS: time, Value: t.Values[lower]}
		}
		return WayPoint[T]{TS: time, Value: t.Values[upper]}
	}

	v0, v1 := float64(t.Values[lower]), float64(t.Values[upper])
	slope := (v1 - v0) / (t.Timestamps[upper] - t.Timestamps[lower])
	return WayPoint[T]{TS: time, Value: castNumber[T](v0 + slope*dtLeft)}
}

// WaypointFromRelTime - то же, что WaypointFromAbsTime, но время отсчитывается от первой точки.
func (t *Trajectory[T]) WaypointFromRelTime(time, eps float64) WayPoint[T] {
	if len(t.Timestamps) == 0 {
		return WayPoint[T]{TS: -1}
	}
	return t.WaypointFromAbsTime(time+t.Timestamps[0], eps)
}

func castNumber[T Number](v float64) T {
	var zero T
	switch any(zero).(type) {
	case float32, float64:
		return T(v)
	default:
		return T(math.Round(v))
	}
}
