package control

import "math"

// PIDParams - коэффициенты и ограничение выхода регулятора.
// Нулевые OutMin и OutMax означают отсутствие ограничения.
type PIDParams struct {
	Kp     float64 `json:"kp"`
	Ki     float64 `json:"ki"`
	Kd     float64 `json:"kd"`
	OutMin float64 `json:"out_min"`
	OutMax float64 `json:"out_max"`
}

// PID - дискретный ПИД-регулятор с фиксированным периодом.
// Выход - абсолютная команда: уставка плюс коррекция по ошибке,
// так что при нулевой ошибке команда совпадает с уставкой.
type PID struct {
	params   PIDParams
	period   float64
	err      float64
	prevErr  float64
	integral float64
	first    bool
}

func NewPID(periodSec float64) *PID {
	return &PID{period: periodSec, first: true}
}

func (p *PID) SetParams(params PIDParams) { p.params = params }
func (p *PID) Params() PIDParams          { return p.params }

// Calculate выполняет один шаг регулятора.
func (p *PID) Calculate(setpoint, measured float64) float64 {
	e := setpoint - measured
	if p.first {
		p.prevErr = e
		p.first = false
	} else {
		p.prevErr = p.err
	}
	p.err = e
	p.integral += e * p.period

	var derivative float64
	if p.period > 0 {
		derivative = (p.err - p.prevErr) / p.period
	}

	out := setpoint + p.params.Kp*p.err + p.params.Ki*p.integral + p.params.Kd*derivative
	if p.params.OutMin < p.params.OutMax {
		out = math.Max(p.params.OutMin, math.Min(p.params.OutMax, out))
	}
	return out
}

// Reset обнуляет интеграл и историю ошибок.
func (p *PID) Reset() {
	p.err = 0
	p.prevErr = 0
	p.integral = 0
	p.first = true
}

func (p *PID) Error() float64     { return p.err }
func (p *PID) PrevError() float64 { return p.prevErr }
