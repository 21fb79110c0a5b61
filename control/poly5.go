package control

import "math"

// Poly5 - полином пятой степени точка-точка с нулевыми скоростью
// и ускорением на концах.
type Poly5 struct {
	a0, a3, a4, a5 float64
	qFinal         float64
	duration       float64
}

// NewPoly5 вычисляет коэффициенты движения из q0 в qFinal за duration секунд.
func NewPoly5(q0, qFinal, duration float64) Poly5 {
	p := Poly5{a0: q0, qFinal: qFinal, duration: duration}
	if duration <= 0 {
		return p
	}
	dq := qFinal - q0
	p.a3 = 10 * dq / math.Pow(duration, 3)
	p.a4 = -15 * dq / math.Pow(duration, 4)
	p.a5 = 6 * dq / math.Pow(duration, 5)
	return p
}

// Eval возвращает позицию через t секунд после начала движения.
func (p Poly5) Eval(t float64) float64 {
	if p.duration <= 0 || t >= p.duration {
		return p.qFinal
	}
	if t <= 0 {
		return p.a0
	}
	t3 := t * t * t
	return p.a0 + p.a3*t3 + p.a4*t3*t + p.a5*t3*t*t
}

func (p Poly5) Duration() float64 { return p.duration }
func (p Poly5) Final() float64    { return p.qFinal }
