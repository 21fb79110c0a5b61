package homing

// Disposition - реакция таблицы на событие в состоянии.
type Disposition uint8

// Нулевое значение - CannotHappen, так что пропуск в таблице не превращается в переход.
const (
	CannotHappen Disposition = iota
	Accept
	Ignore
)

func (d Disposition) String() string {
	switch d {
	case Accept:
		return "ACCEPT"
	case Ignore:
		return "IGNORE"
	default:
		return "CANNOT_HAPPEN"
	}
}

type rule struct {
	next State
	disp Disposition
}

func to(s State) rule { return rule{next: s, disp: Accept} }

var (
	ignored    = rule{disp: Ignore}
	impossible = rule{disp: CannotHappen}
)

// transitions: событие -> текущее состояние -> правило.
var transitions = [numEvents][MaxStates]rule{
	EvStart: {
		Idle:        to(Enabled),
		Enabled:     ignored,
		StartUp:     ignored,
		SwitchCable: ignored,
		Coiling:     ignored,
		Uncoiling:   ignored,
		Optimizing:  impossible,
		Home:        impossible,
		Fault:       impossible,
	},
	EvStartUp: {
		Idle:        impossible,
		Enabled:     to(StartUp),
		StartUp:     ignored,
		SwitchCable: ignored,
		Coiling:     ignored,
		Uncoiling:   ignored,
		Optimizing:  ignored,
		Home:        impossible,
		Fault:       impossible,
	},
	EvOptimize: {
		Idle:        impossible,
		Enabled:     to(Optimizing),
		StartUp:     ignored,
		SwitchCable: ignored,
		Coiling:     ignored,
		Uncoiling:   ignored,
		Optimizing:  ignored,
		Home:        to(Optimizing),
		Fault:       impossible,
	},
	EvGoHome: {
		Idle:        impossible,
		Enabled:     to(Home),
		StartUp:     impossible,
		SwitchCable: impossible,
		Coiling:     impossible,
		Uncoiling:   impossible,
		Optimizing:  impossible,
		Home:        ignored,
		Fault:       impossible,
	},
	EvDisable: {
		Idle:        to(Idle),
		Enabled:     to(Idle),
		StartUp:     ignored,
		SwitchCable: ignored,
		Coiling:     ignored,
		Uncoiling:   ignored,
		Optimizing:  to(Idle),
		Home:        to(Idle),
		Fault:       ignored,
	},
	EvFaultTrigger: {
		Idle:        to(Fault),
		Enabled:     to(Fault),
		StartUp:     to(Fault),
		SwitchCable: to(Fault),
		Coiling:     to(Fault),
		Uncoiling:   to(Fault),
		Optimizing:  to(Fault),
		Home:        to(Fault),
		Fault:       ignored,
	},
	EvFaultReset: {
		Idle:        ignored,
		Enabled:     ignored,
		StartUp:     ignored,
		SwitchCable: ignored,
		Coiling:     ignored,
		Uncoiling:   ignored,
		Optimizing:  ignored,
		Home:        ignored,
		Fault:       to(Idle),
	},
}

// Lookup возвращает следующее состояние и реакцию на событие ev в состоянии s.
// Неизвестные событие или состояние считаются невозможными.
func Lookup(ev Event, s State) (State, Disposition) {
	if ev >= numEvents || s >= MaxStates {
		return s, CannotHappen
	}
	r := transitions[ev][s]
	if r.disp != Accept {
		return s, r.disp
	}
	return r.next, Accept
}
