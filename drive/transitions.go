package drive

// KeepRequest в Step.Request означает, что запрос остается прежним
// до подтверждения перехода на одном из следующих циклов.
const KeepRequest State = 0xFE

// Step описывает реакцию привода на пару (декодированное состояние, запрошенное состояние).
type Step struct {
	// Confirmed - запрошенное состояние достигнуто.
	Confirmed bool
	// ResetWord обнуляет управляющее слово до применения Set/Clear.
	ResetWord bool
	Set       uint16
	Clear     uint16
	// Request - новое значение поля запроса (или KeepRequest).
	Request State
	// PrimePosition готовит режим cyclicPosition с удержанием текущей позиции.
	PrimePosition bool
	// RunOperation передает управление обработчику подсостояния режима работы.
	RunOperation bool
	// Illegal - запрос недопустим в текущем состоянии.
	Illegal bool
}

func bits(positions ...uint) uint16 {
	var w uint16
	for _, p := range positions {
		w = setBit(w, p)
	}
	return w
}

// transitionTable: состояние -> запрос -> шаг. Последовательность включения
// switchOnDisabled -> readyToSwitchOn -> switchOn -> operationEnabled.
var transitionTable = map[State]map[State]Step{
	SwitchOnDisabled: {
		SwitchOnDisabled: {Confirmed: true, Request: NullState},
		ReadyToSwitchOn: {
			Set:     bits(ControlEnableVoltageBit, ControlQuickStopBit),
			Clear:   bits(ControlSwitchOnBit, ControlEnableOpBit, ControlFaultResetBit),
			Request: KeepRequest,
		},
	},
	ReadyToSwitchOn: {
		ReadyToSwitchOn:  {Confirmed: true, Set: bits(ControlSwitchOnBit), Request: SwitchOn, PrimePosition: true},
		SwitchOnDisabled: {ResetWord: true, Request: KeepRequest},
	},
	SwitchOn: {
		SwitchOn:         {Confirmed: true, Set: bits(ControlEnableOpBit), Request: OperationEnabled},
		SwitchOnDisabled: {ResetWord: true, Request: KeepRequest},
	},
	OperationEnabled: {
		OperationEnabled: {Confirmed: true, Request: NullState, RunOperation: true},
		SwitchOnDisabled: {ResetWord: true, Request: KeepRequest},
	},
	Fault: {
		NullState:        {Request: KeepRequest},
		SwitchOnDisabled: {ResetWord: true, Set: bits(ControlFaultResetBit), Request: KeepRequest},
	},
}

// Transition возвращает шаг для текущего состояния и запроса. Чистая функция.
func Transition(state, requested State) Step {
	if byRequest, ok := transitionTable[state]; ok {
		if step, ok := byRequest[requested]; ok {
			return step
		}
	}

	switch state {
	case OperationEnabled:
		return Step{Request: KeepRequest, RunOperation: true}
	case QuickStopActive, FaultReactionActive:
		// этими состояниями привод управляет сам
		return Step{Request: NullState}
	case Fault:
		return Step{Request: NullState, Illegal: true}
	default:
		return Step{Request: KeepRequest}
	}
}

// Apply применяет шаг к управляющему слову.
func (s Step) Apply(controlWord uint16) uint16 {
	if s.ResetWord {
		controlWord = 0
	}
	controlWord |= s.Set
	controlWord &^= s.Clear
	return controlWord
}
