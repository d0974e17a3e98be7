package converter

// Phase is the lifecycle position of a workflow.
type Phase int

const (
	PhaseIdle Phase = iota
	PhasePending
	PhaseSucceeded
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhasePending:
		return "pending"
	case PhaseSucceeded:
		return "succeeded"
	case PhaseFailed:
		return "failed"
	default:
		return "idle"
	}
}

func (p Phase) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// State is a tagged union over Idle | Pending | Succeeded(result) | Failed(message).
// Values are built only through the constructors below, so a pending state can
// never hold a fresh result and an idle state never holds anything.
//
// Pending and Failed may carry a retained result: the speech-to-text workflow
// keeps showing its previous transcript while a new request runs and after
// that request fails.
type State[T any] struct {
	phase   Phase
	result  *T
	message string
}

func Idle[T any]() State[T] { return State[T]{phase: PhaseIdle} }

func Pending[T any](retained *T) State[T] {
	return State[T]{phase: PhasePending, result: clone(retained)}
}

func Succeeded[T any](result T) State[T] {
	return State[T]{phase: PhaseSucceeded, result: &result}
}

func Failed[T any](message string, retained *T) State[T] {
	return State[T]{phase: PhaseFailed, result: clone(retained), message: message}
}

func (s State[T]) Phase() Phase { return s.phase }

// Result returns a copy of the displayed result, or nil when there is none.
func (s State[T]) Result() *T { return clone(s.result) }

// Message is the failure message; empty unless the phase is PhaseFailed.
func (s State[T]) Message() string { return s.message }

func clone[T any](v *T) *T {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
