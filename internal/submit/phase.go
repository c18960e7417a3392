package submit

// Phase is the submission lifecycle state. Exactly one phase is active at a
// time; the submit control is enabled only in PhaseIdle.
type Phase int32

const (
	PhaseIdle Phase = iota
	PhasePending
	PhaseSucceeded
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhasePending:
		return "pending"
	case PhaseSucceeded:
		return "succeeded"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Settled reports whether p is one of the self-reverting terminal states.
func (p Phase) Settled() bool {
	return p == PhaseSucceeded || p == PhaseFailed
}
