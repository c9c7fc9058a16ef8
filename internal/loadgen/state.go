package loadgen

// State is the phase of the current iteration. The loop always moves
// Generating → AwaitingEval → ForwardingIndex → AwaitingIndex and back.
type State int32

const (
	Generating State = iota
	AwaitingEval
	ForwardingIndex
	AwaitingIndex
)

func (s State) String() string {
	switch s {
	case Generating:
		return "generating"
	case AwaitingEval:
		return "awaiting_eval"
	case ForwardingIndex:
		return "forwarding_index"
	case AwaitingIndex:
		return "awaiting_index"
	default:
		return "unknown"
	}
}
