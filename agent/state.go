package agent

import "fmt"

// State is the position of a turn in the agent loop.
//
//	AwaitingModel -> ExecutingTool -> AwaitingModel -> ... -> Done | Failed
type State int

const (
	StateAwaitingModel State = iota
	StateExecutingTool
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateAwaitingModel:
		return "awaiting_model"
	case StateExecutingTool:
		return "executing_tool"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *State) UnmarshalText(text []byte) error {
	for _, candidate := range []State{StateAwaitingModel, StateExecutingTool, StateDone, StateFailed} {
		if candidate.String() == string(text) {
			*s = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown agent state %q", text)
}
