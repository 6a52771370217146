package agent

import (
	"time"

	"github.com/richinex/anko/llm"
	"github.com/richinex/anko/model"
)

// Step is an alias for model.Step.
type Step = model.Step

// ToolCall is an alias for model.ToolCall.
type ToolCall = model.ToolCall

// Response is the outcome of one user turn.
type Response struct {
	// State is StateDone or StateFailed.
	State State
	// Answer is the model's reply, or the fallback message when failed.
	Answer string
	// ToolCalls is the turn's scratchpad.
	ToolCalls []ToolCall
	Steps     []Step
	// Err is the cause of a failed turn.
	Err error
	// Cancelled is set when the turn was abandoned because its context
	// ended. Cancelled turns leave the conversation untouched.
	Cancelled bool
	Usage     llm.TokenUsage
	LLMCalls  int
	Duration  time.Duration
}

// Succeeded reports whether the turn ended in StateDone.
func (r Response) Succeeded() bool {
	return r.State == StateDone
}
