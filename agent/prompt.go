package agent

import (
	"encoding/json"
	"fmt"

	"github.com/richinex/anko/llm"
	"github.com/richinex/anko/model"
)

// Scratchpad holds the tool calls made while answering the current user
// turn. It is discarded when the turn ends.
type Scratchpad []model.ToolCall

// NextID returns an id for the next tool call that no earlier entry uses.
func (s Scratchpad) NextID() string {
	for n := len(s) + 1; ; n++ {
		if id := fmt.Sprintf("call_%d", n); !s.Has(id) {
			return id
		}
	}
}

// Has reports whether an entry already uses id.
func (s Scratchpad) Has(id string) bool {
	for _, c := range s {
		if c.ID == id {
			return true
		}
	}
	return false
}

// BuildPrompt assembles the messages for one model call: the system
// instructions, the conversation history, the user's input, then each
// scratchpad entry as an assistant tool call followed by its result.
// The same arguments always produce the same messages.
func BuildPrompt(systemInstructions string, history []model.Turn, input string, scratchpad Scratchpad) []llm.ChatMessage {
	msgs := make([]llm.ChatMessage, 0, 2+len(history)+2*len(scratchpad))
	msgs = append(msgs, llm.SystemMessage(systemInstructions))

	for _, turn := range history {
		switch turn.Role {
		case model.RoleUser:
			msgs = append(msgs, llm.UserMessage(turn.Content))
		case model.RoleAssistant:
			msgs = append(msgs, llm.AssistantMessage(turn.Content))
		}
	}

	msgs = append(msgs, llm.UserMessage(input))

	for i, call := range scratchpad {
		id := call.ID
		if id == "" {
			id = fmt.Sprintf("call_%d", i+1)
		}
		result := llm.ToolResultMessage(id, call.Tool, observation(call))
		if call.Failed() {
			result = llm.ToolErrorMessage(id, call.Tool, observation(call))
		}
		msgs = append(msgs,
			llm.ToolCallMessage(llm.ToolCall{ID: id, Name: call.Tool, Arguments: toolArguments(call.Input)}),
			result,
		)
	}
	return msgs
}

func toolArguments(input string) json.RawMessage {
	raw, _ := json.Marshal(struct {
		Input string `json:"input"`
	}{input})
	return raw
}

func observation(call model.ToolCall) string {
	if call.Failed() {
		return "Tool failed: " + call.Error
	}
	return call.Output
}
