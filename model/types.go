// Package model provides domain types shared across packages.
package model

import "time"

// Role identifies who authored a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message in a conversation.
// Turns are values; once appended to a conversation they are never modified.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// UserTurn creates a user turn.
func UserTurn(content string) Turn {
	return Turn{Role: RoleUser, Content: content}
}

// AssistantTurn creates an assistant turn.
func AssistantTurn(content string) Turn {
	return Turn{Role: RoleAssistant, Content: content}
}

// ToolCall records one tool invocation made while answering a user turn.
// Exactly one of Output and Error is set.
type ToolCall struct {
	ID         string `json:"id"`
	Tool       string `json:"tool"`
	Input      string `json:"input"`
	Output     string `json:"output,omitempty"`
	Error      string `json:"error,omitempty"`
	Attempts   int    `json:"attempts"`
	DurationMs uint64 `json:"duration_ms"`
}

// Failed reports whether the invocation ended in an error.
func (c ToolCall) Failed() bool {
	return c.Error != ""
}

// Step records one state transition of the agent loop.
type Step struct {
	Iteration int     `json:"iteration"`
	State     string  `json:"state"`
	Action    *string `json:"action,omitempty"`
	Detail    string  `json:"detail,omitempty"`
}

// Design is a generated image submitted for review.
type Design struct {
	ID         string       `json:"id"`
	ImageURL   string       `json:"image_url"`
	Prompt     string       `json:"prompt,omitempty"`
	DesignedBy string       `json:"designed_by"`
	Fabric     string       `json:"fabric,omitempty"`
	Options    string       `json:"sustainable_options,omitempty"`
	Status     DesignStatus `json:"status"`
	CreatedAt  time.Time    `json:"designed_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
	Notes      string       `json:"notes,omitempty"`
}

// DesignStatus is the review state of a design submission.
type DesignStatus string

const (
	DesignPending  DesignStatus = "pending"
	DesignApproved DesignStatus = "approved"
	DesignRejected DesignStatus = "rejected"
	DesignRevise   DesignStatus = "revise"
)
