package agent

import (
	"sync"

	"github.com/richinex/anko/model"
)

// Conversation is the ordered, append-only turn history of one session.
// Turns already appended are never modified or removed.
type Conversation struct {
	mu    sync.RWMutex
	turns []model.Turn
}

// NewConversation returns an empty conversation.
func NewConversation() *Conversation {
	return &Conversation{}
}

// Append adds turns at the end.
func (c *Conversation) Append(turns ...model.Turn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.turns = append(c.turns, turns...)
}

// History returns a copy of the turns, oldest first.
func (c *Conversation) History() []model.Turn {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.Turn, len(c.turns))
	copy(out, c.turns)
	return out
}

// Len returns the number of turns.
func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.turns)
}
