package agent

import (
	"context"
	"sync"
	"time"

	"github.com/richinex/anko/model"
)

// Session is one conversation with an agent. Turns on a session run one
// at a time, in the order their callers acquire it.
type Session struct {
	id    string
	agent *Agent
	conv  *Conversation

	mu       sync.Mutex
	ctx      context.Context
	cancel   context.CancelFunc
	lastUsed time.Time
	lastMu   sync.Mutex
}

// NewSession starts an empty conversation with agent.
func NewSession(id string, agent *Agent) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		id:       id,
		agent:    agent,
		conv:     NewConversation(),
		ctx:      ctx,
		cancel:   cancel,
		lastUsed: time.Now(),
	}
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Run answers input and records the exchange. Completed and failed turns
// append the user turn and the answer (or fallback); cancelled turns append
// nothing.
func (s *Session) Run(ctx context.Context, input string) Response {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if s.ctx.Err() != nil {
		return Response{State: StateFailed, Err: ErrSessionClosed, Cancelled: true}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(s.ctx, cancel)
	defer stop()

	resp := s.agent.Execute(ctx, s.conv.History(), input)
	if resp.Cancelled {
		if s.ctx.Err() != nil {
			resp.Err = ErrSessionClosed
		}
		return resp
	}
	s.conv.Append(model.UserTurn(input), model.AssistantTurn(resp.Answer))
	return resp
}

// Respond answers input. The error is non-nil only when the turn was
// cancelled; failed turns return their fallback message.
func (s *Session) Respond(ctx context.Context, input string) (string, error) {
	resp := s.Run(ctx, input)
	if resp.Cancelled {
		return "", resp.Err
	}
	return resp.Answer, nil
}

// History returns the conversation so far, oldest first.
func (s *Session) History() []model.Turn {
	return s.conv.History()
}

// Close cancels any turn in flight and refuses new ones.
func (s *Session) Close() {
	s.cancel()
}

// Closed reports whether Close was called.
func (s *Session) Closed() bool {
	return s.ctx.Err() != nil
}

// LastUsed returns when a turn last started on the session.
func (s *Session) LastUsed() time.Time {
	s.lastMu.Lock()
	defer s.lastMu.Unlock()
	return s.lastUsed
}

func (s *Session) touch() {
	s.lastMu.Lock()
	s.lastUsed = time.Now()
	s.lastMu.Unlock()
}
