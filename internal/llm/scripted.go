package llm

import (
	"context"
	"errors"
	"sync"
)

// ErrScriptExhausted is returned once a Scripted client has no replies left.
var ErrScriptExhausted = errors.New("no scripted replies left")

// Scripted replays canned replies in order. It backs offline runs and tests.
type Scripted struct {
	mu      sync.Mutex
	replies []string
	Calls   []ScriptedCall
}

// ScriptedCall records one request.
type ScriptedCall struct {
	System   string
	Messages []Message
}

func NewScripted(replies ...string) *Scripted {
	return &Scripted{replies: replies}
}

func (s *Scripted) Complete(_ context.Context, systemPrompt string, messages []Message, _ *RequestOptions) (*Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls = append(s.Calls, ScriptedCall{System: systemPrompt, Messages: append([]Message(nil), messages...)})
	if len(s.replies) == 0 {
		return nil, ErrScriptExhausted
	}
	reply := s.replies[0]
	s.replies = s.replies[1:]
	return &Response{Content: reply, Model: "scripted", StopReason: "end_turn"}, nil
}

func (s *Scripted) CompleteWithRetry(ctx context.Context, systemPrompt string, messages []Message, _ int, opts *RequestOptions) (*Response, error) {
	return s.Complete(ctx, systemPrompt, messages, opts)
}

// Remaining returns the number of unused replies.
func (s *Scripted) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.replies)
}
