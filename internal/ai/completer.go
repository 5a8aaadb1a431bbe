// Package ai holds the completion client that turns a transcript into the
// character's next reply.
package ai

import (
	"context"

	"character-chat/backend/internal/transcript"
)

// FallbackReply replaces an empty provider reply
const FallbackReply = "Sorry, I couldn't generate a response."

// Completer produces the next assistant reply for a transcript
type Completer interface {
	Complete(ctx context.Context, turns []transcript.Turn) (string, error)
}

// UpstreamError reports a failed completion call. Message is the provider's
// own description when it sent one.
type UpstreamError struct {
	Message    string
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "completion failed"
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}
