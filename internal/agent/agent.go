// Package agent defines the boundary to the chat-agent collaborator.
// The host consumes the agent through one call: process a question with
// chat history and get text (or a failure) back. Screenshot capture and
// LLM plumbing live behind this interface and are not part of the core.
package agent

import (
	"context"
	"strings"

	"github.com/sumsupee/chatoneverything/internal/chat"
	apperrors "github.com/sumsupee/chatoneverything/internal/errors"
)

// Name is the display name the agent's replies are authored under.
const Name = "Cee"

// Mention is the chat token that addresses the agent.
const Mention = "@cee"

// Processor answers a question asked in chat.
type Processor interface {
	// ProcessRequest answers the question from the given user. history is
	// the bounded recent-chat window for conversational context. The
	// returned text is broadcast as a message authored by Name.
	ProcessRequest(ctx context.Context, user, question string, history []chat.Message) (string, error)
}

// ParseMention scans message text for a case-insensitive agent mention
// and returns the question following it. ok is false when the text does
// not address the agent.
func ParseMention(text string) (question string, ok bool) {
	words := strings.Fields(text)
	for i, w := range words {
		// Trailing punctuation is tolerated: "@cee, what's this?".
		trimmed := strings.TrimRight(w, ",.!?:;")
		if strings.EqualFold(trimmed, Mention) {
			return strings.Join(words[i+1:], " "), true
		}
	}
	return "", false
}

// Disabled is a Processor that always fails with agent.disabled.
// Used when the feature is off or no API key is configured.
type Disabled struct{}

// ProcessRequest implements Processor.
func (Disabled) ProcessRequest(ctx context.Context, user, question string, history []chat.Message) (string, error) {
	return "", apperrors.New(apperrors.CodeAgentDisabled, "chat agent is not configured")
}

// Func adapts a plain function to the Processor interface.
type Func func(ctx context.Context, user, question string, history []chat.Message) (string, error)

// ProcessRequest implements Processor.
func (f Func) ProcessRequest(ctx context.Context, user, question string, history []chat.Message) (string, error) {
	return f(ctx, user, question, history)
}
