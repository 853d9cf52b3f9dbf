// Package ai abstracts the completion endpoint the synthesizer talks to.
// Backends: an OpenAI-compatible chat API and Gemini.
package ai

import "context"

type Message struct {
	Role    string // "system" or "user"
	Content string
}

// Request is one completion call. Model may be empty, in which case the
// backend uses its configured default.
type Request struct {
	Model       string
	Messages    []Message
	MaxTokens   int
	Temperature float32
}

type Completer interface {
	// Complete returns the raw text of the first completion choice.
	Complete(ctx context.Context, req Request) (string, error)
	// Provider names the backend for budgeting and logs.
	Provider() string
}

// UserMessage is a convenience for single-prompt calls.
func UserMessage(prompt string) []Message {
	return []Message{{Role: "user", Content: prompt}}
}
