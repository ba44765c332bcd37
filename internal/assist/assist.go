// Package assist provides the code intelligence features of the editor:
// simulated execution, explanations, fixes, formatting, completion and chat.
package assist

import (
	"context"
	"regexp"
	"strings"
)

// Role of a chat participant.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Message is one turn of chat history.
type Message struct {
	Role Role   `json:"role" validate:"required,oneof=user model"`
	Text string `json:"text" validate:"required"`
}

// Service is the contract with the code intelligence backend. Every call
// takes the code it works on as input and returns text; it never sees
// repository state.
type Service interface {
	Run(ctx context.Context, code string) (string, error)
	Explain(ctx context.Context, code string) (string, error)
	Fix(ctx context.Context, code string) (string, error)
	Format(ctx context.Context, code string) (string, error)
	Complete(ctx context.Context, codeContext string) (string, error)
	Chat(ctx context.Context, history []Message, fileContext, userMessage string, onChunk func(string)) error
}

var (
	pythonFence  = regexp.MustCompile("(?s)```python(.*?)```")
	genericFence = regexp.MustCompile("(?s)```(.*?)```")
	leadingFence = regexp.MustCompile("^```(python)?\n")
)

// ExtractCode returns the body of the first fenced block, preferring python
// fences, or the text unchanged when there is none.
func ExtractCode(text string) string {
	if m := pythonFence.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := genericFence.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return text
}

// stripFences removes a wrapping fence the model added around formatted code.
func stripFences(text string) string {
	if strings.HasPrefix(text, "```") {
		text = leadingFence.ReplaceAllString(text, "")
		text = strings.TrimSuffix(text, "```")
	}
	return strings.TrimSpace(text)
}
