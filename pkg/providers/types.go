// Package providers normalizes chat requests across LLM vendors. Each
// adapter translates the neutral message/attachment shape into its
// vendor's wire model and surfaces token usage when the vendor reports it.
package providers

import (
	"context"
)

// Chat message roles in the neutral shape.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Attachment is a binary part of a message. Adapters drop attachment types
// their vendor cannot encode; the saved message keeps them regardless.
type Attachment struct {
	Name      string `json:"name"`
	MediaType string `json:"mediaType"`
	Data      []byte `json:"data"`
}

// Message is one turn half in the neutral shape.
type Message struct {
	Role        string       `json:"role"`
	Content     string       `json:"content"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// ChatRequest is the provider-neutral invocation.
type ChatRequest struct {
	ModelID      string
	Messages     []Message
	SystemPrompt string
	// MaxTokens of 0 means the adapter default.
	MaxTokens int
	// Temperature nil means the adapter default; 0 is a valid setting.
	Temperature *float64
}

// Usage carries the vendor-reported token counts.
type Usage struct {
	InputTokens  int `json:"inputTokens"`
	OutputTokens int `json:"outputTokens"`
}

// ChatResponse is the provider-neutral result. Usage is nil when the
// vendor did not report token counts.
type ChatResponse struct {
	Content  string `json:"content"`
	ModelID  string `json:"model"`
	Provider string `json:"provider"`
	Usage    *Usage `json:"usage,omitempty"`
}

// Invoker is the uniform contract every provider adapter implements.
type Invoker interface {
	Invoke(ctx context.Context, req *ChatRequest) (*ChatResponse, error)
}
