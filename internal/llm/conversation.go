package llm

import (
	"context"
	"fmt"
	"time"
)

// Completer is the subset of Client a Conversation needs.
type Completer interface {
	ChatCompletion(ctx context.Context, messages []Message, opts *ChatCompletionOptions) (*ChatResponse, error)
}

// Conversation keeps a bounded message history and produces assistant replies over it.
// It is not safe for concurrent use; build one per request from stored history.
type Conversation struct {
	client       Completer
	systemPrompt string
	messages     []Message
	maxHistory   int
	updatedAt    time.Time
}

type ConversationOption func(*Conversation)

// WithSystemPrompt sets the system prompt for the conversation
func WithSystemPrompt(prompt string) ConversationOption {
	return func(c *Conversation) {
		c.systemPrompt = prompt
	}
}

// WithMaxHistory sets the maximum number of messages to keep in history
func WithMaxHistory(maxHistory int) ConversationOption {
	return func(c *Conversation) {
		if maxHistory > 0 {
			c.maxHistory = maxHistory
		}
	}
}

// WithHistory seeds the conversation, e.g. with messages loaded from storage.
func WithHistory(messages []Message) ConversationOption {
	return func(c *Conversation) {
		c.messages = append(c.messages, messages...)
	}
}

func NewConversation(client Completer, opts ...ConversationOption) *Conversation {
	conv := &Conversation{
		client:     client,
		messages:   make([]Message, 0),
		maxHistory: 50,
		updatedAt:  time.Now(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(conv)
		}
	}
	conv.trim()
	return conv
}

// Reply appends the user message, asks the model and appends its answer.
func (c *Conversation) Reply(ctx context.Context, content string) (string, error) {
	c.addMessage(Message{Role: RoleUser, Content: content})

	opts := NewChatCompletionOptions().WithSystemPrompt(c.systemPrompt)
	response, err := c.client.ChatCompletion(ctx, c.History(), opts)
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	answer := response.Choices[0].Message.Content
	c.addMessage(Message{Role: RoleAssistant, Content: answer})
	c.updatedAt = time.Now()
	return answer, nil
}

// History returns a copy of the retained messages, oldest first.
func (c *Conversation) History() []Message {
	history := make([]Message, len(c.messages))
	copy(history, c.messages)
	return history
}

func (c *Conversation) MessageCount() int {
	return len(c.messages)
}

func (c *Conversation) UpdatedAt() time.Time {
	return c.updatedAt
}

func (c *Conversation) addMessage(msg Message) {
	c.messages = append(c.messages, msg)
	c.trim()
}

// trim keeps the most recent maxHistory messages.
func (c *Conversation) trim() {
	if len(c.messages) > c.maxHistory {
		excess := len(c.messages) - c.maxHistory
		c.messages = c.messages[excess:]
	}
}
