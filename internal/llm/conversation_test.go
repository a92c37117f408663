package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingCompleter struct {
	seen    [][]Message
	system  []string
	answer  string
	failErr error
}

func (r *recordingCompleter) ChatCompletion(_ context.Context, messages []Message, opts *ChatCompletionOptions) (*ChatResponse, error) {
	r.seen = append(r.seen, messages)
	r.system = append(r.system, opts.SystemPrompt)
	if r.failErr != nil {
		return nil, r.failErr
	}
	return &ChatResponse{Choices: []Choice{{Message: Message{Role: RoleAssistant, Content: r.answer}}}}, nil
}

func TestConversation_ReplyUsesHistory(t *testing.T) {
	t.Parallel()

	completer := &recordingCompleter{answer: "Try Acme."}
	conv := NewConversation(completer,
		WithSystemPrompt("You help with job search."),
		WithHistory([]Message{
			{Role: RoleUser, Content: "I like robotics"},
			{Role: RoleAssistant, Content: "Noted."},
		}),
	)

	got, err := conv.Reply(context.Background(), "Which company?")
	require.NoError(t, err)
	assert.Equal(t, "Try Acme.", got)

	require.Len(t, completer.seen, 1)
	assert.Len(t, completer.seen[0], 3)
	assert.Equal(t, "Which company?", completer.seen[0][2].Content)
	assert.Equal(t, "You help with job search.", completer.system[0])
	assert.Equal(t, 4, conv.MessageCount())
}

func TestConversation_TrimsHistory(t *testing.T) {
	t.Parallel()

	history := make([]Message, 0, 10)
	for i := 0; i < 10; i++ {
		history = append(history, Message{Role: RoleUser, Content: string(rune('a' + i))})
	}

	conv := NewConversation(&recordingCompleter{}, WithHistory(history), WithMaxHistory(4))
	got := conv.History()
	require.Len(t, got, 4)
	assert.Equal(t, "g", got[0].Content)
	assert.Equal(t, "j", got[3].Content)
}

func TestConversation_ReplyError(t *testing.T) {
	t.Parallel()

	conv := NewConversation(&recordingCompleter{failErr: errors.New("boom")})
	_, err := conv.Reply(context.Background(), "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}
