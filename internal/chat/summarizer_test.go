package chat

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MaxHilsdorf/music-search-chatbot/internal/llm"
)

func TestSummarize(t *testing.T) {
	completer := &scriptedCompleter{responses: []string{"slow jazz with saxophone"}}
	s := NewSummarizer(completer)
	s.ReadConversation(Transcript{
		{Role: RoleUser, Content: "I want slow jazz"},
		{Role: RoleAssistant, Content: "anything else?"},
		{Role: RoleUser, Content: "with saxophone"},
	})

	summary, err := s.Summarize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "slow jazz with saxophone", summary)

	require.Len(t, completer.prompts, 1)
	prompt := completer.prompts[0]
	assert.Contains(t, prompt, summaryPromptStart)
	assert.Contains(t, prompt, "user: I want slow jazz")
	assert.Contains(t, prompt, "user: with saxophone")
	assert.Contains(t, prompt, summaryPromptEnd)
	assert.Equal(t, llm.Options{Temperature: 0.5, MaxTokens: 100}, completer.opts[0])
}

func TestSummarizer_ReadConversationReplaces(t *testing.T) {
	completer := &scriptedCompleter{responses: []string{"first", "second"}}
	s := NewSummarizer(completer)

	tr := Transcript{{Role: RoleUser, Content: "techno please"}}
	s.ReadConversation(tr)
	_, err := s.Summarize(context.Background())
	require.NoError(t, err)

	tr = append(tr, Turn{Role: RoleUser, Content: "with heavy bass"})
	s.ReadConversation(tr)
	_, err = s.Summarize(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, strings.Count(completer.prompts[1], "techno please"),
		"re-reading a grown transcript must not duplicate turns")
}

func TestSummarize_RemoteFailure(t *testing.T) {
	completer := &scriptedCompleter{err: llm.ErrCompletionService}
	s := NewSummarizer(completer)
	s.ReadConversation(Transcript{{Role: RoleUser, Content: "hi"}})

	_, err := s.Summarize(context.Background())
	require.ErrorIs(t, err, llm.ErrCompletionService)
	assert.Contains(t, err.Error(), "summarize conversation")
}
