package chat

import (
	"context"
	"fmt"

	"github.com/MaxHilsdorf/music-search-chatbot/internal/llm"
)

// Summarizer condenses a gathered transcript into a short free-text
// description of the music the user wants.
type Summarizer struct {
	completer    Completer
	conversation string
}

// NewSummarizer creates a transcript summarizer.
func NewSummarizer(completer Completer) *Summarizer {
	return &Summarizer{completer: completer}
}

// ReadConversation replaces the working buffer with a fresh rendering of the
// full transcript (same replace-not-append rule as the judgment gate).
func (s *Summarizer) ReadConversation(t Transcript) {
	s.conversation = t.Render()
}

// Summarize issues one completion call and returns the model output
// verbatim. Remote failures propagate to the caller.
func (s *Summarizer) Summarize(ctx context.Context) (string, error) {
	prompt := fmt.Sprintf("%s\n%s\n%s\n", summaryPromptStart, s.conversation, summaryPromptEnd)
	summary, err := s.completer.Complete(ctx, prompt, llm.Options{Temperature: 0.5, MaxTokens: 100})
	if err != nil {
		return "", fmt.Errorf("summarize conversation: %w", err)
	}
	return summary, nil
}
