package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/MaxHilsdorf/music-search-chatbot/internal/llm"
)

// Completer is the remote text-completion contract used by the judgment
// gate and the summarizer.
type Completer interface {
	Complete(ctx context.Context, prompt string, opts llm.Options) (string, error)
}

// Gate decides when the information-gathering phase of a conversation ends.
type Gate interface {
	// ReadConversation replaces the gate's view with a fresh rendering of
	// the given transcript. It never mutates the transcript.
	ReadConversation(t Transcript)

	// JobDone reports whether the gathering phase should end.
	JobDone(ctx context.Context) (bool, error)
}

// KeywordGate closes the conversation when the final turn contains one of
// its stop phrases. Deterministic, no remote calls.
type KeywordGate struct {
	stopPhrases  []string
	finalContent string
}

var _ Gate = (*KeywordGate)(nil)

// NewKeywordGate creates a gate for the given case-insensitive stop phrases.
func NewKeywordGate(stopPhrases ...string) *KeywordGate {
	lowered := make([]string, len(stopPhrases))
	for i, p := range stopPhrases {
		lowered[i] = strings.ToLower(p)
	}
	return &KeywordGate{stopPhrases: lowered}
}

// ReadConversation records only the content of the transcript's final turn.
func (g *KeywordGate) ReadConversation(t Transcript) {
	g.finalContent = ""
	if last, ok := t.Last(); ok {
		g.finalContent = last.Content
	}
}

// JobDone reports whether any stop phrase occurs in the final turn.
func (g *KeywordGate) JobDone(_ context.Context) (bool, error) {
	content := strings.ToLower(g.finalContent)
	for _, phrase := range g.stopPhrases {
		if strings.Contains(content, phrase) {
			return true, nil
		}
	}
	return false, nil
}

// judgeMaxRetries bounds re-asks after an ambiguous judgment: 5 retries,
// 6 attempts total, then fail safe to "not done".
const judgeMaxRetries = 5

var (
	truthTokens   = []string{"true", "yes", "1"}
	falsityTokens = []string{"false", "no", "0"}
)

// JudgmentGate asks the completion service whether the conversation should
// be closed.
type JudgmentGate struct {
	completer    Completer
	conversation string
}

var _ Gate = (*JudgmentGate)(nil)

// NewJudgmentGate creates a model-driven gate.
func NewJudgmentGate(completer Completer) *JudgmentGate {
	return &JudgmentGate{completer: completer}
}

// ReadConversation replaces the working buffer with a fresh rendering of the
// full transcript. Replacing rather than appending keeps repeated reads of a
// growing transcript from accumulating duplicate turns.
func (g *JudgmentGate) ReadConversation(t Transcript) {
	g.conversation = t.Render()
}

// JobDone asks the model a yes/no question about the conversation. Ambiguous
// answers are re-asked with an identical call up to judgeMaxRetries times;
// exhaustion yields false rather than an error. Remote failures propagate.
func (g *JudgmentGate) JobDone(ctx context.Context) (bool, error) {
	prompt := fmt.Sprintf("%s\n%s\n%s\n", judgmentPromptStart, g.conversation, judgmentPromptEnd)
	opts := llm.Options{Temperature: 0.2, MaxTokens: 10}

	for attempt := 0; ; attempt++ {
		response, err := g.completer.Complete(ctx, prompt, opts)
		if err != nil {
			return false, fmt.Errorf("judge conversation: %w", err)
		}

		lowered := strings.ToLower(response)
		if containsAny(lowered, truthTokens) {
			return true, nil
		}
		if containsAny(lowered, falsityTokens) {
			return false, nil
		}

		slog.Debug("ambiguous gate judgment", "response", response, "attempt", attempt+1)
		if attempt >= judgeMaxRetries {
			slog.Warn("gate judgment retries exhausted, treating as not done")
			return false, nil
		}
	}
}

func containsAny(s string, tokens []string) bool {
	for _, tok := range tokens {
		if strings.Contains(s, tok) {
			return true
		}
	}
	return false
}
