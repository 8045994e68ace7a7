package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/MaxHilsdorf/music-search-chatbot/internal/llm"
	"github.com/MaxHilsdorf/music-search-chatbot/internal/search"
)

// DefaultMaxCaptionLength bounds candidate captions embedded into the
// recommender preamble.
const DefaultMaxCaptionLength = 500

// ChatModel is the remote chat-completion contract an agent talks to.
type ChatModel interface {
	Chat(ctx context.Context, messages []llm.Message, opts llm.Options) (string, error)
}

// Agent holds a growing transcript and produces assistant turns via a remote
// chat model. Each agent exclusively owns and mutates its transcript.
type Agent struct {
	name       string
	model      ChatModel
	opts       llm.Options
	transcript Transcript
	seedLen    int
}

// NewReceptionist creates the information-gathering agent. Its transcript
// starts with the receptionist preamble as the single system turn.
func NewReceptionist(model ChatModel) *Agent {
	return &Agent{
		name:  "receptionist",
		model: model,
		opts:  llm.Options{Temperature: 0.7, MaxTokens: 100},
		transcript: Transcript{
			{Role: RoleSystem, Content: receptionistPreamble},
		},
		seedLen: 1,
	}
}

// NewRecommender creates the result-presenting agent. The search candidates
// are embedded into the system preamble, one "trackID: caption" line each,
// captions truncated to maxCaptionLen with an ellipsis suffix. A seed user
// turn repeats the summarized request so the model opens on topic. The
// recommender deliberately exposes no completion-gate capability.
func NewRecommender(model ChatModel, results []search.Result, summary string, maxCaptionLen int) *Agent {
	if maxCaptionLen <= 0 {
		maxCaptionLen = DefaultMaxCaptionLength
	}

	var sb strings.Builder
	sb.WriteString(recommenderPreamble)
	for _, r := range results {
		sb.WriteString("\n")
		sb.WriteString(r.TrackID)
		sb.WriteString(": ")
		sb.WriteString(truncateCaption(r.Caption, maxCaptionLen))
	}

	return &Agent{
		name:  "recommender",
		model: model,
		opts:  llm.Options{Temperature: 0.7, MaxTokens: 250},
		transcript: Transcript{
			{Role: RoleSystem, Content: sb.String()},
			{Role: RoleUser, Content: recommenderOpening + summary},
		},
		seedLen: 2,
	}
}

// Name identifies the agent's role.
func (a *Agent) Name() string {
	return a.name
}

// Transcript returns a read-only copy of the agent's transcript.
func (a *Agent) Transcript() Transcript {
	return a.transcript.Clone()
}

// AppendUser appends a user turn. Empty or whitespace-only content is
// rejected so a blank message can never reach the completion service.
func (a *Agent) AppendUser(content string) error {
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("%w: empty user message", ErrInvalidArgument)
	}
	a.transcript = append(a.transcript, Turn{Role: RoleUser, Content: content})
	return nil
}

// Respond sends the full transcript to the chat model, appends the reply as
// an assistant turn and returns it. Remote failures are returned unretried;
// retry policy belongs to the caller.
func (a *Agent) Respond(ctx context.Context) (string, error) {
	reply, err := a.model.Chat(ctx, a.transcript.messages(), a.opts)
	if err != nil {
		return "", fmt.Errorf("%s response: %w", a.name, err)
	}
	a.transcript = append(a.transcript, Turn{Role: RoleAssistant, Content: reply})
	return reply, nil
}

// DiscardLastUser removes a trailing user turn, undoing AppendUser after a
// downstream failure so the same turn can be retried. The system turn and
// the recommender's seed user turn are never removed.
func (a *Agent) DiscardLastUser() {
	if len(a.transcript) <= a.seedLen {
		return
	}
	if last := a.transcript[len(a.transcript)-1]; last.Role == RoleUser {
		a.transcript = a.transcript[:len(a.transcript)-1]
	}
}

func truncateCaption(caption string, maxLen int) string {
	runes := []rune(caption)
	if len(runes) <= maxLen {
		return caption
	}
	return string(runes[:maxLen]) + "..."
}
