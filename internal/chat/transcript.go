// Package chat implements the conversational agents, completion gates and
// summarizer that drive the music-discovery dialogue.
package chat

import (
	"errors"
	"fmt"
	"strings"

	"github.com/MaxHilsdorf/music-search-chatbot/internal/llm"
)

// ErrInvalidArgument indicates a bad call parameter, such as an empty user
// message.
var ErrInvalidArgument = errors.New("invalid argument")

// Role tags a transcript turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is a single role-tagged utterance.
type Turn struct {
	Role    Role
	Content string
}

// Transcript is an ordered sequence of turns. The first turn, when present,
// is always the system preamble and is set exactly once at agent
// construction.
type Transcript []Turn

// Render formats the transcript as one "{role}: {content}" line per turn,
// the form the gates and summarizer feed to the completion service.
func (t Transcript) Render() string {
	var sb strings.Builder
	for _, turn := range t {
		fmt.Fprintf(&sb, "\n%s: %s", turn.Role, turn.Content)
	}
	return sb.String()
}

// Clone returns an independent copy. Agents hand out clones so readers can
// never mutate the owning agent's transcript.
func (t Transcript) Clone() Transcript {
	out := make(Transcript, len(t))
	copy(out, t)
	return out
}

// Last returns the final turn, or false when the transcript is empty.
func (t Transcript) Last() (Turn, bool) {
	if len(t) == 0 {
		return Turn{}, false
	}
	return t[len(t)-1], true
}

// messages converts the transcript into the completion service's wire form.
func (t Transcript) messages() []llm.Message {
	out := make([]llm.Message, len(t))
	for i, turn := range t {
		out[i] = llm.Message{Role: llm.Role(turn.Role), Content: turn.Content}
	}
	return out
}
