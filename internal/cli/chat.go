package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/MaxHilsdorf/music-search-chatbot/internal/session"
)

var chatPlain bool

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive music discovery conversation",
	Long: `Start an interactive conversation about the music you are looking for.

The assistant asks about genre, mood and instrumentation. Once you say
"start search" (or, in judgment gate mode, once the assistant decides it
has enough), the conversation is summarized, matched against the catalog
and the best candidates are presented for discussion.

Examples:
  musicsearch chat
  musicsearch chat --plain < questions.txt`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().BoolVar(&chatPlain, "plain", false, "line-based chat without the TUI")
}

func runChat(cmd *cobra.Command, args []string) error {
	sess, err := newSession()
	if err != nil {
		return err
	}

	if chatPlain || !term.IsTerminal(int(os.Stdin.Fd())) {
		return runPlainChat(sess)
	}
	return runChatUI(sess)
}

// runPlainChat is a line-based REPL for non-TTY input and scripting.
func runPlainChat(sess *session.Session) error {
	fmt.Println("Tell me about the music you are looking for. (Ctrl+D to quit)")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		events, err := sess.HandleMessage(context.Background(), input)
		for _, ev := range events {
			printEvent(ev)
		}
		if err != nil {
			logger.Error("turn failed", "phase", sess.Phase(), "error", err)
			fmt.Println("Something went wrong, please try again.")
		}
	}
}

func printEvent(ev session.Event) {
	switch ev.Role {
	case session.EventSummary:
		fmt.Printf("\n[searching for] %s\n\n", ev.Content)
	default:
		fmt.Println(ev.Content)
	}
}
