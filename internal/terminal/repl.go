// Package terminal implements the interactive operator chat loop.
package terminal

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shweta09111/autostream-agent/internal/domain"
)

const (
	bannerTitle = "AutoStream AI Agent"
	bannerHelp  = "Type 'quit' to exit, 'reset' for new conversation"
	promptLabel = "You: "
	agentLabel  = "Agent:"
)

// Chatter answers one message in a thread.
type Chatter interface {
	Reply(ctx context.Context, threadID, message string) (string, error)
}

type styles struct {
	title lipgloss.Style
	agent lipgloss.Style
	info  lipgloss.Style
	err   lipgloss.Style
}

func newStyles(out io.Writer) styles {
	r := lipgloss.NewRenderer(out)
	return styles{
		title: r.NewStyle().Foreground(lipgloss.Color("62")).Bold(true),
		agent: r.NewStyle().Foreground(lipgloss.Color("42")).Bold(true),
		info:  r.NewStyle().Foreground(lipgloss.Color("39")),
		err:   r.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
	}
}

// REPL reads user lines and prints agent replies.
type REPL struct {
	chat        Chatter
	in          *bufio.Scanner
	out         io.Writer
	newThreadID func() string
	threadID    string
	st          styles
}

// NewREPL creates a loop reading from in and writing to out. newThreadID is
// called at start and on every reset.
func NewREPL(chat Chatter, in io.Reader, out io.Writer, newThreadID func() string) *REPL {
	return &REPL{
		chat:        chat,
		in:          bufio.NewScanner(in),
		out:         out,
		newThreadID: newThreadID,
		threadID:    newThreadID(),
		st:          newStyles(out),
	}
}

// ThreadID returns the current conversation thread.
func (r *REPL) ThreadID() string {
	return r.threadID
}

// Run executes the loop until quit, EOF or ctx cancellation.
func (r *REPL) Run(ctx context.Context) error {
	r.printf("%s\n%s\n%s\n\n", r.st.title.Render(bannerTitle), strings.Repeat("=", 40), bannerHelp)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		r.printf("%s", promptLabel)
		if !r.in.Scan() {
			if err := r.in.Err(); err != nil {
				return fmt.Errorf("read input: %w", err)
			}
			r.printf("\nGoodbye!\n")
			return nil
		}

		line := strings.TrimSpace(r.in.Text())
		if line == "" {
			continue
		}

		switch strings.ToLower(line) {
		case "quit", "exit":
			r.printf("Goodbye!\n")
			return nil
		case "reset":
			r.threadID = r.newThreadID()
			r.printf("%s\n\n", r.st.info.Render("Conversation reset."))
			continue
		}

		reply, err := r.chat.Reply(ctx, r.threadID, line)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.printf("%s %s\n\n", r.st.err.Render("Error:"), describe(err))
			continue
		}
		r.printf("\n%s %s\n\n", r.st.agent.Render(agentLabel), reply)
	}
}

func describe(err error) string {
	if errors.Is(err, domain.ErrProviderUnavailable) {
		return "the assistant is temporarily unavailable, please try again"
	}
	return err.Error()
}

func (r *REPL) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(r.out, format, args...)
}
