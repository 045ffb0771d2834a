package main

import (
	"os"
	"os/signal"

	"github.com/shweta09111/autostream-agent/internal/app"
	"github.com/shweta09111/autostream-agent/internal/conversation"
	"github.com/shweta09111/autostream-agent/internal/terminal"
	"github.com/spf13/cobra"
)

func newChatCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Chat with the assistant in the terminal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			level := opts.logLevel
			if !cmd.Flags().Changed("log-level") {
				level = "warn"
			}
			logger := newTextLogger(cmd.ErrOrStderr(), level)

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			a, err := app.New(cfg, logger)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			repl := terminal.NewREPL(a.Controller, cmd.InOrStdin(), cmd.OutOrStdout(), conversation.NewThreadID)
			return repl.Run(ctx)
		},
	}
}
