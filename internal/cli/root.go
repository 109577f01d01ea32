// Package cli implements the portfolio command line: a terminal chat widget,
// the system prompt dump and session administration.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/mazleon/portfolio-website/internal/chat"
	"github.com/mazleon/portfolio-website/internal/config"
	"github.com/mazleon/portfolio-website/internal/store"
)

type rootOptions struct {
	relayURL  string
	sessionID string
	store     string
	verbose   bool
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "portfolio",
		Short:         "Chat with the portfolio assistant from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			level := slog.LevelWarn
			if opts.verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
		},
	}

	cmd.PersistentFlags().StringVar(&opts.relayURL, "relay", "http://localhost:8080", "base URL of the chat relay")
	cmd.PersistentFlags().StringVar(&opts.sessionID, "session", "", "chat session id (generated when empty)")
	cmd.PersistentFlags().StringVar(&opts.store, "store", "", "session store: memory, file, sqlite or redis (default QUOTA_STORE, else file)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(newChatCmd(opts))
	cmd.AddCommand(newPromptCmd())
	cmd.AddCommand(newSessionCmd(opts))

	return cmd
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig(opts *rootOptions) (*config.Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, using environment variables")
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if opts == nil {
		return cfg, nil
	}

	// Terminal sessions persist to disk unless the environment picks a store.
	kind := opts.store
	if kind == "" && os.Getenv("QUOTA_STORE") == "" {
		kind = "file"
	}
	if kind != "" {
		cfg.Quota.Store = kind
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// sessionKey namespaces terminal sessions away from the relay's own quota records.
func sessionKey(sessionID string) string {
	return chat.DefaultKey + ":cli:" + sessionID
}

func openSession(ctx context.Context, cfg *config.Config, sessionID string) (*chat.Session, store.KV, error) {
	kv, err := store.Open(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open session store: %w", err)
	}
	sess := chat.NewSession(ctx, kv, sessionKey(sessionID), chat.Limits{MaxUserTurns: cfg.Chat.MaxUserTurns})
	return sess, kv, nil
}
