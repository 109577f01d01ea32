package cli

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/mazleon/portfolio-website/internal/chat"
	"github.com/mazleon/portfolio-website/internal/chatclient"
	"github.com/mazleon/portfolio-website/internal/portfolio"
	"github.com/mazleon/portfolio-website/internal/widget"
)

func newChatCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session against the relay",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runChat(cmd, opts)
		},
	}
}

func runChat(cmd *cobra.Command, opts *rootOptions) error {
	ctx := cmd.Context()
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	pc, err := portfolio.Load(cfg.PortfolioContextPath)
	if err != nil {
		return err
	}

	sid := opts.sessionID
	if sid == "" {
		sid = uuid.NewString()
	}
	sess, kv, err := openSession(ctx, cfg, sid)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := kv.Close(); closeErr != nil {
			slog.Warn("Failed to close session store", "error", closeErr)
		}
	}()

	client := chatclient.New(opts.relayURL, chatclient.WithSessionID(sid))
	w := widget.New(sess, client, pc.Personal.Name)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s (%s)\n", w.Title(), w.Status())
	fmt.Fprintf(out, "session: %s\n", sid)
	turns := w.Turns()
	if len(turns) == 0 {
		fmt.Fprintln(out, w.Greeting())
		fmt.Fprintln(out, "Ask me about skills, projects, or experience!")
	}
	for _, t := range turns {
		printTurn(cmd, t)
	}
	if w.Expired() {
		fmt.Fprintln(out, w.Banner())
		return nil
	}

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		turn, err := w.Submit(ctx, scanner.Text())
		switch {
		case errors.Is(err, widget.ErrEmptyInput):
			continue
		case errors.Is(err, widget.ErrInputTooLong):
			fmt.Fprintf(out, "Keep it under %d characters (%s).\n", widget.MaxInputLength, widget.Counter(scanner.Text()))
			continue
		case errors.Is(err, widget.ErrSessionExpired):
			fmt.Fprintln(out, w.Banner())
			return nil
		case err != nil:
			return err
		}

		printTurn(cmd, turn)
		if w.Expired() {
			fmt.Fprintln(out, w.Banner())
			return nil
		}
		fmt.Fprintf(out, "(%s)\n", w.Status())
	}
}

func printTurn(cmd *cobra.Command, t chat.Turn) {
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", t.Role, t.Content)
}
