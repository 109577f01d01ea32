package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/mazleon/portfolio-website/internal/chat"
)

var errSessionRequired = errors.New("--session is required")

func newSessionCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect or reset a stored chat session",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the stored session state as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSession(cmd, opts, false)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Clear the stored session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSession(cmd, opts, true)
		},
	})
	return cmd
}

func runSession(cmd *cobra.Command, opts *rootOptions, reset bool) error {
	if opts.sessionID == "" {
		return errSessionRequired
	}
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	sess, kv, err := openSession(cmd.Context(), cfg, opts.sessionID)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := kv.Close(); closeErr != nil {
			slog.Warn("Failed to close session store", "error", closeErr)
		}
	}()

	out := cmd.OutOrStdout()
	if reset {
		sess.Reset(cmd.Context())
		fmt.Fprintf(out, "session %s reset\n", opts.sessionID)
		return nil
	}

	snap := sess.Snapshot()
	if snap.Turns == nil {
		snap.Turns = []chat.Turn{}
	}
	view := struct {
		SessionID string `json:"sessionId"`
		Remaining int    `json:"remaining"`
		State     any    `json:"state"`
	}{opts.sessionID, sess.Remaining(), snap}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(view)
}
