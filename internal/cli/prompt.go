package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mazleon/portfolio-website/internal/portfolio"
)

func newPromptCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "prompt",
		Short: "Print the system prompt built from the portfolio document",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if file == "" {
				cfg, err := loadConfig(nil)
				if err != nil {
					return err
				}
				file = cfg.PortfolioContextPath
			}
			pc, err := portfolio.Load(file)
			if err != nil {
				return err
			}
			p, err := portfolio.GenerateSystemPrompt(cmd.Context(), pc)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), p)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "portfolio YAML document (embedded default when empty)")
	return cmd
}
