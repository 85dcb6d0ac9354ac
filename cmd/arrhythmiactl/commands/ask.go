package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/straja-ai/arrhythmia/internal/chatbot"
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask the keyword responder a question",
	Long: `Ask the keyword responder a question about arrhythmia categories.

Example:
  arrhythmiactl ask "what does ventricular ectopic mean?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ans := chatbot.New().Ask(strings.Join(args, " "))
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), ans)
		}
		fmt.Fprintln(cmd.OutOrStdout(), ans.Text)
		return nil
	},
}
