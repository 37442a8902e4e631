package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// defaultLogTail is the number of lines shown when --tail is not given.
const defaultLogTail = 100

// NewLogsCommand creates the "logs" subcommand, which prints the recent
// output of one container.
func NewLogsCommand() *cobra.Command {
	var tail int

	cmd := &cobra.Command{
		Use:   "logs <container>",
		Short: "Show a container's recent logs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, release, err := sessionManager(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer release()

			lines, err := m.Logs(cmd.Context(), args[0], tail)
			if err != nil {
				return err
			}

			if IsJSONOutput() {
				return printJSON(cmd.OutOrStdout(), struct {
					Container string   `json:"container"`
					Lines     []string `json:"lines"`
				}{args[0], lines})
			}
			for _, l := range lines {
				fmt.Fprintln(cmd.OutOrStdout(), l)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&tail, "tail", defaultLogTail, "Number of lines to show (0 for all)")

	return cmd
}
