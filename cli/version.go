package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reglet-dev/glimpse/internal/version"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of glimpse",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "glimpse version %s\n", version.Get().Full())
		},
	}
}
