package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gatewire/gateway/pkg/encoding"
)

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the CLI version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "gateway-cli %s (API v%d)\n", Version, encoding.APIVersion)
		},
	}
}
