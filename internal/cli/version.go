package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/deployportal-dev/deployportal/internal/version"
)

var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("portalctl %s (commit: %s, built: %s)\n", version.Version, version.GitCommit, version.BuildDate)
	},
}
