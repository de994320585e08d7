// Package cli implements the portalctl command tree.
package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/deployportal-dev/deployportal/internal/client"
)

var (
	portalURL string
	verbose   bool
)

// APIClient is the shared API client used by CLI commands
var APIClient *client.Client

var rootCmd = &cobra.Command{
	Use:   "portalctl",
	Short: "Deploy Portal CLI",
	Long:  `portalctl is a CLI tool for registering deployment targets and pushing containers or compose stacks to them.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// version works offline
		if cmd.Name() == "version" {
			return nil
		}
		base := resolvePortalURL()
		c := client.NewClient(base)
		if err := c.Ping(); err != nil {
			return fmt.Errorf("failed to reach API at %s: %w", c.BaseURL, err)
		}
		APIClient = c
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	envBaseURL := os.Getenv("PORTALCTL_API_BASE_URL")
	rootCmd.PersistentFlags().StringVar(&portalURL, "portal-url", envBaseURL, "Portal base URL (overrides PORTALCTL_API_BASE_URL; default http://localhost:8080)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "V", false, "Verbose output")

	rootCmd.AddCommand(TargetCmd)
	rootCmd.AddCommand(DeployCmd)
	rootCmd.AddCommand(PreviewCmd)
	rootCmd.AddCommand(StatusCmd)
	rootCmd.AddCommand(LogsCmd)
	rootCmd.AddCommand(ListCmd)
	rootCmd.AddCommand(VersionCmd)
}

// Root returns the root command for testing.
func Root() *cobra.Command {
	return rootCmd
}

func resolvePortalURL() string {
	base := strings.TrimSpace(portalURL)
	if base == "" {
		base = strings.TrimSpace(os.Getenv("PORTALCTL_API_BASE_URL"))
	}
	if base == "" {
		return client.DefaultBaseURL
	}
	if strings.HasPrefix(base, "http://") || strings.HasPrefix(base, "https://") {
		return base
	}
	return "http://" + base
}
