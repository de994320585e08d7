package cli

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/deployportal-dev/deployportal/pkg/models"
	"github.com/deployportal-dev/deployportal/pkg/printer"
)

var (
	targetName       string
	targetAddress    string
	targetSSHUser    string
	targetSSHKeyPath string
	targetOutput     string
)

var TargetCmd = &cobra.Command{
	Use:   "target",
	Short: "Manage deployment targets",
	Long:  `Register and inspect the remote hosts deployments are pushed to.`,
}

var targetAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register a target",
	Long:  `Register a new SSH-reachable host as a deployment target.`,
	RunE:  runTargetAdd,
}

var targetListCmd = &cobra.Command{
	Use:   "list",
	Short: "List targets",
	RunE:  runTargetList,
}

var targetGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show a target",
	Args:  cobra.ExactArgs(1),
	RunE:  runTargetGet,
}

func init() {
	targetAddCmd.Flags().StringVar(&targetName, "name", "", "Display name for the target")
	targetAddCmd.Flags().StringVar(&targetAddress, "address", "", "Network address (host or host:port)")
	targetAddCmd.Flags().StringVar(&targetSSHUser, "ssh-user", "", "Remote login account")
	targetAddCmd.Flags().StringVar(&targetSSHKeyPath, "ssh-key", "", "Path to the private key used for authentication")
	_ = targetAddCmd.MarkFlagRequired("name")
	_ = targetAddCmd.MarkFlagRequired("address")
	_ = targetAddCmd.MarkFlagRequired("ssh-user")
	_ = targetAddCmd.MarkFlagRequired("ssh-key")

	targetListCmd.Flags().StringVarP(&targetOutput, "output", "o", "table", "Output format (table, json)")

	TargetCmd.AddCommand(targetAddCmd)
	TargetCmd.AddCommand(targetListCmd)
	TargetCmd.AddCommand(targetGetCmd)
}

func runTargetAdd(cmd *cobra.Command, args []string) error {
	if APIClient == nil {
		return fmt.Errorf("API client not initialized")
	}

	target, err := APIClient.CreateTarget(models.TargetCreate{
		Name:       targetName,
		Address:    targetAddress,
		SSHUser:    targetSSHUser,
		SSHKeyPath: targetSSHKeyPath,
	})
	if err != nil {
		return fmt.Errorf("failed to register target: %w", err)
	}

	printer.PrintSuccess(fmt.Sprintf("Target %s registered with ID %d", target.Name, target.ID))
	return nil
}

func runTargetList(cmd *cobra.Command, args []string) error {
	if APIClient == nil {
		return fmt.Errorf("API client not initialized")
	}

	targets, err := APIClient.ListTargets()
	if err != nil {
		return fmt.Errorf("failed to list targets: %w", err)
	}

	if len(targets) == 0 {
		fmt.Println("No targets registered")
		return nil
	}

	if targetOutput == "json" {
		return printer.New(printer.OutputTypeJSON).PrintJSON(targets)
	}

	t := printer.NewTablePrinter(os.Stdout)
	t.SetHeaders("ID", "Name", "Address", "SSH User", "Age")
	for _, target := range targets {
		t.AddRow(
			target.ID,
			printer.TruncateString(target.Name, 40),
			target.Address,
			target.SSHUser,
			printer.FormatAge(target.CreatedAt),
		)
	}
	if err := t.Render(); err != nil {
		printer.PrintError(fmt.Sprintf("failed to render table: %v", err))
	}
	return nil
}

func runTargetGet(cmd *cobra.Command, args []string) error {
	if APIClient == nil {
		return fmt.Errorf("API client not initialized")
	}

	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid target ID %q: %w", args[0], err)
	}

	target, err := APIClient.GetTarget(id)
	if err != nil {
		return fmt.Errorf("failed to get target: %w", err)
	}

	return printer.New(printer.OutputTypeJSON).PrintJSON(target)
}
