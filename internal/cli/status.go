package cli

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/deployportal-dev/deployportal/pkg/printer"
)

var listOutput string

var StatusCmd = &cobra.Command{
	Use:   "status <run-id>",
	Short: "Show deployment status",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

var LogsCmd = &cobra.Command{
	Use:   "logs <run-id>",
	Short: "Show deployment logs",
	Long:  `Show the append-only log stream recorded for a deployment run.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runLogs,
}

var ListCmd = &cobra.Command{
	Use:   "list",
	Short: "List deployments",
	RunE:  runListDeployments,
}

func init() {
	ListCmd.Flags().StringVarP(&listOutput, "output", "o", "table", "Output format (table, json)")
}

func parseRunID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid run ID %q: %w", arg, err)
	}
	return id, nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	if APIClient == nil {
		return fmt.Errorf("API client not initialized")
	}

	id, err := parseRunID(args[0])
	if err != nil {
		return err
	}

	run, err := APIClient.GetDeployment(id)
	if err != nil {
		return fmt.Errorf("failed to get deployment: %w", err)
	}

	fmt.Printf("Deployment %d: %s\n", run.ID, run.State)
	fmt.Printf("  %s\n", run.Message)
	return nil
}

func runLogs(cmd *cobra.Command, args []string) error {
	if APIClient == nil {
		return fmt.Errorf("API client not initialized")
	}

	id, err := parseRunID(args[0])
	if err != nil {
		return err
	}

	logs, err := APIClient.GetDeploymentLogs(id)
	if err != nil {
		return fmt.Errorf("failed to get deployment logs: %w", err)
	}

	if len(logs) == 0 {
		fmt.Println("No logs recorded")
		return nil
	}

	for _, entry := range logs {
		fmt.Printf("%s [%s] %s\n", printer.FormatTimestamp(entry.Timestamp), entry.Level, entry.Message)
	}
	return nil
}

func runListDeployments(cmd *cobra.Command, args []string) error {
	if APIClient == nil {
		return fmt.Errorf("API client not initialized")
	}

	runs, err := APIClient.ListDeployments()
	if err != nil {
		return fmt.Errorf("failed to list deployments: %w", err)
	}

	if len(runs) == 0 {
		fmt.Println("No deployments found")
		return nil
	}

	if listOutput == "json" {
		return printer.New(printer.OutputTypeJSON).PrintJSON(runs)
	}

	t := printer.NewTablePrinter(os.Stdout)
	t.SetHeaders("ID", "Target", "Kind", "State", "Message", "Age")
	for _, run := range runs {
		t.AddRow(
			run.ID,
			run.TargetID,
			run.Payload.Kind,
			run.State,
			printer.TruncateString(run.Message, 60),
			printer.FormatAge(run.CreatedAt),
		)
	}
	if err := t.Render(); err != nil {
		printer.PrintError(fmt.Sprintf("failed to render table: %v", err))
	}
	return nil
}
