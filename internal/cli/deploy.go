package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/deployportal-dev/deployportal/internal/client"
	"github.com/deployportal-dev/deployportal/pkg/printer"
)

var (
	deployTargetID    int64
	deployImage       string
	deployName        string
	deployPorts       string
	deployComposePath string
	deployComposeFile string
)

var DeployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Deploy a container or compose stack",
	Long: `Queue a deployment to a registered target.

Either --image and --name (single container) or --compose-path (compose stack)
must be provided. With --compose-file, the local compose definition is
validated and uploaded to the target before the stack is brought up.`,
	RunE: runDeploy,
}

var PreviewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Preview a deployment",
	Long:  `Validate a deployment request and show what applying it would do, without contacting the target.`,
	RunE:  runPreview,
}

func init() {
	for _, cmd := range []*cobra.Command{DeployCmd, PreviewCmd} {
		cmd.Flags().Int64Var(&deployTargetID, "target", 0, "Target ID to deploy to")
		cmd.Flags().StringVar(&deployImage, "image", "", "Image reference for a single-container deployment")
		cmd.Flags().StringVar(&deployName, "name", "", "Name for the deployed container")
		cmd.Flags().StringVar(&deployPorts, "ports", "", "Comma-separated port mappings (e.g. 8080:80)")
		cmd.Flags().StringVar(&deployComposePath, "compose-path", "", "Path to a compose definition on the target")
		cmd.Flags().StringVar(&deployComposeFile, "compose-file", "", "Local compose file to upload to the compose path")
		_ = cmd.MarkFlagRequired("target")
	}
}

func buildDeploymentRequest() (client.DeploymentRequest, error) {
	req := client.DeploymentRequest{
		TargetID:      deployTargetID,
		Image:         deployImage,
		ContainerName: deployName,
		Ports:         deployPorts,
		ComposePath:   deployComposePath,
	}
	if deployComposeFile != "" {
		content, err := os.ReadFile(deployComposeFile)
		if err != nil {
			return client.DeploymentRequest{}, fmt.Errorf("failed to read compose file: %w", err)
		}
		req.ComposeContent = string(content)
	}
	return req, nil
}

func runDeploy(cmd *cobra.Command, args []string) error {
	if APIClient == nil {
		return fmt.Errorf("API client not initialized")
	}

	req, err := buildDeploymentRequest()
	if err != nil {
		return err
	}

	run, err := APIClient.ApplyDeployment(req)
	if err != nil {
		return fmt.Errorf("failed to submit deployment: %w", err)
	}

	printer.PrintSuccess(fmt.Sprintf("Deployment %d queued", run.ID))
	printer.PrintInfo(run.Message)
	printer.PrintInfo(fmt.Sprintf("Track progress with: portalctl status %d", run.ID))
	return nil
}

func runPreview(cmd *cobra.Command, args []string) error {
	if APIClient == nil {
		return fmt.Errorf("API client not initialized")
	}

	req, err := buildDeploymentRequest()
	if err != nil {
		return err
	}

	result, err := APIClient.PreviewDeployment(req)
	if err != nil {
		return fmt.Errorf("failed to preview deployment: %w", err)
	}

	printer.PrintInfo(result.Summary)
	return nil
}
