package deploy

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/compose-spec/compose-go/v2/loader"
	"github.com/compose-spec/compose-go/v2/types"
	"go.yaml.in/yaml/v3"
)

// StackDefinition is a validated compose definition ready for upload.
type StackDefinition struct {
	// Services lists the service names in the definition, sorted.
	Services []string
	// Canonical is the definition re-marshalled with consistent formatting.
	Canonical string
}

// ValidateStackDefinition parses and validates inline compose YAML against
// the compose specification and returns a canonical rendering for upload.
func ValidateStackDefinition(ctx context.Context, content string) (*StackDefinition, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: compose content is empty", ErrInvalidPayload)
	}

	project, err := loader.LoadWithContext(ctx, types.ConfigDetails{
		ConfigFiles: []types.ConfigFile{
			{Filename: "docker-compose.yml", Content: []byte(content)},
		},
		Environment: types.Mapping{},
	}, func(o *loader.Options) {
		o.SetProjectName("deploy-portal", true)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	services := make([]string, 0, len(project.Services))
	for name := range project.Services {
		services = append(services, name)
	}
	sort.Strings(services)

	// Round-trip through yaml so uploads are consistently formatted no matter
	// how the client indented the submission.
	var doc map[string]any
	if err := yaml.Unmarshal([]byte(content), &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	canonical, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	return &StackDefinition{
		Services:  services,
		Canonical: string(canonical),
	}, nil
}
