package deploy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateStackDefinition(t *testing.T) {
	content := `
services:
  web:
    image: nginx:latest
    ports:
      - "8080:80"
  cache:
    image: redis:7
`
	stack, err := ValidateStackDefinition(context.Background(), content)
	require.NoError(t, err)
	assert.Equal(t, []string{"cache", "web"}, stack.Services)
	assert.Contains(t, stack.Canonical, "nginx:latest")
	assert.Contains(t, stack.Canonical, "redis:7")
}

func TestValidateStackDefinitionEmpty(t *testing.T) {
	_, err := ValidateStackDefinition(context.Background(), "   \n")
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestValidateStackDefinitionMalformedYAML(t *testing.T) {
	_, err := ValidateStackDefinition(context.Background(), "services:\n  web:\n    image: [broken\n")
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestValidateStackDefinitionNotACompose(t *testing.T) {
	_, err := ValidateStackDefinition(context.Background(), "just: some\nrandom: yaml\n")
	assert.ErrorIs(t, err, ErrInvalidPayload)
}
