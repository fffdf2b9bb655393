package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "roles.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestRun_EmbeddedRegistryIsClean(t *testing.T) {
	var stdout, stderr bytes.Buffer

	code := run([]string{"--role", "supervisor"}, &stdout, &stderr)

	assert.Equal(t, 0, code, stdout.String())
	assert.Contains(t, stdout.String(), "0 problems")
	assert.Contains(t, stdout.String(), "  view_agents\n", "supervisor inherits manager")
}

func TestRun_ReportsProblems(t *testing.T) {
	//Arrange
	path := writeConfig(t, `
roles:
  a:
    level: 1
    inherits: [b]
    permissions: [view_agents]
  b:
    level: 1
    inherits: [a]
    permissions: [fly_planes]
`)
	var stdout, stderr bytes.Buffer

	//Act
	code := run([]string{"--config", path, "-r", "a"}, &stdout, &stderr)

	//Assert
	assert.Equal(t, 1, code)
	assert.Contains(t, stdout.String(), "fly_planes")
	assert.Contains(t, stdout.String(), "cycle")
	assert.Contains(t, stdout.String(), "  view_agents\n", "cyclic hierarchy still resolves")
}

func TestRun_UnknownRoleAndBadInput(t *testing.T) {
	var stdout, stderr bytes.Buffer

	assert.Equal(t, 1, run([]string{"--role", "ghost"}, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "ghost: not defined")

	assert.Equal(t, 1, run([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml")}, &stdout, &stderr))
	assert.Equal(t, 1, run([]string{"--config", writeConfig(t, "roles: [")}, &stdout, &stderr))
	assert.Equal(t, 2, run([]string{"--bogus"}, &stdout, &stderr))
	assert.Equal(t, 0, run([]string{"--help"}, &stdout, &stderr))
}
