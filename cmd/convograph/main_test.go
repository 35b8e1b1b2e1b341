package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/convograph/internal/engine"
)

const (
	blacksmithFile = "../../examples/conversations/blacksmith.json"
	guideFile      = "../../examples/conversations/guide.yaml"
)

// resetFlags restores every flag to its default; rootCmd is shared across
// tests and pflag remembers values between executions.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// run executes the CLI against a fresh database and no settings file.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	for _, key := range []string{"CONVOGRAPH_BACKEND_URL", "CONVOGRAPH_DB_PATH", "CONVOGRAPH_LABEL_EXPR"} {
		t.Setenv(key, "")
	}

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	dir := t.TempDir()
	rootCmd.SetArgs(append(args,
		"--settings", filepath.Join(dir, "settings.json"),
		"--db", filepath.Join(dir, "convograph.db"),
	))
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "dev\n", out)
}

func TestLayoutCommand_JSONFile(t *testing.T) {
	out, err := run(t, "layout", blacksmithFile, "--format", "json")
	require.NoError(t, err)

	var p engine.Payload
	require.NoError(t, json.Unmarshal([]byte(out), &p))
	assert.Equal(t, "blacksmith-9010000", p.ConversationID)
	assert.Empty(t, p.LayoutID, "file layouts are not recorded")
	require.NotNil(t, p.Diagram)
	assert.Equal(t, "greeting", p.Diagram.StartID)
	assert.Len(t, p.Diagram.Nodes, 8)
	assert.Empty(t, p.Diagram.Overflow)
	assert.True(t, p.Lint.Valid())

	greeting := p.Diagram.Node("greeting")
	require.NotNil(t, greeting)
	assert.Equal(t, 0, greeting.Level)
	assert.Equal(t, 2, greeting.Ports, "the null choice ends the conversation and takes no port")
}

func TestLayoutCommand_YAMLMermaid(t *testing.T) {
	out, err := run(t, "layout", guideFile, "--format", "mermaid")
	require.NoError(t, err)
	assert.Contains(t, out, "flowchart LR")
	assert.Contains(t, out, "harbor")
}

func TestLayoutCommand_LabelExpr(t *testing.T) {
	out, err := run(t, "layout", guideFile, "--label-expr", "upper(id)")
	require.NoError(t, err)

	var p engine.Payload
	require.NoError(t, json.Unmarshal([]byte(out), &p))
	assert.Equal(t, "HARBOR", p.Diagram.Node("harbor").Label)
	assert.Equal(t, []string{"lost-note"}, p.Diagram.Overflow)
}

func TestLayoutCommand_OutFile(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "guide.mmd")
	out, err := run(t, "layout", guideFile, "--format", "mermaid", "--out", dest)
	require.NoError(t, err)
	assert.Empty(t, out)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Contains(t, string(data), "flowchart LR")
}

func TestLayoutCommand_Errors(t *testing.T) {
	_, err := run(t, "layout", guideFile, "--format", "svg")
	assert.ErrorContains(t, err, `unknown format "svg"`)

	broken := writeFile(t, "broken.json", `{"startState": "nowhere", "states": [{"id": "a", "type": "dialogue"}]}`)
	_, err = run(t, "layout", broken)
	assert.ErrorContains(t, err, "Could not find start node")

	_, err = run(t, "layout", "ghost")
	assert.ErrorContains(t, err, "no backend is configured")
}

func TestValidateCommand(t *testing.T) {
	out, err := run(t, "validate", guideFile)
	require.NoError(t, err, "warnings do not fail validation")
	assert.Contains(t, out, "UNREACHABLE_STATE")
	assert.Contains(t, out, "[lost-note]")

	out, err = run(t, "validate", blacksmithFile)
	require.NoError(t, err)
	assert.Equal(t, "ok\n", out)
}

func TestValidateCommand_ErrorsAsJSON(t *testing.T) {
	broken := writeFile(t, "broken.yaml", "startState: nowhere\nstates:\n  - id: a\n    type: dialogue\n")
	out, err := run(t, "validate", broken, "--json")
	require.Error(t, err)

	var result struct {
		Errors []struct {
			Code string `json:"code"`
		} `json:"errors"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	require.NotEmpty(t, result.Errors)
	assert.Equal(t, "START_STATE_NOT_FOUND", result.Errors[0].Code)
}

func TestReorganizeCommand_NotStored(t *testing.T) {
	out, err := run(t, "reorganize", "ghost")
	assert.EqualError(t, err, "1 of 1 conversations failed")
	assert.Contains(t, out, "failed ghost")
}

func TestVacuumCommand(t *testing.T) {
	out, err := run(t, "vacuum")
	require.NoError(t, err)
	assert.Contains(t, out, "vacuumed")
}

func TestFlagsOverrideEnvironment(t *testing.T) {
	t.Setenv("CONVOGRAPH_TENANT_ID", "from-env")
	t.Setenv("CONVOGRAPH_REGION", "GMS")

	_, err := run(t, "version", "--tenant", "from-flag", "--major-version", "83")
	require.NoError(t, err)
	assert.Equal(t, "from-flag", cfg.Tenant.ID)
	assert.Equal(t, "GMS", cfg.Tenant.Region)
	assert.Equal(t, uint16(83), cfg.Tenant.MajorVersion)
}
