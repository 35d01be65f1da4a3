package cmd

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/mcp-calendar/internal/config"
	"github.com/teemow/mcp-calendar/internal/errs"
)

// isolateEnv keeps the developer's environment out of config resolution.
func isolateEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		config.KeyClientID, config.KeyClientSecret, config.KeyRefreshToken,
		config.KeyPort, config.KeyTimeZone, config.KeyLogLevel,
		"INSTRUMENTATION_ENABLED", "METRICS_ADDR",
	} {
		t.Setenv(key, "")
	}
}

func writeEnv(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	root := newRootCmd()
	var stdout, stderr bytes.Buffer
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(withDefaultCommand(root, args, "serve"))
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func TestWithDefaultCommand(t *testing.T) {
	root := newRootCmd()

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{"no args", nil, []string{"serve"}},
		{"only flags", []string{"--env-file", "x.env"}, []string{"serve", "--env-file", "x.env"}},
		{"explicit serve", []string{"serve"}, []string{"serve"}},
		{"auth", []string{"auth", "--no-browser"}, []string{"auth", "--no-browser"}},
		{"version", []string{"version"}, []string{"version"}},
		{"help", []string{"--help"}, []string{"--help"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, withDefaultCommand(root, tt.args, "serve"))
		})
	}
}

func TestVersionCommand(t *testing.T) {
	SetVersion("1.2.3")
	defer SetVersion("dev")

	stdout, _, err := execute(t, "", "version")

	require.NoError(t, err)
	assert.Equal(t, "mcp-calendar version 1.2.3\n", stdout)
}

func TestServe_RequiresRefreshToken(t *testing.T) {
	isolateEnv(t)
	envFile := writeEnv(t, "GOOGLE_CLIENT_ID=id\nGOOGLE_CLIENT_SECRET=secret\n")

	_, _, err := execute(t, "", "serve", "--env-file", envFile)

	require.Error(t, err)
	assert.Equal(t, errs.Configuration, errs.KindOf(err))
	assert.Contains(t, err.Error(), config.KeyRefreshToken)
}

func TestServe_Stdio(t *testing.T) {
	isolateEnv(t)
	envFile := writeEnv(t, "GOOGLE_CLIENT_ID=id\nGOOGLE_CLIENT_SECRET=secret\nGOOGLE_REFRESH_TOKEN=\"1//token\"\n")

	stdin := strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05","capabilities":{},"clientInfo":{"name":"test","version":"1"}}}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"create_event","arguments":{"summary":"x","start_time":"tomorrow","end_time":"2025-02-06T16:00:00Z"}}}`,
	}, "\n") + "\n"

	stdout, stderr, err := execute(t, stdin, "--env-file", envFile)
	require.NoError(t, err)
	assert.NotContains(t, stderr, "1//token")

	var lines []map[string]json.RawMessage
	scanner := bufio.NewScanner(strings.NewReader(stdout))
	for scanner.Scan() {
		var msg map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &msg), scanner.Text())
		lines = append(lines, msg)
	}
	require.Len(t, lines, 3, "stdout carries protocol messages only")

	assert.Contains(t, string(lines[0]["result"]), `"name":"mcp_calendar"`)
	assert.Contains(t, string(lines[1]["result"]), `"create_event"`)

	var result struct {
		IsError bool `json:"isError"`
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	}
	require.NoError(t, json.Unmarshal(lines[2]["result"], &result))
	assert.True(t, result.IsError)
	require.Len(t, result.Content, 1)
	assert.Equal(t, `Invalid date format. Please use ISO format (e.g., "2025-02-06T15:00:00Z")`, result.Content[0].Text)
}

func TestAuth_RequiresClientCredentials(t *testing.T) {
	isolateEnv(t)
	envFile := writeEnv(t, "GOOGLE_CLIENT_ID=id\n")

	_, _, err := execute(t, "", "auth", "--no-browser", "--env-file", envFile)

	require.Error(t, err)
	assert.Equal(t, errs.Configuration, errs.KindOf(err))
	assert.Contains(t, err.Error(), config.KeyClientSecret)

	data, err := os.ReadFile(envFile)
	require.NoError(t, err)
	assert.Equal(t, "GOOGLE_CLIENT_ID=id\n", string(data))
}

func TestGenerateDocs(t *testing.T) {
	stdout, _, err := execute(t, "", "generate-docs")

	require.NoError(t, err)
	assert.Contains(t, stdout, "## create_event")
	assert.Contains(t, stdout, "Create a calendar event with specified details")
	assert.Contains(t, stdout, "| `summary` | string | yes |")
	assert.Contains(t, stdout, "| `attendees` | array of string | no |")
}

func TestGenerateDocs_OutputFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "tools.md")

	_, stderr, err := execute(t, "", "generate-docs", "-o", out)

	require.NoError(t, err)
	assert.Contains(t, stderr, out)
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "# MCP Tools Reference"))
}
