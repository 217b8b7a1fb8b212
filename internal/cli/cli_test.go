package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run executes the root command with fresh global flags and an isolated
// config and log location.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_STATE_HOME", filepath.Join(dir, "state"))

	configPath, verbose, jsonOutput = "", false, false
	statusWithIP, helperPrint, logsClear, logsPath = false, false, false, false

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--config", filepath.Join(dir, "config.yaml")}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestConfigPathCreatesDefaults(t *testing.T) {
	out, err := run(t, "config", "path")
	require.NoError(t, err)

	path := strings.TrimSpace(out)
	assert.Equal(t, "config.yaml", filepath.Base(path))
	_, err = os.Stat(path)
	assert.NoError(t, err, "defaults are written on first load")
}

func TestConfigShow(t *testing.T) {
	out, err := run(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "trans_port: 9040")
	assert.Contains(t, out, "wrapper: auto")
}

func TestVersionJSON(t *testing.T) {
	out, err := run(t, "version", "--json")
	require.NoError(t, err)

	var info map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, "better-tor", info["name"])
	assert.Equal(t, version, info["version"])
}

func TestHelperPrint(t *testing.T) {
	out, err := run(t, "helper", "stage", "--print")
	require.NoError(t, err)
	assert.Contains(t, out, "--toggle")
	assert.Contains(t, out, "9040")
}

func TestLogsPath(t *testing.T) {
	out, err := run(t, "logs", "--path")
	require.NoError(t, err)
	assert.Contains(t, out, "better-tor.log")
}

func TestUnknownArgsRejected(t *testing.T) {
	_, err := run(t, "toggle", "now")
	assert.Error(t, err)
}
