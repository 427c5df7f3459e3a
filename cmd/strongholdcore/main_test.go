package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"strongholdcore/internal/config"
	"strongholdcore/pkg/domain"
)

const (
	throwA = "/execute in minecraft:overworld run tp @s 0.50 64.00 0.50 -45.00 -31.20"
	throwB = "/execute in minecraft:overworld run tp @s 100.50 64.00 0.50 0.00 -31.20"
)

func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCommand(strings.NewReader(stdin), &stdout, &stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func isolatedEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("STRONGHOLDCORE_STORAGE_DRIVER", "sqlite")
	t.Setenv("STRONGHOLDCORE_SQLITE_PATH", filepath.Join(dir, "sessions.db"))
	t.Setenv("STRONGHOLDCORE_BLOB_DRIVER", "fs")
	t.Setenv("STRONGHOLDCORE_BLOB_FS_ROOT", filepath.Join(dir, "exports"))
	return dir
}

func TestSolvePrintsEstimate(t *testing.T) {
	out, _, err := execute(t, throwA+"\n"+throwB+"\n", "solve", "--placement", "none")
	require.NoError(t, err)

	var res solveResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.Len(t, res.Throws, 2)
	require.NotNil(t, res.Estimate.Point)
	assert.InDelta(t, 100.5, res.Estimate.Point.X, 1e-6)
	assert.InDelta(t, 100.5, res.Estimate.Point.Z, 1e-6)
	assert.NotEmpty(t, res.Advisories)
}

func TestSolveAppliesCommandLines(t *testing.T) {
	out, _, err := execute(t, throwA+"\naltstd\nboat\n", "solve")
	require.NoError(t, err)
	var res solveResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.Len(t, res.Throws, 1)
	assert.Equal(t, domain.KindAlternate, res.Throws[0].Kind)
	assert.True(t, res.Throws[0].Boat)
	assert.Nil(t, res.Estimate.Point)
}

func TestSolveRejectsBadPlacement(t *testing.T) {
	_, _, err := execute(t, "", "solve", "--placement", "square")
	require.Error(t, err)
}

func TestRunArchivesResetSessionAndListsIt(t *testing.T) {
	dir := isolatedEnv(t)
	cfgPath := filepath.Join(dir, "strongholdcore.yaml")

	out, _, err := execute(t, throwA+"\n"+throwB+"\nnot a throw\nreset\n",
		"run", "--config", cfgPath, "--input", "stdin", "--watch-config=false")
	require.NoError(t, err)
	assert.Contains(t, out, "reset: 0 throws")
	_, statErr := os.Stat(cfgPath)
	require.NoError(t, statErr, "default config is written on first run")

	listOut, _, err := execute(t, "", "sessions", "list", "--config", cfgPath, "--json")
	require.NoError(t, err)
	var sessions []domain.Session
	require.NoError(t, json.Unmarshal([]byte(listOut), &sessions))
	require.Len(t, sessions, 1)
	assert.Equal(t, domain.ResetManual, sessions[0].Reason)
	assert.Len(t, sessions[0].Throws, 2)

	exported := filepath.Join(dir, "exports", "sessions", sessions[0].ID+".json")
	_, statErr = os.Stat(exported)
	require.NoError(t, statErr, "worker exports reset sessions")

	table, _, err := execute(t, "", "sessions", "list", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, table, sessions[0].ID)
	assert.Contains(t, table, "manual")

	single, _, err := execute(t, "", "sessions", "export", sessions[0].ID, "--config", cfgPath)
	require.NoError(t, err)
	var got domain.Session
	require.NoError(t, json.Unmarshal([]byte(single), &got))
	assert.Equal(t, sessions[0].ID, got.ID)

	_, _, err = execute(t, "", "sessions", "export", "missing", "--config", cfgPath)
	require.ErrorContains(t, err, "not found")
}

func TestRunJSONSnapshots(t *testing.T) {
	dir := isolatedEnv(t)
	cfgPath := filepath.Join(dir, "strongholdcore.yaml")
	out, _, err := execute(t, throwA+"\n", "run", "--config", cfgPath, "--input", "stdin", "--watch-config=false", "--json")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.NotEmpty(t, lines)
	var last struct {
		Throws []domain.Throw `json:"throws"`
	}
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &last))
	assert.Len(t, last.Throws, 1)
}

func TestNewLoggerRejectsUnknownLevel(t *testing.T) {
	_, err := newLogger(&bytes.Buffer{}, config.LoggingConfig{Level: "loud", Format: "text"})
	require.Error(t, err)
	logger, err := newLogger(&bytes.Buffer{}, config.LoggingConfig{Level: "debug", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, logger)
}
