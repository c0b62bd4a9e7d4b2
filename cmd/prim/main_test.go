package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runApp runs the CLI with a clean configuration environment and returns
// what it wrote to stdout.
func runApp(t *testing.T, args ...string) string {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv(envMaxISA, "")
	configFile, logLevel, logFormat, maxISA, workers, jsonOutput = "", "", "", "", 0, false

	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = io.Discard
	require.NoError(t, app.Run(context.Background(), append([]string{"prim"}, args...)))
	return out.String()
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_isa: avx2\nlog_level: debug\nworkers: 3\n"), 0o644))

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "avx2", cfg.MaxISA)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Empty(t, cfg.LogFormat)
	require.NotNil(t, cfg.Workers)
	assert.EqualValues(t, 3, *cfg.Workers)

	_, err = loadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("max_isa: [\n"), 0o644))
	_, err = loadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfig_DefaultLocation(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	cfg, err := loadConfig("")
	require.NoError(t, err)
	assert.Equal(t, Config{}, cfg)
}

func TestParseLists(t *testing.T) {
	ints, err := parseInts("2, 16,3,4")
	require.NoError(t, err)
	assert.Equal(t, []int{2, 16, 3, 4}, ints)

	_, err = parseInts("2,x")
	assert.Error(t, err)

	floats, err := parseFloats("0.5,3")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 3}, floats)
}

func TestApp_Gemm(t *testing.T) {
	out := runApp(t, "--max-isa", "generic", "gemm", "-m", "8", "-n", "9", "-k", "10", "--beta", "0.5")
	assert.Contains(t, out, "gemm f32 NN m8 n9 k10: passed")
}

func TestApp_Sum(t *testing.T) {
	out := runApp(t, "--max-isa", "generic", "sum", "--type", "s8", "--dims", "2,8,3,3", "--scales", "1,2")
	assert.Contains(t, out, "passed")
}

func TestApp_Suite(t *testing.T) {
	dir := t.TempDir()
	suite := filepath.Join(dir, "suite.yaml")
	report := filepath.Join(dir, "report.json")
	require.NoError(t, os.WriteFile(suite, []byte(`
name: cli
cases:
  - gemm: {m: 4, n: 5, k: 6, alpha: 1}
  - name: bad_scales
    sum: {src_formats: [nchw, nchw], dims: [1, 8, 2, 2], scales: [1]}
    expect_fail: true
    expected_status: invalid_arguments
`), 0o644))

	out := runApp(t, "--max-isa", "generic", "suite", "--report", report, suite)
	assert.Contains(t, out, "passed 2, failed 0, skipped 0")

	data, err := os.ReadFile(report)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"suite": "cli"`)
}

func TestApp_Version(t *testing.T) {
	out := runApp(t, "version")
	assert.Contains(t, out, "version:")
	assert.Contains(t, out, "go:")
}

func TestApp_CPUInfo(t *testing.T) {
	out := runApp(t, "--max-isa", "generic", "cpuinfo")
	assert.Contains(t, out, "dispatch:   generic")
	assert.Contains(t, out, "int8:       false")
}
