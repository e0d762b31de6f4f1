package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	var dir = t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var cmd = newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), err
}

func TestTrainFromFlags(t *testing.T) {
	var dir = writeFiles(t, map[string]string{
		"vw_namespace_map.csv": "A,user\nB,item\n",
		"train.vw":             "0 |A x\n0 |A x\n0 |A x\n",
	})
	out, err := execute(t,
		"-d", filepath.Join(dir, "train.vw"),
		"--vw_map", filepath.Join(dir, "vw_namespace_map.csv"),
		"--keep", "A",
		"-l", "0.1", "--power_t", "0",
		"--adaptive", "--sgd", "--noconstant",
		"-p", "-",
		"-f", filepath.Join(dir, "model.fw"),
	)
	require.NoError(t, err)
	assert.Equal(t, "0.5\n0.48750263\n0.47533244\n", out)
	assert.FileExists(t, filepath.Join(dir, "model.fw"))

	// resume and only predict
	out, err = execute(t,
		"-d", filepath.Join(dir, "train.vw"),
		"--vw_map", filepath.Join(dir, "vw_namespace_map.csv"),
		"--keep", "A",
		"-l", "0.1", "--power_t", "0",
		"--adaptive", "--sgd", "--noconstant",
		"-i", filepath.Join(dir, "model.fw"), "-t",
		"-p", "-",
	)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("0.46349418\n", 3), out)
}

func TestTrainFromModelFile(t *testing.T) {
	var dir = writeFiles(t, map[string]string{
		"vw_namespace_map.csv": "A,user\nB,item\n",
		"model.yaml":           "desc:\n  learning_rate: 0.1\n  power_t: 0\n  hash_bits: 12\n  features: [user]\n",
		"train.vw":             "0 |A x |B y\n0 |A x\n",
	})
	out, err := execute(t,
		"-d", filepath.Join(dir, "train.vw"),
		"--vw_map", filepath.Join(dir, "vw_namespace_map.csv"),
		"--model_json", filepath.Join(dir, "model.yaml"),
		"-p", "-",
	)
	require.NoError(t, err)
	assert.Equal(t, "0.5\n0.48750263\n", out)
}

func TestEnvironment(t *testing.T) {
	var dir = writeFiles(t, map[string]string{
		"vw_namespace_map.csv": "A,user\n",
		"train.vw":             "0 |A x\n0 |A x\n",
	})
	t.Setenv("FW_LEARNING_RATE", "0.1")
	t.Setenv("FW_POWER_T", "0")
	t.Setenv("FW_VW_MAP", filepath.Join(dir, "vw_namespace_map.csv"))
	out, err := execute(t,
		"-d", filepath.Join(dir, "train.vw"),
		"--keep", "A", "--adaptive", "--sgd", "--noconstant", "-p", "-",
	)
	require.NoError(t, err)
	assert.Equal(t, "0.5\n0.48750263\n", out)
}

func TestErrors(t *testing.T) {
	var dir = writeFiles(t, map[string]string{
		"vw_namespace_map.csv": "A,user\n",
		"train.vw":             "0 |A x\n",
	})
	var base = []string{"-d", filepath.Join(dir, "train.vw"), "--vw_map", filepath.Join(dir, "vw_namespace_map.csv")}

	_, err := execute(t, append(base, "--keep", "A", "--sgd", "--noconstant")...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "adaptive")

	_, err = execute(t, append(base, "--keep", "A", "--adaptive", "--sgd", "--noconstant", "--passes", "2")...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cache")

	_, err = execute(t, "--vw_map", filepath.Join(dir, "missing.csv"))
	require.ErrorIs(t, err, os.ErrNotExist)

	_, err = execute(t, "extra")
	require.Error(t, err)
}
