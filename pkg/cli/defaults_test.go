package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureStdout(t *testing.T, fn func() error) (string, error) {
	t.Helper()
	oldStdout := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	runErr := fn()

	w.Close()
	os.Stdout = oldStdout

	var buf bytes.Buffer
	io.Copy(&buf, r)
	return buf.String(), runErr
}

func TestRunDefaults(t *testing.T) {
	out, err := captureStdout(t, func() error {
		return runDefaults([]string{"-interface", "nn-index"})
	})
	require.NoError(t, err)

	var cfg map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &cfg))
	assert.Contains(t, cfg, "type")
	assert.Contains(t, cfg, "linear")
	assert.Contains(t, cfg, "lsh")
}

func TestRunDefaults_PreselectsType(t *testing.T) {
	out, err := captureStdout(t, func() error {
		return runDefaults([]string{"-interface", "descriptor-set", "-type", "redis"})
	})
	require.NoError(t, err)

	var cfg map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &cfg))
	assert.Equal(t, "redis", cfg["type"])
}

func TestRunDefaults_Errors(t *testing.T) {
	_, err := captureStdout(t, func() error {
		return runDefaults([]string{})
	})
	assert.ErrorContains(t, err, "interface is required")

	err = runDefaults([]string{"-interface", "no-such-interface"})
	assert.Error(t, err)

	err = runDefaults([]string{"-interface", "nn-index", "-type", "bogus"})
	assert.ErrorContains(t, err, "unknown implementation")
}
