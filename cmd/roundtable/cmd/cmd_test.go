package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

// captureStdout runs fn while capturing everything it writes to stdout.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()

	old := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	done := make(chan string)
	go func() {
		var buf bytes.Buffer
		_, _ = buf.ReadFrom(r)
		done <- buf.String()
	}()

	fn()

	w.Close()
	os.Stdout = old
	return <-done
}

// testWorkspace switches the process into a temp directory holding a
// mock-adapter config and returns the directory. State and flags are
// restored on cleanup.
func testWorkspace(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	old, err := os.Getwd()
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = os.Chdir(old)
		viper.Reset()
		cfgFile = ""
	})

	require.NoError(t, os.Chdir(dir))
	viper.Reset()

	cfgFile = filepath.Join(dir, "roundtable.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("completion:\n  adapter: mock\n"), 0o600))
	return dir
}
