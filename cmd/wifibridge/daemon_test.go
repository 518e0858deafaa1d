package main

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPIDFileLifecycle(t *testing.T) {
	pidFile := filepath.Join(t.TempDir(), "run", "wifibridge.pid")

	require.NoError(t, checkPIDFile(pidFile))
	require.NoError(t, createPIDFile(pidFile))

	data, err := os.ReadFile(pidFile)
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid()), string(data))

	// our own PID is not another running instance
	require.NoError(t, checkPIDFile(pidFile))

	removePIDFile(pidFile)
	_, err = os.Stat(pidFile)
	assert.True(t, os.IsNotExist(err))
}

func TestCheckPIDFileClearsStaleEntry(t *testing.T) {
	pidFile := filepath.Join(t.TempDir(), "wifibridge.pid")
	require.NoError(t, os.WriteFile(pidFile, []byte("999999999\n"), 0644))

	require.NoError(t, checkPIDFile(pidFile))
	_, err := os.Stat(pidFile)
	assert.True(t, os.IsNotExist(err))
}

func TestCheckPIDFileRejectsGarbage(t *testing.T) {
	pidFile := filepath.Join(t.TempDir(), "wifibridge.pid")
	require.NoError(t, os.WriteFile(pidFile, []byte("not-a-pid"), 0644))

	assert.Error(t, checkPIDFile(pidFile))
}
