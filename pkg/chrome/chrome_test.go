package chrome

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupDevice(t *testing.T) {
	d, err := LookupDevice("")
	require.NoError(t, err)
	assert.Equal(t, DefaultDeviceName, d.Name)
	assert.Equal(t, int64(1920), d.Width)

	d, err = LookupDevice("iphone 12 pro")
	require.NoError(t, err)
	assert.True(t, d.Mobile)
	assert.True(t, d.Touch)

	_, err = LookupDevice("Nokia 3310")
	assert.ErrorContains(t, err, "unknown device")
}

func TestDeviceNamesSorted(t *testing.T) {
	names := DeviceNames()
	assert.Len(t, names, len(PredefinedDevices))
	assert.IsNonDecreasing(t, names)
}

func TestFindChromeOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chrome")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), 0o755))

	got, err := FindChrome(path)
	require.NoError(t, err)
	assert.Equal(t, path, got)

	_, err = FindChrome(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestCandidatePaths(t *testing.T) {
	assert.NotEmpty(t, candidatePaths("linux"))
	assert.NotEmpty(t, candidatePaths("darwin"))
	assert.Nil(t, candidatePaths("plan9"))
}
