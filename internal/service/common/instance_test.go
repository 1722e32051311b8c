//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mitchellh/go-ps"
	"github.com/stretchr/testify/require"
)

// fakeProcess implements ps.Process.
type fakeProcess struct {
	pid  int
	name string
}

func (p fakeProcess) Pid() int           { return p.pid }
func (p fakeProcess) PPid() int          { return 1 }
func (p fakeProcess) Executable() string { return p.name }

// processTable finds processes from a fixed set.
func processTable(processes ...fakeProcess) ProcessFinder {
	return func(pid int) (ps.Process, error) {
		for _, p := range processes {
			if p.pid == pid {
				return p, nil
			}
		}

		return nil, nil
	}
}

func writePID(t *testing.T, path, contents string) {
	t.Helper()

	require.NoError(t, os.WriteFile(path, []byte(contents), pidFileMode))
}

func TestAcquire_CreatesAndReleases(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), PIDFilename)

	release, err := acquire(path, processTable(), 10, "noise-monitor")
	require.NoError(t, err)

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "10\n", string(contents))

	release()
	require.NoFileExists(t, path)
}

func TestAcquire_LiveDaemonBlocks(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), PIDFilename)
	writePID(t, path, "12\n")

	_, err := acquire(path, processTable(fakeProcess{12, "noise-monitor"}), 10, "noise-monitor")
	require.ErrorIs(t, err, ErrAlreadyRunning)
	require.Contains(t, err.Error(), "pid 12")
	require.FileExists(t, path)
}

func TestAcquire_OtherCommandsDoNotBlock(t *testing.T) {
	t.Parallel()

	// "noise-monitor episodes" runs as pid 12 but never writes the marker.
	path := filepath.Join(t.TempDir(), PIDFilename)

	release, err := acquire(path, processTable(fakeProcess{12, "noise-monitor"}), 10, "noise-monitor")
	require.NoError(t, err)

	release()
}

func TestAcquire_ReplacesStaleMarker(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		contents string
		table    ProcessFinder
	}{
		{name: "dead process", contents: "12\n", table: processTable()},
		{name: "recycled pid", contents: "12\n", table: processTable(fakeProcess{12, "bash"})},
		{name: "garbage", contents: "not a pid", table: processTable()},
		{name: "own pid", contents: "10", table: processTable(fakeProcess{10, "noise-monitor"})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), PIDFilename)
			writePID(t, path, tt.contents)

			release, err := acquire(path, tt.table, 10, "noise-monitor")
			require.NoError(t, err)

			contents, err := os.ReadFile(path)
			require.NoError(t, err)
			require.Equal(t, "10\n", string(contents))

			release()
		})
	}
}

func TestAcquire_FinderError(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), PIDFilename)
	writePID(t, path, "12")

	boom := errors.New("boom")
	_, err := acquire(path, func(int) (ps.Process, error) { return nil, boom }, 10, "noise-monitor")
	require.ErrorIs(t, err, boom)
}

func TestAcquireInstance_RealProcessTable(t *testing.T) {
	t.Parallel()

	path := PIDPath(filepath.Join(t.TempDir(), "noise-monitor.yaml"))

	release, err := AcquireInstance(path, nil)
	require.NoError(t, err)

	// The holder is this very test binary, so a second acquire sees its own pid.
	again, err := AcquireInstance(path, nil)
	require.NoError(t, err)

	again()
	release()
}
