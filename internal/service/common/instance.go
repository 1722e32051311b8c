//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mitchellh/go-ps"
)

// PIDFilename is the daemon marker created next to the configuration file.
const PIDFilename = "noise-monitor.pid"

// pidFileMode is the permission of the marker file.
const pidFileMode os.FileMode = 0o644

// ErrAlreadyRunning is returned when another daemon process is alive.
var ErrAlreadyRunning = errors.New("another noise-monitor daemon is already running")

// ProcessFinder looks up a process by pid. It returns a nil process when none exists.
type ProcessFinder func(pid int) (ps.Process, error)

// PIDPath returns the marker location for the given configuration path.
func PIDPath(configPath string) string {
	return filepath.Join(filepath.Dir(configPath), PIDFilename)
}

// AcquireInstance creates the daemon marker at path and returns a release function.
// It fails with ErrAlreadyRunning while the pid recorded there belongs to a live
// process with the current executable name. Stale markers are replaced.
// Other commands of the same binary never hold the marker.
func AcquireInstance(path string, find ProcessFinder) (func(), error) {
	executable, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("resolve executable: %w", err)
	}

	return acquire(path, find, os.Getpid(), filepath.Base(executable))
}

func acquire(path string, find ProcessFinder, self int, name string) (func(), error) {
	if find == nil {
		find = ps.FindProcess
	}

	path = filepath.Clean(path)

	// Second attempt runs after a stale marker has been removed.
	for range 2 {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, pidFileMode)
		if err == nil {
			_, writeErr := f.WriteString(strconv.Itoa(self) + "\n")
			closeErr := f.Close()

			if err = errors.Join(writeErr, closeErr); err != nil {
				_ = os.Remove(path)
				return nil, fmt.Errorf("write pid file: %w", err)
			}

			return func() { _ = os.Remove(path) }, nil
		}

		if !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create pid file: %w", err)
		}

		if err = checkOwner(path, find, self, name); err != nil {
			return nil, err
		}

		if err = os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("remove stale pid file: %w", err)
		}
	}

	return nil, fmt.Errorf("%w: pid file %s keeps reappearing", ErrAlreadyRunning, path)
}

// checkOwner returns ErrAlreadyRunning when the marker belongs to a live daemon.
func checkOwner(path string, find ProcessFinder, self int, name string) error {
	contents, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}

		return fmt.Errorf("read pid file: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(contents)))
	if err != nil || pid <= 0 || pid == self {
		return nil
	}

	process, err := find(pid)
	if err != nil {
		return fmt.Errorf("find process %d: %w", pid, err)
	}

	// A recycled pid running another program leaves the marker stale.
	if process == nil || !strings.EqualFold(process.Executable(), name) {
		return nil
	}

	return fmt.Errorf("%w (pid %d, %s)", ErrAlreadyRunning, pid, path)
}
