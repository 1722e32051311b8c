package server

import (
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/noise-monitor/internal/config"
	domain "github.com/oshokin/noise-monitor/internal/domain/monitor"
	"github.com/oshokin/noise-monitor/internal/tone"
	"github.com/oshokin/noise-monitor/internal/ui"
)

func screenRow(s tcell.Screen, y int) string {
	width, _ := s.Size()

	var b strings.Builder

	for x := range width {
		r, _, _, _ := s.GetContent(x, y)
		if r == 0 {
			r = ' '
		}

		b.WriteRune(r)
	}

	return b.String()
}

// silentSettings captures zeros from a shell child and plays no tone.
func silentSettings(t *testing.T) *config.Config {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("capture script requires a POSIX shell")
	}

	settings := config.Default()
	settings.Capture.Command = "sh"
	settings.Capture.Args = []string{"-c", "exec cat /dev/zero"}
	settings.Tone.Kind = tone.KindNone
	settings.Journal.Path = ""

	return settings
}

func TestRunTUI_ToggleAndQuit(t *testing.T) {
	t.Parallel()

	screen := tcell.NewSimulationScreen("UTF-8")
	done := make(chan error, 1)

	go func() { done <- runTUI(t.Context(), silentSettings(t), screen, false) }()

	require.Eventually(t, func() bool {
		return strings.Contains(screenRow(screen, 3), ui.StartLabel)
	}, 5*time.Second, 10*time.Millisecond)

	screen.InjectKey(tcell.KeyRune, ' ', tcell.ModNone)

	require.Eventually(t, func() bool {
		return strings.Contains(screenRow(screen, 3), ui.StopLabel) &&
			strings.Contains(screenRow(screen, 5), string(domain.StatusDetecting))
	}, 10*time.Second, 20*time.Millisecond)

	screen.InjectKey(tcell.KeyRune, 'q', tcell.ModNone)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("tui did not quit")
	}
}
