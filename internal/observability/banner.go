package observability

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"golang.org/x/term"
)

var startTime = time.Now()

const (
	colorReset    = "\033[0m"
	colorPurple   = "\033[35m"
	colorNeonCyan = "\033[96m"
	colorNeonMag  = "\033[95m"
)

var spinnerFrames = []string{"◜", "◝", "◞", "◟"}

// termMu serialises all terminal output so the status line's cursor
// save/restore is never interleaved with a log write.
var termMu sync.Mutex

func termWidth() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return 80
	}
	return w
}

// IsTerminal reports whether stdout is attached to a terminal.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

type termWriter struct {
	out io.Writer
}

func (tw termWriter) Write(p []byte) (n int, err error) {
	termMu.Lock()
	defer termMu.Unlock()
	return tw.out.Write(p)
}

// NewTermWriter returns an io.Writer for log.SetOutput that shares the
// terminal lock with PrintLiveStatus.
func NewTermWriter() io.Writer {
	return termWriter{out: os.Stderr}
}

func PrintBanner(version string) {
	banner := `
    ____  __    __  ________  ____  ____  _____   ________
   / __ )/ /   / / / / ____/ / __ \/ __ \/  _/ | / /_  __/
  / __  / /   / / / / __/   / /_/ / /_/ // //  |/ / / /
 / /_/ / /___/ /_/ / /___  / ____/ _, _// // /|  / / /
/_____/_____/\____/_____/ /_/   /_/ |_/___/_/ |_/ /_/

           >> IDEA IN, ARCHITECTURE OUT <<
`
	width := termWidth()
	for _, l := range strings.Split(banner, "\n") {
		padding := (width - len(l)) / 2
		if padding < 0 {
			padding = 0
		}
		fmt.Printf("%s%s%s\n", strings.Repeat(" ", padding), colorNeonCyan+l, colorReset)
	}
	fmt.Printf("%sversion %s%s\n\n", colorPurple, version, colorReset)
}

// InitializeTerminal reserves lines 1-10 for the banner and status line.
func InitializeTerminal() {
	fmt.Print("\033[2J\033[H")
	fmt.Print("\033[12;r")
	fmt.Print("\033[12;1H")
}

func CleanupTerminal() {
	fmt.Print("\033[r\033[2J\033[H")
}

var spinnerIdx int

// PrintLiveStatus redraws the status line on row 10.
func PrintLiveStatus(s *Status) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	uptime := time.Since(startTime).Round(time.Second)
	memMB := float64(m.Alloc) / 1024 / 1024
	role, task, lastHB := s.Snapshot()
	runs := s.ActiveRuns()

	pulseIcon, pulseText, pulseColor := "🔴", "OFFLINE", colorNeonMag
	switch delta := time.Since(lastHB); {
	case delta < 40*time.Second:
		pulseIcon, pulseText, pulseColor = "🟢", "HEALTHY", colorNeonCyan
	case delta < 90*time.Second:
		pulseIcon, pulseText, pulseColor = "🟡", "LAGGING", colorPurple
	}

	spinner := " "
	if role != RoleIdle {
		spinner = spinnerFrames[spinnerIdx]
		spinnerIdx = (spinnerIdx + 1) % len(spinnerFrames)
	}

	if task == "" {
		task = "Waiting..."
	}
	if r := []rune(task); len(r) > 25 {
		task = string(r[:22]) + "..."
	}

	statusStr := fmt.Sprintf(
		"\033[s\033[10;1H\033[K[%s] %s%s %-8s%s | %-7s runs=%d [%s] %s%s%s [%v] [%.1fMB]\033[u",
		lastHB.Format("15:04:05"),
		pulseColor, pulseIcon, pulseText, colorReset,
		role, runs, task,
		colorPurple, spinner, colorReset,
		uptime, memMB,
	)

	termMu.Lock()
	fmt.Print(statusStr)
	termMu.Unlock()
}
