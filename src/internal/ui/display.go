package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

const (
	Reset  = "\033[0m"
	Red    = "\033[31m"
	Green  = "\033[32m"
	Yellow = "\033[33m"
	Blue   = "\033[34m"
	Cyan   = "\033[36m"
	Gray   = "\033[37m"
	Bold   = "\033[1m"
)

var (
	mu sync.Mutex
	// Out receives all terminal output; reports printed with --stdout bypass it.
	Out io.Writer = os.Stderr
)

func PrintBanner() {
	banner := `
  ____                 _
 |  _ \ ___  ___ _ __ | |_ _ __ _   _
 | |_) / _ \/ _ \ '_ \| __| '__| | | |
 |  _ <  __/  __/ | | | |_| |  | |_| |
 |_| \_\___|\___|_| |_|\__|_|   \__, |
                                 |___/
`
	mu.Lock()
	defer mu.Unlock()
	fmt.Fprintln(Out, Cyan+banner+Reset)
	fmt.Fprintln(Out, Gray+"  v1.0.0 - Static Reentrancy Detection for Solidity ASTs"+Reset)
	fmt.Fprintln(Out)
}

// logLine clears a pending spinner or bar line before printing.
func logLine(color, tag, format string, a ...interface{}) {
	mu.Lock()
	defer mu.Unlock()
	fmt.Fprintf(Out, "%s%s[%s]%s %s\n", Clear, color, tag, Reset, fmt.Sprintf(format, a...))
}

func LogSuccess(format string, a ...interface{}) { logLine(Green, "SUCCESS", format, a...) }

func LogWarn(format string, a ...interface{}) { logLine(Yellow, "WARN", format, a...) }

func LogInfo(format string, a ...interface{}) { logLine(Blue, "INFO", format, a...) }

func LogError(format string, a ...interface{}) { logLine(Red, "ERROR", format, a...) }

func LogFindings(source string, findings, confirmed int) {
	logLine(Red, "REENTRANCY", "%s | findings: %d | callback confirmed: %d", source, findings, confirmed)
}

// StartSpinner animates msg until the returned stop func is called.
func StartSpinner(msg string) (stop func()) {
	frames := []rune("⠋⠙⠹⠸⠼⠴⠦⠧⠇⠏")
	done := make(chan struct{})
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		t := time.NewTicker(100 * time.Millisecond)
		defer t.Stop()
		for i := 0; ; i++ {
			mu.Lock()
			fmt.Fprintf(Out, "%s%s%c %s%s", Clear, Cyan, frames[i%len(frames)], msg, Reset)
			mu.Unlock()
			select {
			case <-done:
				mu.Lock()
				fmt.Fprint(Out, Clear)
				mu.Unlock()
				return
			case <-t.C:
			}
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			<-exited
		})
	}
}

func PrintStats(total, success, failed, findings int, duration time.Duration) {
	rule := Gray + strings.Repeat("─", 50) + Reset
	mu.Lock()
	defer mu.Unlock()
	fmt.Fprintf(Out, "\n%s\n", rule)
	fmt.Fprintf(Out, "Analysis completed in %s\n", duration)
	fmt.Fprintf(Out, "paths: %d | ok: %d | failed: %d | findings: %d\n", total, success, failed, findings)
	fmt.Fprintln(Out, rule)
}

// SeverityColor picks the terminal colour for a severity name.
func SeverityColor(sev string) string {
	switch strings.ToLower(sev) {
	case "critical":
		return Bold + Red
	case "high":
		return Red
	case "medium":
		return Yellow
	case "low":
		return Green
	default:
		return Gray
	}
}

// SummaryLine is one finding as shown in the terminal summary.
type SummaryLine struct {
	Severity string
	Function string
	Target   string
	Label    string
}

func PrintSummary(source string, critical, high, medium, low int, lines []SummaryLine) {
	counts := []struct {
		sev string
		n   int
	}{{"critical", critical}, {"high", high}, {"medium", medium}, {"low", low}}
	parts := make([]string, len(counts))
	for i, c := range counts {
		parts[i] = fmt.Sprintf("%s%s %d%s", SeverityColor(c.sev), c.sev, c.n, Reset)
	}

	mu.Lock()
	defer mu.Unlock()
	fmt.Fprintf(Out, "%s%s%s%s\n  %s\n", Clear, Bold, source, Reset, strings.Join(parts, " | "))
	for _, l := range lines {
		fmt.Fprintf(Out, "  %s%-8s%s %s -> %s %s(%s)%s\n", SeverityColor(l.Severity), strings.ToUpper(l.Severity), Reset,
			l.Function, l.Target, Gray, l.Label, Reset)
	}
}
