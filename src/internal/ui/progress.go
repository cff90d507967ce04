package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

const Clear = "\033[2K\r"

// ProgressBar tracks a batch of analysed paths on one redrawn line.
type ProgressBar struct {
	mu       sync.Mutex
	w        io.Writer
	label    string
	width    int
	total    int
	done     int
	failed   int
	findings int
	critical int
	start    time.Time
}

func NewProgressBar(w io.Writer, total int, label string) *ProgressBar {
	return &ProgressBar{w: w, label: label, width: 32, total: total, start: time.Now()}
}

// Done marks one path finished; a non-nil err counts it as failed.
func (pb *ProgressBar) Done(err error) {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	pb.done++
	if err != nil {
		pb.failed++
	}
	pb.render()
}

func (pb *ProgressBar) AddFindings(n, critical int) {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	pb.findings += n
	pb.critical += critical
	// 下次 Done 时重绘
}

// PrintMsg prints msg above the bar.
func (pb *ProgressBar) PrintMsg(msg string) {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	fmt.Fprint(pb.w, Clear)
	fmt.Fprintln(pb.w, msg)
	pb.render()
}

func (pb *ProgressBar) Finish() {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	pb.render()
	fmt.Fprintln(pb.w)
}

func (pb *ProgressBar) render() {
	if pb.total <= 0 {
		return
	}
	frac := min(float64(pb.done)/float64(pb.total), 1)

	color := Cyan
	switch {
	case pb.failed > 0:
		color = Yellow
	case frac >= 1:
		color = Green
	}

	var status strings.Builder
	fmt.Fprintf(&status, "%d/%d", pb.done, pb.total)
	if pb.failed > 0 {
		fmt.Fprintf(&status, " (%d failed)", pb.failed)
	}
	if left := pb.eta(); left > 0 {
		fmt.Fprintf(&status, " | eta %s", left)
	}
	fmt.Fprintf(&status, " | findings %d", pb.findings)
	if pb.critical > 0 {
		fmt.Fprintf(&status, " (%s%d critical%s)", Red, pb.critical, Reset)
	}

	fmt.Fprintf(pb.w, "%s%s %s[%s]%s %3.0f%% %s",
		Clear, pb.label, color, bar(pb.width, frac), Reset, frac*100, status.String())
}

// eta extrapolates the mean time per finished path.
func (pb *ProgressBar) eta() time.Duration {
	if pb.done == 0 || pb.done >= pb.total {
		return 0
	}
	per := time.Since(pb.start) / time.Duration(pb.done)
	return (per * time.Duration(pb.total-pb.done)).Round(time.Second)
}

func bar(width int, frac float64) string {
	filled := int(float64(width) * frac)
	if filled >= width {
		return strings.Repeat("=", width)
	}
	return strings.Repeat("=", filled) + ">" + strings.Repeat(".", width-filled-1)
}

// FormatFindingMsg is the per-path line printed above the bar.
func FormatFindingMsg(source string, labels []string) string {
	return fmt.Sprintf(" %s%d findings%s in %s%s%s: %s",
		Red, len(labels), Reset, Bold, source, Reset, strings.Join(labels, ", "))
}
