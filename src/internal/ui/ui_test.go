package ui

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := Out
	Out = &buf
	t.Cleanup(func() { Out = prev })
	return &buf
}

func TestBar(t *testing.T) {
	tests := []struct {
		frac float64
		want string
	}{
		{0, ">......."},
		{0.5, "====>..."},
		{1, "========"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, bar(8, tt.frac), "%v", tt.frac)
	}
}

func TestProgressBar(t *testing.T) {
	var buf bytes.Buffer
	pb := NewProgressBar(&buf, 2, "Analyzing")

	pb.AddFindings(3, 1)
	pb.Done(nil)
	assert.Contains(t, buf.String(), "1/2")
	assert.Contains(t, buf.String(), "findings 3")
	assert.Contains(t, buf.String(), "1 critical")

	pb.PrintMsg(FormatFindingMsg("out/Bank.json", []string{"withdraw (medium)"}))
	assert.Contains(t, buf.String(), "out/Bank.json")
	assert.Contains(t, buf.String(), "withdraw (medium)\n")

	buf.Reset()
	pb.Done(errors.New("boom"))
	pb.Finish()
	out := buf.String()
	assert.Contains(t, out, "2/2 (1 failed)")
	assert.Contains(t, out, "100%")
	assert.NotContains(t, out, "eta")
	assert.True(t, strings.HasSuffix(out, "\n"))
}

func TestLogLines(t *testing.T) {
	buf := capture(t)
	LogWarn("%s: %d diagnostics", "Bank.json", 2)
	LogFindings("Bank.json", 1, 0)

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "[WARN]")
	assert.Contains(t, lines[0], "Bank.json: 2 diagnostics")
	assert.Contains(t, lines[1], "[REENTRANCY]")
	assert.Contains(t, lines[1], "findings: 1 | callback confirmed: 0")
}

func TestSpinnerStops(t *testing.T) {
	buf := capture(t)
	stop := StartSpinner("Analyzing Bank.json")
	time.Sleep(20 * time.Millisecond)
	stop()
	stop()

	mu.Lock()
	out := buf.String()
	mu.Unlock()
	assert.Contains(t, out, "Analyzing Bank.json")
	assert.True(t, strings.HasSuffix(out, Clear))
}

func TestSeverityColor(t *testing.T) {
	assert.Equal(t, Bold+Red, SeverityColor("CRITICAL"))
	assert.Equal(t, Yellow, SeverityColor("medium"))
	assert.Equal(t, Gray, SeverityColor("info"))
}
