package renderers

import (
	"fmt"
	"strings"
)

type MarkdownRenderer struct{}

func NewMarkdownRenderer() *MarkdownRenderer {
	return &MarkdownRenderer{}
}

// Finding is the flat view of one finding the renderer needs.
type Finding struct {
	Function     string
	Severity     string
	Label        string
	Details      string
	Target       string
	Location     string
	StateChanges []string
	CallbackPath []string
}

func (r *MarkdownRenderer) RenderFinding(n int, f Finding) string {
	var b strings.Builder
	fmt.Fprintf(&b, "### %d. %s %s `%s`\n\n", n, getSeverityIcon(f.Severity), strings.ToUpper(f.Severity), f.Function)
	fmt.Fprintf(&b, "**Classification**: %s\n\n", f.Label)
	fmt.Fprintf(&b, "**External call**: `%s`", f.Target)
	if f.Location != "" {
		fmt.Fprintf(&b, " at `%s`", f.Location)
	}
	b.WriteString("\n\n")
	if f.Details != "" {
		fmt.Fprintf(&b, "%s\n\n", f.Details)
	}
	if len(f.StateChanges) > 0 {
		b.WriteString("**State changes after the call**:\n")
		for _, s := range f.StateChanges {
			fmt.Fprintf(&b, "- `%s`\n", s)
		}
		b.WriteString("\n")
	}
	// 回调路径，只有 confirmed 才有
	if len(f.CallbackPath) > 0 {
		b.WriteString("**Callback path**:\n")
		for _, s := range f.CallbackPath {
			fmt.Fprintf(&b, "- %s\n", s)
		}
		b.WriteString("\n")
	}
	b.WriteString("---\n\n")
	return b.String()
}

func (r *MarkdownRenderer) RenderSummary(rows [][2]string) string {
	var b strings.Builder
	b.WriteString("## 📊 Summary\n\n| Metric | Value |\n|---|---|\n")
	for _, row := range rows {
		fmt.Fprintf(&b, "| %s | %s |\n", row[0], row[1])
	}
	b.WriteString("\n")
	return b.String()
}

// RenderCode renders a collapsed block, keeping long sections out of the way.
func (r *MarkdownRenderer) RenderCode(title, body string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<details>\n<summary>%s</summary>\n\n", title)
	fmt.Fprintf(&b, "```\n%s\n```\n\n", strings.TrimRight(body, "\n"))
	b.WriteString("</details>\n\n")
	return b.String()
}

func getSeverityIcon(severity string) string {
	switch strings.ToLower(severity) {
	case "critical":
		return "🔴"
	case "high":
		return "🟠"
	case "medium":
		return "🟡"
	case "low":
		return "🟢"
	default:
		return "⚪"
	}
}
