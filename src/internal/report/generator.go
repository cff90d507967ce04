package report

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/VectorBits/Reentry/src/internal/report/renderers"
	sa "github.com/VectorBits/Reentry/src/internal/static_analyzer"
)

type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
)

// Report wraps one analysis result with the inputs that produced it.
type Report struct {
	RunID    string
	Sources  []string
	ScanTime time.Time
	Result   *sa.AnalysisResult
}

type Generator interface {
	Generate(report *Report) (string, error)
	Extension() string
}

// NewGenerator returns the generator for a format name.
func NewGenerator(format string) (Generator, error) {
	switch Format(strings.ToLower(format)) {
	case FormatMarkdown, "md", "":
		return NewMarkdownGenerator(), nil
	case FormatJSON:
		return NewJSONGenerator(), nil
	default:
		return nil, fmt.Errorf("unsupported report format: %s (supported: markdown, json)", format)
	}
}

type MarkdownGenerator struct {
	r *renderers.MarkdownRenderer
}

func NewMarkdownGenerator() *MarkdownGenerator {
	return &MarkdownGenerator{r: renderers.NewMarkdownRenderer()}
}

func (g *MarkdownGenerator) Extension() string { return "md" }

// Generate 生成 markdown 报告
func (g *MarkdownGenerator) Generate(report *Report) (string, error) {
	if report == nil || report.Result == nil {
		return "", fmt.Errorf("empty report")
	}
	res := report.Result
	var b strings.Builder

	// 报告头部
	b.WriteString("# Reentrancy Analysis Report\n\n")
	if report.RunID != "" {
		fmt.Fprintf(&b, "**Run**: `%s`\n", report.RunID)
	}
	fmt.Fprintf(&b, "**Fingerprint**: `%s`\n", res.Fingerprint)
	fmt.Fprintf(&b, "**Scan Time**: %s\n", report.ScanTime.Format("2006-01-02 15:04:05"))
	if len(report.Sources) > 0 {
		fmt.Fprintf(&b, "**Sources**: %s\n", strings.Join(report.Sources, ", "))
	}
	b.WriteString("\n")

	// 统计
	b.WriteString(g.r.RenderSummary(summaryRows(res.Summary)))

	b.WriteString("## Findings\n\n")
	if len(res.Findings) == 0 {
		b.WriteString("✅ No reentrancy patterns found\n\n")
	}
	for i, f := range res.Findings {
		b.WriteString(g.r.RenderFinding(i+1, renderers.Finding{
			Function:     f.Function,
			Severity:     f.Severity,
			Label:        f.Classification,
			Details:      f.Details,
			Target:       f.ExternalCallTarget,
			Location:     f.Location,
			StateChanges: f.StateChanges,
			CallbackPath: f.CallbackPath,
		}))
	}

	b.WriteString("## Contracts\n\n")
	b.WriteString("| Contract | Kind | Functions | State variables | Bases |\n|---|---|---|---|---|\n")
	for _, c := range res.Contracts {
		fmt.Fprintf(&b, "| %s | %s | %d | %d | %s |\n", c.Name, c.Type, c.FunctionsCount, c.StateVariablesCount, strings.Join(c.BaseContracts, ", "))
	}
	b.WriteString("\n")

	if res.CallTree != "" {
		b.WriteString(g.r.RenderCode("Call Tree", res.CallTree))
	}
	if len(res.Diagnostics) > 0 {
		b.WriteString(g.r.RenderCode("Diagnostics", strings.Join(res.Diagnostics, "\n")))
	}
	return b.String(), nil
}

func summaryRows(s sa.Summary) [][2]string {
	return [][2]string{
		{"Contracts", fmt.Sprint(s.TotalContracts)},
		{"Functions", fmt.Sprint(s.TotalFunctions)},
		{"External calls", fmt.Sprint(s.ExternalCalls)},
		{"Cross-contract calls", fmt.Sprint(s.CrossContractCalls)},
		{"Reentrancy patterns", fmt.Sprint(s.ReentrancyPatterns)},
		{"Critical", fmt.Sprint(s.CriticalIssues)},
		{"High", fmt.Sprint(s.HighIssues)},
		{"Medium", fmt.Sprint(s.MediumIssues)},
		{"Low", fmt.Sprint(s.LowIssues)},
	}
}

type JSONGenerator struct{}

func NewJSONGenerator() *JSONGenerator { return &JSONGenerator{} }

func (g *JSONGenerator) Extension() string { return "json" }

func (g *JSONGenerator) Generate(report *Report) (string, error) {
	if report == nil || report.Result == nil {
		return "", fmt.Errorf("empty report")
	}
	data, err := json.MarshalIndent(report.Result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal result: %w", err)
	}
	return string(data) + "\n", nil
}
