package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/VectorBits/Reentry/src/internal/logger"
	"github.com/VectorBits/Reentry/src/internal/report"
	"github.com/VectorBits/Reentry/src/internal/severity"
	sa "github.com/VectorBits/Reentry/src/internal/static_analyzer"
	"github.com/VectorBits/Reentry/src/internal/store"
	"github.com/VectorBits/Reentry/src/internal/target"
	"github.com/VectorBits/Reentry/src/internal/ui"
)

var ErrFailThreshold = errors.New("findings at or above the fail-on severity")

type analyzeOptions struct {
	format      string
	outDir      string
	save        bool
	cfg         bool
	failOn      string
	stdout      bool
	targets     string
	excludeLibs bool
}

type pathOutcome struct {
	path   string
	result *sa.AnalysisResult
	report string
	runID  string
	err    error
}

func newAnalyzeCmd() *cobra.Command {
	var o analyzeOptions
	c := &cobra.Command{
		Use:   "analyze <path>...",
		Short: "Analyze solc AST output (build-info, SourceUnit JSON or directories) for reentrancy",
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := target.Resolve(args, o.targets)
			if err != nil {
				return err
			}
			return runAnalyze(cmd.Context(), o, paths)
		},
	}
	f := c.Flags()
	f.StringVar(&o.format, "format", "", "report format: markdown|json (default from settings)")
	f.StringVar(&o.outDir, "out", "", "report directory (default from settings)")
	f.BoolVar(&o.save, "save", false, "persist the run in the configured database")
	f.BoolVar(&o.cfg, "cfg", false, "include per-function control flow graphs in the result")
	f.StringVar(&o.failOn, "fail-on", "", "exit non-zero when a finding reaches this severity")
	f.BoolVar(&o.stdout, "stdout", false, "print the report instead of writing a file")
	f.StringVarP(&o.targets, "targets", "t", "", "file listing AST paths (txt, one per line, or yaml)")
	f.BoolVar(&o.excludeLibs, "exclude-libs", false, "drop findings in vendored libraries, tests and mocks")
	return c
}

func runAnalyze(ctx context.Context, o analyzeOptions, paths []string) error {
	var threshold severity.Level
	if o.failOn != "" {
		l, err := severity.Parse(o.failOn)
		if err != nil {
			return err
		}
		threshold = l
	}
	if o.format == "" {
		o.format = appCfg.Report.Format
	}
	if o.outDir == "" {
		o.outDir = appCfg.Report.Dir
	}
	gen, err := report.NewGenerator(o.format)
	if err != nil {
		return err
	}

	acfg := sa.ConfigFromSettings(appCfg)
	acfg.Analysis.IncludeCFG = acfg.Analysis.IncludeCFG || o.cfg
	analyzer, err := sa.NewAnalyzer(acfg)
	if err != nil {
		return err
	}
	defer analyzer.Close()

	var st store.Store
	if o.save {
		st, err = store.Open(ctx, appCfg)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer st.Close()
	}

	reporter := report.NewReporter(gen, report.NewFileStorage(o.outDir))
	start := time.Now()
	var bar *ui.ProgressBar
	stopSpinner := func() {}
	if len(paths) > 1 {
		bar = ui.NewProgressBar(ui.Out, len(paths), "Analyzing")
	} else if !rootOpts.quiet && !o.stdout {
		stopSpinner = ui.StartSpinner("Analyzing " + paths[0])
	}

	outcomes := make([]pathOutcome, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, appCfg.Analysis.Concurrency))
	for i, path := range paths {
		g.Go(func() error {
			outcomes[i] = analyzeOne(gctx, analyzer, gen, reporter, st, path, o)
			if bar != nil {
				if r := outcomes[i].result; r != nil && len(r.Findings) > 0 {
					bar.AddFindings(len(r.Findings), r.Summary.CriticalIssues)
					bar.PrintMsg(ui.FormatFindingMsg(path, findingLabels(r)))
				}
				bar.Done(outcomes[i].err)
			}
			// a failing path does not stop the others
			return gctx.Err()
		})
	}
	err = g.Wait()
	stopSpinner()
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		return err
	}

	var errs []error
	success, total := 0, 0
	failing := false
	for _, out := range outcomes {
		if out.err != nil {
			ui.LogError("%s: %v", out.path, out.err)
			errs = append(errs, fmt.Errorf("%s: %w", out.path, out.err))
			continue
		}
		success++
		total += len(out.result.Findings)
		printOutcome(out, o.stdout)
		if threshold != "" && reaches(out.result, threshold) {
			failing = true
		}
	}
	ui.PrintStats(len(paths), success, len(paths)-success, total, time.Since(start).Round(time.Millisecond))

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	if failing {
		return fmt.Errorf("%w (%s)", ErrFailThreshold, threshold)
	}
	return nil
}

func analyzeOne(ctx context.Context, a sa.Analyzer, gen report.Generator, reporter *report.Reporter, st store.Store, path string, o analyzeOptions) pathOutcome {
	out := pathOutcome{path: path}
	res, err := sa.AnalyzePaths(ctx, a, path)
	if err != nil {
		out.err = err
		return out
	}
	if o.excludeLibs {
		res = sa.DropFindings(res, func(c sa.ContractSummary) bool { return target.IsLibraryPath(c.FilePath) })
	}
	out.result = res
	for _, d := range res.Diagnostics {
		logger.Debug("%s: %s", path, d)
	}

	if st != nil {
		run, err := store.RunFromResult(res, []string{path})
		if err != nil {
			out.err = err
			return out
		}
		if err := st.Save(ctx, run); err != nil {
			out.err = err
			return out
		}
		out.runID = run.ID
	}

	rep := report.NewReport(out.runID, []string{path}, res)
	if o.stdout {
		out.report, out.err = gen.Generate(rep)
		return out
	}
	file, err := reporter.GenerateAndSave(rep)
	if err != nil {
		out.err = err
		return out
	}
	out.report = file
	logger.InfoFileOnly("report for %s written to %s", path, file)
	return out
}

func printOutcome(out pathOutcome, toStdout bool) {
	res := out.result
	lines := make([]ui.SummaryLine, 0, len(res.Findings))
	confirmed := 0
	for _, f := range res.Findings {
		if f.CallbackConfirmed {
			confirmed++
		}
		lines = append(lines, ui.SummaryLine{
			Severity: f.Severity,
			Function: f.Function,
			Target:   f.ExternalCallTarget,
			Label:    f.Classification,
		})
	}
	if len(res.Findings) > 0 {
		ui.LogFindings(out.path, len(res.Findings), confirmed)
	}
	if len(res.Diagnostics) > 0 {
		ui.LogWarn("%s: %d diagnostics, rerun with --log-level debug for details", out.path, len(res.Diagnostics))
	}
	s := res.Summary
	ui.PrintSummary(out.path, s.CriticalIssues, s.HighIssues, s.MediumIssues, s.LowIssues, lines)
	if toStdout {
		fmt.Fprint(os.Stdout, out.report)
		return
	}
	ui.LogSuccess("Report: %s", out.report)
	if out.runID != "" {
		ui.LogInfo("Saved run %s", out.runID)
	}
}

// findingLabels lists "function (severity)" per finding.
func findingLabels(res *sa.AnalysisResult) []string {
	out := make([]string, len(res.Findings))
	for i, f := range res.Findings {
		out[i] = fmt.Sprintf("%s (%s)", f.Function, f.Severity)
	}
	return out
}

func reaches(res *sa.AnalysisResult, threshold severity.Level) bool {
	for _, f := range res.Findings {
		if severity.Level(f.Severity).AtLeast(threshold) {
			return true
		}
	}
	return false
}
