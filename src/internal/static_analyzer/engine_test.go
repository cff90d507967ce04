package static_analyzer

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VectorBits/Reentry/src/internal/astparser"
	at "github.com/VectorBits/Reentry/src/internal/astparser/asttest"
	"github.com/VectorBits/Reentry/src/internal/config"
	"github.com/VectorBits/Reentry/src/internal/model"
	"github.com/VectorBits/Reentry/src/internal/severity"
)

// bankSource: Bank.withdraw pays msg.sender before zeroing the balance,
// Bank.pull calls a concrete Token that calls back into Bank.credit.
func bankSource() *astparser.ParsedSource {
	zero := func() at.Node {
		return at.Expr(at.SetMapping("balances", "uint256", at.MsgSender(), at.Lit("0")))
	}
	return at.Source("contracts/Bank.sol",
		at.Contract("Token", nil,
			at.StateVar("bank", "contract Bank"),
			at.Function("transfer", "external", nil, at.Block(at.Expr(at.ExternalCall("bank", "contract Bank", "credit")))),
		),
		at.Contract("Bank", nil,
			at.StateVar("balances", "mapping(address => uint256)"),
			at.StateVar("token", "contract Token"),
			at.Function("credit", "external", nil, at.Block(zero())),
			at.Function("withdraw", "public", nil, at.Block(at.Expr(at.LowLevelCall(at.MsgSender(), at.Lit("1"))), zero())),
			at.Function("pull", "public", nil, at.Block(at.Expr(at.ExternalCall("token", "contract Token", "transfer")), zero())),
		),
	)
}

func bankProgram(t *testing.T) *model.Program {
	t.Helper()
	p, err := model.Build([]*astparser.ParsedSource{bankSource()})
	require.NoError(t, err)
	return p
}

func newEngine(t *testing.T, mutate func(*AnalyzerConfig)) Analyzer {
	t.Helper()
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	a, err := NewAnalyzer(cfg)
	require.NoError(t, err)
	return a
}

func TestAnalyzeEndToEnd(t *testing.T) {
	res, err := newEngine(t, nil).Analyze(context.Background(), bankProgram(t))
	require.NoError(t, err)

	assert.Equal(t, Summary{
		TotalContracts:     2,
		TotalFunctions:     4,
		ExternalCalls:      3,
		CrossContractCalls: 2,
		ReentrancyPatterns: 2,
		CriticalIssues:     1,
		MediumIssues:       1,
	}, res.Summary)

	require.Len(t, res.Findings, 2)
	pull, withdraw := res.Findings[0], res.Findings[1]
	assert.Equal(t, "Bank.pull", pull.Function)
	assert.Equal(t, "critical", pull.Severity)
	assert.True(t, pull.CallbackConfirmed)
	assert.Equal(t, []string{"Bank.pull -> Token.transfer", "Token.transfer -> Bank.credit"}, pull.CallbackPath)

	assert.Equal(t, "Bank.withdraw", withdraw.Function)
	assert.Equal(t, "medium", withdraw.Severity)
	assert.Equal(t, "opaque_external_call", withdraw.Classification)
	assert.True(t, withdraw.CallbackPossible)
	assert.Equal(t, "msg.sender.call{...}", withdraw.ExternalCallTarget)
	assert.Equal(t, []string{"balances[]"}, withdraw.StateChanges)

	var pseudo *GraphNode
	for i, n := range res.CallGraph.Nodes {
		if n.ID == "EXTERNAL:address.call" {
			pseudo = &res.CallGraph.Nodes[i]
		}
	}
	require.NotNil(t, pseudo, "unresolved targets appear as nodes")
	assert.Equal(t, "external", pseudo.Type)

	assert.Contains(t, res.CallTree, "- Entry: Bank.pull")
	assert.Nil(t, res.CFG)
	assert.Empty(t, res.Diagnostics)
}

func TestAnalyzeIncludesCFG(t *testing.T) {
	a := newEngine(t, func(c *AnalyzerConfig) { c.Analysis.IncludeCFG = true })
	res, err := a.Analyze(context.Background(), bankProgram(t))
	require.NoError(t, err)

	keys := SortedCFGKeys(res.CFG)
	assert.Equal(t, []string{"Bank.credit", "Bank.pull", "Bank.withdraw", "Token.transfer"}, keys)
	w := res.CFG["Bank.withdraw"]
	require.Len(t, w.Nodes, 4)
	assert.Equal(t, "external_call", w.Nodes[1].Effects[0].Kind)
	assert.Equal(t, "balances[]", w.Nodes[2].Effects[0].Variable)
}

func TestAnalyzeIsIdempotent(t *testing.T) {
	a := newEngine(t, nil)
	strip := func(r *AnalysisResult) []byte {
		c := *r
		c.GeneratedAt = time.Time{}
		data, err := json.Marshal(c)
		require.NoError(t, err)
		return data
	}
	first, err := a.Analyze(context.Background(), bankProgram(t))
	require.NoError(t, err)
	second, err := a.Analyze(context.Background(), bankProgram(t))
	require.NoError(t, err)
	assert.JSONEq(t, string(strip(first)), string(strip(second)))
}

func TestAnalyzeEmptyProgram(t *testing.T) {
	for name, a := range map[string]Analyzer{
		"engine": newEngine(t, nil),
		"cached": newEngine(t, func(c *AnalyzerConfig) { c.Cache = true }),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := a.Analyze(context.Background(), &model.Program{})
			assert.ErrorIs(t, err, model.ErrEmptyProgram)
		})
	}
}

func TestNewAnalyzer(t *testing.T) {
	bad := DefaultConfig()
	bad.Detector.Policy.Opaque.Severity = "huge"
	_, err := NewAnalyzer(bad)
	assert.ErrorContains(t, err, "unknown severity")

	unknown := DefaultConfig()
	unknown.Backend = "remote"
	_, err = NewAnalyzer(unknown)
	assert.ErrorContains(t, err, "unsupported backend")

	off := DefaultConfig()
	off.Enabled = false
	a, err := NewAnalyzer(off)
	require.NoError(t, err)
	assert.IsType(t, &NoOpAnalyzer{}, a)
}

type countingAnalyzer struct {
	mu    sync.Mutex
	calls int
	inner Analyzer
}

func (c *countingAnalyzer) Analyze(ctx context.Context, p *model.Program) (*AnalysisResult, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	return c.inner.Analyze(ctx, p)
}

func (c *countingAnalyzer) Close() error { return nil }

func TestCachingAnalyzerSharesResults(t *testing.T) {
	inner := &countingAnalyzer{inner: newEngine(t, nil)}
	a := NewCachingAnalyzer(inner)
	p := bankProgram(t)

	var wg sync.WaitGroup
	results := make([]*AnalysisResult, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := a.Analyze(context.Background(), p)
			assert.NoError(t, err)
			results[i] = res
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, inner.calls)
	for _, r := range results[1:] {
		assert.Same(t, results[0], r)
	}
	require.NoError(t, a.Close())
}

func TestDropFindings(t *testing.T) {
	res, err := newEngine(t, nil).Analyze(context.Background(), bankProgram(t))
	require.NoError(t, err)

	kept := DropFindings(res, func(c ContractSummary) bool { return c.Name == "Token" })
	assert.Same(t, res, kept, "nothing to drop")

	dropped := DropFindings(res, func(c ContractSummary) bool { return c.Name == "Bank" })
	assert.Empty(t, dropped.Findings)
	assert.Equal(t, 0, dropped.Summary.ReentrancyPatterns)
	assert.Equal(t, 0, dropped.Summary.CriticalIssues)
	assert.Equal(t, 2, dropped.Summary.TotalContracts)
	assert.Len(t, res.Findings, 2, "input untouched")
}

func TestAnalyzePaths(t *testing.T) {
	raw, err := json.Marshal(bankSource().AST)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "Bank.json")
	require.NoError(t, os.WriteFile(path, raw, 0644))

	res, err := AnalyzePaths(context.Background(), newEngine(t, nil), path)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Summary.ReentrancyPatterns)
	assert.Len(t, res.Fingerprint, 66)

	_, err = AnalyzePaths(context.Background(), newEngine(t, nil), filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestConfigFromSettings(t *testing.T) {
	app := &config.AppConfig{
		Analysis: config.AnalysisConfig{Concurrency: 3, MaxCallbackDepth: 2, IncludeCFG: true, CallTreeDepth: 4},
		Severity: severity.DefaultPolicy(),
	}
	cfg := ConfigFromSettings(app)
	assert.True(t, cfg.Cache)
	assert.Equal(t, 3, cfg.Detector.Concurrency)
	assert.Equal(t, 2, cfg.Detector.MaxCallbackDepth)
	assert.Equal(t, severity.DefaultPolicy(), cfg.Detector.Policy)
	assert.True(t, cfg.Analysis.IncludeCFG)
	assert.Equal(t, 4, cfg.Analysis.CallTreeDepth)
}
