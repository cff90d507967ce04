package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	at "github.com/VectorBits/Reentry/src/internal/astparser/asttest"
)

type fixture struct {
	dir      string
	settings string
	ast      string
	reports  string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	src := at.Source("contracts/Bank.sol", at.Contract("Bank", nil,
		at.StateVar("balances", "mapping(address => uint256)"),
		at.Function("withdraw", "public", nil, at.Block(
			at.Expr(at.LowLevelCall(at.MsgSender(), at.Lit("1"))),
			at.Expr(at.SetMapping("balances", "uint256", at.MsgSender(), at.Lit("0"))),
		)),
	))
	raw, err := json.Marshal(src.AST)
	require.NoError(t, err)

	f := fixture{
		dir:      dir,
		settings: filepath.Join(dir, "settings.yaml"),
		ast:      filepath.Join(dir, "out", "Bank.json"),
		reports:  filepath.Join(dir, "reports"),
	}
	require.NoError(t, os.MkdirAll(filepath.Dir(f.ast), 0755))
	require.NoError(t, os.WriteFile(f.ast, raw, 0644))
	settings := "database:\n  driver: sqlite\n  path: " + filepath.Join(dir, "runs.db") +
		"\nreport:\n  dir: " + f.reports + "\nlog:\n  file: \"\"\n"
	require.NoError(t, os.WriteFile(f.settings, []byte(settings), 0644))
	return f
}

func execute(t *testing.T, f fixture, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config", f.settings, "--no-banner", "-q"}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestAnalyzeWritesReportAndRun(t *testing.T) {
	f := newFixture(t)

	_, err := execute(t, f, "analyze", f.ast, "--save", "--format", "json")
	require.NoError(t, err)

	entries, err := os.ReadDir(f.reports)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasSuffix(entries[0].Name(), ".json"))

	out, err := execute(t, f, "runs", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "CRIT/HIGH/MED/LOW")
	assert.Contains(t, out, "0/0/1/0")
}

func TestAnalyzeFailOn(t *testing.T) {
	f := newFixture(t)

	_, err := execute(t, f, "analyze", f.ast, "--fail-on", "medium")
	assert.ErrorIs(t, err, ErrFailThreshold)

	_, err = execute(t, f, "analyze", f.ast, "--fail-on", "high")
	assert.NoError(t, err)

	_, err = execute(t, f, "analyze", f.ast, "--fail-on", "severe")
	assert.ErrorContains(t, err, "unknown severity")
}

func TestAnalyzeTargetsList(t *testing.T) {
	f := newFixture(t)
	list := filepath.Join(f.dir, "targets.txt")
	require.NoError(t, os.WriteFile(list, []byte("out/Bank.json\n"), 0644))

	_, err := execute(t, f, "analyze", "-t", list)
	require.NoError(t, err)
	entries, err := os.ReadDir(f.reports)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	_, err = execute(t, f, "analyze")
	assert.ErrorContains(t, err, "no targets")
}

func TestRunsShowRejectsBadID(t *testing.T) {
	f := newFixture(t)
	_, err := execute(t, f, "runs", "show", "not-a-uuid")
	assert.Error(t, err)
}

func TestGraphCommand(t *testing.T) {
	f := newFixture(t)

	out, err := execute(t, f, "graph", f.ast)
	require.NoError(t, err)
	assert.Contains(t, out, "- Entry: Bank.withdraw")
	assert.Contains(t, out, "EXTERNAL:address.call")

	out, err = execute(t, f, "graph", f.ast, "--function", "Bank.withdraw")
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out, "Callees:"))
	assert.Contains(t, out, "Call chains from entry points:\n  Bank.withdraw\n")
	assert.Contains(t, out, "Reachable functions: 0\n")

	_, err = execute(t, f, "graph", f.ast, "--function", "withdraw")
	assert.ErrorContains(t, err, "Contract.function")
}
