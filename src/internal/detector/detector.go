// Package detector finds state writes that follow an external call on some
// execution path and decides whether the callee can re-enter.
package detector

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/VectorBits/Reentry/src/internal/astparser"
	"github.com/VectorBits/Reentry/src/internal/callgraph"
	"github.com/VectorBits/Reentry/src/internal/cfg"
	"github.com/VectorBits/Reentry/src/internal/logger"
	"github.com/VectorBits/Reentry/src/internal/model"
	"github.com/VectorBits/Reentry/src/internal/severity"
)

type Finding struct {
	Function *model.Function
	CallNode int
	Call     *cfg.ExternalCall
	Writes   []*cfg.StateWrite
	Status   severity.Status
	Shape    severity.Shape
	// Path is set for confirmed callbacks.
	Path     []*callgraph.Edge
	Severity severity.Level
	Label    string
	Details  string
}

type Options struct {
	// Concurrency caps the number of functions analysed at once; 0 means
	// GOMAXPROCS.
	Concurrency      int
	MaxCallbackDepth int
	Policy           severity.Policy
}

func DefaultOptions() Options {
	return Options{
		MaxCallbackDepth: callgraph.DefaultMaxCallbackDepth,
		Policy:           severity.DefaultPolicy(),
	}
}

type Result struct {
	CFGs        map[*model.Function]*cfg.CFG
	Findings    []*Finding
	Diagnostics []error
}

type Detector struct {
	graph *callgraph.Graph
	opts  Options
}

func New(g *callgraph.Graph, opts Options) *Detector {
	if opts.MaxCallbackDepth <= 0 {
		opts.MaxCallbackDepth = callgraph.DefaultMaxCallbackDepth
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = runtime.GOMAXPROCS(0)
	}
	return &Detector{graph: g, opts: opts}
}

type functionResult struct {
	cfg      *cfg.CFG
	findings []*Finding
	err      error
}

// Run builds the CFG of every function and collects findings. Functions
// are independent, so they are fanned out over an errgroup; results are
// written by index and merged in program order.
func (d *Detector) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	funcs := d.graph.Program.Functions()
	results := make([]functionResult, len(funcs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(d.opts.Concurrency)
	for i, f := range funcs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			graph, err := cfg.Build(d.graph, f)
			results[i] = functionResult{cfg: graph, err: err}
			if graph != nil && err == nil {
				results[i].findings = d.Analyze(graph)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &Result{CFGs: make(map[*model.Function]*cfg.CFG, len(funcs))}
	for i, r := range results {
		if r.cfg != nil {
			res.CFGs[funcs[i]] = r.cfg
		}
		if r.err != nil {
			// unanalysable functions contribute no findings
			logger.Debug("detector: skip %s: %v", funcs[i].Key(), r.err)
			res.Diagnostics = append(res.Diagnostics, r.err)
			continue
		}
		res.Findings = append(res.Findings, r.findings...)
	}
	SortFindings(res.Findings)

	logger.Debug("detector: %d functions, %d findings in %s", len(funcs), len(res.Findings), time.Since(start))
	return res, nil
}

// Analyze reports one finding per external call that has at least one
// state write reachable after it.
func (d *Detector) Analyze(g *cfg.CFG) []*Finding {
	var out []*Finding
	for _, ref := range g.Calls() {
		writes := ReachableWrites(g, ref)
		if len(writes) == 0 {
			continue
		}
		call := ref.Call()
		status, path := d.callback(g.Function, call)
		shape := d.opts.Policy.ShapeOf(call.Edges)
		rule := d.opts.Policy.Classify(status, shape)

		out = append(out, &Finding{
			Function: g.Function,
			CallNode: ref.Node.ID,
			Call:     call,
			Writes:   writes,
			Status:   status,
			Shape:    shape,
			Path:     path,
			Severity: rule.Severity,
			Label:    rule.Label,
			Details:  fmt.Sprintf("External call to %s followed by %d state changes", call.TargetExpr, len(writes)),
		})
	}
	return out
}

func (d *Detector) callback(f *model.Function, call *cfg.ExternalCall) (severity.Status, []*callgraph.Edge) {
	if path := d.graph.CallbackPath(f, call.Edges, d.opts.MaxCallbackDepth); path != nil {
		return severity.CallbackConfirmed, path
	}
	for _, e := range call.Edges {
		if e.Confidence != callgraph.Confirmed {
			return severity.CallbackPossible, nil
		}
	}
	return severity.CallbackNone, nil
}

// ReachableWrites collects the state writes that may execute after the
// referenced call: later effects of the same node, then every node
// reachable over CFG edges. Each node is visited once, so a loop body is
// walked a single time; if the walk returns to the call node the writes
// evaluated before the call are included too.
func ReachableWrites(g *cfg.CFG, ref cfg.CallRef) []*cfg.StateWrite {
	var out []*cfg.StateWrite
	collect := func(effects []cfg.Effect) {
		for _, e := range effects {
			if e.Kind == cfg.EffectStateWrite {
				out = append(out, e.Write)
			}
		}
	}
	collect(ref.Node.Effects[ref.Index+1:])

	visited := make(map[int]bool)
	var queue []int
	for _, e := range g.Successors(ref.Node.ID) {
		queue = append(queue, e.To)
	}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if visited[id] {
			continue
		}
		visited[id] = true

		node := g.Nodes[id]
		if id == ref.Node.ID {
			collect(node.Effects[:ref.Index])
			continue
		}
		collect(node.Effects)
		for _, e := range g.Successors(id) {
			if !visited[e.To] {
				queue = append(queue, e.To)
			}
		}
	}
	return out
}

// SortFindings orders by contract, function, then call-site position.
func SortFindings(fs []*Finding) {
	sort.SliceStable(fs, func(i, j int) bool {
		a, b := fs[i], fs[j]
		if a.Function.Contract != b.Function.Contract {
			return a.Function.Contract < b.Function.Contract
		}
		if ka, kb := a.Function.Key(), b.Function.Key(); ka != kb {
			return ka < kb
		}
		oa, ob := offset(a.Call.Site), offset(b.Call.Site)
		if oa != ob {
			return oa < ob
		}
		return a.CallNode < b.CallNode
	})
}

func offset(n *astparser.Node) int {
	if n == nil {
		return -1
	}
	loc, ok := astparser.ParseSrc(n.Src)
	if !ok {
		return -1
	}
	return loc.Offset
}
