package static_analyzer

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/VectorBits/Reentry/src/internal/callgraph"
	"github.com/VectorBits/Reentry/src/internal/cfg"
	"github.com/VectorBits/Reentry/src/internal/detector"
	"github.com/VectorBits/Reentry/src/internal/logger"
	"github.com/VectorBits/Reentry/src/internal/model"
	"github.com/VectorBits/Reentry/src/internal/severity"
)

// engineAnalyzer runs the in-process pipeline: call graph, then CFGs and
// detection per function, then aggregation.
type engineAnalyzer struct {
	detector detector.Options
	config   AnalysisConfig
}

func (a *engineAnalyzer) Analyze(ctx context.Context, p *model.Program) (*AnalysisResult, error) {
	if p == nil || len(p.Contracts) == 0 {
		return nil, model.ErrEmptyProgram
	}

	start := time.Now()
	graph := callgraph.Build(p)
	logger.Debug("callgraph: %d edges in %s", len(graph.Edges), time.Since(start))

	det, err := detector.New(graph, a.detector).Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("detect: %w", err)
	}

	res := &AnalysisResult{
		Fingerprint: p.Fingerprint.Hex(),
		GeneratedAt: time.Now().UTC(),
		Contracts:   contractSummaries(p),
		Functions:   functionSummaries(p, graph),
		CallGraph:   exportGraph(p, graph),
		Findings:    exportFindings(det.Findings),
	}
	res.Summary = Summarize(res)
	if a.config.IncludeCFG {
		res.CFG = exportCFGs(det.CFGs)
	}
	if a.config.CallTreeDepth > 0 {
		res.CallTree = graph.Tree(a.config.CallTreeDepth)
	}
	for _, d := range append(append(append([]error(nil), p.Diagnostics...), graph.Diagnostics...), det.Diagnostics...) {
		res.Diagnostics = append(res.Diagnostics, d.Error())
	}
	return res, nil
}

func (a *engineAnalyzer) Close() error { return nil }

func contractSummaries(p *model.Program) []ContractSummary {
	out := make([]ContractSummary, 0, len(p.Contracts))
	for _, c := range p.Contracts {
		s := ContractSummary{
			Name:                c.Name,
			Type:                string(c.Kind),
			FunctionsCount:      len(c.Functions),
			StateVariablesCount: len(c.StateVariables),
			IsAbstract:          c.IsAbstract(),
			BaseContracts:       append([]string{}, c.Bases...),
			FilePath:            c.FilePath,
		}
		for _, v := range c.StateVariables {
			s.StateVariables = append(s.StateVariables, StateVariable{
				Name:       v.Name,
				Type:       v.Type,
				Visibility: string(v.Visibility),
				IsConstant: v.Constant,
			})
		}
		out = append(out, s)
	}
	return out
}

func functionSummaries(p *model.Program, g *callgraph.Graph) []FunctionSummary {
	var out []FunctionSummary
	for _, f := range p.Functions() {
		s := FunctionSummary{
			Name:            f.Name,
			Contract:        f.Contract,
			Signature:       f.Signature,
			Selector:        f.Selector,
			Visibility:      string(f.Visibility),
			StateMutability: string(f.Mutability),
			ExternalCalls:   g.ExternalCalls(f),
			StateChanges:    g.StateChanges(f),
			IsOverride:      f.IsOverride,
		}
		if f.Overrides != nil {
			s.Overrides = f.Overrides.Key()
		}
		out = append(out, s)
	}
	return out
}

func exportGraph(p *model.Program, g *callgraph.Graph) CallGraph {
	out := CallGraph{Nodes: []GraphNode{}, Edges: []GraphEdge{}}
	for _, f := range p.Functions() {
		typ := "internal"
		if f.IsEntryPoint() {
			typ = "public"
		}
		out.Nodes = append(out.Nodes, GraphNode{
			ID:                 f.Key(),
			Label:              f.Key(),
			Type:               typ,
			Contract:           f.Contract,
			Function:           f.Name,
			Visibility:         string(f.Visibility),
			StateMutability:    string(f.Mutability),
			HasStateChanges:    g.WritesState(f),
			ExternalCallsCount: g.ExternalCalls(f),
		})
	}

	// unresolved targets become pseudo nodes, one per distinct id
	pseudo := make(map[string]bool)
	for _, e := range g.Edges {
		out.Edges = append(out.Edges, GraphEdge{
			Source:       e.SourceID(),
			Target:       e.TargetID(),
			Type:         string(e.Kind),
			IsResolved:   e.Resolved(),
			ViaInterface: e.ViaInterface,
			Confidence:   string(e.Confidence),
			Location:     e.Src,
		})
		if e.Target != nil || pseudo[e.TargetID()] {
			continue
		}
		pseudo[e.TargetID()] = true
		typ := "external"
		if e.Kind == callgraph.KindInherited {
			typ = "inherited"
		}
		out.Nodes = append(out.Nodes, GraphNode{
			ID:       e.TargetID(),
			Label:    e.TargetID(),
			Type:     typ,
			Contract: e.CalleeType,
			Function: e.Member,
		})
	}
	return out
}

func exportFindings(fs []*detector.Finding) []Finding {
	out := make([]Finding, 0, len(fs))
	for _, f := range fs {
		ef := Finding{
			Type:               f.Label,
			Function:           f.Function.Key(),
			Contract:           f.Function.Contract,
			Severity:           string(f.Severity),
			Classification:     f.Label,
			Details:            f.Details,
			ExternalCallTarget: f.Call.TargetExpr,
			StateChangesCount:  len(f.Writes),
			CallbackConfirmed:  f.Status == severity.CallbackConfirmed,
			CallbackPossible:   f.Status == severity.CallbackPossible,
			CallbackNone:       f.Status == severity.CallbackNone,
			CallbackPath:       callgraph.FormatPath(f.Path),
		}
		if f.Call.Site != nil {
			ef.Location = f.Call.Site.Src
		}
		for _, w := range f.Writes {
			ef.StateChanges = append(ef.StateChanges, w.Path)
		}
		out = append(out, ef)
	}
	return out
}

func exportCFGs(cfgs map[*model.Function]*cfg.CFG) map[string]FunctionCFG {
	out := make(map[string]FunctionCFG, len(cfgs))
	for f, g := range cfgs {
		fc := FunctionCFG{Nodes: []CFGNode{}, Edges: []CFGEdge{}}
		for _, n := range g.Nodes {
			node := CFGNode{ID: n.ID, Kind: string(n.Kind), Location: n.Src}
			for _, e := range n.Effects {
				eff := CFGEffect{Kind: string(e.Kind)}
				if e.Call != nil {
					eff.Target, eff.CalleeType = e.Call.TargetExpr, e.Call.CalleeType
				}
				if e.Write != nil {
					eff.Variable = e.Write.Path
				}
				node.Effects = append(node.Effects, eff)
			}
			fc.Nodes = append(fc.Nodes, node)
		}
		for _, e := range g.Edges {
			fc.Edges = append(fc.Edges, CFGEdge{From: e.From, To: e.To, Label: string(e.Label)})
		}
		out[f.Key()] = fc
	}
	return out
}

// Summarize aggregates the summary block from the other sections.
func Summarize(res *AnalysisResult) Summary {
	s := Summary{
		TotalContracts:     len(res.Contracts),
		TotalFunctions:     len(res.Functions),
		ReentrancyPatterns: len(res.Findings),
	}
	for _, fn := range res.Functions {
		s.ExternalCalls += fn.ExternalCalls
	}
	for _, e := range res.CallGraph.Edges {
		if e.Type == string(callgraph.KindCrossContract) {
			s.CrossContractCalls++
		}
	}
	for _, f := range res.Findings {
		switch severity.Level(f.Severity) {
		case severity.Critical:
			s.CriticalIssues++
		case severity.High:
			s.HighIssues++
		case severity.Medium:
			s.MediumIssues++
		case severity.Low:
			s.LowIssues++
		}
	}
	return s
}

// SortedCFGKeys is a helper for deterministic rendering.
func SortedCFGKeys(m map[string]FunctionCFG) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
