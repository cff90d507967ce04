package callgraph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/VectorBits/Reentry/src/internal/astparser"
	"github.com/VectorBits/Reentry/src/internal/model"
)

// Kind 调用边类型
type Kind string

const (
	KindInternal      Kind = "internal"
	KindExternal      Kind = "external"
	KindCrossContract Kind = "cross_contract"
	KindInherited     Kind = "inherited"
	KindIndirect      Kind = "indirect"
)

// Confidence is how sure the resolver is about the edge target.
type Confidence string

const (
	Confirmed          Confidence = "confirmed"
	InterfaceAmbiguous Confidence = "interface-ambiguous"
	Unknown            Confidence = "unknown"
)

// Edge is one resolved call. A call site yields one edge, or one edge per
// implementer when it dispatches through an interface.
type Edge struct {
	Source *model.Function
	// Target is nil when the callee could not be resolved.
	Target *model.Function
	// CalleeType is the static receiver type (or selector) of an
	// unresolved callee, e.g. "address" or "IERC20".
	CalleeType string
	Member     string
	Kind       Kind
	Confidence Confidence
	// ViaInterface names the interface or abstract contract the call
	// was dispatched through.
	ViaInterface string
	// ReceiverIsState is set when the receiver expression is rooted in a
	// state variable of the calling contract.
	ReceiverIsState bool
	// Receiver is the concrete contract a cross_contract callee executes
	// in. It differs from Target.Contract when the callee is inherited.
	Receiver string

	Site *astparser.Node
	Src  string
	Seq  int
}

func (e *Edge) Resolved() bool { return e.Target != nil }

// IsExternal reports whether the call hands control to code outside the
// calling frame.
func (e *Edge) IsExternal() bool {
	return e.Kind == KindExternal || e.Kind == KindCrossContract || e.Kind == KindIndirect
}

func (e *Edge) SourceID() string { return e.Source.Key() }

// TargetID is the target function key, or a pseudo node id for
// unresolved targets.
func (e *Edge) TargetID() string {
	if e.Target != nil {
		return e.Target.Key()
	}
	name := e.CalleeType
	if e.Member != "" {
		if name != "" {
			name += "."
		}
		name += e.Member
	}
	if e.Kind == KindInherited {
		return "INHERITED:" + name
	}
	return "EXTERNAL:" + name
}

func (e *Edge) String() string {
	return e.SourceID() + " -> " + e.TargetID()
}

// Graph 完整的双向调用图
type Graph struct {
	Program     *model.Program
	Edges       []*Edge
	Diagnostics []error

	// 函数 -> 它调用的边 (向下追踪)
	out map[*model.Function][]*Edge
	// 函数 -> 调用它的边 (向上追踪)
	in     map[*model.Function][]*Edge
	sites  map[*astparser.Node][]*Edge
	writes map[*model.Function]int
	calls  map[*model.Function]int
}

func newGraph(p *model.Program) *Graph {
	return &Graph{
		Program: p,
		out:     make(map[*model.Function][]*Edge),
		in:      make(map[*model.Function][]*Edge),
		sites:   make(map[*astparser.Node][]*Edge),
		writes:  make(map[*model.Function]int),
		calls:   make(map[*model.Function]int),
	}
}

func (g *Graph) add(e *Edge) {
	e.Seq = len(g.Edges)
	g.Edges = append(g.Edges, e)
	g.out[e.Source] = append(g.out[e.Source], e)
	if e.Target != nil {
		g.in[e.Target] = append(g.in[e.Target], e)
	}
	if e.Site != nil {
		first := len(g.sites[e.Site]) == 0
		g.sites[e.Site] = append(g.sites[e.Site], e)
		if first && e.IsExternal() {
			g.calls[e.Source]++
		}
	}
}

// Callees returns the outgoing edges of f in discovery order.
func (g *Graph) Callees(f *model.Function) []*Edge { return g.out[f] }

// Callers returns the edges that resolve to f.
func (g *Graph) Callers(f *model.Function) []*Edge { return g.in[f] }

// Site returns every edge produced by one call expression.
func (g *Graph) Site(call *astparser.Node) []*Edge { return g.sites[call] }

// WritesState reports whether the body of f writes storage directly.
func (g *Graph) WritesState(f *model.Function) bool { return g.writes[f] > 0 }

// StateChanges counts the write expressions in the body of f.
func (g *Graph) StateChanges(f *model.Function) int { return g.writes[f] }

// ExternalCalls counts the call sites of f that leave the calling frame.
func (g *Graph) ExternalCalls(f *model.Function) int { return g.calls[f] }

// CallersRecursive 递归获取所有调用者（包括间接调用者）
func (g *Graph) CallersRecursive(f *model.Function, maxDepth int) []*model.Function {
	result := make([]*model.Function, 0)
	visited := map[*model.Function]bool{f: true}
	g.walk(f, g.in, func(e *Edge) *model.Function { return e.Source }, &result, visited, 0, maxDepth)
	return result
}

// CalleesRecursive 递归获取所有被调用者（包括间接被调用者）
func (g *Graph) CalleesRecursive(f *model.Function, maxDepth int) []*model.Function {
	result := make([]*model.Function, 0)
	visited := map[*model.Function]bool{f: true}
	g.walk(f, g.out, func(e *Edge) *model.Function { return e.Target }, &result, visited, 0, maxDepth)
	return result
}

func (g *Graph) walk(f *model.Function, adj map[*model.Function][]*Edge, next func(*Edge) *model.Function,
	result *[]*model.Function, visited map[*model.Function]bool, depth, maxDepth int) {
	if depth >= maxDepth {
		return
	}
	for _, e := range adj[f] {
		n := next(e)
		if n == nil || visited[n] {
			continue
		}
		visited[n] = true
		*result = append(*result, n)
		g.walk(n, adj, next, result, visited, depth+1, maxDepth)
	}
}

// EntryPoints 获取所有公开入口函数, sorted by key
func (g *Graph) EntryPoints() []*model.Function {
	var result []*model.Function
	for _, f := range g.Program.Functions() {
		if f.IsEntryPoint() {
			result = append(result, f)
		}
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].Key() < result[j].Key() })
	return result
}

// FindFunction 通过 "Contract.name" 或函数名查找函数
func (g *Graph) FindFunction(contractName, functionName string) *model.Function {
	for _, f := range g.Program.Functions() {
		if f.Contract == contractName && (f.Name == functionName || f.Signature == functionName) {
			return f
		}
	}
	// 如果没有指定合约名，只匹配函数名
	if contractName == "" {
		for _, f := range g.Program.Functions() {
			if f.Name == functionName {
				return f
			}
		}
	}
	return nil
}

// CallChainsToEntry lists the caller chains from f up to public entry
// points, f first.
func (g *Graph) CallChainsToEntry(f *model.Function) [][]*model.Function {
	var chains [][]*model.Function
	g.findPathsToEntry(f, &chains, nil, make(map[*model.Function]bool))
	return chains
}

func (g *Graph) findPathsToEntry(f *model.Function, chains *[][]*model.Function, current []*model.Function, visited map[*model.Function]bool) {
	if visited[f] {
		return
	}
	visited[f] = true
	defer delete(visited, f)

	chain := append(current[:len(current):len(current)], f)
	if f.IsEntryPoint() {
		*chains = append(*chains, chain)
	}
	for _, e := range g.in[f] {
		g.findPathsToEntry(e.Source, chains, chain, visited)
	}
}

// Tree 生成调用关系的树状文本表示
func (g *Graph) Tree(maxDepth int) string {
	var sb strings.Builder
	sb.WriteString("Global Call Graph Tree:\n")

	for _, entry := range g.EntryPoints() {
		sb.WriteString(fmt.Sprintf("- Entry: %s\n", entry.Key()))
		g.writeSubtree(&sb, entry, maxDepth)
		sb.WriteString("\n")
	}
	return sb.String()
}

// Subtree renders the callees of one function, then its callers.
func (g *Graph) Subtree(f *model.Function, maxDepth int) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Function: %s\n", f.Key()))
	sb.WriteString("Callees:\n")
	g.writeSubtree(&sb, f, maxDepth)
	sb.WriteString("Callers:\n")
	for _, c := range g.CallersRecursive(f, maxDepth) {
		sb.WriteString(fmt.Sprintf("  <- %s\n", c.Key()))
	}
	return sb.String()
}

func (g *Graph) writeSubtree(sb *strings.Builder, f *model.Function, maxDepth int) {
	pathVisited := map[*model.Function]bool{f: true}
	g.printCallTreeRecursive(sb, f, 1, pathVisited, maxDepth)
}

func (g *Graph) printCallTreeRecursive(sb *strings.Builder, f *model.Function, depth int, pathVisited map[*model.Function]bool, maxDepth int) {
	if depth > maxDepth {
		sb.WriteString(strings.Repeat("  ", depth) + "-> ... (max depth)\n")
		return
	}

	for _, e := range g.out[f] {
		prefix := strings.Repeat("  ", depth)
		tag := string(e.Kind)
		if e.Confidence != Confirmed {
			tag += ", " + string(e.Confidence)
		}

		if e.Target == nil {
			sb.WriteString(fmt.Sprintf("%s-> %s [%s]\n", prefix, e.TargetID(), tag))
			continue
		}
		if pathVisited[e.Target] {
			sb.WriteString(fmt.Sprintf("%s-> %s [%s] (Recursive Cycle)\n", prefix, e.TargetID(), tag))
			continue
		}

		sb.WriteString(fmt.Sprintf("%s-> %s [%s]\n", prefix, e.TargetID(), tag))

		pathVisited[e.Target] = true
		g.printCallTreeRecursive(sb, e.Target, depth+1, pathVisited, maxDepth)
		delete(pathVisited, e.Target)
	}
}
