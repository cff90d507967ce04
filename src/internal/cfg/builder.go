package cfg

import (
	"strings"

	"github.com/VectorBits/Reentry/src/internal/astparser"
	"github.com/VectorBits/Reentry/src/internal/callgraph"
	"github.com/VectorBits/Reentry/src/internal/model"
)

type pending struct {
	from  int
	label Label
}

type loopCtx struct {
	breaks    []pending
	continues []pending
}

type builder struct {
	graph *callgraph.Graph
	c     *model.Contract
	cfg   *CFG
	loops []*loopCtx
	errs  []error
}

// Build constructs the CFG of f. Functions without a body get an
// entry -> exit graph. The returned error is a MalformedModelError for
// structurally invalid bodies; the graph is still usable.
func Build(g *callgraph.Graph, f *model.Function) (*CFG, error) {
	b := &builder{
		graph: g,
		c:     g.Program.Contract(f.Contract),
		cfg:   &CFG{Function: f, succ: make(map[int][]Edge)},
	}
	if b.c == nil {
		return nil, &model.MalformedModelError{Entity: f.Key(), Reference: f.Contract, Reason: "owning contract not found"}
	}

	entry := b.node(NodeEntry, nil)
	b.cfg.Entry = entry.ID
	exit := &Node{Kind: NodeExit}

	out := b.stmt(f.Body, []pending{{from: entry.ID, label: LabelSeq}})

	exit.ID = len(b.cfg.Nodes)
	b.cfg.Nodes = append(b.cfg.Nodes, exit)
	b.cfg.Exit = exit.ID
	b.connect(out, exit.ID, "")
	for _, n := range b.cfg.Nodes {
		if n.Kind == NodeReturn || n.Kind == NodeRevert {
			label := LabelSeq
			if n.Kind == NodeRevert {
				label = LabelRevert
			}
			b.edge(n.ID, exit.ID, label)
		}
	}

	if len(b.errs) > 0 {
		return b.cfg, b.errs[0]
	}
	return b.cfg, nil
}

func (b *builder) node(kind NodeKind, stmt *astparser.Node) *Node {
	n := &Node{ID: len(b.cfg.Nodes), Kind: kind, Stmt: stmt}
	if stmt != nil {
		n.Src = stmt.Src
	}
	b.cfg.Nodes = append(b.cfg.Nodes, n)
	return n
}

func (b *builder) edge(from, to int, label Label) {
	e := Edge{From: from, To: to, Label: label}
	b.cfg.Edges = append(b.cfg.Edges, e)
	b.cfg.succ[from] = append(b.cfg.succ[from], e)
}

// connect links every pending exit to `to`. A non-empty override replaces
// sequential labels, which is how loop back-edges are marked.
func (b *builder) connect(in []pending, to int, override Label) {
	for _, p := range in {
		label := p.label
		if override != "" && label == LabelSeq {
			label = override
		}
		b.edge(p.from, to, label)
	}
}

func seq(id int) []pending { return []pending{{from: id, label: LabelSeq}} }

// simple creates a straight-line node whose effects come from expr.
func (b *builder) simple(kind NodeKind, stmt, expr *astparser.Node, in []pending) *Node {
	n := b.node(kind, stmt)
	n.Effects = b.effects(expr)
	b.connect(in, n.ID, "")
	return n
}

// stmt lowers one statement and returns its dangling exits. A nil result
// means control never falls through.
func (b *builder) stmt(s *astparser.Node, in []pending) []pending {
	if s == nil {
		return in
	}

	switch s.NodeType {
	case "Block", "UncheckedBlock":
		for i := range s.Statements {
			in = b.stmt(&s.Statements[i], in)
		}
		return in

	case "IfStatement":
		cond := b.simple(NodeCondition, s, s.Condition, in)
		out := b.stmt(s.TrueBody, []pending{{from: cond.ID, label: LabelTrue}})
		if s.FalseBody != nil {
			out = append(out, b.stmt(s.FalseBody, []pending{{from: cond.ID, label: LabelFalse}})...)
		} else {
			out = append(out, pending{from: cond.ID, label: LabelFalse})
		}
		return b.merge(out)

	case "WhileStatement":
		header := b.simple(NodeLoop, s, s.Condition, in)
		ctx := b.pushLoop()
		body := b.stmt(s.Body, []pending{{from: header.ID, label: LabelTrue}})
		b.popLoop()
		b.connect(append(body, ctx.continues...), header.ID, LabelBack)
		return append([]pending{{from: header.ID, label: LabelFalse}}, ctx.breaks...)

	case "DoWhileStatement":
		head := b.simple(NodeLoop, s, nil, in)
		ctx := b.pushLoop()
		body := b.stmt(s.Body, seq(head.ID))
		b.popLoop()
		cond := b.simple(NodeCondition, s, s.Condition, append(body, ctx.continues...))
		b.edge(cond.ID, head.ID, LabelBack)
		return append([]pending{{from: cond.ID, label: LabelFalse}}, ctx.breaks...)

	case "ForStatement":
		in = b.stmt(s.InitializationExpression, in)
		header := b.simple(NodeLoop, s, s.Condition, in)
		ctx := b.pushLoop()
		body := b.stmt(s.Body, []pending{{from: header.ID, label: LabelTrue}})
		b.popLoop()
		tail := append(body, ctx.continues...)
		if s.LoopExpression != nil {
			tail = b.stmt(s.LoopExpression, tail)
		}
		b.connect(tail, header.ID, LabelBack)
		exits := ctx.breaks
		if s.Condition != nil {
			exits = append([]pending{{from: header.ID, label: LabelFalse}}, exits...)
		}
		return exits

	case "Break", "Continue":
		kind := NodeBreak
		if s.NodeType == "Continue" {
			kind = NodeContinue
		}
		n := b.simple(kind, s, nil, in)
		if len(b.loops) == 0 {
			b.errs = append(b.errs, &model.MalformedModelError{
				Entity: b.cfg.Function.Key(), Reference: s.Src, Reason: strings.ToLower(s.NodeType) + " outside loop",
			})
			return nil
		}
		ctx := b.loops[len(b.loops)-1]
		if kind == NodeBreak {
			ctx.breaks = append(ctx.breaks, seq(n.ID)...)
		} else {
			ctx.continues = append(ctx.continues, seq(n.ID)...)
		}
		return nil

	case "Return":
		b.simple(NodeReturn, s, s.Expression, in)
		return nil

	case "RevertStatement":
		b.simple(NodeRevert, s, s.ErrorCall, in)
		return nil

	case "TryStatement":
		try := b.simple(NodeTry, s, s.ExternalCall, in)
		var out []pending
		for i := range s.Clauses {
			label := LabelFalse
			if i == 0 {
				label = LabelTrue
			}
			out = append(out, b.stmt(s.Clauses[i].Block, []pending{{from: try.ID, label: label}})...)
		}
		if len(s.Clauses) == 0 {
			out = seq(try.ID)
		}
		return b.merge(out)

	case "InlineAssembly":
		return seq(b.simple(NodeAssembly, s, nil, in).ID)

	case "PlaceholderStatement":
		return seq(b.simple(NodePlaceholder, s, nil, in).ID)

	case "ExpressionStatement":
		if isRevertCall(s.Expression) {
			b.simple(NodeRevert, s, s, in)
			return nil
		}
	}

	return seq(b.simple(NodeStatement, s, s, in).ID)
}

func (b *builder) merge(in []pending) []pending {
	if len(in) == 0 {
		return nil
	}
	m := b.node(NodeMerge, nil)
	b.connect(in, m.ID, "")
	return seq(m.ID)
}

func (b *builder) pushLoop() *loopCtx {
	ctx := &loopCtx{}
	b.loops = append(b.loops, ctx)
	return ctx
}

func (b *builder) popLoop() { b.loops = b.loops[:len(b.loops)-1] }

func isRevertCall(e *astparser.Node) bool {
	return e != nil && e.NodeType == "FunctionCall" && e.Expression != nil &&
		e.Expression.NodeType == "Identifier" && e.Expression.Name == "revert"
}

// effects lists the effects of expr in evaluation order. An abi.encode*
// site is recorded as the external call itself: the effect sits where the
// payload is built, not where a later .call(data) dispatches it.
func (b *builder) effects(expr *astparser.Node) []Effect {
	if expr == nil {
		return nil
	}
	var out []Effect
	astparser.PostOrder(expr, func(n *astparser.Node) {
		if n.NodeType == "FunctionCall" {
			if edges := b.graph.Site(n); len(edges) > 0 && edges[0].IsExternal() {
				out = append(out, Effect{Kind: EffectExternalCall, Call: &ExternalCall{
					TargetExpr: ExprString(n.Expression),
					CalleeType: calleeType(edges),
					Site:       n,
					Edges:      edges,
				}})
			}
		}
		for _, w := range b.graph.Program.StateWrites(b.c, n) {
			out = append(out, Effect{Kind: EffectStateWrite, Write: &StateWrite{Variable: w.Variable, Path: w.Path, Site: n}})
		}
	})
	return out
}

func calleeType(edges []*callgraph.Edge) string {
	e := edges[0]
	switch {
	case e.ViaInterface != "":
		return e.ViaInterface
	case e.Target != nil:
		return e.Target.Contract
	}
	return e.CalleeType
}

// ExprString renders a callee expression compactly, e.g. "token.transfer"
// or "payable(msg.sender).call{...}".
func ExprString(n *astparser.Node) string {
	if n == nil {
		return ""
	}
	switch n.NodeType {
	case "Identifier":
		return n.Name
	case "MemberAccess":
		return ExprString(n.Expression) + "." + n.MemberName
	case "IndexAccess":
		return ExprString(n.BaseExpression) + "[" + ExprString(n.IndexExpression) + "]"
	case "FunctionCall":
		return ExprString(n.Expression) + "(...)"
	case "FunctionCallOptions":
		return ExprString(n.Expression) + "{...}"
	case "ElementaryTypeNameExpression":
		if n.TypeName != nil && n.TypeName.Name != "" {
			return n.TypeName.Name
		}
		return strings.TrimPrefix(strings.TrimSuffix(n.Type(), ")"), "type(")
	case "Literal":
		return n.LiteralValue()
	case "TupleExpression":
		return "(...)"
	}
	return n.NodeType
}
