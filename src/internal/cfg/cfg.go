// Package cfg builds per-function control-flow graphs over solc statement
// nodes and tags each node with its externally observable effects.
package cfg

import (
	"github.com/VectorBits/Reentry/src/internal/astparser"
	"github.com/VectorBits/Reentry/src/internal/callgraph"
	"github.com/VectorBits/Reentry/src/internal/model"
)

type NodeKind string

const (
	NodeEntry       NodeKind = "entry"
	NodeExit        NodeKind = "exit"
	NodeStatement   NodeKind = "statement"
	NodeCondition   NodeKind = "condition"
	NodeLoop        NodeKind = "loop"
	NodeMerge       NodeKind = "merge"
	NodeBreak       NodeKind = "break"
	NodeContinue    NodeKind = "continue"
	NodeReturn      NodeKind = "return"
	NodeRevert      NodeKind = "revert"
	NodeTry         NodeKind = "try"
	NodeAssembly    NodeKind = "assembly"
	NodePlaceholder NodeKind = "placeholder"
)

type Label string

const (
	LabelSeq    Label = "seq"
	LabelTrue   Label = "true"
	LabelFalse  Label = "false"
	LabelBack   Label = "back"
	LabelRevert Label = "revert"
)

type EffectKind string

const (
	EffectExternalCall EffectKind = "external_call"
	EffectStateWrite   EffectKind = "state_write"
)

// ExternalCall is a call site that hands control to another frame.
type ExternalCall struct {
	TargetExpr string
	CalleeType string
	Site       *astparser.Node
	Edges      []*callgraph.Edge
}

type StateWrite struct {
	Variable string
	Path     string
	Site     *astparser.Node
}

// Effect is either an ExternalCall or a StateWrite.
type Effect struct {
	Kind  EffectKind
	Call  *ExternalCall
	Write *StateWrite
}

type Node struct {
	ID      int
	Kind    NodeKind
	Stmt    *astparser.Node
	Src     string
	Effects []Effect
}

type Edge struct {
	From  int
	To    int
	Label Label
}

// CFG of one function. Nodes are indexed by ID.
type CFG struct {
	Function *model.Function
	Nodes    []*Node
	Edges    []Edge
	Entry    int
	Exit     int

	succ map[int][]Edge
}

func (g *CFG) Successors(id int) []Edge { return g.succ[id] }

// Calls lists every ExternalCall effect with its node, in node order.
func (g *CFG) Calls() []CallRef {
	var out []CallRef
	for _, n := range g.Nodes {
		for i, e := range n.Effects {
			if e.Kind == EffectExternalCall {
				out = append(out, CallRef{Node: n, Index: i})
			}
		}
	}
	return out
}

// CallRef locates one effect inside a node.
type CallRef struct {
	Node  *Node
	Index int
}

func (r CallRef) Call() *ExternalCall { return r.Node.Effects[r.Index].Call }

// StateWrites counts the write effects of the whole graph.
func (g *CFG) StateWrites() int {
	n := 0
	for _, node := range g.Nodes {
		for _, e := range node.Effects {
			if e.Kind == EffectStateWrite {
				n++
			}
		}
	}
	return n
}
