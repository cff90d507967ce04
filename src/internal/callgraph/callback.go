package callgraph

import (
	"strings"

	"github.com/VectorBits/Reentry/src/internal/model"
)

// DefaultMaxCallbackDepth bounds callback path length in edges.
const DefaultMaxCallbackDepth = 8

// runsIn is the contract whose storage the target of e touches when the
// caller executes in cur. Only cross_contract edges switch contracts.
func (e *Edge) runsIn(cur string) string {
	if e.Kind == KindCrossContract && e.Receiver != "" {
		return e.Receiver
	}
	return cur
}

// CallbackPath searches, breadth first, for the shortest chain of edges
// that starts with one of the given site edges and ends in a function that
// writes storage of a contract related to origin. A function counts in the
// contract it executes in, not the one that declares it: an ERC20.transfer
// reached through a Token receiver writes Token storage. The originating
// function itself counts. Returns nil when no such chain exists within
// maxDepth.
func (g *Graph) CallbackPath(origin *model.Function, site []*Edge, maxDepth int) []*Edge {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxCallbackDepth
	}

	type frame struct {
		fn *model.Function
		in string
	}
	type step struct {
		frame
		path []*Edge
	}
	visited := make(map[frame]bool)
	var queue []step
	push := func(e *Edge, in string, prev []*Edge) {
		if e.Target == nil {
			return
		}
		fr := frame{e.Target, e.runsIn(in)}
		if visited[fr] {
			return
		}
		visited[fr] = true
		path := make([]*Edge, len(prev), len(prev)+1)
		copy(path, prev)
		queue = append(queue, step{frame: fr, path: append(path, e)})
	}
	for _, e := range site {
		push(e, origin.Contract, nil)
	}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		if g.WritesState(cur.fn) && g.Program.Related(cur.in, origin.Contract) {
			return cur.path
		}
		if len(cur.path) >= maxDepth {
			continue
		}
		for _, e := range g.out[cur.fn] {
			push(e, cur.in, cur.path)
		}
	}
	return nil
}

// FormatPath renders a callback path as "A.f -> B.g -> A.h", naming each
// function after the contract it executes in.
func FormatPath(path []*Edge) []string {
	out := make([]string, 0, len(path))
	if len(path) == 0 {
		return out
	}
	in := path[0].Source.Contract
	for _, e := range path {
		from := keyIn(e.Source, in)
		in = e.runsIn(in)
		to := e.TargetID()
		if e.Target != nil {
			to = keyIn(e.Target, in)
		}
		out = append(out, from+" -> "+to)
	}
	return out
}

func keyIn(f *model.Function, contract string) string {
	if contract == "" || contract == f.Contract {
		return f.Key()
	}
	return contract + strings.TrimPrefix(f.Key(), f.Contract)
}
