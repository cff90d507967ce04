package astparser

// Children returns the direct children of n in evaluation order: call
// arguments before the call, the right-hand side of an assignment before
// its left-hand side.
func Children(n *Node) []*Node {
	if n == nil {
		return nil
	}
	var out []*Node
	add := func(c *Node) {
		if c != nil {
			out = append(out, c)
		}
	}

	switch n.NodeType {
	case "Assignment":
		add(n.RightHandSide)
		add(n.LeftHandSide)
		return out
	case "FunctionCall":
		for i := range n.Arguments {
			add(&n.Arguments[i])
		}
		add(n.Expression)
		return out
	case "FunctionCallOptions":
		for i := range n.Options {
			add(&n.Options[i])
		}
		add(n.Expression)
		return out
	}

	for i := range n.BaseContracts {
		add(&n.BaseContracts[i])
	}
	for i := range n.Nodes {
		add(&n.Nodes[i])
	}
	for i := range n.Modifiers {
		add(&n.Modifiers[i])
	}
	for _, d := range n.Declarations {
		add(d)
	}
	add(n.InitialValue)
	add(n.InitializationExpression)
	add(n.Condition)
	add(n.TrueBody)
	add(n.FalseBody)
	add(n.TrueExpression)
	add(n.FalseExpression)
	add(n.LeftExpression)
	add(n.RightExpression)
	add(n.BaseExpression)
	add(n.IndexExpression)
	add(n.SubExpression)
	for _, c := range n.Components {
		add(c)
	}
	add(n.EventCall)
	add(n.ErrorCall)
	add(n.ExternalCall)
	for i := range n.Arguments {
		add(&n.Arguments[i])
	}
	add(n.Expression)
	for i := range n.Statements {
		add(&n.Statements[i])
	}
	add(n.Body)
	add(n.LoopExpression)
	for i := range n.Clauses {
		add(&n.Clauses[i])
	}
	add(n.Block)
	return out
}

// Inspect walks the tree rooted at n in pre-order, like go/ast.Inspect.
func Inspect(n *Node, f func(*Node) bool) {
	if n == nil || !f(n) {
		return
	}
	for _, c := range Children(n) {
		Inspect(c, f)
	}
}

// PostOrder visits children before their parent, which matches the order
// in which the EVM evaluates an expression.
func PostOrder(n *Node, f func(*Node)) {
	if n == nil {
		return
	}
	for _, c := range Children(n) {
		PostOrder(c, f)
	}
	f(n)
}
