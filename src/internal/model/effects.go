package model

import (
	"strings"

	"github.com/VectorBits/Reentry/src/internal/astparser"
)

// WriteTarget is one storage location written by an expression.
type WriteTarget struct {
	// Variable is the root state variable (or storage alias) name.
	Variable string
	// Path spells the accessed location, e.g. "balances[].amount".
	Path string
	// Decl is nil when the root is a storage reference rather than a
	// declared state variable.
	Decl *StateVariable
}

// StateWrites returns the storage locations written by n itself, not by its
// subexpressions, when n executes inside contract c.
func (p *Program) StateWrites(c *Contract, n *astparser.Node) []WriteTarget {
	if n == nil || c == nil {
		return nil
	}
	switch n.NodeType {
	case "Assignment":
		return p.targets(c, n.LeftHandSide)
	case "UnaryOperation":
		switch n.Operator {
		case "++", "--", "delete":
			return p.targets(c, n.SubExpression)
		}
	case "FunctionCall":
		callee := n.Expression
		if callee != nil && callee.NodeType == "MemberAccess" &&
			(callee.MemberName == "push" || callee.MemberName == "pop") {
			return p.targets(c, callee.Expression)
		}
	}
	return nil
}

func (p *Program) targets(c *Contract, lhs *astparser.Node) []WriteTarget {
	if lhs == nil {
		return nil
	}
	if lhs.NodeType == "TupleExpression" {
		var out []WriteTarget
		for _, comp := range lhs.Components {
			out = append(out, p.targets(c, comp)...)
		}
		return out
	}
	root, path := rootOf(lhs)
	if root == nil {
		return nil
	}
	if v := p.resolveState(c, root); v != nil {
		return []WriteTarget{{Variable: v.Name, Path: path, Decl: v}}
	}
	if isStorageRef(root.Type()) {
		return []WriteTarget{{Variable: root.Name, Path: path}}
	}
	return nil
}

func (p *Program) resolveState(c *Contract, id *astparser.Node) *StateVariable {
	if id.ReferencedDeclaration > 0 {
		v, ok, ambiguous := resolveID(p, p.stateID, c.origins, id.ReferencedDeclaration)
		switch {
		case ok:
			return v
		case ambiguous:
			return c.StateVariable(id.Name)
		}
		return nil
	}
	return c.StateVariable(id.Name)
}

// IsStateVariableRef reports whether the expression is rooted in a state
// variable of c.
func (p *Program) IsStateVariableRef(c *Contract, n *astparser.Node) (*StateVariable, bool) {
	root, _ := rootOf(n)
	if root == nil {
		return nil, false
	}
	v := p.resolveState(c, root)
	return v, v != nil
}

func rootOf(n *astparser.Node) (*astparser.Node, string) {
	var path []string
	for n != nil {
		switch n.NodeType {
		case "Identifier":
			path = append(path, n.Name)
			for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
				path[i], path[j] = path[j], path[i]
			}
			return n, strings.Join(path, "")
		case "MemberAccess":
			path = append(path, "."+n.MemberName)
			n = n.Expression
		case "IndexAccess", "IndexRangeAccess":
			path = append(path, "[]")
			n = n.BaseExpression
		default:
			return nil, ""
		}
	}
	return nil, ""
}

func isStorageRef(typeString string) bool {
	return strings.Contains(typeString, " storage ref") || strings.Contains(typeString, " storage pointer")
}
