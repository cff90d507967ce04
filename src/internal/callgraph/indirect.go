package callgraph

import (
	"strings"

	"github.com/VectorBits/Reentry/src/internal/astparser"
	"github.com/VectorBits/Reentry/src/internal/model"
)

// indirect resolves an abi.encodeWithSelector / encodeWithSignature /
// encodeCall expression against the externally callable functions of the
// enclosing contract. Anything but a unique match stays unresolved.
func (b *builder) indirect(c *model.Contract, f *model.Function, n *astparser.Node, encoder string) {
	if len(n.Arguments) == 0 {
		b.unresolved(f, n, KindIndirect, "calldata", "")
		return
	}
	sel, name := b.encodedTarget(&n.Arguments[0], encoder, 0)

	var cands []*model.Function
	for _, fn := range c.Effective() {
		if fn.Visibility != model.VisPublic && fn.Visibility != model.VisExternal {
			continue
		}
		if (sel != "" && fn.Selector == sel) || (sel == "" && name != "" && fn.Name == name) {
			cands = append(cands, fn)
		}
	}

	if len(cands) == 1 {
		e := b.edge(f, n, KindIndirect, Confirmed)
		e.Target, e.Member = cands[0], cands[0].Name
		b.g.add(e)
		return
	}

	ref := sel
	if ref == "" {
		ref = name
	}
	if len(cands) > 1 {
		b.diag(f, "ambiguous encoded selector", ref)
	}
	b.unresolved(f, n, KindIndirect, "calldata", ref)
}

// encodedTarget returns the selector, or failing that the bare function
// name, that the first encoder argument designates.
func (b *builder) encodedTarget(arg *astparser.Node, encoder string, depth int) (string, string) {
	if arg == nil || depth > 4 {
		return "", ""
	}
	if encoder == "encodeWithSignature" {
		if arg.NodeType == "Literal" {
			sig := strings.ReplaceAll(arg.LiteralValue(), " ", "")
			return model.Selector(sig), ""
		}
		return "", ""
	}

	switch arg.NodeType {
	case "MemberAccess":
		if arg.MemberName == "selector" {
			return b.functionRef(arg.Expression)
		}
		if encoder == "encodeCall" {
			return b.functionRef(arg)
		}
	case "Identifier":
		if encoder == "encodeCall" {
			return b.functionRef(arg)
		}
		if arg.ReferencedDeclaration > 0 {
			if decl := b.p.Declaration(b.cur, arg.ReferencedDeclaration); decl != nil {
				return b.encodedTarget(decl.Initializer(), encoder, depth+1)
			}
		}
	case "Literal":
		v := arg.LiteralValue()
		if v == "" && arg.HexValue != "" {
			v = arg.HexValue
		}
		if v != "" {
			return model.NormalizeSelector(v), ""
		}
	case "FunctionCall":
		callee := arg.Expression
		if callee == nil || len(arg.Arguments) == 0 {
			return "", ""
		}
		// bytes4(keccak256("f(uint256)"))
		if callee.NodeType == "Identifier" && callee.Name == "keccak256" {
			if lit := &arg.Arguments[0]; lit.NodeType == "Literal" {
				return model.Selector(strings.ReplaceAll(lit.LiteralValue(), " ", "")), ""
			}
			return "", ""
		}
		if arg.Kind == "typeConversion" || callee.NodeType == "ElementaryTypeNameExpression" {
			return b.encodedTarget(&arg.Arguments[0], encoder, depth+1)
		}
	}
	return "", ""
}

// functionRef reads "this.f", "IFoo.f" or "f" as a function reference.
func (b *builder) functionRef(n *astparser.Node) (string, string) {
	if n == nil {
		return "", ""
	}
	if n.ReferencedDeclaration > 0 {
		if fn := b.p.FunctionByID(b.cur, n.ReferencedDeclaration); fn != nil {
			return fn.Selector, ""
		}
	}
	switch n.NodeType {
	case "MemberAccess":
		return "", n.MemberName
	case "Identifier":
		return "", n.Name
	}
	return "", ""
}
