package callgraph

import (
	"strings"

	"github.com/VectorBits/Reentry/src/internal/astparser"
	"github.com/VectorBits/Reentry/src/internal/model"
)

var builtinFunctions = map[string]bool{
	"require": true, "assert": true, "revert": true,
	"keccak256": true, "sha256": true, "ripemd160": true, "ecrecover": true,
	"addmod": true, "mulmod": true, "gasleft": true, "blockhash": true, "blobhash": true,
	"selfdestruct": true, "suicide": true, "type": true,
}

var builtinReceivers = map[string]bool{
	"msg": true, "block": true, "tx": true, "string": true, "bytes": true,
}

var lowLevelMembers = map[string]bool{
	"call": true, "delegatecall": true, "staticcall": true, "send": true, "transfer": true,
}

var encoders = map[string]bool{
	"encodeWithSelector": true, "encodeWithSignature": true, "encodeCall": true,
}

type builder struct {
	p *model.Program
	g *Graph
	// cur declares the body being walked; node ids resolve in its scope.
	cur *model.Contract
}

// Build resolves every call expression of every modelled function body.
// Call sites are visited contract by contract in source order, so edge
// enumeration is deterministic for a given program.
func Build(p *model.Program) *Graph {
	b := &builder{p: p, g: newGraph(p)}
	for _, c := range p.Contracts {
		for _, f := range c.Functions {
			b.function(c, f)
		}
	}
	return b.g
}

func (b *builder) function(c *model.Contract, f *model.Function) {
	if f.Body == nil {
		return
	}
	b.cur = c
	skip := make(map[*astparser.Node]bool)
	astparser.Inspect(f.Body, func(n *astparser.Node) bool {
		switch n.NodeType {
		case "InlineAssembly":
			return false
		case "EmitStatement":
			skip[n.EventCall] = true
		case "RevertStatement":
			skip[n.ErrorCall] = true
		case "FunctionCall":
			if !skip[n] {
				b.call(c, f, n)
			}
		}
		b.g.writes[f] += len(b.p.StateWrites(c, n))
		return true
	})
}

func (b *builder) edge(f *model.Function, site *astparser.Node, kind Kind, conf Confidence) *Edge {
	return &Edge{Source: f, Site: site, Src: site.Src, Kind: kind, Confidence: conf}
}

func (b *builder) unresolved(f *model.Function, site *astparser.Node, kind Kind, calleeType, member string) *Edge {
	e := b.edge(f, site, kind, Unknown)
	e.CalleeType, e.Member = calleeType, member
	b.g.add(e)
	return e
}

func (b *builder) diag(f *model.Function, reason, ref string) {
	b.g.Diagnostics = append(b.g.Diagnostics, &model.MalformedModelError{Entity: f.Key(), Reference: ref, Reason: reason})
}

func (b *builder) call(c *model.Contract, f *model.Function, n *astparser.Node) {
	if n.Kind == "typeConversion" || n.Kind == "structConstructorCall" {
		return
	}
	callee := n.Expression
	if callee != nil && callee.NodeType == "FunctionCallOptions" {
		callee = callee.Expression
	}
	if callee == nil {
		return
	}

	switch callee.NodeType {
	case "NewExpression", "ElementaryTypeNameExpression":
		return
	case "Identifier":
		b.identifierCall(c, f, n, callee)
	case "MemberAccess":
		b.memberCall(c, f, n, callee)
	default:
		b.pointerCall(f, n, callee)
	}
}

func (b *builder) identifierCall(c *model.Contract, f *model.Function, n, id *astparser.Node) {
	if id.ReferencedDeclaration < 0 || builtinFunctions[id.Name] {
		return
	}
	if ref := id.ReferencedDeclaration; ref > 0 {
		if target := b.p.FunctionByID(b.cur, ref); target != nil {
			b.internal(c, f, n, target)
			return
		}
		if decl := b.p.Declaration(b.cur, ref); decl != nil {
			switch decl.NodeType {
			case "EventDefinition", "ErrorDefinition", "StructDefinition", "EnumDefinition",
				"ContractDefinition", "UserDefinedValueTypeDefinition", "ModifierDefinition":
				return
			case "VariableDeclaration":
				b.pointerCall(f, n, id)
				return
			}
		}
	}
	if b.p.Contract(id.Name) != nil {
		return
	}
	if strings.HasPrefix(id.Type(), "function") && c.StateVariable(id.Name) != nil {
		b.pointerCall(f, n, id)
		return
	}

	switch target, ambiguous := pick(c.EffectiveByName(id.Name), "", n); {
	case target != nil:
		b.internal(c, f, n, target)
	case ambiguous:
		b.unresolved(f, n, KindInternal, c.Name, id.Name)
	default:
		b.diag(f, "call target not found", id.Name)
		b.unresolved(f, n, KindInternal, c.Name, id.Name)
	}
}

// internal binds a same-contract call, dispatching virtual functions to
// the most derived definition visible in c.
func (b *builder) internal(c *model.Contract, f *model.Function, n *astparser.Node, target *model.Function) {
	if eff := c.EffectiveBySignature(target.Signature); eff != nil && c.Inherits(target.Contract) {
		target = eff
	}
	e := b.edge(f, n, KindInternal, Confirmed)
	e.Target, e.Member = target, target.Name
	b.g.add(e)
}

func (b *builder) memberCall(c *model.Contract, f *model.Function, n, m *astparser.Node) {
	recv := m.Expression
	if recv == nil {
		return
	}
	member := m.MemberName

	if recv.NodeType == "Identifier" {
		switch recv.Name {
		case "super":
			b.superCall(c, f, n, m)
			return
		case "this", "self":
			b.selfCall(c, f, n, m)
			return
		case "abi":
			if encoders[member] {
				b.indirect(c, f, n, member)
			}
			return
		}
		if builtinReceivers[recv.Name] {
			return
		}
	}

	// using-for and qualified library calls carry the library function id
	if m.ReferencedDeclaration > 0 {
		if target := b.p.FunctionByID(b.cur, m.ReferencedDeclaration); target != nil {
			if lib := b.p.Contract(target.Contract); lib != nil && lib.Kind == model.KindLibrary {
				e := b.edge(f, n, KindInternal, Confirmed)
				e.Target, e.Member = target, member
				b.g.add(e)
				return
			}
		}
	}

	rt := recv.Type()
	if rt == "" && recv.NodeType == "Identifier" {
		if b.p.Contract(recv.Name) != nil {
			rt = "type(contract " + recv.Name + ")"
		} else if v := c.StateVariable(recv.Name); v != nil {
			rt = v.Type
		}
	}

	if isAddressType(rt) {
		if lowLevelMembers[member] {
			e := b.unresolved(f, n, KindExternal, "address", member)
			_, e.ReceiverIsState = b.p.IsStateVariableRef(c, recv)
		}
		return
	}
	if name, static, ok := contractType(rt); ok {
		b.contractCall(c, f, n, m, name, static)
		return
	}
	if member == "push" || member == "pop" {
		return
	}
	if ft := m.Type(); strings.HasPrefix(ft, "function") && strings.Contains(ft, " external") {
		b.unresolved(f, n, KindExternal, rt, member)
	}
}

func (b *builder) superCall(c *model.Contract, f *model.Function, n, m *astparser.Node) {
	target := b.p.Super(c, f.Contract, m.MemberName, b.declaredSignature(m))
	if target == nil {
		b.diag(f, "super target not found", m.MemberName)
		b.unresolved(f, n, KindInherited, "super", m.MemberName)
		return
	}
	e := b.edge(f, n, KindInherited, Confirmed)
	e.Target, e.Member = target, m.MemberName
	b.g.add(e)
}

func (b *builder) selfCall(c *model.Contract, f *model.Function, n, m *astparser.Node) {
	target, _ := pick(c.EffectiveByName(m.MemberName), b.declaredSignature(m), n)
	if target == nil {
		b.diag(f, "call target not found", "this."+m.MemberName)
		b.unresolved(f, n, KindInternal, c.Name, m.MemberName)
		return
	}
	e := b.edge(f, n, KindInternal, Confirmed)
	e.Target, e.Member = target, m.MemberName
	b.g.add(e)
}

func (b *builder) contractCall(c *model.Contract, f *model.Function, n, m *astparser.Node, name string, static bool) {
	member := m.MemberName
	recvState := false
	if _, ok := b.p.IsStateVariableRef(c, m.Expression); ok {
		recvState = true
	}
	sig := b.declaredSignature(m)

	target := b.p.Contract(name)
	if target == nil {
		// declared type outside the analysed set
		e := b.unresolved(f, n, KindExternal, name, member)
		e.ViaInterface, e.ReceiverIsState = name, recvState
		return
	}

	if target.Kind == model.KindLibrary {
		fn, _ := pick(target.EffectiveByName(member), sig, n)
		if fn == nil {
			b.unresolved(f, n, KindInternal, name, member)
			return
		}
		e := b.edge(f, n, KindInternal, Confirmed)
		e.Target, e.Member = fn, member
		b.g.add(e)
		return
	}

	// Base.f() names a definition in the linearization explicitly
	if static && c.Inherits(name) {
		fn, _ := pick(target.EffectiveByName(member), sig, n)
		if fn == nil {
			b.unresolved(f, n, KindInherited, name, member)
			return
		}
		e := b.edge(f, n, KindInherited, Confirmed)
		e.Target, e.Member = fn, member
		b.g.add(e)
		return
	}

	switch target.Kind {
	case model.KindInterface, model.KindAbstract:
		if sig == "" {
			if decl, _ := pick(target.EffectiveByName(member), "", n); decl != nil {
				sig = decl.Signature
			}
		}
		added := 0
		for _, impl := range b.p.Implementers(name) {
			fn, _ := pick(impl.EffectiveByName(member), sig, n)
			if fn == nil {
				continue
			}
			e := b.edge(f, n, KindCrossContract, InterfaceAmbiguous)
			e.Target, e.Member, e.Receiver = fn, member, impl.Name
			e.ViaInterface, e.ReceiverIsState = name, recvState
			b.g.add(e)
			added++
		}
		if added == 0 {
			e := b.unresolved(f, n, KindExternal, name, member)
			e.ViaInterface, e.ReceiverIsState = name, recvState
		}
	default:
		e := b.edge(f, n, KindCrossContract, Confirmed)
		e.Member, e.ReceiverIsState, e.Receiver = member, recvState, target.Name
		fn, ambiguous := pick(target.EffectiveByName(member), sig, n)
		switch {
		case fn != nil:
			e.Target = fn
		case ambiguous:
			e.Confidence, e.CalleeType = Unknown, name
		default:
			// public state variable getter, no modelled body
			e.CalleeType = name
		}
		b.g.add(e)
	}
}

func (b *builder) pointerCall(f *model.Function, n, callee *astparser.Node) {
	t := callee.Type()
	if strings.Contains(t, " external") {
		b.unresolved(f, n, KindExternal, "function", callee.Name)
		return
	}
	b.unresolved(f, n, KindInternal, "function", callee.Name)
}

// declaredSignature reads the signature of the function solc bound the
// member to, if any.
func (b *builder) declaredSignature(m *astparser.Node) string {
	if m.ReferencedDeclaration > 0 {
		if fn := b.p.FunctionByID(b.cur, m.ReferencedDeclaration); fn != nil {
			return fn.Signature
		}
	}
	return ""
}

// pick chooses among same-named candidates: by signature when known,
// otherwise by argument count. ambiguous is set when several remain.
func pick(cands []*model.Function, sig string, call *astparser.Node) (*model.Function, bool) {
	if sig != "" {
		for _, fn := range cands {
			if fn.Signature == sig {
				return fn, false
			}
		}
	}
	switch len(cands) {
	case 0:
		return nil, false
	case 1:
		return cands[0], false
	}
	var match []*model.Function
	for _, fn := range cands {
		if len(fn.Params) == len(call.Arguments) {
			match = append(match, fn)
		}
	}
	if len(match) == 1 {
		return match[0], false
	}
	return nil, true
}

func isAddressType(t string) bool {
	return t == "address" || t == "address payable" || strings.HasPrefix(t, "address ")
}

// contractType extracts the contract name from "contract X" or from the
// static "type(contract X)" / "type(library X)" forms.
func contractType(t string) (name string, static bool, ok bool) {
	if strings.HasPrefix(t, "type(") && strings.HasSuffix(t, ")") {
		t = t[len("type(") : len(t)-1]
		static = true
	}
	fields := strings.Fields(t)
	if len(fields) < 2 {
		return "", false, false
	}
	if strings.Contains(fields[1], "[") {
		return "", false, false
	}
	switch fields[0] {
	case "contract", "library", "interface":
		return fields[1], static, true
	}
	return "", false, false
}
