package model

import (
	"fmt"

	"github.com/VectorBits/Reentry/src/internal/astparser"
	"github.com/VectorBits/Reentry/src/internal/logger"
)

// Build walks the AST forest and produces the Program model. Structural
// problems are recorded in Program.Diagnostics; only an input without any
// contract is fatal.
func Build(sources []*astparser.ParsedSource) (*Program, error) {
	p := &Program{
		byName:  make(map[string]*Contract),
		byID:    newIDTable[*Contract](),
		funcIDs: newIDTable[*Function](),
		stateID: newIDTable[*StateVariable](),
		declIDs: newIDTable[*astparser.Node](),
	}

	for _, src := range sources {
		if src == nil || src.AST == nil {
			continue
		}
		for id, n := range src.NodesByID {
			p.declIDs.add(src.Origins, id, n)
		}
		for i := range src.AST.Nodes {
			node := &src.AST.Nodes[i]
			if node.NodeType != "ContractDefinition" {
				continue
			}
			p.addContract(node, src)
		}
	}

	if len(p.Contracts) == 0 {
		return nil, ErrEmptyProgram
	}

	p.Fingerprint = astparser.Fingerprint(sources)
	p.resolveInheritance()
	for _, d := range p.Diagnostics {
		logger.Debug("model: %v", d)
	}
	return p, nil
}

func (p *Program) addContract(node *astparser.Node, src *astparser.ParsedSource) {
	if _, dup := p.byName[node.Name]; dup {
		p.Diagnostics = append(p.Diagnostics, malformed(node.Name, "duplicate contract definition in", src.Path))
		return
	}

	c := &Contract{
		Name:       node.Name,
		Kind:       contractKind(node),
		FilePath:   src.Path,
		ID:         node.ID,
		origins:    src.Origins,
		bySig:      make(map[string]*Function),
		stateByKey: make(map[string]*StateVariable),
	}
	// solc lists bases left to right, least derived first
	for i := len(node.BaseContracts) - 1; i >= 0; i-- {
		if name := node.BaseContracts[i].BaseContractName(); name != "" {
			c.Bases = append(c.Bases, name)
		}
	}

	names := make(map[string]int)
	for i := range node.Nodes {
		member := &node.Nodes[i]
		switch member.NodeType {
		case "FunctionDefinition":
			if f := newFunction(c.Name, member); f != nil {
				c.Functions = append(c.Functions, f)
				names[f.Name]++
				p.funcIDs.add(c.origins, f.ID, f)
			}
		case "VariableDeclaration":
			v := &StateVariable{
				Contract:   c.Name,
				Name:       member.Name,
				Type:       member.Type(),
				Visibility: Visibility(member.Visibility),
				Constant:   member.Constant || member.Mutability == "constant" || member.Mutability == "immutable",
				ID:         member.ID,
			}
			if v.Type == "" && member.TypeName != nil {
				v.Type = member.TypeName.Type()
				if v.Type == "" {
					v.Type = member.TypeName.Name
				}
			}
			c.StateVariables = append(c.StateVariables, v)
			p.stateID.add(c.origins, v.ID, v)
		}
	}
	for _, f := range c.Functions {
		f.overloaded = names[f.Name] > 1
	}

	p.Contracts = append(p.Contracts, c)
	p.byName[c.Name] = c
	p.byID.add(c.origins, c.ID, c)
}

func contractKind(node *astparser.Node) ContractKind {
	switch {
	case node.ContractKind == "interface":
		return KindInterface
	case node.ContractKind == "library":
		return KindLibrary
	case node.Abstract:
		return KindAbstract
	default:
		return KindConcrete
	}
}

func newFunction(contract string, node *astparser.Node) *Function {
	kind := node.Kind
	if kind == "" {
		kind = "function"
	}
	if kind != "function" && kind != "fallback" && kind != "receive" {
		return nil
	}
	name := node.Name
	if name == "" {
		name = kind
	}

	f := &Function{
		Contract:   contract,
		Name:       name,
		Kind:       kind,
		Visibility: Visibility(node.Visibility),
		Mutability: Mutability(node.StateMutability),
		Params:     params(node.ParameterList()),
		Returns:    params(node.ReturnParameters.ParameterList()),
		Body:       node.Body,
		Virtual:    node.Virtual,
		IsOverride: node.Overrides != nil || len(node.BaseFunctions) > 0,
		ID:         node.ID,
		Src:        node.Src,
	}
	if f.Visibility == "" {
		f.Visibility = VisInternal
	}
	if f.Mutability == "" {
		f.Mutability = MutNonpayable
	}
	f.Signature = Signature(f.Name, f.Params)
	if node.FunctionSelector != "" {
		f.Selector = NormalizeSelector(node.FunctionSelector)
	} else {
		f.Selector = Selector(f.Signature)
	}
	return f
}

func params(decls []astparser.Node) []Param {
	out := make([]Param, 0, len(decls))
	for i := range decls {
		d := &decls[i]
		t := d.Type()
		if t == "" && d.TypeName != nil {
			t = d.TypeName.Type()
			if t == "" {
				t = d.TypeName.Name
			}
		}
		out = append(out, Param{Name: d.Name, Type: t})
	}
	return out
}

func (p *Program) resolveInheritance() {
	known := make(map[string][]string, len(p.Contracts))
	for _, c := range p.Contracts {
		for _, b := range c.Bases {
			if _, ok := p.byName[b]; !ok {
				p.Diagnostics = append(p.Diagnostics, malformed(c.Name, "base contract not found", b))
				continue
			}
			known[c.Name] = append(known[c.Name], b)
		}
	}

	lin := newLinearizer(known)
	for _, c := range p.Contracts {
		c.Linearized = p.solcLinearization(c)
		if c.Linearized == nil {
			c.Linearized = lin.linearize(c.Name)
		}
	}

	for _, c := range p.Contracts {
		for _, name := range c.Linearized {
			base := p.byName[name]
			if base == nil {
				continue
			}
			for _, f := range base.Functions {
				if _, ok := c.bySig[f.Signature]; ok {
					continue
				}
				c.bySig[f.Signature] = f
				c.effective = append(c.effective, f)
			}
			for _, v := range base.StateVariables {
				if _, ok := c.stateByKey[v.Name]; !ok {
					c.stateByKey[v.Name] = v
				}
			}
		}
	}

	for _, c := range p.Contracts {
		for _, f := range c.Functions {
			p.linkOverride(c, f)
		}
	}
}

// solcLinearization uses linearizedBaseContracts when every id is known.
func (p *Program) solcLinearization(c *Contract) []string {
	decl := p.Declaration(c, c.ID)
	if decl == nil || decl.NodeType != "ContractDefinition" || len(decl.LinearizedBaseContracts) == 0 {
		return nil
	}
	out := make([]string, 0, len(decl.LinearizedBaseContracts))
	for _, id := range decl.LinearizedBaseContracts {
		base, _, _ := resolveID(p, p.byID, c.origins, id)
		if base == nil {
			return nil
		}
		out = append(out, base.Name)
	}
	return out
}

func (p *Program) linkOverride(c *Contract, f *Function) {
	if decl := p.Declaration(c, f.ID); decl != nil && decl.NodeType == "FunctionDefinition" {
		for _, id := range decl.BaseFunctions {
			if base := p.FunctionByID(c, id); base != nil {
				f.Overrides = base
				return
			}
		}
	}
	for _, name := range c.Linearized[1:] {
		base := p.byName[name]
		if base == nil {
			continue
		}
		for _, bf := range base.Functions {
			if bf.Signature == f.Signature {
				f.Overrides = bf
				return
			}
		}
	}
	if f.IsOverride {
		p.Diagnostics = append(p.Diagnostics, malformed(f.Key(), "override target not found", f.Signature))
	}
}

// String is used in debug logs.
func (c *Contract) String() string {
	return fmt.Sprintf("%s(%s)", c.Name, c.Kind)
}
