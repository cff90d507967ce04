package model

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/VectorBits/Reentry/src/internal/astparser"
)

type ContractKind string

const (
	KindConcrete  ContractKind = "concrete"
	KindAbstract  ContractKind = "abstract"
	KindInterface ContractKind = "interface"
	KindLibrary   ContractKind = "library"
)

type Visibility string

const (
	VisPublic   Visibility = "public"
	VisExternal Visibility = "external"
	VisInternal Visibility = "internal"
	VisPrivate  Visibility = "private"
)

type Mutability string

const (
	MutView       Mutability = "view"
	MutPure       Mutability = "pure"
	MutPayable    Mutability = "payable"
	MutNonpayable Mutability = "nonpayable"
)

// Contract is one ContractDefinition together with its resolved inheritance.
type Contract struct {
	Name     string
	Kind     ContractKind
	FilePath string
	ID       int

	// Bases lists the declared direct bases, most derived first.
	Bases []string
	// Linearized is the full resolution order starting with the contract itself.
	Linearized []string

	Functions      []*Function
	StateVariables []*StateVariable

	// origins are the files the defining source was loaded from.
	origins    []string
	effective  []*Function
	bySig      map[string]*Function
	stateByKey map[string]*StateVariable
}

// Effective returns the contract's effective function set: own functions
// plus every inherited function not overridden by a more derived one.
func (c *Contract) Effective() []*Function { return c.effective }

// EffectiveBySignature looks a function up in the effective set.
func (c *Contract) EffectiveBySignature(sig string) *Function { return c.bySig[sig] }

// EffectiveByName returns every effective function called name.
func (c *Contract) EffectiveByName(name string) []*Function {
	var out []*Function
	for _, f := range c.effective {
		if f.Name == name {
			out = append(out, f)
		}
	}
	return out
}

// StateVariable resolves a state variable visible in c, own or inherited.
func (c *Contract) StateVariable(name string) *StateVariable { return c.stateByKey[name] }

// Inherits reports whether name is c itself or one of its linearized bases.
func (c *Contract) Inherits(name string) bool {
	for _, n := range c.Linearized {
		if n == name {
			return true
		}
	}
	return false
}

func (c *Contract) IsAbstract() bool { return c.Kind == KindAbstract }

func (c *Contract) originList() []string {
	if c == nil {
		return nil
	}
	return c.origins
}

type StateVariable struct {
	Contract   string
	Name       string
	Type       string
	Visibility Visibility
	Constant   bool
	ID         int
}

type Param struct {
	Name string
	Type string
}

type Function struct {
	Contract   string
	Name       string
	Kind       string
	Visibility Visibility
	Mutability Mutability
	Params     []Param
	Returns    []Param
	Signature  string
	Selector   string
	Body       *astparser.Node
	Virtual    bool
	IsOverride bool
	// Overrides is the base function this one replaces, if any.
	Overrides *Function
	ID        int
	Src       string

	overloaded bool
}

// Key is the stable display id, "Contract.name", qualified with the
// signature when the contract declares overloads.
func (f *Function) Key() string {
	if f.overloaded {
		return f.Contract + "." + f.Signature
	}
	return f.Contract + "." + f.Name
}

func (f *Function) IsEntryPoint() bool {
	return f.Visibility == VisPublic || f.Visibility == VisExternal ||
		f.Kind == "fallback" || f.Kind == "receive"
}

// Program is the cross-referenced model of every analysed contract.
type Program struct {
	Contracts   []*Contract
	Diagnostics []error
	Fingerprint common.Hash

	byName  map[string]*Contract
	byID    *idTable[*Contract]
	funcIDs *idTable[*Function]
	stateID *idTable[*StateVariable]
	declIDs *idTable[*astparser.Node]
}

func (p *Program) Contract(name string) *Contract { return p.byName[name] }

// FunctionByID resolves a referencedDeclaration found in code of contract
// from.
func (p *Program) FunctionByID(from *Contract, id int) *Function {
	f, _, _ := resolveID(p, p.funcIDs, from.originList(), id)
	return f
}

// Declaration returns the AST node a reference in code of contract from
// designates, or nil when the id is unknown or ambiguous.
func (p *Program) Declaration(from *Contract, id int) *astparser.Node {
	n, _, _ := resolveID(p, p.declIDs, from.originList(), id)
	return n
}

// Functions lists every modelled function in contract order.
func (p *Program) Functions() []*Function {
	var out []*Function
	for _, c := range p.Contracts {
		out = append(out, c.Functions...)
	}
	return out
}

// Implementers enumerates the concrete contracts that list name among
// their bases, directly or transitively.
func (p *Program) Implementers(name string) []*Contract {
	var out []*Contract
	for _, c := range p.Contracts {
		if c.Name == name || c.Kind != KindConcrete {
			continue
		}
		if c.Inherits(name) {
			out = append(out, c)
		}
	}
	return out
}

// Super resolves a super-qualified call made from code defined in `from`
// while executing in contract c: the first definition of the signature
// after `from` in c's linearization.
func (p *Program) Super(c *Contract, from, name, sig string) *Function {
	start := -1
	for i, n := range c.Linearized {
		if n == from {
			start = i
			break
		}
	}
	if start < 0 {
		return nil
	}
	for _, n := range c.Linearized[start+1:] {
		base := p.byName[n]
		if base == nil {
			continue
		}
		for _, f := range base.Functions {
			if f.Name != name {
				continue
			}
			if sig == "" || f.Signature == sig {
				return f
			}
		}
	}
	return nil
}

// Related reports whether two contracts share storage when deployed, i.e.
// one appears in the other's linearization.
func (p *Program) Related(a, b string) bool {
	if a == b {
		return true
	}
	if ca := p.byName[a]; ca != nil && ca.Inherits(b) {
		return true
	}
	if cb := p.byName[b]; cb != nil && cb.Inherits(a) {
		return true
	}
	return false
}
