// Package asttest builds small solc-shaped ASTs for tests. Only the fields
// the engine reads are filled; ids are left zero so resolution goes by
// name unless a test sets them.
package asttest

import (
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/VectorBits/Reentry/src/internal/astparser"
)

type Node = astparser.Node

// Source wraps contracts into an indexed SourceUnit.
func Source(path string, contracts ...Node) *astparser.ParsedSource {
	ast := &astparser.AST{AbsolutePath: path, NodeType: "SourceUnit", Nodes: contracts}
	raw, err := json.Marshal(ast)
	if err != nil {
		panic(fmt.Sprintf("asttest: marshal %s: %v", path, err))
	}
	return astparser.NewParsedSource(ast, path, crypto.Keccak256Hash(raw))
}

func contract(kind, name string, bases []string, members []Node) Node {
	n := Node{NodeType: "ContractDefinition", Name: name, ContractKind: kind, Nodes: members}
	for _, b := range bases {
		n.BaseContracts = append(n.BaseContracts, Node{
			NodeType: "InheritanceSpecifier",
			BaseName: &Node{NodeType: "UserDefinedTypeName", Name: b},
		})
	}
	return n
}

// Contract declares `contract name is bases...`, bases in source order.
func Contract(name string, bases []string, members ...Node) Node {
	return contract("contract", name, bases, members)
}

func Abstract(name string, bases []string, members ...Node) Node {
	n := contract("contract", name, bases, members)
	n.Abstract = true
	return n
}

func Interface(name string, members ...Node) Node {
	return contract("interface", name, nil, members)
}

func Library(name string, members ...Node) Node {
	return contract("library", name, nil, members)
}

func StateVar(name, typ string) Node {
	return Node{
		NodeType:         "VariableDeclaration",
		Name:             name,
		StateVariable:    true,
		Visibility:       "internal",
		TypeDescriptions: astparser.TypeDescriptions{TypeString: typ},
	}
}

func Param(name, typ string) Node {
	return Node{NodeType: "VariableDeclaration", Name: name, TypeDescriptions: astparser.TypeDescriptions{TypeString: typ}}
}

// Function declares a nonpayable function. A nil body leaves it
// unimplemented.
func Function(name, visibility string, params []Node, body *Node) Node {
	n := Node{
		NodeType:        "FunctionDefinition",
		Kind:            "function",
		Name:            name,
		Visibility:      visibility,
		StateMutability: "nonpayable",
		Implemented:     body != nil,
		Body:            body,
	}
	n.SetParameters(params)
	return n
}

// Virtual marks fn virtual; Override marks it as overriding.
func Virtual(fn Node) Node {
	fn.Virtual = true
	return fn
}

func Override(fn Node) Node {
	fn.Overrides = &Node{NodeType: "OverrideSpecifier"}
	return fn
}

// Fallback and Receive declare the special entry points.
func Fallback(body *Node) Node {
	n := Function("", "external", nil, body)
	n.Kind = "fallback"
	return n
}

func Receive(body *Node) Node {
	n := Function("", "external", nil, body)
	n.Kind, n.StateMutability = "receive", "payable"
	return n
}

// statements

func Block(stmts ...Node) *Node {
	return &Node{NodeType: "Block", Statements: stmts}
}

func Expr(e Node) Node {
	return Node{NodeType: "ExpressionStatement", Expression: &e}
}

func If(cond Node, then, els *Node) Node {
	return Node{NodeType: "IfStatement", Condition: &cond, TrueBody: then, FalseBody: els}
}

func While(cond Node, body *Node) Node {
	return Node{NodeType: "WhileStatement", Condition: &cond, Body: body}
}

func DoWhile(cond Node, body *Node) Node {
	return Node{NodeType: "DoWhileStatement", Condition: &cond, Body: body}
}

func For(init *Node, cond *Node, loop *Node, body *Node) Node {
	return Node{NodeType: "ForStatement", InitializationExpression: init, Condition: cond, LoopExpression: loop, Body: body}
}

func Break() Node    { return Node{NodeType: "Break"} }
func Continue() Node { return Node{NodeType: "Continue"} }

func Return(e *Node) Node {
	return Node{NodeType: "Return", Expression: e}
}

func Revert(errorCall Node) Node {
	return Node{NodeType: "RevertStatement", ErrorCall: &errorCall}
}

func Emit(eventCall Node) Node {
	return Node{NodeType: "EmitStatement", EventCall: &eventCall}
}

func Assembly() Node { return Node{NodeType: "InlineAssembly"} }

// Let declares a local variable initialised from value.
func Let(name, typ string, value Node) Node {
	d := Param(name, typ)
	return Node{NodeType: "VariableDeclarationStatement", Declarations: []*Node{&d}, InitialValue: &value}
}

// Try lowers `try call returns (...) { ok } catch { fail }`.
func Try(call Node, ok, fail *Node) Node {
	n := Node{NodeType: "TryStatement", ExternalCall: &call}
	n.Clauses = append(n.Clauses, Node{NodeType: "TryCatchClause", Block: ok})
	if fail != nil {
		n.Clauses = append(n.Clauses, Node{NodeType: "TryCatchClause", Block: fail})
	}
	return n
}

// expressions

func Ident(name, typ string) Node {
	return Node{NodeType: "Identifier", Name: name, TypeDescriptions: astparser.TypeDescriptions{TypeString: typ}}
}

// Ref is an identifier bound to a declaration id.
func Ref(name, typ string, id int) Node {
	n := Ident(name, typ)
	n.ReferencedDeclaration = id
	return n
}

func Member(expr Node, member, typ string) Node {
	return Node{NodeType: "MemberAccess", Expression: &expr, MemberName: member, TypeDescriptions: astparser.TypeDescriptions{TypeString: typ}}
}

func Index(base, idx Node, typ string) Node {
	return Node{NodeType: "IndexAccess", BaseExpression: &base, IndexExpression: &idx, TypeDescriptions: astparser.TypeDescriptions{TypeString: typ}}
}

func Call(callee Node, args ...Node) Node {
	return Node{NodeType: "FunctionCall", Kind: "functionCall", Expression: &callee, Arguments: args}
}

// WithValue wraps a callee in call options, as in `x.call{value: v}`.
func WithValue(callee Node, value Node) Node {
	return Node{NodeType: "FunctionCallOptions", Expression: &callee, Options: []Node{value}}
}

func Assign(lhs, rhs Node) Node {
	return Node{NodeType: "Assignment", Operator: "=", LeftHandSide: &lhs, RightHandSide: &rhs}
}

func Unary(op string, sub Node) Node {
	return Node{NodeType: "UnaryOperation", Operator: op, SubExpression: &sub}
}

func Binary(op string, l, r Node) Node {
	return Node{NodeType: "BinaryOperation", Operator: op, LeftExpression: &l, RightExpression: &r}
}

func Tuple(components ...*Node) Node {
	return Node{NodeType: "TupleExpression", Components: components}
}

func Lit(v string) Node {
	raw, _ := json.Marshal(v)
	return Node{NodeType: "Literal", Value: raw}
}

// common shapes

// MsgSender is `msg.sender` typed address.
func MsgSender() Node {
	return Member(Ident("msg", "msg"), "sender", "address")
}

// LowLevelCall is `recv.call{value: v}("")`.
func LowLevelCall(recv Node, value Node) Node {
	return Call(WithValue(Member(recv, "call", "function (bytes memory) payable returns (bool,bytes memory)"), value), Lit(""))
}

// ExternalCall is `recv.member(args...)` where recv has type `contract T`
// or `interface T` spelled in typ.
func ExternalCall(recv, typ, member string, args ...Node) Node {
	return Call(Member(Ident(recv, typ), member, "function () external"), args...)
}

// InternalCall is `name(args...)`.
func InternalCall(name string, args ...Node) Node {
	return Call(Ident(name, "function ()"), args...)
}

// SetMapping is `state[key] = value`.
func SetMapping(state, valueType string, key, value Node) Node {
	return Assign(Index(Ident(state, "mapping(address => "+valueType+")"), key, valueType), value)
}

// SetVar is `state = value`.
func SetVar(state, typ string, value Node) Node {
	return Assign(Ident(state, typ), value)
}
