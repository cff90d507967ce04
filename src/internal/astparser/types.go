package astparser

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// AST 对应 solc 输出的 SourceUnit
type AST struct {
	AbsolutePath    string      `json:"absolutePath"`
	ExportedSymbols interface{} `json:"exportedSymbols"`
	ID              int         `json:"id"`
	NodeType        string      `json:"nodeType"`
	Nodes           []Node      `json:"nodes"`
	Src             string      `json:"src"`
}

type TypeDescriptions struct {
	TypeIdentifier string `json:"typeIdentifier,omitempty"`
	TypeString     string `json:"typeString,omitempty"`
}

// Node is the subset of the solc compact AST the engine reads. Fields that
// solc reuses with different shapes (parameters) are kept raw.
type Node struct {
	ID                    int              `json:"id"`
	NodeType              string           `json:"nodeType"`
	Name                  string           `json:"name,omitempty"`
	Src                   string           `json:"src"`
	TypeDescriptions      TypeDescriptions `json:"typeDescriptions,omitempty"`
	ReferencedDeclaration int              `json:"referencedDeclaration,omitempty"`

	// ContractDefinition
	ContractKind            string `json:"contractKind,omitempty"`
	Abstract                bool   `json:"abstract,omitempty"`
	BaseContracts           []Node `json:"baseContracts,omitempty"`
	BaseName                *Node  `json:"baseName,omitempty"`
	PathNode                *Node  `json:"pathNode,omitempty"`
	LinearizedBaseContracts []int  `json:"linearizedBaseContracts,omitempty"`
	Nodes                   []Node `json:"nodes,omitempty"`

	// FunctionDefinition / VariableDeclaration
	Kind             string          `json:"kind,omitempty"`
	Implemented      bool            `json:"implemented,omitempty"`
	Visibility       string          `json:"visibility,omitempty"`
	StateMutability  string          `json:"stateMutability,omitempty"`
	Virtual          bool            `json:"virtual,omitempty"`
	Overrides        *Node           `json:"overrides,omitempty"`
	BaseFunctions    []int           `json:"baseFunctions,omitempty"`
	FunctionSelector string          `json:"functionSelector,omitempty"`
	Parameters       json.RawMessage `json:"parameters,omitempty"`
	ReturnParameters *Node           `json:"returnParameters,omitempty"`
	Modifiers        []Node          `json:"modifiers,omitempty"`
	StateVariable    bool            `json:"stateVariable,omitempty"`
	Constant         bool            `json:"constant,omitempty"`
	Mutability       string          `json:"mutability,omitempty"`
	TypeName         *Node           `json:"typeName,omitempty"`

	// statements
	Body                     *Node   `json:"body,omitempty"`
	Statements               []Node  `json:"statements,omitempty"`
	Condition                *Node   `json:"condition,omitempty"`
	TrueBody                 *Node   `json:"trueBody,omitempty"`
	FalseBody                *Node   `json:"falseBody,omitempty"`
	InitializationExpression *Node   `json:"initializationExpression,omitempty"`
	LoopExpression           *Node   `json:"loopExpression,omitempty"`
	InitialValue             *Node   `json:"initialValue,omitempty"`
	Declarations             []*Node `json:"declarations,omitempty"`
	EventCall                *Node   `json:"eventCall,omitempty"`
	ErrorCall                *Node   `json:"errorCall,omitempty"`
	ExternalCall             *Node   `json:"externalCall,omitempty"`
	Clauses                  []Node  `json:"clauses,omitempty"`
	Block                    *Node   `json:"block,omitempty"`

	// expressions
	Expression       *Node   `json:"expression,omitempty"`
	Arguments        []Node  `json:"arguments,omitempty"`
	MemberName       string  `json:"memberName,omitempty"`
	LeftHandSide     *Node   `json:"leftHandSide,omitempty"`
	RightHandSide    *Node   `json:"rightHandSide,omitempty"`
	LeftExpression   *Node   `json:"leftExpression,omitempty"`
	RightExpression  *Node   `json:"rightExpression,omitempty"`
	Operator         string  `json:"operator,omitempty"`
	SubExpression    *Node   `json:"subExpression,omitempty"`
	Components       []*Node `json:"components,omitempty"`
	BaseExpression   *Node   `json:"baseExpression,omitempty"`
	IndexExpression  *Node   `json:"indexExpression,omitempty"`
	TrueExpression   *Node   `json:"trueExpression,omitempty"`
	FalseExpression  *Node   `json:"falseExpression,omitempty"`
	Options          []Node  `json:"options,omitempty"`
	HexValue         string  `json:"hexValue,omitempty"`

	// Value is a string on Literal and an expression on VariableDeclaration.
	Value json.RawMessage `json:"value,omitempty"`
}

// ParsedSource 是一个已加载的 SourceUnit
type ParsedSource struct {
	AST       *AST
	Path      string
	Digest    common.Hash
	NodesByID map[int]*Node
	// Origins are the files this unit was loaded from. Node ids are only
	// unique among units sharing an origin.
	Origins []string
}

// ParameterList returns the parameter declarations of a FunctionDefinition
// (an embedded ParameterList object) or of a ParameterList node (an array).
func (n *Node) ParameterList() []Node {
	if n == nil || len(n.Parameters) == 0 {
		return nil
	}
	raw := strings.TrimSpace(string(n.Parameters))
	switch {
	case strings.HasPrefix(raw, "{"):
		var list Node
		if err := json.Unmarshal(n.Parameters, &list); err != nil {
			return nil
		}
		return list.ParameterList()
	case strings.HasPrefix(raw, "["):
		var params []Node
		if err := json.Unmarshal(n.Parameters, &params); err != nil {
			return nil
		}
		return params
	}
	return nil
}

// SetParameters stores params in ParameterList form.
func (n *Node) SetParameters(params []Node) {
	data, err := json.Marshal(Node{NodeType: "ParameterList", Parameters: mustRaw(params)})
	if err == nil {
		n.Parameters = data
	}
}

func mustRaw(params []Node) json.RawMessage {
	if params == nil {
		params = []Node{}
	}
	data, err := json.Marshal(params)
	if err != nil {
		return json.RawMessage("[]")
	}
	return data
}

// LiteralValue decodes the value of a Literal node.
func (n *Node) LiteralValue() string {
	if n == nil || len(n.Value) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(n.Value, &s); err != nil {
		return ""
	}
	return s
}

// Initializer decodes the initial value expression of a VariableDeclaration.
func (n *Node) Initializer() *Node {
	if n == nil || len(n.Value) == 0 || n.Value[0] != '{' {
		return nil
	}
	var init Node
	if err := json.Unmarshal(n.Value, &init); err != nil {
		return nil
	}
	return &init
}

// Type returns the static type string solc attached to the node.
func (n *Node) Type() string {
	if n == nil {
		return ""
	}
	return n.TypeDescriptions.TypeString
}

// BaseContractName reads the name of an InheritanceSpecifier.
func (n *Node) BaseContractName() string {
	if n == nil || n.BaseName == nil {
		return ""
	}
	if n.BaseName.PathNode != nil && n.BaseName.PathNode.Name != "" {
		return n.BaseName.PathNode.Name
	}
	return n.BaseName.Name
}

// Location is a decoded solc "offset:length:file" triple.
type Location struct {
	Offset int
	Length int
	File   int
}

func ParseSrc(src string) (Location, bool) {
	parts := strings.Split(src, ":")
	if len(parts) < 2 {
		return Location{}, false
	}
	offset, err1 := strconv.Atoi(parts[0])
	length, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return Location{}, false
	}
	loc := Location{Offset: offset, Length: length, File: -1}
	if len(parts) > 2 {
		if f, err := strconv.Atoi(parts[2]); err == nil {
			loc.File = f
		}
	}
	return loc, true
}
