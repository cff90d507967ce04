package static_analyzer

import "time"

// AnalysisResult is the output of one analyze run.
type AnalysisResult struct {
	Fingerprint string                 `json:"fingerprint"`
	GeneratedAt time.Time              `json:"generated_at"`
	Contracts   []ContractSummary      `json:"contracts"`
	Functions   []FunctionSummary      `json:"functions"`
	CallGraph   CallGraph              `json:"call_graph"`
	Findings    []Finding              `json:"findings"`
	Summary     Summary                `json:"summary"`
	CFG         map[string]FunctionCFG `json:"cfg,omitempty"`
	CallTree    string                 `json:"call_tree,omitempty"`
	Diagnostics []string               `json:"diagnostics,omitempty"`
}

type ContractSummary struct {
	Name                string          `json:"name"`
	Type                string          `json:"type"`
	FunctionsCount      int             `json:"functions_count"`
	StateVariablesCount int             `json:"state_variables_count"`
	IsAbstract          bool            `json:"is_abstract"`
	BaseContracts       []string        `json:"base_contracts"`
	FilePath            string          `json:"file_path"`
	StateVariables      []StateVariable `json:"state_variables,omitempty"`
}

type StateVariable struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	Visibility string `json:"visibility"`
	IsConstant bool   `json:"is_constant"`
}

type FunctionSummary struct {
	Name            string `json:"name"`
	Contract        string `json:"contract"`
	Signature       string `json:"signature"`
	Selector        string `json:"selector,omitempty"`
	Visibility      string `json:"visibility"`
	StateMutability string `json:"state_mutability"`
	ExternalCalls   int    `json:"external_calls"`
	StateChanges    int    `json:"state_changes"`
	IsOverride      bool   `json:"is_override"`
	Overrides       string `json:"overrides,omitempty"`
}

type CallGraph struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

type GraphNode struct {
	ID                 string `json:"id"`
	Label              string `json:"label"`
	Type               string `json:"type"`
	Contract           string `json:"contract"`
	Function           string `json:"function"`
	Visibility         string `json:"visibility"`
	StateMutability    string `json:"state_mutability,omitempty"`
	HasStateChanges    bool   `json:"has_state_changes"`
	ExternalCallsCount int    `json:"external_calls_count"`
}

type GraphEdge struct {
	Source       string `json:"source"`
	Target       string `json:"target"`
	Type         string `json:"type"`
	IsResolved   bool   `json:"is_resolved"`
	ViaInterface string `json:"via_interface,omitempty"`
	Confidence   string `json:"confidence"`
	Location     string `json:"location,omitempty"`
}

type Finding struct {
	Type               string   `json:"type"`
	Function           string   `json:"function"`
	Contract           string   `json:"contract"`
	Severity           string   `json:"severity"`
	Classification     string   `json:"classification"`
	Details            string   `json:"details"`
	ExternalCallTarget string   `json:"external_call_target"`
	StateChangesCount  int      `json:"state_changes_count"`
	StateChanges       []string `json:"state_changes,omitempty"`
	CallbackConfirmed  bool     `json:"callback_confirmed"`
	CallbackPossible   bool     `json:"callback_possible"`
	CallbackNone       bool     `json:"callback_none"`
	CallbackPath       []string `json:"callback_path,omitempty"`
	Location           string   `json:"location,omitempty"`
}

// Summary is derived from the other sections, never maintained on its own.
type Summary struct {
	TotalContracts     int `json:"total_contracts"`
	TotalFunctions     int `json:"total_functions"`
	ExternalCalls      int `json:"external_calls"`
	CrossContractCalls int `json:"cross_contract_calls"`
	ReentrancyPatterns int `json:"reentrancy_patterns"`
	CriticalIssues     int `json:"critical_issues"`
	HighIssues         int `json:"high_issues"`
	MediumIssues       int `json:"medium_issues"`
	LowIssues          int `json:"low_issues"`
}

type FunctionCFG struct {
	Nodes []CFGNode `json:"nodes"`
	Edges []CFGEdge `json:"edges"`
}

type CFGNode struct {
	ID       int         `json:"id"`
	Kind     string      `json:"kind"`
	Location string      `json:"location,omitempty"`
	Effects  []CFGEffect `json:"effects,omitempty"`
}

type CFGEffect struct {
	Kind       string `json:"kind"`
	Target     string `json:"target,omitempty"`
	CalleeType string `json:"callee_type,omitempty"`
	Variable   string `json:"variable,omitempty"`
}

type CFGEdge struct {
	From  int    `json:"from"`
	To    int    `json:"to"`
	Label string `json:"label"`
}

// AnalysisConfig tunes one run.
type AnalysisConfig struct {
	IncludeCFG    bool
	CallTreeDepth int
}
