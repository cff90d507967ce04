// Package severity maps detector findings onto severity tiers through an
// ordered, configurable decision table.
package severity

import (
	"fmt"
	"strings"

	"github.com/VectorBits/Reentry/src/internal/callgraph"
)

type Level string

const (
	Low      Level = "low"
	Medium   Level = "medium"
	High     Level = "high"
	Critical Level = "critical"
)

var order = map[Level]int{Low: 1, Medium: 2, High: 3, Critical: 4}

// Parse reads a level name; unknown names are an error.
func Parse(s string) (Level, error) {
	l := Level(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := order[l]; !ok {
		return "", fmt.Errorf("unknown severity %q", s)
	}
	return l, nil
}

func (l Level) Rank() int { return order[l] }

// AtLeast reports whether l is as severe as other.
func (l Level) AtLeast(other Level) bool { return order[l] >= order[other] }

// Status is the callback verdict for one external call.
type Status string

const (
	CallbackConfirmed Status = "confirmed"
	CallbackPossible  Status = "possible"
	CallbackNone      Status = "none"
)

// Shape describes the callee of an unconfirmed callback.
type Shape string

const (
	// ShapeHook: an interface-typed receiver held in contract state, or an
	// interface whose name marks it as a callback target.
	ShapeHook Shape = "hook"
	// ShapeInterface: dispatched through a declared interface or abstract
	// contract.
	ShapeInterface Shape = "interface"
	// ShapeOpaque: raw address calls, function pointers, unresolved
	// encoded calls.
	ShapeOpaque Shape = "opaque"
)

type Rule struct {
	Severity Level  `yaml:"severity" json:"severity"`
	Label    string `yaml:"label" json:"label"`
}

// Policy is the decision table. Rows are evaluated in the order
// confirmed, hook, interface, opaque, none.
type Policy struct {
	Confirmed Rule     `yaml:"confirmed"`
	Hook      Rule     `yaml:"hook"`
	Interface Rule     `yaml:"interface"`
	Opaque    Rule     `yaml:"opaque"`
	None      Rule     `yaml:"none"`
	HookHints []string `yaml:"hook_hints"`
}

func DefaultPolicy() Policy {
	return Policy{
		Confirmed: Rule{Severity: Critical, Label: "confirmed_reentrancy"},
		Hook:      Rule{Severity: High, Label: "hook_callback_reentrancy"},
		Interface: Rule{Severity: High, Label: "potential_reentrancy"},
		Opaque:    Rule{Severity: Medium, Label: "opaque_external_call"},
		None:      Rule{Severity: Low, Label: "safe_external_call"},
		HookHints: []string{"Hook", "Callback", "Receiver", "Strategy", "Listener", "Handler"},
	}
}

// Validate checks every row names a known level and a label.
func (p Policy) Validate() error {
	rows := map[string]Rule{
		"confirmed": p.Confirmed, "hook": p.Hook, "interface": p.Interface,
		"opaque": p.Opaque, "none": p.None,
	}
	for name, r := range rows {
		if _, ok := order[r.Severity]; !ok {
			return fmt.Errorf("severity policy %s: unknown severity %q", name, r.Severity)
		}
		if r.Label == "" {
			return fmt.Errorf("severity policy %s: empty label", name)
		}
	}
	return nil
}

// Classify applies the table.
func (p Policy) Classify(status Status, shape Shape) Rule {
	switch status {
	case CallbackConfirmed:
		return p.Confirmed
	case CallbackNone:
		return p.None
	}
	switch shape {
	case ShapeHook:
		return p.Hook
	case ShapeInterface:
		return p.Interface
	default:
		return p.Opaque
	}
}

// ShapeOf inspects the edges of one call site.
func (p Policy) ShapeOf(edges []*callgraph.Edge) Shape {
	shape := ShapeOpaque
	for _, e := range edges {
		if e.ViaInterface == "" {
			continue
		}
		if e.ReceiverIsState || p.hinted(e.ViaInterface) {
			return ShapeHook
		}
		shape = ShapeInterface
	}
	return shape
}

func (p Policy) hinted(name string) bool {
	lower := strings.ToLower(name)
	for _, h := range p.HookHints {
		if h != "" && strings.Contains(lower, strings.ToLower(h)) {
			return true
		}
	}
	return false
}
