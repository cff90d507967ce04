package model

import (
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

var locationWords = map[string]bool{
	"memory": true, "storage": true, "calldata": true, "ref": true, "pointer": true,
}

// CanonicalType reduces a solc type string to its ABI spelling, e.g.
// "contract IERC20" -> "address", "uint256[] memory" -> "uint256[]".
func CanonicalType(typeString string) string {
	fields := strings.Fields(typeString)
	kept := fields[:0]
	for _, f := range fields {
		if !locationWords[f] {
			kept = append(kept, f)
		}
	}
	if len(kept) == 0 {
		return ""
	}

	suffix := ""
	last := kept[len(kept)-1]
	if i := strings.Index(last, "["); i >= 0 {
		suffix = last[i:]
		kept[len(kept)-1] = last[:i]
	}

	var base string
	switch kept[0] {
	case "address":
		base = "address"
	case "contract", "interface":
		base = "address"
	case "enum":
		base = "uint8"
	case "struct":
		// real ABI spells the member tuple; solc's functionSelector covers it
		base = strings.Join(kept[1:], "")
	case "function":
		base = "function"
	default:
		base = strings.Join(kept, "")
	}
	return base + suffix
}

// Signature renders name(type,...) with canonical ABI types.
func Signature(name string, params []Param) string {
	types := make([]string, len(params))
	for i, p := range params {
		types[i] = CanonicalType(p.Type)
	}
	return name + "(" + strings.Join(types, ",") + ")"
}

// Selector is the 0x-prefixed first four bytes of keccak256(signature).
func Selector(signature string) string {
	return hexutil.Encode(crypto.Keccak256([]byte(signature))[:4])
}

// NormalizeSelector lower-cases and 0x-prefixes a selector literal.
func NormalizeSelector(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if !strings.HasPrefix(s, "0x") {
		s = "0x" + s
	}
	return s
}
