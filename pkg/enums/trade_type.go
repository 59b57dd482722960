package enums

import "fmt"

// TradeType is the direction of a trade from the company's perspective.
type TradeType string

const (
	TradeTypeImport TradeType = "import"
	TradeTypeExport TradeType = "export"
)

var validTradeTypes = []TradeType{
	TradeTypeImport,
	TradeTypeExport,
}

// String implements fmt.Stringer.
func (t TradeType) String() string {
	return string(t)
}

// IsValid reports whether the value is a known TradeType.
func (t TradeType) IsValid() bool {
	for _, candidate := range validTradeTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseTradeType converts raw input into a TradeType.
func ParseTradeType(value string) (TradeType, error) {
	for _, candidate := range validTradeTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid trade type %q", value)
}
