package statement

import (
	"strings"

	"github.com/shopspring/decimal"
)

var amountNoise = strings.NewReplacer("R$", "", " ", "", " ", "")

// parseAmount parses a statement amount. With decimalComma the input looks
// like "-1.234,56"; otherwise like "-1,234.56" or "-1234.56".
func parseAmount(s string, decimalComma bool) (decimal.Decimal, error) {
	clean := amountNoise.Replace(s)

	if decimalComma {
		clean = strings.ReplaceAll(clean, ".", "")
		clean = strings.ReplaceAll(clean, ",", ".")
	} else {
		clean = strings.ReplaceAll(clean, ",", "")
	}

	return decimal.NewFromString(clean)
}
