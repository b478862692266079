package chains

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/params"
)

const etherDecimals = 18

// FormatEther renders wei as a decimal ether string with at least one
// fractional digit: 0 is "0.0", 1.5e18 is "1.5".
func FormatEther(wei *big.Int) string {
	if wei == nil {
		return "0.0"
	}
	unit := new(big.Int).SetUint64(params.Ether)
	abs := new(big.Int).Abs(wei)
	whole, frac := new(big.Int).QuoRem(abs, unit, new(big.Int))

	digits := frac.String()
	digits = strings.Repeat("0", etherDecimals-len(digits)) + digits
	digits = strings.TrimRight(digits, "0")
	if digits == "" {
		digits = "0"
	}

	var sb strings.Builder
	if wei.Sign() < 0 {
		sb.WriteByte('-')
	}
	sb.WriteString(whole.String())
	sb.WriteByte('.')
	sb.WriteString(digits)
	return sb.String()
}

// ParseEther is the inverse of FormatEther.
func ParseEther(s string) (*big.Int, bool) {
	r, ok := new(big.Rat).SetString(strings.TrimSpace(s))
	if !ok {
		return nil, false
	}
	r.Mul(r, new(big.Rat).SetInt(new(big.Int).SetUint64(params.Ether)))
	if !r.IsInt() {
		return nil, false
	}
	return new(big.Int).Set(r.Num()), true
}
