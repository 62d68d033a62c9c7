package vault

import (
	"math/big"

	"github.com/holiman/uint256"
)

var big10 = big.NewInt(10)

func pow10(exp uint8) *big.Int {
	return new(big.Int).Exp(big10, big.NewInt(int64(exp)), nil)
}

// ToCanonical converts an amount expressed with sourceDecimals fractional
// digits into the canonical accounting precision. Narrowing floor-divides and
// truncates the remainder; widening multiplies exactly. The result must fit
// 256 bits, otherwise ErrAmountOverflow is returned.
func ToCanonical(amount *big.Int, sourceDecimals uint8) (*big.Int, error) {
	if amount == nil || amount.Sign() == 0 {
		return big.NewInt(0), nil
	}
	if amount.Sign() < 0 {
		return nil, ErrInvalidAmount
	}
	var converted *big.Int
	switch {
	case sourceDecimals == CanonicalDecimals:
		converted = new(big.Int).Set(amount)
	case sourceDecimals > CanonicalDecimals:
		converted = new(big.Int).Quo(amount, pow10(sourceDecimals-CanonicalDecimals))
	default:
		converted = new(big.Int).Mul(amount, pow10(CanonicalDecimals-sourceDecimals))
	}
	if err := checkUint256(converted); err != nil {
		return nil, err
	}
	return converted, nil
}

// checkUint256 rejects values outside the 256-bit unsigned range instead of
// letting them wrap in downstream fixed-width consumers.
func checkUint256(v *big.Int) error {
	if v == nil || v.Sign() < 0 {
		return ErrInvalidAmount
	}
	if _, overflow := uint256.FromBig(v); overflow {
		return ErrAmountOverflow
	}
	return nil
}
