package vault

import (
	"fmt"
	"math/big"
	"strings"
)

// Params carries the immutable construction parameters of a vault: the global
// deposit cap in canonical units and the per-operation ceiling on native
// currency withdrawals in native units.
type Params struct {
	Cap                   *big.Int
	NativeWithdrawCeiling *big.Int
}

// Validate verifies both limits are present and positive.
func (p Params) Validate() error {
	if p.Cap == nil || p.Cap.Sign() <= 0 {
		return fmt.Errorf("vault: deposit cap must be positive")
	}
	if p.NativeWithdrawCeiling == nil || p.NativeWithdrawCeiling.Sign() <= 0 {
		return fmt.Errorf("vault: native withdrawal ceiling must be positive")
	}
	return nil
}

// Clone returns a deep copy of the parameters.
func (p Params) Clone() Params {
	clone := Params{}
	if p.Cap != nil {
		clone.Cap = new(big.Int).Set(p.Cap)
	}
	if p.NativeWithdrawCeiling != nil {
		clone.NativeWithdrawCeiling = new(big.Int).Set(p.NativeWithdrawCeiling)
	}
	return clone
}

// ParseAmount converts a decimal string into a big integer amount. Empty
// strings resolve to zero.
func ParseAmount(raw string) (*big.Int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return big.NewInt(0), nil
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("vault: invalid amount %q", raw)
	}
	if amount.Sign() < 0 {
		return nil, fmt.Errorf("vault: amount %q must not be negative", raw)
	}
	return amount, nil
}
