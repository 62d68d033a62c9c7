package vault

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// NativeAsset is the sentinel asset identifier representing the chain's
// built-in value unit.
var NativeAsset = common.HexToAddress("0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE")

// CanonicalDecimals is the fixed fractional precision of the ledger's
// accounting unit. All balances and the deposit cap are expressed in it.
const CanonicalDecimals uint8 = 6

// NativeDecimals is the fractional precision of the native currency.
const NativeDecimals uint8 = 18

// AssetEntry records whether an asset is accepted and which oracle, if any,
// prices it on the legacy valuation path.
type AssetEntry struct {
	// Oracle is the price feed reference for the legacy valuation path. The
	// zero address means the asset has no oracle and cannot be priced that
	// way.
	Oracle  common.Address
	Enabled bool
}

// Global aggregates the vault-wide counters: the total recorded canonical
// value across all buckets and the number of completed operations.
type Global struct {
	Total         *big.Int
	DepositCount  uint64
	WithdrawCount uint64
}

// Clone returns a deep copy of the counters.
func (g Global) Clone() Global {
	clone := Global{DepositCount: g.DepositCount, WithdrawCount: g.WithdrawCount}
	if g.Total != nil {
		clone.Total = new(big.Int).Set(g.Total)
	} else {
		clone.Total = big.NewInt(0)
	}
	return clone
}

// Operation kinds recorded in the journal and emitted with events.
const (
	OpDepositNative        = "deposit.native"
	OpDepositToken         = "deposit.token"
	OpDepositNativeRouted  = "deposit.native.routed"
	OpDepositTokenRouted   = "deposit.token.routed"
	OpDepositReference     = "deposit.reference"
	OpWithdrawNative       = "withdraw.native"
	OpWithdrawToken        = "withdraw.token"
	OpWithdrawNativeRouted = "withdraw.native.routed"
)

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
