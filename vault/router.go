package vault

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Router is the external conversion capability: it quotes and executes
// two-hop swaps between assets. Amount vectors mirror the supplied path, one
// entry per hop.
type Router interface {
	Address() common.Address
	WrappedNative() (common.Address, error)
	AmountsOut(amountIn *big.Int, path []common.Address) ([]*big.Int, error)
	AmountsIn(amountOut *big.Int, path []common.Address) ([]*big.Int, error)
	SwapExactTokensForTokens(amountIn, minOut *big.Int, path []common.Address, to common.Address) ([]*big.Int, error)
	SwapTokensForExactTokens(amountOut, maxIn *big.Int, path []common.Address, to common.Address) ([]*big.Int, error)
	SwapExactNativeForTokens(amountIn, minOut *big.Int, path []common.Address, to common.Address) ([]*big.Int, error)
	SwapTokensForExactNative(amountOut, maxIn *big.Int, path []common.Address, to common.Address) ([]*big.Int, error)
}

// StaticRouter returns a Router that carries only an address. Quotes and
// swaps are unavailable; it serves offline contexts, such as inspection
// tooling, where only the recorded address matters.
func StaticRouter(addr common.Address) Router {
	return staticRouter{addr: addr}
}

type staticRouter struct {
	addr common.Address
}

func (r staticRouter) Address() common.Address { return r.addr }

func (r staticRouter) WrappedNative() (common.Address, error) { return common.Address{}, nil }

func (r staticRouter) AmountsOut(*big.Int, []common.Address) ([]*big.Int, error) {
	return nil, errNotConfigured
}

func (r staticRouter) AmountsIn(*big.Int, []common.Address) ([]*big.Int, error) {
	return nil, errNotConfigured
}

func (r staticRouter) SwapExactTokensForTokens(_, _ *big.Int, _ []common.Address, _ common.Address) ([]*big.Int, error) {
	return nil, errNotConfigured
}

func (r staticRouter) SwapTokensForExactTokens(_, _ *big.Int, _ []common.Address, _ common.Address) ([]*big.Int, error) {
	return nil, errNotConfigured
}

func (r staticRouter) SwapExactNativeForTokens(_, _ *big.Int, _ []common.Address, _ common.Address) ([]*big.Int, error) {
	return nil, errNotConfigured
}

func (r staticRouter) SwapTokensForExactNative(_, _ *big.Int, _ []common.Address, _ common.Address) ([]*big.Int, error) {
	return nil, errNotConfigured
}

// conversionPath builds the strict two-hop path from source to destination.
// Anything that does not resolve to exactly two distinct non-zero hops has no
// direct path.
func conversionPath(src, dst common.Address) ([]common.Address, error) {
	if src == (common.Address{}) || dst == (common.Address{}) || src == dst {
		return nil, ErrNoDirectPath
	}
	return []common.Address{src, dst}, nil
}

// quoteOut asks the router how much of dst an exact src input would produce.
// The quote is the last element of the router's amount vector.
func quoteOut(r Router, amountIn *big.Int, src, dst common.Address) (*big.Int, error) {
	if r == nil {
		return nil, errNotConfigured
	}
	path, err := conversionPath(src, dst)
	if err != nil {
		return nil, err
	}
	amounts, err := r.AmountsOut(amountIn, path)
	if err != nil {
		return nil, fmt.Errorf("vault: router quote: %w", err)
	}
	if len(amounts) != len(path) {
		return nil, ErrNoDirectPath
	}
	return cloneBigInt(amounts[len(amounts)-1]), nil
}

// quoteIn asks the router how much src input an exact dst output requires.
// The quote is the first element of the router's amount vector.
func quoteIn(r Router, amountOut *big.Int, src, dst common.Address) (*big.Int, error) {
	if r == nil {
		return nil, errNotConfigured
	}
	path, err := conversionPath(src, dst)
	if err != nil {
		return nil, err
	}
	amounts, err := r.AmountsIn(amountOut, path)
	if err != nil {
		return nil, fmt.Errorf("vault: router quote: %w", err)
	}
	if len(amounts) != len(path) {
		return nil, ErrNoDirectPath
	}
	return cloneBigInt(amounts[0]), nil
}

// resetAllowance grants the spender an exact allowance, zeroing it first to
// tolerate tokens that reject non-zero to non-zero approval changes.
func resetAllowance(tok Token, spender common.Address, amount *big.Int) error {
	if err := tok.Approve(spender, big.NewInt(0)); err != nil {
		return fmt.Errorf("vault: reset allowance: %w", err)
	}
	if err := tok.Approve(spender, amount); err != nil {
		return fmt.Errorf("vault: set allowance: %w", err)
	}
	return nil
}

// settledOutput extracts the delivered amount from a swap result vector.
func settledOutput(amounts []*big.Int) *big.Int {
	if len(amounts) == 0 {
		return big.NewInt(0)
	}
	return cloneBigInt(amounts[len(amounts)-1])
}
