package vault

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// PriceOracle exposes the current price of one asset in canonical currency
// terms together with the fractional precision the price is quoted at.
type PriceOracle interface {
	LatestPrice() (*big.Int, error)
	Decimals() (uint8, error)
}

// OracleResolver maps an oracle reference address to a live price feed
// handle. The vault stores references only; the host process owns the feed
// connections.
type OracleResolver interface {
	Oracle(ref common.Address) (PriceOracle, error)
}

// oracleValue prices amount (expressed with assetDecimals fractional digits)
// in canonical units via the referenced feed. Price positivity and freshness
// are not validated: a zero price produces a zero quote, not an error.
func oracleValue(resolver OracleResolver, ref common.Address, amount *big.Int, assetDecimals uint8) (*big.Int, error) {
	if ref == (common.Address{}) {
		return nil, ErrMissingOracle
	}
	if resolver == nil {
		return nil, errNotConfigured
	}
	feed, err := resolver.Oracle(ref)
	if err != nil {
		return nil, fmt.Errorf("vault: resolve oracle %s: %w", ref.Hex(), err)
	}
	price, err := feed.LatestPrice()
	if err != nil {
		return nil, fmt.Errorf("vault: read oracle price: %w", err)
	}
	priceDecimals, err := feed.Decimals()
	if err != nil {
		return nil, fmt.Errorf("vault: read oracle precision: %w", err)
	}
	normalized, err := ToCanonical(amount, assetDecimals)
	if err != nil {
		return nil, err
	}
	value := new(big.Int).Mul(normalized, price)
	value.Quo(value, pow10(CanonicalDecimals))
	switch {
	case priceDecimals > CanonicalDecimals:
		value.Quo(value, pow10(priceDecimals-CanonicalDecimals))
	case priceDecimals < CanonicalDecimals:
		value.Mul(value, pow10(CanonicalDecimals-priceDecimals))
	}
	if err := checkUint256(value); err != nil {
		return nil, err
	}
	return value, nil
}
