package vault

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Token is the fungible-asset capability the vault consumes when moving
// deposits and withdrawals.
type Token interface {
	Transfer(to common.Address, amount *big.Int) error
	TransferFrom(from, to common.Address, amount *big.Int) error
	Approve(spender common.Address, amount *big.Int) error
	BalanceOf(owner common.Address) (*big.Int, error)
	Decimals() (uint8, error)
}

// TokenResolver maps an asset identifier to its token handle.
type TokenResolver interface {
	Token(asset common.Address) (Token, error)
}

// NativeBank moves native currency into and out of the vault's custody.
type NativeBank interface {
	Collect(from common.Address, amount *big.Int) error
	Release(to common.Address, amount *big.Int) error
}
