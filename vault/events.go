package vault

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

const (
	// EventTypeDeposit is emitted whenever a deposit commits.
	EventTypeDeposit = "vault.deposit"
	// EventTypeWithdraw is emitted whenever a withdrawal commits.
	EventTypeWithdraw = "vault.withdraw"
	// EventTypeAssetUpdated is emitted when an administrator mutates an
	// asset entry.
	EventTypeAssetUpdated = "vault.asset_updated"
	// EventTypeRouterUpdated is emitted when the router changes.
	EventTypeRouterUpdated = "vault.router_updated"
	// EventTypeReferenceUpdated is emitted when the reference asset changes.
	EventTypeReferenceUpdated = "vault.reference_updated"
)

// DepositRecorded carries the committed outcome of a deposit operation.
type DepositRecorded struct {
	Kind        string
	Account     common.Address
	Asset       common.Address
	Amount      *big.Int
	Value       *big.Int
	OperationID string
}

func (DepositRecorded) EventType() string { return EventTypeDeposit }

// Attributes renders the event payload as string attributes.
func (e DepositRecorded) Attributes() map[string]string {
	return map[string]string{
		"kind":    e.Kind,
		"account": e.Account.Hex(),
		"asset":   e.Asset.Hex(),
		"amount":  cloneBigInt(e.Amount).String(),
		"value":   cloneBigInt(e.Value).String(),
		"opId":    e.OperationID,
	}
}

// WithdrawRecorded carries the committed outcome of a withdrawal operation.
type WithdrawRecorded struct {
	Kind        string
	Account     common.Address
	Asset       common.Address
	Amount      *big.Int
	Value       *big.Int
	OperationID string
}

func (WithdrawRecorded) EventType() string { return EventTypeWithdraw }

// Attributes renders the event payload as string attributes.
func (e WithdrawRecorded) Attributes() map[string]string {
	return map[string]string{
		"kind":    e.Kind,
		"account": e.Account.Hex(),
		"asset":   e.Asset.Hex(),
		"amount":  cloneBigInt(e.Amount).String(),
		"value":   cloneBigInt(e.Value).String(),
		"opId":    e.OperationID,
	}
}

// AssetUpdated captures an administrator mutation of an asset entry with
// before/after values. A previously unregistered asset reads as a zero
// oracle, disabled.
type AssetUpdated struct {
	Asset           common.Address
	PreviousOracle  common.Address
	PreviousEnabled bool
	Oracle          common.Address
	Enabled         bool
}

func (AssetUpdated) EventType() string { return EventTypeAssetUpdated }

// RouterUpdated captures a router change with before/after values.
type RouterUpdated struct {
	Previous      common.Address
	Current       common.Address
	WrappedNative common.Address
}

func (RouterUpdated) EventType() string { return EventTypeRouterUpdated }

// ReferenceUpdated captures a reference asset change with before/after values.
type ReferenceUpdated struct {
	Previous common.Address
	Current  common.Address
}

func (ReferenceUpdated) EventType() string { return EventTypeReferenceUpdated }
