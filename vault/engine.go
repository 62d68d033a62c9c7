package vault

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"

	"vaultbank/events"
)

var (
	ErrInvalidAmount        = errors.New("vault: amount must be positive")
	ErrAmountOverflow       = errors.New("vault: amount exceeds 256-bit range")
	ErrUnauthorized         = errors.New("vault: caller is not the administrator")
	ErrZeroAddress          = errors.New("vault: zero address")
	ErrAssetNotSupported    = errors.New("vault: asset not registered")
	ErrAssetDisabled        = errors.New("vault: asset disabled")
	ErrMissingOracle        = errors.New("vault: no oracle configured for asset")
	ErrCapExceeded          = errors.New("vault: deposit cap exceeded")
	ErrWithdrawCeiling      = errors.New("vault: native withdrawal ceiling exceeded")
	ErrInsufficientBalance  = errors.New("vault: insufficient balance")
	ErrZeroQuote            = errors.New("vault: router returned zero quote")
	ErrSlippage             = errors.New("vault: slippage bounds exceeded")
	ErrNoDirectPath         = errors.New("vault: no direct conversion path")
	ErrReferenceAssetRouted = errors.New("vault: reference asset must use the direct deposit")
	ErrSwapUnderDelivered   = errors.New("vault: swap under-delivered")
	ErrDirectTransfer       = errors.New("vault: unsolicited transfers rejected")
	ErrReentrancy           = errors.New("vault: reentrant call")

	errNotConfigured = errors.New("vault: collaborator not configured")
)

// Vault is the custodial ledger engine. It accepts deposits of the native
// currency and registered fungible tokens, records their value in canonical
// units, and lets depositors withdraw against their recorded balance. Value
// is established either through a per-asset price oracle or by executing a
// conversion through the configured router.
//
// Every state-changing operation runs under a single-flight guard and follows
// an explicit checks, effects, interactions ordering: withdrawals commit
// their debits before value leaves custody, deposits pull value in before
// crediting.
type Vault struct {
	guard reentrancyGuard

	admin   common.Address
	custody common.Address
	params  Params

	registry      *registry
	router        Router
	wrappedNative common.Address
	reference     common.Address

	oracles OracleResolver
	tokens  TokenResolver
	native  NativeBank

	balances map[common.Address]map[common.Address]*big.Int
	global   Global

	store   *StateStore
	journal *Journal
	emitter events.Emitter
}

// New constructs a vault with the immutable limits and the initial mutable
// configuration. The native currency and the reference asset are registered
// enabled, the wrapped-native address is derived from the router, and the
// supplied admin holds the administrator capability.
func New(admin, custody common.Address, params Params, nativeOracle common.Address, router Router, reference common.Address) (*Vault, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if admin == (common.Address{}) || custody == (common.Address{}) {
		return nil, ErrZeroAddress
	}
	if router == nil || router.Address() == (common.Address{}) {
		return nil, ErrZeroAddress
	}
	if reference == (common.Address{}) {
		return nil, ErrZeroAddress
	}
	wrapped, err := router.WrappedNative()
	if err != nil {
		return nil, fmt.Errorf("vault: derive wrapped native: %w", err)
	}
	v := &Vault{
		admin:         admin,
		custody:       custody,
		params:        params.Clone(),
		registry:      newRegistry(),
		router:        router,
		wrappedNative: wrapped,
		reference:     reference,
		balances:      make(map[common.Address]map[common.Address]*big.Int),
		global:        Global{Total: big.NewInt(0)},
		emitter:       events.NoopEmitter{},
	}
	v.registry.set(NativeAsset, AssetEntry{Oracle: nativeOracle, Enabled: true})
	v.registry.set(reference, AssetEntry{Enabled: true})
	return v, nil
}

// SetOracleResolver wires the price feed resolver used on the legacy
// valuation path.
func (v *Vault) SetOracleResolver(resolver OracleResolver) { v.oracles = resolver }

// SetTokenResolver wires the fungible asset resolver.
func (v *Vault) SetTokenResolver(resolver TokenResolver) { v.tokens = resolver }

// SetNativeBank wires the native currency custody collaborator.
func (v *Vault) SetNativeBank(bank NativeBank) { v.native = bank }

// SetJournal wires the operation journal. Passing nil disables journaling.
func (v *Vault) SetJournal(journal *Journal) { v.journal = journal }

// SetEmitter configures the event emitter. Passing nil resets it to a no-op
// implementation.
func (v *Vault) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		v.emitter = events.NoopEmitter{}
		return
	}
	v.emitter = emitter
}

// SetStore wires the persistence backend without restoring prior state.
func (v *Vault) SetStore(store *StateStore) { v.store = store }

// LoadState wires the persistence backend and, when a snapshot exists,
// replaces the vault's recorded state with it. Collaborator handles are not
// restored; the host wires those separately.
func (v *Vault) LoadState(store *StateStore) error {
	if store == nil {
		return errNotConfigured
	}
	state, ok, err := store.load()
	if err != nil {
		return err
	}
	v.store = store
	if !ok {
		return nil
	}
	reg := newRegistry()
	for _, entry := range state.Assets {
		reg.set(entry.Asset, AssetEntry{Oracle: entry.Oracle, Enabled: entry.Enabled})
	}
	balances := make(map[common.Address]map[common.Address]*big.Int)
	for _, bal := range state.Balances {
		bucket := balances[bal.Asset]
		if bucket == nil {
			bucket = make(map[common.Address]*big.Int)
			balances[bal.Asset] = bucket
		}
		bucket[bal.Account] = cloneBigInt(bal.Amount)
	}
	v.registry = reg
	v.balances = balances
	v.global = Global{
		Total:         cloneBigInt(state.Total),
		DepositCount:  state.DepositCount,
		WithdrawCount: state.WithdrawCount,
	}
	v.reference = state.Reference
	v.wrappedNative = state.WrappedNative
	return nil
}

// --- administrator operations ---

// SetAsset registers or updates an asset's oracle reference and enabled flag.
func (v *Vault) SetAsset(caller, asset, oracleRef common.Address, enabled bool) error {
	if err := v.guard.enter(); err != nil {
		return err
	}
	defer v.guard.exit()
	if err := v.requireAdmin(caller); err != nil {
		return err
	}
	previous, existed := v.registry.entry(asset)
	v.registry.set(asset, AssetEntry{Oracle: oracleRef, Enabled: enabled})
	if err := v.persist(); err != nil {
		if existed {
			v.registry.set(asset, previous)
		} else {
			v.registry.remove(asset)
		}
		return err
	}
	v.emit(AssetUpdated{
		Asset:           asset,
		PreviousOracle:  previous.Oracle,
		PreviousEnabled: previous.Enabled,
		Oracle:          oracleRef,
		Enabled:         enabled,
	})
	return nil
}

// SetRouter replaces the conversion router and re-derives the wrapped-native
// address from it. The router is not validated beyond a non-zero address; a
// degenerate wrapped-native value is accepted and will surface on later
// conversions.
func (v *Vault) SetRouter(caller common.Address, router Router) error {
	if err := v.guard.enter(); err != nil {
		return err
	}
	defer v.guard.exit()
	if err := v.requireAdmin(caller); err != nil {
		return err
	}
	if router == nil || router.Address() == (common.Address{}) {
		return ErrZeroAddress
	}
	wrapped, err := router.WrappedNative()
	if err != nil {
		return fmt.Errorf("vault: derive wrapped native: %w", err)
	}
	previous := common.Address{}
	if v.router != nil {
		previous = v.router.Address()
	}
	priorRouter := v.router
	priorWrapped := v.wrappedNative
	v.router = router
	v.wrappedNative = wrapped
	if err := v.persist(); err != nil {
		v.router = priorRouter
		v.wrappedNative = priorWrapped
		return err
	}
	v.emit(RouterUpdated{Previous: previous, Current: router.Address(), WrappedNative: wrapped})
	return nil
}

// SetReferenceAsset replaces the reference asset, marking the new asset
// enabled as a side effect.
func (v *Vault) SetReferenceAsset(caller, asset common.Address) error {
	if err := v.guard.enter(); err != nil {
		return err
	}
	defer v.guard.exit()
	if err := v.requireAdmin(caller); err != nil {
		return err
	}
	if asset == (common.Address{}) {
		return ErrZeroAddress
	}
	previous := v.reference
	priorEntry, existed := v.registry.entry(asset)
	v.reference = asset
	v.registry.enable(asset)
	if err := v.persist(); err != nil {
		v.reference = previous
		if existed {
			v.registry.set(asset, priorEntry)
		} else {
			v.registry.remove(asset)
		}
		return err
	}
	v.emit(ReferenceUpdated{Previous: previous, Current: asset})
	return nil
}

// --- legacy oracle-priced operations ---

// DepositNative credits the caller with the oracle value of the supplied
// native amount. The full quoted value must fit under the cap; there is no
// partial credit on this path.
func (v *Vault) DepositNative(caller common.Address, amount *big.Int) (*big.Int, error) {
	if err := v.guard.enter(); err != nil {
		return nil, err
	}
	defer v.guard.exit()
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	entry, err := v.enabledAsset(NativeAsset)
	if err != nil {
		return nil, err
	}
	value, err := oracleValue(v.oracles, entry.Oracle, amount, NativeDecimals)
	if err != nil {
		return nil, err
	}
	if err := v.checkCap(value); err != nil {
		return nil, err
	}
	if v.native == nil {
		return nil, errNotConfigured
	}
	if err := v.native.Collect(caller, amount); err != nil {
		return nil, fmt.Errorf("vault: collect native: %w", err)
	}
	v.credit(NativeAsset, caller, value)
	v.global.DepositCount++
	v.commitDeposit(OpDepositNative, caller, NativeAsset, amount, value)
	return cloneBigInt(value), nil
}

// DepositToken pulls the supplied token amount into custody and credits the
// caller with its oracle value.
func (v *Vault) DepositToken(caller, asset common.Address, amount *big.Int) (*big.Int, error) {
	if err := v.guard.enter(); err != nil {
		return nil, err
	}
	defer v.guard.exit()
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	if asset == NativeAsset {
		return nil, ErrAssetNotSupported
	}
	entry, err := v.enabledAsset(asset)
	if err != nil {
		return nil, err
	}
	tok, err := v.token(asset)
	if err != nil {
		return nil, err
	}
	decimals, err := tok.Decimals()
	if err != nil {
		return nil, fmt.Errorf("vault: read token precision: %w", err)
	}
	value, err := oracleValue(v.oracles, entry.Oracle, amount, decimals)
	if err != nil {
		return nil, err
	}
	if err := v.checkCap(value); err != nil {
		return nil, err
	}
	if err := tok.TransferFrom(caller, v.custody, amount); err != nil {
		return nil, fmt.Errorf("vault: transfer in: %w", err)
	}
	v.credit(asset, caller, value)
	v.global.DepositCount++
	v.commitDeposit(OpDepositToken, caller, asset, amount, value)
	return cloneBigInt(value), nil
}

// WithdrawNative debits the oracle value of the requested native amount and
// releases that amount from custody. The debit commits before value leaves
// the vault.
func (v *Vault) WithdrawNative(caller common.Address, amount *big.Int) (*big.Int, error) {
	if err := v.guard.enter(); err != nil {
		return nil, err
	}
	defer v.guard.exit()
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	entry, err := v.enabledAsset(NativeAsset)
	if err != nil {
		return nil, err
	}
	if amount.Cmp(v.params.NativeWithdrawCeiling) > 0 {
		return nil, ErrWithdrawCeiling
	}
	value, err := oracleValue(v.oracles, entry.Oracle, amount, NativeDecimals)
	if err != nil {
		return nil, err
	}
	if v.balance(NativeAsset, caller).Cmp(value) < 0 {
		return nil, ErrInsufficientBalance
	}
	if v.native == nil {
		return nil, errNotConfigured
	}
	v.debit(NativeAsset, caller, value)
	v.global.WithdrawCount++
	if err := v.native.Release(caller, amount); err != nil {
		v.credit(NativeAsset, caller, value)
		v.global.WithdrawCount--
		return nil, fmt.Errorf("vault: release native: %w", err)
	}
	v.commitWithdraw(OpWithdrawNative, caller, NativeAsset, amount, value)
	return cloneBigInt(value), nil
}

// WithdrawToken debits the oracle value of the requested token amount and
// transfers the tokens out of custody.
func (v *Vault) WithdrawToken(caller, asset common.Address, amount *big.Int) (*big.Int, error) {
	if err := v.guard.enter(); err != nil {
		return nil, err
	}
	defer v.guard.exit()
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	if asset == NativeAsset {
		return nil, ErrAssetNotSupported
	}
	entry, err := v.enabledAsset(asset)
	if err != nil {
		return nil, err
	}
	tok, err := v.token(asset)
	if err != nil {
		return nil, err
	}
	decimals, err := tok.Decimals()
	if err != nil {
		return nil, fmt.Errorf("vault: read token precision: %w", err)
	}
	value, err := oracleValue(v.oracles, entry.Oracle, amount, decimals)
	if err != nil {
		return nil, err
	}
	if v.balance(asset, caller).Cmp(value) < 0 {
		return nil, ErrInsufficientBalance
	}
	v.debit(asset, caller, value)
	v.global.WithdrawCount++
	if err := tok.Transfer(caller, amount); err != nil {
		v.credit(asset, caller, value)
		v.global.WithdrawCount--
		return nil, fmt.Errorf("vault: transfer out: %w", err)
	}
	v.commitWithdraw(OpWithdrawToken, caller, asset, amount, value)
	return cloneBigInt(value), nil
}

// --- router-priced operations ---

// DepositNativeRouted converts the supplied native amount into the reference
// asset through the router and credits the result under the reference-asset
// bucket. When the router delivers more than the remaining cap headroom, the
// credited amount is clipped to the headroom; the excess is not credited to
// any bucket.
func (v *Vault) DepositNativeRouted(caller common.Address, amount, minOut *big.Int) (*big.Int, error) {
	if err := v.guard.enter(); err != nil {
		return nil, err
	}
	defer v.guard.exit()
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	if _, err := v.enabledAsset(NativeAsset); err != nil {
		return nil, err
	}
	if _, err := v.enabledAsset(v.reference); err != nil {
		return nil, err
	}
	expected, err := quoteOut(v.router, amount, v.wrappedNative, v.reference)
	if err != nil {
		return nil, err
	}
	if expected.Sign() == 0 {
		return nil, ErrZeroQuote
	}
	floor := cloneBigInt(minOut)
	if expected.Cmp(floor) < 0 {
		return nil, ErrSlippage
	}
	headroom := v.headroom()
	if headroom.Sign() <= 0 {
		return nil, ErrCapExceeded
	}
	if v.native == nil {
		return nil, errNotConfigured
	}
	path, err := conversionPath(v.wrappedNative, v.reference)
	if err != nil {
		return nil, err
	}
	if err := v.native.Collect(caller, amount); err != nil {
		return nil, fmt.Errorf("vault: collect native: %w", err)
	}
	amounts, err := v.router.SwapExactNativeForTokens(amount, floor, path, v.custody)
	if err != nil {
		if restoreErr := v.native.Release(caller, amount); restoreErr != nil {
			return nil, fmt.Errorf("vault: router swap: %w (native restore failed: %v)", err, restoreErr)
		}
		return nil, fmt.Errorf("vault: router swap: %w", err)
	}
	credited := settledOutput(amounts)
	if credited.Cmp(headroom) > 0 {
		credited = cloneBigInt(headroom)
	}
	v.credit(v.reference, caller, credited)
	v.global.DepositCount++
	v.commitDeposit(OpDepositNativeRouted, caller, NativeAsset, amount, credited)
	return cloneBigInt(credited), nil
}

// DepositTokenRouted converts the supplied token amount into the reference
// asset through the router and credits the result under the reference-asset
// bucket, clipped to the remaining cap headroom. The reference asset itself
// must use DepositReference instead.
func (v *Vault) DepositTokenRouted(caller, asset common.Address, amount, minOut *big.Int) (*big.Int, error) {
	if err := v.guard.enter(); err != nil {
		return nil, err
	}
	defer v.guard.exit()
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	if asset == v.reference {
		return nil, ErrReferenceAssetRouted
	}
	if asset == NativeAsset {
		return nil, ErrAssetNotSupported
	}
	if _, err := v.enabledAsset(asset); err != nil {
		return nil, err
	}
	if _, err := v.enabledAsset(v.reference); err != nil {
		return nil, err
	}
	expected, err := quoteOut(v.router, amount, asset, v.reference)
	if err != nil {
		return nil, err
	}
	if expected.Sign() == 0 {
		return nil, ErrZeroQuote
	}
	floor := cloneBigInt(minOut)
	if expected.Cmp(floor) < 0 {
		return nil, ErrSlippage
	}
	headroom := v.headroom()
	if headroom.Sign() <= 0 {
		return nil, ErrCapExceeded
	}
	tok, err := v.token(asset)
	if err != nil {
		return nil, err
	}
	path, err := conversionPath(asset, v.reference)
	if err != nil {
		return nil, err
	}
	if err := tok.TransferFrom(caller, v.custody, amount); err != nil {
		return nil, fmt.Errorf("vault: transfer in: %w", err)
	}
	if err := resetAllowance(tok, v.router.Address(), amount); err != nil {
		if restoreErr := tok.Transfer(caller, amount); restoreErr != nil {
			return nil, fmt.Errorf("%w (token restore failed: %v)", err, restoreErr)
		}
		return nil, err
	}
	amounts, err := v.router.SwapExactTokensForTokens(amount, floor, path, v.custody)
	if err != nil {
		err = fmt.Errorf("vault: router swap: %w", err)
		if clearErr := tok.Approve(v.router.Address(), big.NewInt(0)); clearErr != nil {
			err = fmt.Errorf("%w (allowance clear failed: %v)", err, clearErr)
		}
		if restoreErr := tok.Transfer(caller, amount); restoreErr != nil {
			err = fmt.Errorf("%w (token restore failed: %v)", err, restoreErr)
		}
		return nil, err
	}
	credited := settledOutput(amounts)
	if credited.Cmp(headroom) > 0 {
		credited = cloneBigInt(headroom)
	}
	v.credit(v.reference, caller, credited)
	v.global.DepositCount++
	v.commitDeposit(OpDepositTokenRouted, caller, asset, amount, credited)
	return cloneBigInt(credited), nil
}

// WithdrawNativeRouted converts reference-asset balance back into the exact
// requested native amount through the router. The required input is debited
// from the caller's reference bucket before the swap executes; if the router
// fails or under-delivers, the debit is unwound and the operation fails.
func (v *Vault) WithdrawNativeRouted(caller common.Address, amount, maxSpend *big.Int) (*big.Int, error) {
	if err := v.guard.enter(); err != nil {
		return nil, err
	}
	defer v.guard.exit()
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	if _, err := v.enabledAsset(NativeAsset); err != nil {
		return nil, err
	}
	if _, err := v.enabledAsset(v.reference); err != nil {
		return nil, err
	}
	if amount.Cmp(v.params.NativeWithdrawCeiling) > 0 {
		return nil, ErrWithdrawCeiling
	}
	required, err := quoteIn(v.router, amount, v.reference, v.wrappedNative)
	if err != nil {
		return nil, err
	}
	if required.Sign() == 0 {
		return nil, ErrZeroQuote
	}
	if maxSpend != nil && required.Cmp(maxSpend) > 0 {
		return nil, ErrSlippage
	}
	if v.balance(v.reference, caller).Cmp(required) < 0 {
		return nil, ErrInsufficientBalance
	}
	tok, err := v.token(v.reference)
	if err != nil {
		return nil, err
	}
	path, err := conversionPath(v.reference, v.wrappedNative)
	if err != nil {
		return nil, err
	}
	v.debit(v.reference, caller, required)
	v.global.WithdrawCount++
	unwind := func() {
		v.credit(v.reference, caller, required)
		v.global.WithdrawCount--
	}
	if err := resetAllowance(tok, v.router.Address(), required); err != nil {
		unwind()
		return nil, err
	}
	amounts, err := v.router.SwapTokensForExactNative(amount, required, path, caller)
	if err != nil {
		unwind()
		err = fmt.Errorf("vault: router swap: %w", err)
		if clearErr := tok.Approve(v.router.Address(), big.NewInt(0)); clearErr != nil {
			err = fmt.Errorf("%w (allowance clear failed: %v)", err, clearErr)
		}
		return nil, err
	}
	if settledOutput(amounts).Cmp(amount) < 0 {
		unwind()
		if clearErr := tok.Approve(v.router.Address(), big.NewInt(0)); clearErr != nil {
			return nil, fmt.Errorf("%w (allowance clear failed: %v)", ErrSwapUnderDelivered, clearErr)
		}
		return nil, ErrSwapUnderDelivered
	}
	v.commitWithdraw(OpWithdrawNativeRouted, caller, NativeAsset, amount, required)
	return cloneBigInt(required), nil
}

// --- direct reference-asset deposit ---

// DepositReference credits the caller one canonical unit per reference-asset
// unit deposited, with no pricing source involved.
func (v *Vault) DepositReference(caller common.Address, amount *big.Int) (*big.Int, error) {
	if err := v.guard.enter(); err != nil {
		return nil, err
	}
	defer v.guard.exit()
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	if _, err := v.enabledAsset(v.reference); err != nil {
		return nil, err
	}
	if err := checkUint256(amount); err != nil {
		return nil, err
	}
	if err := v.checkCap(amount); err != nil {
		return nil, err
	}
	tok, err := v.token(v.reference)
	if err != nil {
		return nil, err
	}
	if err := tok.TransferFrom(caller, v.custody, amount); err != nil {
		return nil, fmt.Errorf("vault: transfer in: %w", err)
	}
	v.credit(v.reference, caller, amount)
	v.global.DepositCount++
	v.commitDeposit(OpDepositReference, caller, v.reference, amount, amount)
	return cloneBigInt(amount), nil
}

// Receive rejects any unsolicited inbound value transfer that does not target
// a deposit operation.
func (v *Vault) Receive(common.Address, *big.Int) error {
	return ErrDirectTransfer
}

// --- read operations ---

// BalanceOf returns the recorded canonical balance for the (asset, account)
// pair. Accounts that were never credited read as zero.
func (v *Vault) BalanceOf(asset, account common.Address) *big.Int {
	return cloneBigInt(v.balance(asset, account))
}

// Asset returns the registry entry for the supplied asset identifier.
func (v *Vault) Asset(asset common.Address) (AssetEntry, bool) {
	return v.registry.entry(asset)
}

// Reference returns the current reference asset.
func (v *Vault) Reference() common.Address { return v.reference }

// WrappedNative returns the wrapped-native address derived from the router.
func (v *Vault) WrappedNative() common.Address { return v.wrappedNative }

// RouterAddress returns the address of the configured router.
func (v *Vault) RouterAddress() common.Address {
	if v.router == nil {
		return common.Address{}
	}
	return v.router.Address()
}

// Totals returns a copy of the vault-wide counters.
func (v *Vault) Totals() Global { return v.global.Clone() }

// Headroom returns the remaining capacity available for crediting.
func (v *Vault) Headroom() *big.Int { return v.headroom() }

// PreviewNativeValue quotes the canonical value of a native amount on the
// legacy oracle path without mutating state.
func (v *Vault) PreviewNativeValue(amount *big.Int) (*big.Int, error) {
	entry, ok := v.registry.entry(NativeAsset)
	if !ok {
		return nil, ErrAssetNotSupported
	}
	return oracleValue(v.oracles, entry.Oracle, amount, NativeDecimals)
}

// PreviewTokenValue quotes the canonical value of a token amount on the
// legacy oracle path without mutating state.
func (v *Vault) PreviewTokenValue(asset common.Address, amount *big.Int) (*big.Int, error) {
	entry, ok := v.registry.entry(asset)
	if !ok {
		return nil, ErrAssetNotSupported
	}
	tok, err := v.token(asset)
	if err != nil {
		return nil, err
	}
	decimals, err := tok.Decimals()
	if err != nil {
		return nil, fmt.Errorf("vault: read token precision: %w", err)
	}
	return oracleValue(v.oracles, entry.Oracle, amount, decimals)
}

// PreviewNativeValueRouted quotes the reference-asset output for a native
// amount via the two-hop router path.
func (v *Vault) PreviewNativeValueRouted(amount *big.Int) (*big.Int, error) {
	return quoteOut(v.router, amount, v.wrappedNative, v.reference)
}

// PreviewTokenValueRouted quotes the reference-asset output for a token
// amount via the two-hop router path.
func (v *Vault) PreviewTokenValueRouted(asset common.Address, amount *big.Int) (*big.Int, error) {
	return quoteOut(v.router, amount, asset, v.reference)
}

// --- internals ---

func (v *Vault) requireAdmin(caller common.Address) error {
	if caller != v.admin {
		return ErrUnauthorized
	}
	return nil
}

func (v *Vault) enabledAsset(asset common.Address) (AssetEntry, error) {
	entry, ok := v.registry.entry(asset)
	if !ok {
		return AssetEntry{}, ErrAssetNotSupported
	}
	if !entry.Enabled {
		return AssetEntry{}, ErrAssetDisabled
	}
	return entry, nil
}

func (v *Vault) token(asset common.Address) (Token, error) {
	if v.tokens == nil {
		return nil, errNotConfigured
	}
	tok, err := v.tokens.Token(asset)
	if err != nil {
		return nil, fmt.Errorf("vault: resolve token %s: %w", asset.Hex(), err)
	}
	if tok == nil {
		return nil, ErrAssetNotSupported
	}
	return tok, nil
}

func (v *Vault) balance(asset, account common.Address) *big.Int {
	bucket := v.balances[asset]
	if bucket == nil {
		return big.NewInt(0)
	}
	if amount := bucket[account]; amount != nil {
		return amount
	}
	return big.NewInt(0)
}

func (v *Vault) credit(asset, account common.Address, value *big.Int) {
	bucket := v.balances[asset]
	if bucket == nil {
		bucket = make(map[common.Address]*big.Int)
		v.balances[asset] = bucket
	}
	bucket[account] = new(big.Int).Add(v.balance(asset, account), value)
	v.global.Total = new(big.Int).Add(v.global.Total, value)
}

func (v *Vault) debit(asset, account common.Address, value *big.Int) {
	bucket := v.balances[asset]
	if bucket == nil {
		bucket = make(map[common.Address]*big.Int)
		v.balances[asset] = bucket
	}
	bucket[account] = new(big.Int).Sub(v.balance(asset, account), value)
	v.global.Total = new(big.Int).Sub(v.global.Total, value)
}

func (v *Vault) checkCap(value *big.Int) error {
	projected := new(big.Int).Add(v.global.Total, value)
	if projected.Cmp(v.params.Cap) > 0 {
		return ErrCapExceeded
	}
	return nil
}

func (v *Vault) headroom() *big.Int {
	remaining := new(big.Int).Sub(v.params.Cap, v.global.Total)
	if remaining.Sign() < 0 {
		return big.NewInt(0)
	}
	return remaining
}

// commitDeposit and commitWithdraw run after the value movement has settled.
// Journal and snapshot writes must not fail an operation at that point: the
// caller's funds have moved, so reporting failure would invite a retry and a
// double movement. A missed snapshot is recovered by the next successful
// persist, which writes the full state.
func (v *Vault) commitDeposit(kind string, account, asset common.Address, amount, value *big.Int) {
	opID := v.record(kind, account, asset, amount, value)
	v.emit(DepositRecorded{
		Kind:        kind,
		Account:     account,
		Asset:       asset,
		Amount:      cloneBigInt(amount),
		Value:       cloneBigInt(value),
		OperationID: opID,
	})
}

func (v *Vault) commitWithdraw(kind string, account, asset common.Address, amount, value *big.Int) {
	opID := v.record(kind, account, asset, amount, value)
	v.emit(WithdrawRecorded{
		Kind:        kind,
		Account:     account,
		Asset:       asset,
		Amount:      cloneBigInt(amount),
		Value:       cloneBigInt(value),
		OperationID: opID,
	})
}

// record journals the operation and snapshots state. Failures surface as an
// empty operation id on the emitted event rather than failing the commit.
func (v *Vault) record(kind string, account, asset common.Address, amount, value *big.Int) string {
	opID := ""
	if v.journal != nil {
		if id, err := v.journal.Append(&OperationRecord{
			Kind:    kind,
			Account: account,
			Asset:   asset,
			Amount:  cloneBigInt(amount),
			Value:   cloneBigInt(value),
		}); err == nil {
			opID = id
		}
	}
	if v.store != nil {
		_ = v.store.save(v.snapshot())
	}
	return opID
}

func (v *Vault) persist() error {
	if v.store == nil {
		return nil
	}
	return v.store.save(v.snapshot())
}

func (v *Vault) snapshot() *storedState {
	state := &storedState{
		Total:         cloneBigInt(v.global.Total),
		DepositCount:  v.global.DepositCount,
		WithdrawCount: v.global.WithdrawCount,
		Router:        v.RouterAddress(),
		WrappedNative: v.wrappedNative,
		Reference:     v.reference,
	}
	for _, asset := range v.registry.sorted() {
		entry, _ := v.registry.entry(asset)
		state.Assets = append(state.Assets, storedAsset{Asset: asset, Oracle: entry.Oracle, Enabled: entry.Enabled})
	}
	assets := make([]common.Address, 0, len(v.balances))
	for asset := range v.balances {
		assets = append(assets, asset)
	}
	sort.Slice(assets, func(i, j int) bool {
		return bytes.Compare(assets[i][:], assets[j][:]) < 0
	})
	for _, asset := range assets {
		bucket := v.balances[asset]
		accounts := make([]common.Address, 0, len(bucket))
		for account := range bucket {
			accounts = append(accounts, account)
		}
		sort.Slice(accounts, func(i, j int) bool {
			return bytes.Compare(accounts[i][:], accounts[j][:]) < 0
		})
		for _, account := range accounts {
			state.Balances = append(state.Balances, storedBalance{
				Asset:   asset,
				Account: account,
				Amount:  cloneBigInt(bucket[account]),
			})
		}
	}
	return state
}

func (v *Vault) emit(event events.Event) {
	if v.emitter == nil {
		return
	}
	v.emitter.Emit(event)
}
