package vault

import (
	"errors"
	"math/big"
	"testing"
)

func TestReentrantDepositRejected(t *testing.T) {
	fix := newFixture(t, amount("1000000000000"))
	var reentrant error
	fix.bank.onCollect = func() {
		_, reentrant = fix.vault.DepositNative(userAddr, big.NewInt(1))
	}

	if _, err := fix.vault.DepositNative(userAddr, amount("500000000000000000")); err != nil {
		t.Fatalf("outer deposit: %v", err)
	}
	if !errors.Is(reentrant, ErrReentrancy) {
		t.Fatalf("expected reentrant call to fail with ErrReentrancy, got %v", reentrant)
	}
	// Only the outer deposit lands.
	if fix.vault.Totals().DepositCount != 1 {
		t.Fatalf("expected a single deposit, got %d", fix.vault.Totals().DepositCount)
	}
	if got := fix.vault.BalanceOf(NativeAsset, userAddr); got.Cmp(amount("1000000000")) != 0 {
		t.Fatalf("expected only the outer credit, got %s", got)
	}
	assertLedgerInvariant(t, fix.vault)
}

func TestReentrantTokenCallbackRejected(t *testing.T) {
	fix := newFixture(t, amount("1000000000000"))
	fix.tok.mint(userAddr, amount("2000000000000000000"))
	var reentrant error
	fix.tok.onTransferFrom = func() {
		_, reentrant = fix.vault.WithdrawToken(userAddr, tokenAsset, big.NewInt(1))
	}

	if _, err := fix.vault.DepositToken(userAddr, tokenAsset, amount("1000000000000000000")); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if !errors.Is(reentrant, ErrReentrancy) {
		t.Fatalf("expected reentrant withdraw to fail, got %v", reentrant)
	}
	assertLedgerInvariant(t, fix.vault)
}

func TestGuardReleasesAfterFailure(t *testing.T) {
	fix := newFixture(t, amount("1000000000000"))
	if _, err := fix.vault.DepositNative(userAddr, big.NewInt(0)); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	// A failed operation must not leave the guard held.
	if _, err := fix.vault.DepositNative(userAddr, amount("500000000000000000")); err != nil {
		t.Fatalf("follow-up deposit blocked: %v", err)
	}
}
