package vault

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"vaultbank/storage"
)

type failingDB struct {
	*storage.MemDB
	putErr error
}

func (db *failingDB) Put([]byte, []byte) error { return db.putErr }

func TestStateSnapshotRoundTrip(t *testing.T) {
	db := storage.NewMemDB()
	store := NewStateStore(db)

	fix := newFixture(t, amount("1000000000000"))
	fix.vault.SetStore(store)
	fix.vault.SetJournal(NewJournal(db))
	fix.refTok.mint(userAddr, amount("5000000"))

	if _, err := fix.vault.DepositNative(userAddr, amount("500000000000000000")); err != nil {
		t.Fatalf("deposit native: %v", err)
	}
	if _, err := fix.vault.DepositReference(userAddr, amount("5000000")); err != nil {
		t.Fatalf("deposit reference: %v", err)
	}

	// A fresh vault bound to the same backend resumes the ledger.
	router := &stubRouter{addr: routerAddr, wrapped: wrappedNative}
	params := Params{Cap: amount("1000000000000"), NativeWithdrawCeiling: amount("1000000000000000000")}
	restored, err := New(adminAddr, custodyAddr, params, nativeFeed, router, refAsset)
	if err != nil {
		t.Fatalf("new vault: %v", err)
	}
	if err := restored.LoadState(store); err != nil {
		t.Fatalf("load state: %v", err)
	}

	if got := restored.BalanceOf(NativeAsset, userAddr); got.Cmp(amount("1000000000")) != 0 {
		t.Fatalf("expected native bucket restored, got %s", got)
	}
	if got := restored.BalanceOf(refAsset, userAddr); got.Cmp(amount("5000000")) != 0 {
		t.Fatalf("expected reference bucket restored, got %s", got)
	}
	totals := restored.Totals()
	if totals.Total.Cmp(amount("1005000000")) != 0 {
		t.Fatalf("expected total restored, got %s", totals.Total)
	}
	if totals.DepositCount != 2 {
		t.Fatalf("expected deposit count restored, got %d", totals.DepositCount)
	}
	entry, ok := restored.Asset(tokenAsset)
	if !ok || entry.Oracle != tokenFeed || !entry.Enabled {
		t.Fatalf("expected asset registry restored, got %+v ok=%v", entry, ok)
	}
	assertLedgerInvariant(t, restored)
}

func TestDepositCommitsDespiteStoreFailure(t *testing.T) {
	db := &failingDB{MemDB: storage.NewMemDB(), putErr: errors.New("disk full")}
	fix := newFixture(t, amount("1000000000000"))
	fix.vault.SetStore(NewStateStore(db))
	fix.vault.SetJournal(NewJournal(db))

	// The native value settled in custody; a failed snapshot or journal
	// write must not fail the deposit.
	value, err := fix.vault.DepositNative(userAddr, amount("500000000000000000"))
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if value.Cmp(amount("1000000000")) != 0 {
		t.Fatalf("expected 1000000000 credited, got %s", value)
	}
	if got := fix.vault.BalanceOf(NativeAsset, userAddr); got.Cmp(amount("1000000000")) != 0 {
		t.Fatalf("expected balance credited, got %s", got)
	}
	if fix.vault.Totals().DepositCount != 1 {
		t.Fatalf("expected deposit count 1")
	}
	if len(fix.emitter.emitted) != 1 {
		t.Fatalf("expected one event, got %d", len(fix.emitter.emitted))
	}
	record, ok := fix.emitter.emitted[0].(DepositRecorded)
	if !ok {
		t.Fatalf("expected DepositRecorded, got %T", fix.emitter.emitted[0])
	}
	if record.OperationID != "" {
		t.Fatalf("expected empty operation id when the journal write failed, got %q", record.OperationID)
	}
	assertLedgerInvariant(t, fix.vault)
}

func TestAdminOpsUnwindOnPersistFailure(t *testing.T) {
	db := &failingDB{MemDB: storage.NewMemDB(), putErr: errors.New("disk full")}
	fix := newFixture(t, amount("1000000000000"))
	fix.vault.SetStore(NewStateStore(db))

	// A failed snapshot write fails the mutation and restores the entry.
	if err := fix.vault.SetAsset(adminAddr, tokenAsset, common.Address{}, false); err == nil {
		t.Fatal("expected persist failure to surface")
	}
	entry, ok := fix.vault.Asset(tokenAsset)
	if !ok || entry.Oracle != tokenFeed || !entry.Enabled {
		t.Fatalf("expected prior entry restored, got %+v ok=%v", entry, ok)
	}

	// A first-time registration rolls back to absent.
	fresh := common.HexToAddress("0x00000000000000000000000000000000000000E8")
	if err := fix.vault.SetAsset(adminAddr, fresh, tokenFeed, true); err == nil {
		t.Fatal("expected persist failure to surface")
	}
	if _, ok := fix.vault.Asset(fresh); ok {
		t.Fatalf("expected unregistered asset rolled back")
	}

	if err := fix.vault.SetReferenceAsset(adminAddr, fresh); err == nil {
		t.Fatal("expected persist failure to surface")
	}
	if fix.vault.Reference() != refAsset {
		t.Fatalf("expected reference unchanged, got %s", fix.vault.Reference().Hex())
	}
	if _, ok := fix.vault.Asset(fresh); ok {
		t.Fatalf("expected enable side effect rolled back")
	}

	if len(fix.emitter.emitted) != 0 {
		t.Fatalf("expected no events for failed mutations, got %d", len(fix.emitter.emitted))
	}
}

func TestLoadStateEmptyBackendIsClean(t *testing.T) {
	store := NewStateStore(storage.NewMemDB())
	fix := newFixture(t, amount("1000000000000"))
	if err := fix.vault.LoadState(store); err != nil {
		t.Fatalf("load empty state: %v", err)
	}
	if fix.vault.Totals().Total.Sign() != 0 {
		t.Fatalf("expected clean ledger")
	}
}
