package vault

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"

	"vaultbank/storage"
)

var stateKey = []byte("vault/state")

type storedBalance struct {
	Asset   common.Address
	Account common.Address
	Amount  *big.Int
}

type storedAsset struct {
	Asset   common.Address
	Oracle  common.Address
	Enabled bool
}

type storedState struct {
	Balances      []storedBalance
	Assets        []storedAsset
	Total         *big.Int
	DepositCount  uint64
	WithdrawCount uint64
	Router        common.Address
	WrappedNative common.Address
	Reference     common.Address
}

// StateStore persists vault state snapshots into the key-value backend.
// Snapshots are written on commit only, so a failed operation never touches
// the store.
type StateStore struct {
	db storage.Database
}

// NewStateStore constructs a state store bound to the provided backend.
func NewStateStore(db storage.Database) *StateStore {
	return &StateStore{db: db}
}

func (s *StateStore) save(state *storedState) error {
	if s == nil || s.db == nil {
		return errors.New("vault: state store not initialised")
	}
	encoded, err := rlp.EncodeToBytes(state)
	if err != nil {
		return fmt.Errorf("vault: encode state: %w", err)
	}
	return s.db.Put(stateKey, encoded)
}

func (s *StateStore) load() (*storedState, bool, error) {
	if s == nil || s.db == nil {
		return nil, false, errors.New("vault: state store not initialised")
	}
	encoded, err := s.db.Get(stateKey)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	state := &storedState{}
	if err := rlp.DecodeBytes(encoded, state); err != nil {
		return nil, false, fmt.Errorf("vault: decode state: %w", err)
	}
	return state, true, nil
}
