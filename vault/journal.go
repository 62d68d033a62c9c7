package vault

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"sort"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/google/uuid"

	"vaultbank/storage"
)

var (
	journalRecordPrefix = []byte("vault/journal/")
	journalIndexKey     = []byte("vault/journal/index")
)

// OperationRecord captures the structured outcome of a committed
// state-changing operation: what moved, for whom, and the canonical value
// credited or debited.
type OperationRecord struct {
	ID        string
	Kind      string
	Account   common.Address
	Asset     common.Address
	Amount    *big.Int
	Value     *big.Int
	CreatedAt int64
}

// Copy returns a deep copy to avoid callers mutating shared pointers.
func (r *OperationRecord) Copy() *OperationRecord {
	if r == nil {
		return nil
	}
	clone := *r
	clone.Amount = cloneBigInt(r.Amount)
	clone.Value = cloneBigInt(r.Value)
	return &clone
}

type storedOperation struct {
	ID        string
	Kind      string
	Account   common.Address
	Asset     common.Address
	Amount    *big.Int
	Value     *big.Int
	CreatedAt uint64
}

type journalIndexEntry struct {
	ID        string
	CreatedAt uint64
}

// Journal is the append-only record of committed vault operations, persisted
// in the underlying key-value store.
type Journal struct {
	store storage.Database
	clock func() time.Time
}

// NewJournal constructs a journal bound to the provided storage backend.
func NewJournal(store storage.Database) *Journal {
	return &Journal{store: store, clock: time.Now}
}

// SetClock overrides the time source (primarily for deterministic testing).
func (j *Journal) SetClock(clock func() time.Time) {
	if j == nil || clock == nil {
		return
	}
	j.clock = clock
}

// Append stores the record, assigning an identifier and timestamp when the
// caller left them empty. The identifier is returned.
func (j *Journal) Append(record *OperationRecord) (string, error) {
	if j == nil || j.store == nil {
		return "", errors.New("vault: journal not initialised")
	}
	if record == nil {
		return "", errors.New("vault: journal record must not be nil")
	}
	stored := toStoredOperation(record)
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	if stored.CreatedAt == 0 {
		now := j.clock().UTC().Unix()
		if now > 0 {
			stored.CreatedAt = uint64(now)
		}
	}
	encoded, err := rlp.EncodeToBytes(stored)
	if err != nil {
		return "", fmt.Errorf("vault: encode journal record: %w", err)
	}
	if err := j.store.Put(journalKey(stored.ID), encoded); err != nil {
		return "", err
	}
	entries, err := j.loadIndex()
	if err != nil {
		return "", err
	}
	entries = append(entries, journalIndexEntry{ID: stored.ID, CreatedAt: stored.CreatedAt})
	encodedIndex, err := rlp.EncodeToBytes(entries)
	if err != nil {
		return "", fmt.Errorf("vault: encode journal index: %w", err)
	}
	if err := j.store.Put(journalIndexKey, encodedIndex); err != nil {
		return "", err
	}
	return stored.ID, nil
}

// Get retrieves an operation record by identifier.
func (j *Journal) Get(id string) (*OperationRecord, bool, error) {
	if j == nil || j.store == nil {
		return nil, false, errors.New("vault: journal not initialised")
	}
	encoded, err := j.store.Get(journalKey(id))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	stored := &storedOperation{}
	if err := rlp.DecodeBytes(encoded, stored); err != nil {
		return nil, false, fmt.Errorf("vault: decode journal record: %w", err)
	}
	record, err := fromStoredOperation(stored)
	if err != nil {
		return nil, false, err
	}
	return record, true, nil
}

// List returns a paginated list of records within the supplied timestamp
// range. Both bounds are inclusive; zero disables a bound. The cursor is the
// identifier of the last item from the previous page.
func (j *Journal) List(startTs, endTs int64, cursor string, limit int) ([]*OperationRecord, string, error) {
	if j == nil || j.store == nil {
		return nil, "", errors.New("vault: journal not initialised")
	}
	entries, err := j.loadIndex()
	if err != nil {
		return nil, "", err
	}
	filtered := make([]journalIndexEntry, 0, len(entries))
	for _, entry := range entries {
		createdAt, err := uint64ToInt64(entry.CreatedAt)
		if err != nil {
			return nil, "", fmt.Errorf("vault: journal index entry overflow: %w", err)
		}
		if startTs != 0 && createdAt < startTs {
			continue
		}
		if endTs != 0 && createdAt > endTs {
			continue
		}
		filtered = append(filtered, entry)
	}
	sort.SliceStable(filtered, func(i, k int) bool {
		if filtered[i].CreatedAt == filtered[k].CreatedAt {
			return filtered[i].ID < filtered[k].ID
		}
		return filtered[i].CreatedAt < filtered[k].CreatedAt
	})
	startIdx := 0
	cursorID := strings.TrimSpace(cursor)
	if cursorID != "" {
		for i, entry := range filtered {
			if entry.ID == cursorID {
				startIdx = i + 1
				break
			}
		}
	}
	pageSize := limit
	if pageSize <= 0 {
		pageSize = len(filtered) - startIdx
	}
	records := make([]*OperationRecord, 0, pageSize)
	nextCursor := ""
	for i := startIdx; i < len(filtered) && len(records) < pageSize; i++ {
		record, ok, err := j.Get(filtered[i].ID)
		if err != nil {
			return nil, "", err
		}
		if !ok {
			continue
		}
		records = append(records, record)
		nextCursor = filtered[i].ID
	}
	if startIdx+len(records) >= len(filtered) {
		nextCursor = ""
	}
	return records, nextCursor, nil
}

func (j *Journal) loadIndex() ([]journalIndexEntry, error) {
	encoded, err := j.store.Get(journalIndexKey)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var entries []journalIndexEntry
	if err := rlp.DecodeBytes(encoded, &entries); err != nil {
		return nil, fmt.Errorf("vault: decode journal index: %w", err)
	}
	return entries, nil
}

func journalKey(id string) []byte {
	trimmed := strings.TrimSpace(id)
	buf := make([]byte, len(journalRecordPrefix)+len(trimmed))
	copy(buf, journalRecordPrefix)
	copy(buf[len(journalRecordPrefix):], trimmed)
	return buf
}

func toStoredOperation(record *OperationRecord) *storedOperation {
	stored := &storedOperation{
		ID:      strings.TrimSpace(record.ID),
		Kind:    strings.TrimSpace(record.Kind),
		Account: record.Account,
		Asset:   record.Asset,
		Amount:  cloneBigInt(record.Amount),
		Value:   cloneBigInt(record.Value),
	}
	if record.CreatedAt > 0 {
		stored.CreatedAt = uint64(record.CreatedAt)
	}
	return stored
}

func fromStoredOperation(stored *storedOperation) (*OperationRecord, error) {
	createdAt, err := uint64ToInt64(stored.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("vault: journal created at overflow: %w", err)
	}
	return &OperationRecord{
		ID:        stored.ID,
		Kind:      stored.Kind,
		Account:   stored.Account,
		Asset:     stored.Asset,
		Amount:    cloneBigInt(stored.Amount),
		Value:     cloneBigInt(stored.Value),
		CreatedAt: createdAt,
	}, nil
}

func uint64ToInt64(value uint64) (int64, error) {
	if value > math.MaxInt64 {
		return 0, fmt.Errorf("value %d exceeds int64 range", value)
	}
	return int64(value), nil
}
