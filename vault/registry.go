package vault

import (
	"bytes"
	"sort"

	"github.com/ethereum/go-ethereum/common"
)

// registry is the authoritative record of which assets the vault accepts and
// which oracle prices each one. Mutations only flow through the engine's
// administrator operations.
type registry struct {
	assets map[common.Address]AssetEntry
}

func newRegistry() *registry {
	return &registry{assets: make(map[common.Address]AssetEntry)}
}

func (r *registry) entry(asset common.Address) (AssetEntry, bool) {
	entry, ok := r.assets[asset]
	return entry, ok
}

func (r *registry) set(asset common.Address, entry AssetEntry) {
	r.assets[asset] = entry
}

func (r *registry) remove(asset common.Address) {
	delete(r.assets, asset)
}

// enable marks the asset accepted, preserving any existing oracle reference.
func (r *registry) enable(asset common.Address) {
	entry := r.assets[asset]
	entry.Enabled = true
	r.assets[asset] = entry
}

// sorted returns the registered asset identifiers in address order so that
// persisted snapshots are deterministic.
func (r *registry) sorted() []common.Address {
	out := make([]common.Address, 0, len(r.assets))
	for asset := range r.assets {
		out = append(out, asset)
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i][:], out[j][:]) < 0
	})
	return out
}
