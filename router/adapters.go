// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package router

import (
	"bytes"
	"math/big"
	"sort"

	"github.com/luxfi/geth/common"

	"github.com/luxfi/batchrouter/registry"
)

// Adapter is the entry point of one protocol adapter. The adapter interprets
// [payload] itself and moves assets through [ledger]; it is free to return an
// error on invalid input. Adapters must only touch balances belonging to the
// router or to themselves.
type Adapter interface {
	Invoke(ledger *Ledger, value *big.Int, payload []byte) ([]byte, error)
}

// AddressRange represents a continuous range of addresses.
type AddressRange struct {
	Start common.Address
	End   common.Address
}

// Contains returns true iff [addr] is contained within the (inclusive)
// range of addresses defined by [a].
func (a *AddressRange) Contains(addr common.Address) bool {
	return bytes.Compare(addr[:], a.Start[:]) >= 0 && bytes.Compare(addr[:], a.End[:]) <= 0
}

// reservedAdapterRange is where adapters may be registered.
var reservedAdapterRange = AddressRange{
	Start: registry.AdapterRangeStart,
	End:   registry.AdapterRangeEnd,
}

// RegisterAdapter binds [adapter] to [addr]. The address must lie in the
// reserved adapter range and must not already be bound. Registration is
// deployment-time wiring; whether the router may call the address is decided
// at execution time by the allow list.
func (c *Coordinator) RegisterAdapter(addr common.Address, adapter Adapter) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !reservedAdapterRange.Contains(addr) {
		return ErrAddressOutOfRange
	}
	if _, exists := c.adapters[addr]; exists {
		return ErrAdapterRegistered
	}

	c.adapters[addr] = adapter

	// Keep insertion order deterministic for iteration.
	idx := sort.Search(len(c.order), func(i int) bool {
		return bytes.Compare(c.order[i][:], addr[:]) > 0
	})
	c.order = append(c.order, common.Address{})
	copy(c.order[idx+1:], c.order[idx:])
	c.order[idx] = addr
	return nil
}

// RegisteredAdapters returns the bound adapter addresses in address order.
func (c *Coordinator) RegisteredAdapters() []common.Address {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]common.Address, len(c.order))
	copy(out, c.order)
	return out
}

// adapterAt returns the adapter bound to [addr], if any. Caller holds c.mu.
func (c *Coordinator) adapterAt(addr common.Address) (Adapter, bool) {
	a, ok := c.adapters[addr]
	return a, ok
}
