// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package allowlist tracks which adapter addresses the batch router is
// permitted to call. It is the sole security boundary preventing the router
// from being used as an arbitrary-call proxy, so the router consults it
// immediately before every step invocation rather than caching lookups.
package allowlist

import (
	"bytes"
	"errors"
	"sort"
	"sync"

	"github.com/luxfi/geth/common"
)

var (
	ErrUnauthorized   = errors.New("unauthorized: caller is not admin")
	ErrLengthMismatch = errors.New("addresses and flags length mismatch")
	ErrZeroAddress    = errors.New("zero address cannot be allow-listed")
)

// AllowList is an admin-mutated set of adapter addresses.
type AllowList struct {
	admin   common.Address
	enabled map[common.Address]bool

	mu sync.RWMutex
}

// New creates an allow list administered by [admin].
func New(admin common.Address) *AllowList {
	return &AllowList{
		admin:   admin,
		enabled: make(map[common.Address]bool),
	}
}

// SetEnabled sets or clears the allow flag for each address. Admin only.
func (a *AllowList) SetEnabled(caller common.Address, addrs []common.Address, flags []bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if caller != a.admin {
		return ErrUnauthorized
	}
	if len(addrs) != len(flags) {
		return ErrLengthMismatch
	}
	for _, addr := range addrs {
		if addr == (common.Address{}) {
			return ErrZeroAddress
		}
	}

	for i, addr := range addrs {
		if flags[i] {
			a.enabled[addr] = true
		} else {
			delete(a.enabled, addr)
		}
	}
	return nil
}

// IsEnabled reports whether [addr] may be called by the router.
func (a *AllowList) IsEnabled(addr common.Address) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled[addr]
}

// SetAdmin transfers administration to [newAdmin]. Admin only.
func (a *AllowList) SetAdmin(caller, newAdmin common.Address) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if caller != a.admin {
		return ErrUnauthorized
	}
	if newAdmin == (common.Address{}) {
		return ErrZeroAddress
	}
	a.admin = newAdmin
	return nil
}

// Admin returns the current administrator.
func (a *AllowList) Admin() common.Address {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.admin
}

// Enabled returns the currently allowed addresses in deterministic order.
func (a *AllowList) Enabled() []common.Address {
	a.mu.RLock()
	defer a.mu.RUnlock()

	addrs := make([]common.Address, 0, len(a.enabled))
	for addr := range a.enabled {
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool {
		return bytes.Compare(addrs[i][:], addrs[j][:]) < 0
	})
	return addrs
}
