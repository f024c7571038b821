// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package router

import (
	"math/big"
	"sync"

	"github.com/luxfi/geth/common"
)

// Ledger is the journaled balance book the router executes against. Every
// write records the previous value, so a failed batch reverts to its
// snapshot and the net effect is zero. Balances are keyed owner -> asset;
// NativeAsset is an ordinary key.
type Ledger struct {
	balances map[common.Address]map[common.Address]*big.Int
	journal  []journalEntry

	mu sync.RWMutex
}

type journalEntry struct {
	owner common.Address
	asset common.Address
	prev  *big.Int // nil means the key did not exist
}

// NewLedger creates an empty balance book.
func NewLedger() *Ledger {
	return &Ledger{
		balances: make(map[common.Address]map[common.Address]*big.Int),
	}
}

// BalanceOf returns a copy of [owner]'s balance of [asset].
func (l *Ledger) BalanceOf(owner, asset common.Address) *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return new(big.Int).Set(l.balance(owner, asset))
}

// Credit mints [amount] of [asset] to [owner]. Used for bridge deliveries
// and test funding; transfers between accounts go through Transfer.
func (l *Ledger) Credit(owner, asset common.Address, amount *big.Int) error {
	if amount == nil {
		return ErrNilAmount
	}
	if amount.Sign() < 0 {
		return ErrNegativeAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	next := new(big.Int).Add(l.balance(owner, asset), amount)
	l.setBalance(owner, asset, next)
	return nil
}

// Transfer moves [amount] of [asset] from [from] to [to].
func (l *Ledger) Transfer(from, to, asset common.Address, amount *big.Int) error {
	if amount == nil {
		return ErrNilAmount
	}
	if amount.Sign() < 0 {
		return ErrNegativeAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	fromBal := l.balance(from, asset)
	if fromBal.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}

	l.setBalance(from, asset, new(big.Int).Sub(fromBal, amount))
	l.setBalance(to, asset, new(big.Int).Add(l.balance(to, asset), amount))
	return nil
}

// Snapshot returns a revision id for the current journal position.
func (l *Ledger) Snapshot() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.journal)
}

// RevertToSnapshot undoes every write made since [rev] was taken.
func (l *Ledger) RevertToSnapshot(rev int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if rev < 0 || rev > len(l.journal) {
		return
	}
	for i := len(l.journal) - 1; i >= rev; i-- {
		e := l.journal[i]
		if e.prev == nil {
			delete(l.balances[e.owner], e.asset)
		} else {
			l.balances[e.owner][e.asset] = e.prev
		}
	}
	l.journal = l.journal[:rev]
}

// balance returns the stored balance without copying. Caller holds the lock.
func (l *Ledger) balance(owner, asset common.Address) *big.Int {
	if assets := l.balances[owner]; assets != nil {
		if bal := assets[asset]; bal != nil {
			return bal
		}
	}
	return big.NewInt(0)
}

// setBalance journals the previous value and stores the new one. Caller
// holds the lock.
func (l *Ledger) setBalance(owner, asset common.Address, value *big.Int) {
	assets := l.balances[owner]
	if assets == nil {
		assets = make(map[common.Address]*big.Int)
		l.balances[owner] = assets
	}

	prev, existed := assets[asset]
	if !existed {
		l.journal = append(l.journal, journalEntry{owner: owner, asset: asset, prev: nil})
	} else {
		l.journal = append(l.journal, journalEntry{owner: owner, asset: asset, prev: prev})
	}
	assets[asset] = value
}
