// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package feeledger resolves partner fee recipients and computes fee amounts.
// Fees are either absolute amounts or basis-point rates against the amount
// being processed; a fee can never exceed the amount it is taken from.
package feeledger

import (
	"errors"
	"math/big"
	"sync"

	luxcrypto "github.com/luxfi/crypto"
	"github.com/luxfi/geth/common"
)

// RateDenominator is the fixed-point denominator for percentage fees
// (basis points, 100 = 1%).
const RateDenominator = 10000

var (
	ErrUnauthorized     = errors.New("unauthorized: caller is not admin")
	ErrZeroAddress      = errors.New("recipient cannot be zero address")
	ErrNoRecipient      = errors.New("no fee recipient registered for app")
	ErrNilAmount        = errors.New("nil fee amount or rate")
	ErrNegativeAmount   = errors.New("negative fee amount or rate")
	ErrFeeExceedsAmount = errors.New("fee exceeds amount being processed")
)

// AppID derives the ledger key for a partner application name.
func AppID(name string) [32]byte {
	var id [32]byte
	copy(id[:], luxcrypto.Keccak256([]byte(name)))
	return id
}

// FeeLedger maps partner application IDs to payout addresses.
type FeeLedger struct {
	admin      common.Address
	recipients map[[32]byte]common.Address

	// Fallback recipient when an appID has no registered entry. Zero means
	// unresolved appIDs are an error.
	fallback common.Address

	mu sync.RWMutex
}

// New creates a fee ledger administered by [admin]. [fallback] may be the
// zero address, in which case Resolve fails for unregistered appIDs.
func New(admin, fallback common.Address) *FeeLedger {
	return &FeeLedger{
		admin:      admin,
		recipients: make(map[[32]byte]common.Address),
		fallback:   fallback,
	}
}

// SetRecipient registers or updates the payout address for [appID]. Admin
// only. Setting the zero address removes the entry.
func (f *FeeLedger) SetRecipient(caller common.Address, appID [32]byte, addr common.Address) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if caller != f.admin {
		return ErrUnauthorized
	}
	if addr == (common.Address{}) {
		delete(f.recipients, appID)
		return nil
	}
	f.recipients[appID] = addr
	return nil
}

// Resolve returns the payout address for [appID], falling back to the
// configured default recipient when the appID is unregistered.
func (f *FeeLedger) Resolve(appID [32]byte) (common.Address, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if addr, ok := f.recipients[appID]; ok {
		return addr, nil
	}
	if f.fallback != (common.Address{}) {
		return f.fallback, nil
	}
	return common.Address{}, ErrNoRecipient
}

// ComputeFee returns the fee owed on [amount]. With [isPercentage] the rate
// is basis points and the fee is floor(amount*rate/RateDenominator);
// otherwise the rate is taken as a literal absolute fee.
func ComputeFee(amount, rate *big.Int, isPercentage bool) (*big.Int, error) {
	if amount == nil || rate == nil {
		return nil, ErrNilAmount
	}
	if amount.Sign() < 0 || rate.Sign() < 0 {
		return nil, ErrNegativeAmount
	}

	var fee *big.Int
	if isPercentage {
		fee = new(big.Int).Mul(amount, rate)
		fee.Div(fee, big.NewInt(RateDenominator))
	} else {
		fee = new(big.Int).Set(rate)
	}

	if fee.Cmp(amount) > 0 {
		return nil, ErrFeeExceedsAmount
	}
	return fee, nil
}

// Admin returns the current administrator.
func (f *FeeLedger) Admin() common.Address {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.admin
}

// SetAdmin transfers administration to [newAdmin]. Admin only.
func (f *FeeLedger) SetAdmin(caller, newAdmin common.Address) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if caller != f.admin {
		return ErrUnauthorized
	}
	if newAdmin == (common.Address{}) {
		return ErrZeroAddress
	}
	f.admin = newAdmin
	return nil
}
