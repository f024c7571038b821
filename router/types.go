// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package router

import (
	"errors"
	"math/big"

	"github.com/luxfi/geth/common"
)

// NativeAsset is the reserved identifier for the chain's native coin
// (address(0), matching the bridge convention).
var NativeAsset = common.Address{}

// EntireBalance is the reserved amount meaning "substitute the router's
// current balance of this asset at the moment the value is consumed". It is
// 2^256-1 and is resolved per step, never upfront, so a step can operate on
// whatever a prior step produced.
var EntireBalance = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// IsEntireBalance reports whether [amount] is the EntireBalance sentinel.
func IsEntireBalance(amount *big.Int) bool {
	return amount != nil && amount.Cmp(EntireBalance) == 0
}

// CallMode selects how a step invokes its target. Only adapter invocation is
// supported.
type CallMode uint8

const (
	ModeInvoke CallMode = iota
)

// Step is one adapter invocation inside a batch. Steps execute strictly in
// the order given.
type Step struct {
	Target  common.Address // Adapter address, must be allow-listed at call time
	Asset   common.Address // Asset whose balance resolves payload sentinels
	Value   *big.Int       // Native value forwarded with the call
	Mode    CallMode
	Payload []byte // Adapter-specific, opaque to the router
}

// FeeSpec describes the fees skimmed from a batch before any step runs.
// All arrays are parallel; IsPercentage applies to every entry.
type FeeSpec struct {
	AppIDs       [][32]byte       // Partner application tag per fee
	Rates        []*big.Int       // Basis points or absolute amount
	Assets       []common.Address // Asset each fee is taken from
	Amounts      []*big.Int       // Principal the fee is computed against
	IsPercentage bool
}

// BatchRequest is the unit of work: assets to collect, fees to skim, and the
// ordered steps to run against allow-listed adapters.
type BatchRequest struct {
	PartnerID [32]byte
	Assets    []common.Address
	Amounts   []*big.Int
	Fees      FeeSpec
	Steps     []Step
}

// BatchStatus is the terminal status of a batch execution.
type BatchStatus uint8

const (
	StatusSettled BatchStatus = iota
	StatusRefunded
)

// ExecutionEvent records one successful adapter invocation.
type ExecutionEvent struct {
	Target     common.Address
	ReturnData []byte
}

// RefundRecord records a leftover balance returned after execution.
type RefundRecord struct {
	Asset     common.Address
	Recipient common.Address
	Amount    *big.Int
}

// UnsupportedOperation is the signal emitted when a bridge-delivered batch
// cannot be executed and the credited asset is refunded instead.
type UnsupportedOperation struct {
	Asset         common.Address
	RefundAddress common.Address
	Amount        *big.Int
}

// ExecutionReceipt summarizes a batch execution.
type ExecutionReceipt struct {
	Status      BatchStatus
	Events      []ExecutionEvent
	Refunds     []RefundRecord
	Unsupported *UnsupportedOperation // Set only on bridge-path refunds
}

// Router errors
var (
	ErrNilRequest          = errors.New("nil batch request")
	ErrLengthMismatch      = errors.New("parallel array length mismatch")
	ErrNilAmount           = errors.New("nil amount in request")
	ErrNegativeAmount      = errors.New("negative amount in request")
	ErrZeroTarget          = errors.New("step target is zero address")
	ErrUnsupportedCallMode = errors.New("unsupported call mode")
	ErrTargetNotAllowed    = errors.New("step target not allow-listed")
	ErrAdapterNotFound     = errors.New("no adapter registered at target")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrAddressOutOfRange   = errors.New("adapter address outside reserved range")
	ErrAdapterRegistered   = errors.New("adapter already registered")
	ErrAmountOverflow      = errors.New("amount exceeds 256 bits")
)

// Validate checks the request's structural invariants before any asset
// movement.
func (r *BatchRequest) Validate() error {
	if r == nil {
		return ErrNilRequest
	}
	if len(r.Assets) != len(r.Amounts) {
		return ErrLengthMismatch
	}
	for _, amount := range r.Amounts {
		if amount == nil {
			return ErrNilAmount
		}
		if amount.Sign() < 0 {
			return ErrNegativeAmount
		}
	}

	f := &r.Fees
	if len(f.AppIDs) != len(f.Rates) ||
		len(f.AppIDs) != len(f.Assets) ||
		len(f.AppIDs) != len(f.Amounts) {
		return ErrLengthMismatch
	}
	for i := range f.Rates {
		if f.Rates[i] == nil || f.Amounts[i] == nil {
			return ErrNilAmount
		}
	}

	for i := range r.Steps {
		step := &r.Steps[i]
		if step.Target == (common.Address{}) {
			return ErrZeroTarget
		}
		if step.Mode != ModeInvoke {
			return ErrUnsupportedCallMode
		}
		if step.Value != nil && step.Value.Sign() < 0 {
			return ErrNegativeAmount
		}
	}
	return nil
}
