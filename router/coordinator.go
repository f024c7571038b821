// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package router implements the batch coordinator: it collects assets,
// skims partner fees, executes ordered steps against allow-listed adapters,
// and refunds whatever is left. Invoked locally it is atomic; invoked from
// the cross-chain gateway it contains failures and resolves to a refund.
package router

import (
	"bytes"
	"fmt"
	"math/big"
	"sync"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	log "github.com/luxfi/log"
	"go.uber.org/zap"

	"github.com/luxfi/batchrouter/allowlist"
	"github.com/luxfi/batchrouter/feeledger"
	"github.com/luxfi/batchrouter/registry"
)

// Coordinator is the batch execution engine. All asset custody during a
// batch is transient: the coordinator holds balances at
// registry.RouterAddress only between intake and refund of one request.
type Coordinator struct {
	ledger *Ledger
	allow  *allowlist.AllowList
	fees   *feeledger.FeeLedger

	adapters map[common.Address]Adapter
	order    []common.Address

	log log.Logger

	// One request runs to completion before the next begins.
	mu sync.Mutex
}

// New creates a coordinator executing against [ledger], gated by [allow] and
// paying fees through [fees]. A nil [logger] disables logging.
func New(ledger *Ledger, allow *allowlist.AllowList, fees *feeledger.FeeLedger, logger log.Logger) *Coordinator {
	if logger == nil {
		logger = log.NewNoOpLogger()
	}
	return &Coordinator{
		ledger:   ledger,
		allow:    allow,
		fees:     fees,
		adapters: make(map[common.Address]Adapter),
		order:    make([]common.Address, 0),
		log:      logger,
	}
}

// Ledger returns the balance book the coordinator executes against.
func (c *Coordinator) Ledger() *Ledger {
	return c.ledger
}

// ExecuteLocal runs [req] for [caller]: pull assets, skim fees, run steps in
// order, refund leftovers. Any failure reverts every balance change made by
// the request, including the pull and the fee payments.
func (c *Coordinator) ExecuteLocal(caller common.Address, req *BatchRequest) (*ExecutionReceipt, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	rev := c.ledger.Snapshot()
	fail := func(err error) (*ExecutionReceipt, error) {
		c.ledger.RevertToSnapshot(rev)
		c.log.Debug("local batch aborted",
			zap.Stringer("caller", caller),
			zap.Error(err),
		)
		return nil, err
	}

	// Intake: pull every declared asset from the caller. A sentinel amount
	// pulls the caller's entire balance.
	pulled := make([]common.Address, 0, len(req.Assets))
	seen := make(map[common.Address]bool, len(req.Assets))
	for i, asset := range req.Assets {
		amount := req.Amounts[i]
		if IsEntireBalance(amount) {
			amount = c.ledger.BalanceOf(caller, asset)
		}
		if err := c.ledger.Transfer(caller, registry.RouterAddress, asset, amount); err != nil {
			return fail(fmt.Errorf("intake of %s: %w", asset, err))
		}
		if !seen[asset] {
			seen[asset] = true
			pulled = append(pulled, asset)
		}
	}

	if err := c.applyFees(&req.Fees); err != nil {
		return fail(err)
	}

	events, err := c.runSteps(req.Steps)
	if err != nil {
		return fail(err)
	}

	refunds, err := c.refund(pulled, caller)
	if err != nil {
		return fail(err)
	}

	c.log.Info("local batch settled",
		zap.Stringer("caller", caller),
		zap.Int("steps", len(events)),
		zap.Int("refunds", len(refunds)),
	)
	return &ExecutionReceipt{
		Status:  StatusSettled,
		Events:  events,
		Refunds: refunds,
	}, nil
}

// ExecuteFromBridge runs [req] against an [amount] of [asset] already
// credited to the router by the gateway. It never propagates failure: if the
// batch cannot execute, every change is reverted and the full credited
// amount is transferred to [refundAddress] with an UnsupportedOperation
// signal on the receipt. Bridge deliveries are one-shot, so a revert here
// would strand the asset.
func (c *Coordinator) ExecuteFromBridge(
	asset common.Address,
	amount *big.Int,
	req *BatchRequest,
	refundAddress common.Address,
) *ExecutionReceipt {
	// A nil or negative credit is treated as zero so the refund path below
	// cannot panic. The gateway validates amounts before calling here.
	if amount == nil || amount.Sign() < 0 {
		amount = new(big.Int)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// The credit happened before this snapshot, so reverting restores the
	// full bridged amount to the router.
	rev := c.ledger.Snapshot()

	events, err := c.runCredited(req)
	if err != nil {
		c.ledger.RevertToSnapshot(rev)
		if rerr := c.ledger.Transfer(registry.RouterAddress, refundAddress, asset, amount); rerr != nil {
			c.log.Error("bridge refund transfer failed",
				zap.Stringer("asset", asset),
				zap.Stringer("refund", refundAddress),
				zap.Error(rerr),
			)
		}
		c.log.Warn("bridge batch refunded",
			zap.Stringer("asset", asset),
			zap.Stringer("refund", refundAddress),
			zap.String("amount", amount.String()),
			zap.Error(err),
		)
		return &ExecutionReceipt{
			Status: StatusRefunded,
			Refunds: []RefundRecord{{
				Asset:     asset,
				Recipient: refundAddress,
				Amount:    new(big.Int).Set(amount),
			}},
			Unsupported: &UnsupportedOperation{
				Asset:         asset,
				RefundAddress: refundAddress,
				Amount:        new(big.Int).Set(amount),
			},
		}
	}

	refunds, err := c.refund([]common.Address{asset}, refundAddress)
	if err != nil {
		// Leftover refund cannot fail with a consistent ledger; treat it
		// like any other execution failure.
		c.ledger.RevertToSnapshot(rev)
		_ = c.ledger.Transfer(registry.RouterAddress, refundAddress, asset, amount)
		return &ExecutionReceipt{
			Status: StatusRefunded,
			Unsupported: &UnsupportedOperation{
				Asset:         asset,
				RefundAddress: refundAddress,
				Amount:        new(big.Int).Set(amount),
			},
		}
	}

	c.log.Info("bridge batch settled",
		zap.Stringer("asset", asset),
		zap.Int("steps", len(events)),
	)
	return &ExecutionReceipt{
		Status:  StatusSettled,
		Events:  events,
		Refunds: refunds,
	}
}

// runCredited validates and executes the fee and step phases of a
// bridge-credited request. Caller holds c.mu.
func (c *Coordinator) runCredited(req *BatchRequest) ([]ExecutionEvent, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := c.applyFees(&req.Fees); err != nil {
		return nil, err
	}
	return c.runSteps(req.Steps)
}

// applyFees resolves and pays every fee out of the router's balance before
// any step touches the asset. Caller holds c.mu.
func (c *Coordinator) applyFees(f *FeeSpec) error {
	for i := range f.AppIDs {
		recipient, err := c.fees.Resolve(f.AppIDs[i])
		if err != nil {
			return err
		}

		principal := f.Amounts[i]
		if IsEntireBalance(principal) {
			principal = c.ledger.BalanceOf(registry.RouterAddress, f.Assets[i])
		}

		fee, err := feeledger.ComputeFee(principal, f.Rates[i], f.IsPercentage)
		if err != nil {
			return err
		}
		if fee.Sign() == 0 {
			continue
		}
		if err := c.ledger.Transfer(registry.RouterAddress, recipient, f.Assets[i], fee); err != nil {
			return fmt.Errorf("fee payment for asset %s: %w", f.Assets[i], err)
		}
	}
	return nil
}

// runSteps executes every step in order. The allow list is consulted
// immediately before each call, and sentinels resolve against the live
// balance at that moment, which is what threads step N-1's output into
// step N. Caller holds c.mu.
func (c *Coordinator) runSteps(steps []Step) ([]ExecutionEvent, error) {
	events := make([]ExecutionEvent, 0, len(steps))
	for i := range steps {
		step := &steps[i]

		if !c.allow.IsEnabled(step.Target) {
			return nil, fmt.Errorf("step %d target %s: %w", i, step.Target, ErrTargetNotAllowed)
		}
		adapter, ok := c.adapterAt(step.Target)
		if !ok {
			return nil, fmt.Errorf("step %d target %s: %w", i, step.Target, ErrAdapterNotFound)
		}

		value := step.Value
		if IsEntireBalance(value) {
			value = c.ledger.BalanceOf(registry.RouterAddress, NativeAsset)
		}
		if value == nil {
			value = big.NewInt(0)
		}

		payload, err := resolvePayload(step.Payload, c.ledger.BalanceOf(registry.RouterAddress, step.Asset))
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}

		if value.Sign() > 0 {
			if err := c.ledger.Transfer(registry.RouterAddress, step.Target, NativeAsset, value); err != nil {
				return nil, fmt.Errorf("step %d native value: %w", i, err)
			}
		}

		ret, err := adapter.Invoke(c.ledger, value, payload)
		if err != nil {
			return nil, fmt.Errorf("step %d target %s: %w", i, step.Target, err)
		}
		events = append(events, ExecutionEvent{Target: step.Target, ReturnData: ret})
	}
	return events, nil
}

// refund returns every non-zero leftover balance of [assets] to
// [recipient]. Caller holds c.mu.
func (c *Coordinator) refund(assets []common.Address, recipient common.Address) ([]RefundRecord, error) {
	refunds := make([]RefundRecord, 0, len(assets))
	for _, asset := range assets {
		bal := c.ledger.BalanceOf(registry.RouterAddress, asset)
		if bal.Sign() == 0 {
			continue
		}
		if err := c.ledger.Transfer(registry.RouterAddress, recipient, asset, bal); err != nil {
			return nil, err
		}
		refunds = append(refunds, RefundRecord{Asset: asset, Recipient: recipient, Amount: bal})
	}
	return refunds, nil
}

// sentinelWord is the 32-byte encoding of EntireBalance.
var sentinelWord = bytes.Repeat([]byte{0xff}, 32)

// resolvePayload rewrites every 32-byte word equal to the sentinel with
// [balance]. The payload is otherwise opaque and passed through untouched.
func resolvePayload(payload []byte, balance *big.Int) ([]byte, error) {
	idx := bytes.Index(payload, sentinelWord)
	if idx < 0 {
		return payload, nil
	}

	word, overflow := uint256.FromBig(balance)
	if overflow {
		return nil, ErrAmountOverflow
	}
	encoded := word.Bytes32()

	resolved := make([]byte, len(payload))
	copy(resolved, payload)
	for idx >= 0 {
		copy(resolved[idx:idx+32], encoded[:])
		next := bytes.Index(resolved[idx+32:], sentinelWord)
		if next < 0 {
			break
		}
		idx = idx + 32 + next
	}
	return resolved, nil
}
