// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package gateway is the entry point an external bridge/relayer calls to
// deliver an inbound asset-plus-instruction message. The bridge guarantees
// at-least-once delivery and offers no redelivery on failure, so the gateway
// never rejects a delivery for execution reasons: every message terminates
// either fully executed or fully refunded.
package gateway

import (
	"encoding/binary"
	"errors"
	"math/big"
	"sync"
	"time"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/ids"
	log "github.com/luxfi/log"
	"github.com/zeebo/blake3"
	"go.uber.org/zap"

	"github.com/luxfi/batchrouter/registry"
	"github.com/luxfi/batchrouter/router"
)

var ErrUnauthorized = errors.New("unauthorized caller")

// MessageStatus tracks an inbound message through its lifecycle.
type MessageStatus uint8

const (
	MsgReceived MessageStatus = iota
	MsgDecoding
	MsgExecuting
	MsgSettled
	MsgDecodeFailed
	MsgRefunded
)

// SourceContext identifies where a delivery originated.
type SourceContext struct {
	ChainID ids.ID         // Source chain
	Sender  common.Address // Sending contract on the source chain
	Nonce   uint64         // Relayer delivery nonce
}

// InboundMessage is the per-delivery record. Terminal statuses are
// MsgSettled and MsgRefunded; a message reaching either is fully consumed
// and redelivery is a no-op.
type InboundMessage struct {
	ID            [32]byte
	Source        SourceContext
	Asset         common.Address
	Amount        *big.Int
	RefundAddress common.Address
	Status        MessageStatus
	ReceivedAt    int64
	Receipt       *router.ExecutionReceipt
}

// Config configures a Gateway.
type Config struct {
	Admin common.Address

	// FallbackRefund receives credited assets when a payload is too
	// malformed to yield its own refund address.
	FallbackRefund common.Address

	Logger log.Logger
}

// Gateway adapts the bridge's one-shot delivery model to the coordinator's
// batch semantics. The relayer credits registry.GatewayAddress in the
// ledger before calling Deliver.
type Gateway struct {
	coord  *router.Coordinator
	ledger *router.Ledger

	admin          common.Address
	fallbackRefund common.Address
	paused         bool

	messages map[[32]byte]*InboundMessage
	events   []router.UnsupportedOperation

	log log.Logger

	mu sync.Mutex
}

// New creates a gateway delegating execution to [coord].
func New(coord *router.Coordinator, cfg Config) *Gateway {
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNoOpLogger()
	}
	return &Gateway{
		coord:          coord,
		ledger:         coord.Ledger(),
		admin:          cfg.Admin,
		fallbackRefund: cfg.FallbackRefund,
		messages:       make(map[[32]byte]*InboundMessage),
		events:         make([]router.UnsupportedOperation, 0),
		log:            logger,
	}
}

// Deliver consumes one inbound bridge message. The credited [amount] of
// [asset] must already sit at registry.GatewayAddress. Deliver only returns
// an error for deliveries that moved no assets (nil amounts, missing
// credit); once the credit is accepted the message always terminates as
// Settled or Refunded, never as an error.
func (g *Gateway) Deliver(
	src SourceContext,
	asset common.Address,
	amount *big.Int,
	rawPayload []byte,
) (*InboundMessage, error) {
	if amount == nil {
		return nil, router.ErrNilAmount
	}
	if amount.Sign() < 0 {
		return nil, router.ErrNegativeAmount
	}
	if amount.BitLen() > 256 {
		return nil, router.ErrAmountOverflow
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	id := messageID(src, asset, amount, rawPayload)
	if existing, ok := g.messages[id]; ok {
		// At-least-once delivery: the message was already consumed.
		g.log.Debug("duplicate delivery ignored", zap.String("id", common.Hash(id).Hex()))
		return existing, nil
	}

	msg := &InboundMessage{
		ID:         id,
		Source:     src,
		Asset:      asset,
		Amount:     new(big.Int).Set(amount),
		Status:     MsgReceived,
		ReceivedAt: time.Now().Unix(),
	}
	g.messages[id] = msg

	if g.paused {
		g.refundCredit(msg, g.fallbackRefund)
		return msg, nil
	}

	msg.Status = MsgDecoding
	payload, err := UnframePayload(rawPayload)
	if err != nil {
		msg.Status = MsgDecodeFailed
		g.log.Warn("payload unframing failed",
			zap.String("id", common.Hash(id).Hex()),
			zap.Error(err),
		)
		g.refundCredit(msg, g.fallbackRefund)
		return msg, nil
	}

	req, refundAddr, err := DecodeRequest(payload)
	if err != nil {
		msg.Status = MsgDecodeFailed
		if refundAddr == (common.Address{}) {
			refundAddr = g.fallbackRefund
		}
		g.log.Warn("payload decoding failed",
			zap.String("id", common.Hash(id).Hex()),
			zap.Error(err),
		)
		g.refundCredit(msg, refundAddr)
		return msg, nil
	}
	msg.RefundAddress = refundAddr

	msg.Status = MsgExecuting
	if err := g.ledger.Transfer(registry.GatewayAddress, registry.RouterAddress, asset, amount); err != nil {
		// The relayer's credit has not landed, so no assets moved. The
		// message is not consumed; the same tuple must be deliverable once
		// the credit arrives.
		delete(g.messages, id)
		return nil, err
	}

	receipt := g.coord.ExecuteFromBridge(asset, amount, req, refundAddr)
	msg.Receipt = receipt
	if receipt.Status == router.StatusSettled {
		msg.Status = MsgSettled
	} else {
		msg.Status = MsgRefunded
		if receipt.Unsupported != nil {
			g.events = append(g.events, *receipt.Unsupported)
		}
	}
	return msg, nil
}

// refundCredit returns the message's credited amount to [recipient] and
// records the UnsupportedOperation signal. Caller holds g.mu.
func (g *Gateway) refundCredit(msg *InboundMessage, recipient common.Address) {
	if msg.Amount.Sign() > 0 {
		if err := g.ledger.Transfer(registry.GatewayAddress, recipient, msg.Asset, msg.Amount); err != nil {
			g.log.Error("refund transfer failed",
				zap.String("id", common.Hash(msg.ID).Hex()),
				zap.Stringer("recipient", recipient),
				zap.Error(err),
			)
		}
	}
	msg.RefundAddress = recipient
	msg.Status = MsgRefunded
	g.events = append(g.events, router.UnsupportedOperation{
		Asset:         msg.Asset,
		RefundAddress: recipient,
		Amount:        new(big.Int).Set(msg.Amount),
	})
	g.log.Warn("message refunded",
		zap.String("id", common.Hash(msg.ID).Hex()),
		zap.Stringer("asset", msg.Asset),
		zap.Stringer("recipient", recipient),
		zap.String("amount", msg.Amount.String()),
	)
}

// Message returns the record for a consumed message ID.
func (g *Gateway) Message(id [32]byte) (*InboundMessage, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	msg, ok := g.messages[id]
	return msg, ok
}

// Events returns every UnsupportedOperation signal emitted so far.
func (g *Gateway) Events() []router.UnsupportedOperation {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]router.UnsupportedOperation, len(g.events))
	copy(out, g.events)
	return out
}

// SetPaused toggles delivery processing. Paused deliveries are refunded to
// the fallback recipient without decoding. Admin only.
func (g *Gateway) SetPaused(caller common.Address, paused bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if caller != g.admin {
		return ErrUnauthorized
	}
	g.paused = paused
	return nil
}

// Paused reports whether the gateway is refusing new deliveries.
func (g *Gateway) Paused() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.paused
}

// messageID derives the dedupe key for a delivery.
func messageID(src SourceContext, asset common.Address, amount *big.Int, payload []byte) [32]byte {
	hasher := blake3.New()
	hasher.Write(src.ChainID[:])
	hasher.Write(src.Sender[:])

	var nonce [8]byte
	binary.BigEndian.PutUint64(nonce[:], src.Nonce)
	hasher.Write(nonce[:])

	hasher.Write(asset[:])
	// Fixed-width amount so distinct (amount, payload) splits cannot hash to
	// the same ID.
	hasher.Write(common.LeftPadBytes(amount.Bytes(), 32))
	hasher.Write(payload)

	var id [32]byte
	copy(id[:], hasher.Sum(nil))
	return id
}
