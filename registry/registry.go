// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package registry defines the canonical addresses of the batch router
// deployment: the core contracts and the reserved range protocol adapters
// are registered into.
package registry

import (
	"github.com/luxfi/geth/common"
)

// ============================================================================
// ROUTER ADDRESS SCHEME
// ============================================================================
//
// Core contracts live at 0x0450-0x045F (high-byte format, one slot each).
// Protocol adapters are registered inside 0x0460..xx, giving 256 adapter
// slots:
//
//   0x0450..00  Router (batch coordinator)
//   0x0451..00  Gateway (inbound bridge deliveries)
//   0x0452..00  FeeLedger
//   0x0453..00  AllowList
//   0x0460..NN  Adapter slot NN
//
// Adapter slots are grouped by family; the groups below are a convention for
// deployments, not enforced by the registry.

var (
	// Core contracts
	RouterAddress    = common.HexToAddress("0x0450000000000000000000000000000000000000")
	GatewayAddress   = common.HexToAddress("0x0451000000000000000000000000000000000000")
	FeeLedgerAddress = common.HexToAddress("0x0452000000000000000000000000000000000000")
	AllowListAddress = common.HexToAddress("0x0453000000000000000000000000000000000000")

	// Reserved adapter range (inclusive)
	AdapterRangeStart = common.HexToAddress("0x0460000000000000000000000000000000000000")
	AdapterRangeEnd   = common.HexToAddress("0x04600000000000000000000000000000000000ff")
)

// Well-known adapter slots. Families get 16 slots each:
//   0x00-0x0F swaps, 0x10-0x1F mint/LP, 0x20-0x2F staking,
//   0x30-0x3F lending, 0x40-0x4F bridge withdrawals.
var (
	SwapV2Adapter         = AdapterAddress(0x00)
	SwapV3Adapter         = AdapterAddress(0x01)
	SwapStableAdapter     = AdapterAddress(0x02)
	MintV3Adapter         = AdapterAddress(0x10)
	StakeAdapter          = AdapterAddress(0x20)
	LiquidStakeAdapter    = AdapterAddress(0x21)
	LendSupplyAdapter     = AdapterAddress(0x30)
	LendBorrowAdapter     = AdapterAddress(0x31)
	BridgeWithdrawAdapter = AdapterAddress(0x40)
)

// AdapterAddress returns the address of adapter slot [slot] inside the
// reserved range.
func AdapterAddress(slot uint8) common.Address {
	addr := AdapterRangeStart
	addr[19] = slot
	return addr
}

// AdapterInfo contains metadata about a well-known adapter slot.
type AdapterInfo struct {
	Address     common.Address
	Name        string
	Description string
}

// KnownAdapters lists the adapter slots with assigned conventions.
var KnownAdapters = []AdapterInfo{
	{SwapV2Adapter, "SWAP_V2", "Constant-product AMM swap"},
	{SwapV3Adapter, "SWAP_V3", "Concentrated-liquidity AMM swap"},
	{SwapStableAdapter, "SWAP_STABLE", "Stable-pool swap"},
	{MintV3Adapter, "MINT_V3", "Concentrated-liquidity position mint"},
	{StakeAdapter, "STAKE", "Staking deposit"},
	{LiquidStakeAdapter, "LIQUID_STAKE", "Liquid staking deposit"},
	{LendSupplyAdapter, "LEND_SUPPLY", "Lending pool supply"},
	{LendBorrowAdapter, "LEND_BORROW", "Lending pool borrow"},
	{BridgeWithdrawAdapter, "BRIDGE_WITHDRAW", "Bridge withdrawal encoder"},
}

// GetAdapterAddress returns the address for a well-known adapter by name.
func GetAdapterAddress(name string) common.Address {
	for _, a := range KnownAdapters {
		if a.Name == name {
			return a.Address
		}
	}
	return common.Address{}
}

// IsCoreAddress reports whether [addr] is one of the core contract addresses.
func IsCoreAddress(addr common.Address) bool {
	switch addr {
	case RouterAddress, GatewayAddress, FeeLedgerAddress, AllowListAddress:
		return true
	default:
		return false
	}
}
