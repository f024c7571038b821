// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package registry

import (
	"testing"

	"github.com/luxfi/geth/common"
)

func TestAdapterAddress(t *testing.T) {
	if got := AdapterAddress(0x00); got != AdapterRangeStart {
		t.Fatalf("slot 0 should be range start, got %s", got)
	}
	if got := AdapterAddress(0xff); got != AdapterRangeEnd {
		t.Fatalf("slot 0xff should be range end, got %s", got)
	}

	got := AdapterAddress(0x20)
	want := common.HexToAddress("0x0460000000000000000000000000000000000020")
	if got != want {
		t.Fatalf("slot 0x20: got %s, want %s", got, want)
	}
	if got != StakeAdapter {
		t.Fatalf("slot 0x20 should be the stake adapter, got %s", got)
	}
}

func TestGetAdapterAddress(t *testing.T) {
	if got := GetAdapterAddress("SWAP_V2"); got != SwapV2Adapter {
		t.Fatalf("SWAP_V2: got %s", got)
	}
	if got := GetAdapterAddress("NOPE"); got != (common.Address{}) {
		t.Fatalf("unknown name should be zero address, got %s", got)
	}
}

func TestKnownAdaptersInRange(t *testing.T) {
	seen := make(map[common.Address]bool)
	for _, a := range KnownAdapters {
		if seen[a.Address] {
			t.Fatalf("duplicate adapter address %s", a.Address)
		}
		seen[a.Address] = true

		if a.Address[0] != 0x04 || a.Address[1] != 0x60 {
			t.Fatalf("adapter %s outside reserved range: %s", a.Name, a.Address)
		}
	}
}

func TestIsCoreAddress(t *testing.T) {
	for _, addr := range []common.Address{RouterAddress, GatewayAddress, FeeLedgerAddress, AllowListAddress} {
		if !IsCoreAddress(addr) {
			t.Fatalf("%s should be core", addr)
		}
	}
	if IsCoreAddress(StakeAdapter) {
		t.Fatal("adapter slot is not a core address")
	}
	if IsCoreAddress(common.Address{}) {
		t.Fatal("zero address is not a core address")
	}
}
