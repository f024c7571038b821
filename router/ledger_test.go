// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package router

import (
	"math/big"
	"testing"

	"github.com/luxfi/geth/common"
)

var (
	alice = common.HexToAddress("0x1111111111111111111111111111111111111111")
	bob   = common.HexToAddress("0x2222222222222222222222222222222222222222")
	token = common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
)

func TestLedgerCreditAndBalance(t *testing.T) {
	l := NewLedger()

	if bal := l.BalanceOf(alice, token); bal.Sign() != 0 {
		t.Fatalf("expected zero balance, got %s", bal)
	}

	if err := l.Credit(alice, token, big.NewInt(1000)); err != nil {
		t.Fatalf("credit failed: %v", err)
	}
	if err := l.Credit(alice, token, big.NewInt(500)); err != nil {
		t.Fatalf("credit failed: %v", err)
	}
	if bal := l.BalanceOf(alice, token); bal.Cmp(big.NewInt(1500)) != 0 {
		t.Fatalf("expected 1500, got %s", bal)
	}

	if err := l.Credit(alice, token, nil); err != ErrNilAmount {
		t.Fatalf("expected ErrNilAmount, got %v", err)
	}
	if err := l.Credit(alice, token, big.NewInt(-1)); err != ErrNegativeAmount {
		t.Fatalf("expected ErrNegativeAmount, got %v", err)
	}
}

func TestLedgerTransfer(t *testing.T) {
	l := NewLedger()
	if err := l.Credit(alice, token, big.NewInt(100)); err != nil {
		t.Fatalf("credit failed: %v", err)
	}

	if err := l.Transfer(alice, bob, token, big.NewInt(60)); err != nil {
		t.Fatalf("transfer failed: %v", err)
	}
	if bal := l.BalanceOf(alice, token); bal.Cmp(big.NewInt(40)) != 0 {
		t.Fatalf("expected sender balance 40, got %s", bal)
	}
	if bal := l.BalanceOf(bob, token); bal.Cmp(big.NewInt(60)) != 0 {
		t.Fatalf("expected recipient balance 60, got %s", bal)
	}

	if err := l.Transfer(alice, bob, token, big.NewInt(41)); err != ErrInsufficientBalance {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if bal := l.BalanceOf(alice, token); bal.Cmp(big.NewInt(40)) != 0 {
		t.Fatalf("failed transfer moved funds: %s", bal)
	}
}

func TestLedgerBalanceOfReturnsCopy(t *testing.T) {
	l := NewLedger()
	if err := l.Credit(alice, token, big.NewInt(100)); err != nil {
		t.Fatalf("credit failed: %v", err)
	}

	bal := l.BalanceOf(alice, token)
	bal.SetInt64(0)
	if stored := l.BalanceOf(alice, token); stored.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("caller mutated stored balance: %s", stored)
	}
}

func TestLedgerSnapshotRevert(t *testing.T) {
	l := NewLedger()
	if err := l.Credit(alice, token, big.NewInt(100)); err != nil {
		t.Fatalf("credit failed: %v", err)
	}

	rev := l.Snapshot()

	if err := l.Transfer(alice, bob, token, big.NewInt(70)); err != nil {
		t.Fatalf("transfer failed: %v", err)
	}
	if err := l.Credit(bob, NativeAsset, big.NewInt(5)); err != nil {
		t.Fatalf("credit failed: %v", err)
	}

	l.RevertToSnapshot(rev)

	if bal := l.BalanceOf(alice, token); bal.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("expected alice restored to 100, got %s", bal)
	}
	if bal := l.BalanceOf(bob, token); bal.Sign() != 0 {
		t.Fatalf("expected bob restored to zero, got %s", bal)
	}
	if bal := l.BalanceOf(bob, NativeAsset); bal.Sign() != 0 {
		t.Fatalf("expected bob native restored to zero, got %s", bal)
	}
}

func TestLedgerNestedSnapshots(t *testing.T) {
	l := NewLedger()
	if err := l.Credit(alice, token, big.NewInt(100)); err != nil {
		t.Fatalf("credit failed: %v", err)
	}

	outer := l.Snapshot()
	if err := l.Transfer(alice, bob, token, big.NewInt(10)); err != nil {
		t.Fatalf("transfer failed: %v", err)
	}

	inner := l.Snapshot()
	if err := l.Transfer(alice, bob, token, big.NewInt(20)); err != nil {
		t.Fatalf("transfer failed: %v", err)
	}

	l.RevertToSnapshot(inner)
	if bal := l.BalanceOf(bob, token); bal.Cmp(big.NewInt(10)) != 0 {
		t.Fatalf("expected inner revert to keep 10, got %s", bal)
	}

	l.RevertToSnapshot(outer)
	if bal := l.BalanceOf(bob, token); bal.Sign() != 0 {
		t.Fatalf("expected outer revert to zero, got %s", bal)
	}
	if bal := l.BalanceOf(alice, token); bal.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("expected alice restored to 100, got %s", bal)
	}
}

func TestLedgerRevertInvalidRevision(t *testing.T) {
	l := NewLedger()
	if err := l.Credit(alice, token, big.NewInt(100)); err != nil {
		t.Fatalf("credit failed: %v", err)
	}

	// Out-of-range revisions are ignored.
	l.RevertToSnapshot(-1)
	l.RevertToSnapshot(99)

	if bal := l.BalanceOf(alice, token); bal.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("invalid revision changed state: %s", bal)
	}
}

func BenchmarkLedgerTransfer(b *testing.B) {
	l := NewLedger()
	if err := l.Credit(alice, token, new(big.Int).Lsh(big.NewInt(1), 200)); err != nil {
		b.Fatalf("credit failed: %v", err)
	}
	one := big.NewInt(1)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := l.Transfer(alice, bob, token, one); err != nil {
			b.Fatalf("transfer failed: %v", err)
		}
	}
}
