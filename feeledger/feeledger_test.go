// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package feeledger

import (
	"math/big"
	"testing"

	"github.com/luxfi/geth/common"
)

var (
	admin      = common.HexToAddress("0x1234567890123456789012345678901234567890")
	stranger   = common.HexToAddress("0x9999999999999999999999999999999999999999")
	recipientA = common.HexToAddress("0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA")
	fallbackTo = common.HexToAddress("0xBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBB")
)

func TestSetAndResolveRecipient(t *testing.T) {
	fl := New(admin, common.Address{})
	app := AppID("partner-one")

	if err := fl.SetRecipient(admin, app, recipientA); err != nil {
		t.Fatalf("SetRecipient failed: %v", err)
	}

	got, err := fl.Resolve(app)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got != recipientA {
		t.Errorf("Expected %s, got %s", recipientA, got)
	}
}

func TestResolveFallback(t *testing.T) {
	fl := New(admin, fallbackTo)

	got, err := fl.Resolve(AppID("unregistered"))
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got != fallbackTo {
		t.Errorf("Expected fallback %s, got %s", fallbackTo, got)
	}
}

func TestResolveNoRecipient(t *testing.T) {
	fl := New(admin, common.Address{})

	_, err := fl.Resolve(AppID("unregistered"))
	if err != ErrNoRecipient {
		t.Errorf("Expected ErrNoRecipient, got %v", err)
	}
}

func TestSetRecipientUnauthorized(t *testing.T) {
	fl := New(admin, common.Address{})

	err := fl.SetRecipient(stranger, AppID("partner-one"), recipientA)
	if err != ErrUnauthorized {
		t.Errorf("Expected ErrUnauthorized, got %v", err)
	}
}

func TestSetRecipientRemove(t *testing.T) {
	fl := New(admin, common.Address{})
	app := AppID("partner-one")

	_ = fl.SetRecipient(admin, app, recipientA)
	_ = fl.SetRecipient(admin, app, common.Address{})

	if _, err := fl.Resolve(app); err != ErrNoRecipient {
		t.Errorf("Expected ErrNoRecipient after removal, got %v", err)
	}
}

func TestComputeFeePercentage(t *testing.T) {
	tests := []struct {
		name     string
		amount   *big.Int
		rate     *big.Int
		expected *big.Int
	}{
		{"0.5% of 1e18", big.NewInt(1e18), big.NewInt(50), big.NewInt(5e15)},
		{"1% of 10000", big.NewInt(10000), big.NewInt(100), big.NewInt(100)},
		{"floor rounding", big.NewInt(999), big.NewInt(50), big.NewInt(4)}, // 999*50/10000 = 4.995
		{"zero rate", big.NewInt(1e18), big.NewInt(0), big.NewInt(0)},
		{"full amount", big.NewInt(1e18), big.NewInt(RateDenominator), big.NewInt(1e18)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fee, err := ComputeFee(tt.amount, tt.rate, true)
			if err != nil {
				t.Fatalf("ComputeFee failed: %v", err)
			}
			if fee.Cmp(tt.expected) != 0 {
				t.Errorf("Expected fee %v, got %v", tt.expected, fee)
			}
		})
	}
}

func TestComputeFeeAbsolute(t *testing.T) {
	fee, err := ComputeFee(big.NewInt(1000), big.NewInt(75), false)
	if err != nil {
		t.Fatalf("ComputeFee failed: %v", err)
	}
	if fee.Cmp(big.NewInt(75)) != 0 {
		t.Errorf("Expected literal fee 75, got %v", fee)
	}
}

func TestComputeFeeExceedsAmount(t *testing.T) {
	// Absolute fee above principal.
	if _, err := ComputeFee(big.NewInt(100), big.NewInt(101), false); err != ErrFeeExceedsAmount {
		t.Errorf("Expected ErrFeeExceedsAmount, got %v", err)
	}

	// Percentage rate above 100%.
	if _, err := ComputeFee(big.NewInt(100), big.NewInt(RateDenominator+1), true); err != ErrFeeExceedsAmount {
		t.Errorf("Expected ErrFeeExceedsAmount, got %v", err)
	}
}

func TestComputeFeeInvalidInputs(t *testing.T) {
	if _, err := ComputeFee(nil, big.NewInt(1), true); err != ErrNilAmount {
		t.Errorf("Expected ErrNilAmount, got %v", err)
	}
	if _, err := ComputeFee(big.NewInt(1), nil, true); err != ErrNilAmount {
		t.Errorf("Expected ErrNilAmount, got %v", err)
	}
	if _, err := ComputeFee(big.NewInt(-1), big.NewInt(1), true); err != ErrNegativeAmount {
		t.Errorf("Expected ErrNegativeAmount, got %v", err)
	}
	if _, err := ComputeFee(big.NewInt(1), big.NewInt(-1), false); err != ErrNegativeAmount {
		t.Errorf("Expected ErrNegativeAmount, got %v", err)
	}
}

func TestAppIDDeterministic(t *testing.T) {
	if AppID("partner-one") != AppID("partner-one") {
		t.Error("AppID must be deterministic")
	}
	if AppID("partner-one") == AppID("partner-two") {
		t.Error("Distinct names must hash to distinct IDs")
	}
}

func BenchmarkComputeFee(b *testing.B) {
	amount := big.NewInt(1e18)
	rate := big.NewInt(50)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = ComputeFee(amount, rate, true)
	}
}
