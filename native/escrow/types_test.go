package escrow

import (
	"errors"
	"math/big"
	"testing"
)

func TestSplitFeeConservesValue(t *testing.T) {
	prices := []*big.Int{
		big.NewInt(1),
		big.NewInt(99),
		big.NewInt(100_000000),
		big.NewInt(99_999999),
		new(big.Int).Exp(big.NewInt(10), big.NewInt(24), nil),
	}
	bps := []uint32{0, 1, 50, 250, 1000, 9_999, 10_000}
	for _, price := range prices {
		for _, feeBps := range bps {
			fee, payout := SplitFee(price, feeBps)
			if new(big.Int).Add(fee, payout).Cmp(price) != 0 {
				t.Fatalf("bps=%d price=%s: fee %s + payout %s != price", feeBps, price, fee, payout)
			}
			want := new(big.Int).Mul(price, new(big.Int).SetUint64(uint64(feeBps)))
			want.Div(want, big.NewInt(10_000))
			if fee.Cmp(want) != 0 {
				t.Fatalf("bps=%d price=%s: fee %s, want %s", feeBps, price, fee, want)
			}
		}
	}
}

func TestSplitFeeFloorsTruncation(t *testing.T) {
	// 1 base unit at 50 bps floors to zero fee; the creator keeps the unit.
	fee, payout := SplitFee(big.NewInt(1), 50)
	if fee.Sign() != 0 {
		t.Fatalf("expected zero fee, got %s", fee)
	}
	if payout.Cmp(big.NewInt(1)) != 0 {
		t.Fatalf("expected payout 1, got %s", payout)
	}
	// 100 USDC at 1000 bps is exactly 10 USDC.
	fee, payout = SplitFee(big.NewInt(100_000000), 1000)
	if fee.Cmp(big.NewInt(10_000000)) != 0 || payout.Cmp(big.NewInt(90_000000)) != 0 {
		t.Fatalf("unexpected split (%s, %s)", fee, payout)
	}
}

func TestSplitFeeNilPrice(t *testing.T) {
	fee, payout := SplitFee(nil, 1000)
	if fee.Sign() != 0 || payout.Sign() != 0 {
		t.Fatalf("expected zero split for nil price, got (%s, %s)", fee, payout)
	}
}

func TestSanitizeItem(t *testing.T) {
	valid := &Item{
		Creator: newTestAddress(0x01),
		Price:   big.NewInt(5),
		Title:   "Widget",
		Active:  true,
	}
	if _, err := SanitizeItem(valid); err != nil {
		t.Fatalf("sanitize valid item: %v", err)
	}

	invalid := valid.Clone()
	invalid.Creator = [20]byte{}
	if _, err := SanitizeItem(invalid); !errors.Is(err, ErrInvalidCreator) {
		t.Fatalf("expected ErrInvalidCreator, got %v", err)
	}

	invalid = valid.Clone()
	invalid.Price = big.NewInt(0)
	if _, err := SanitizeItem(invalid); !errors.Is(err, ErrInvalidPrice) {
		t.Fatalf("expected ErrInvalidPrice, got %v", err)
	}

	invalid = valid.Clone()
	invalid.Title = "  "
	if _, err := SanitizeItem(invalid); !errors.Is(err, ErrEmptyTitle) {
		t.Fatalf("expected ErrEmptyTitle, got %v", err)
	}

	if _, err := SanitizeItem(nil); err == nil {
		t.Fatal("expected error for nil item")
	}
}

func TestItemCloneIsIndependent(t *testing.T) {
	original := &Item{
		Creator: newTestAddress(0x01),
		Price:   big.NewInt(10),
		Title:   "Widget",
		Active:  true,
	}
	clone := original.Clone()
	clone.Price.SetInt64(999)
	clone.Active = false
	if original.Price.Cmp(big.NewInt(10)) != 0 {
		t.Fatal("clone mutation leaked into original price")
	}
	if !original.Active {
		t.Fatal("clone mutation leaked into original status")
	}
}
