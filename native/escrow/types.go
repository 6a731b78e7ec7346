package escrow

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// MaxFeeBps is the upper bound for the platform fee expressed in basis points
// (10000 bps = 100%).
const MaxFeeBps = uint32(10_000)

// Item captures a single marketplace listing tracked by the settlement engine.
// Creator, Price and Title are immutable after listing; Active flips to false
// exactly once, atomically with the purchase settlement.
type Item struct {
	Creator  common.Address
	Price    *big.Int
	Title    string
	Active   bool
	ListedAt uint64
}

// Clone returns a deep copy of the item so callers can safely mutate the copy
// without affecting the stored instance.
func (i *Item) Clone() *Item {
	if i == nil {
		return nil
	}
	clone := *i
	if i.Price != nil {
		clone.Price = new(big.Int).Set(i.Price)
	} else {
		clone.Price = big.NewInt(0)
	}
	return &clone
}

// SanitizeItem validates the supplied item definition and returns a cloned
// instance with a non-nil price field. The function does not mutate the
// original value.
func SanitizeItem(i *Item) (*Item, error) {
	if i == nil {
		return nil, fmt.Errorf("nil item")
	}
	clone := i.Clone()
	if clone.Creator == (common.Address{}) {
		return nil, ErrInvalidCreator
	}
	if clone.Price == nil || clone.Price.Sign() <= 0 {
		return nil, ErrInvalidPrice
	}
	if strings.TrimSpace(clone.Title) == "" {
		return nil, ErrEmptyTitle
	}
	return clone, nil
}

// Settlement summarises a completed purchase: the fee routed to the platform
// owner and the payout routed to the item creator. PlatformFee + CreatorPayout
// always equals Price.
type Settlement struct {
	ItemID        uint64
	Buyer         common.Address
	Creator       common.Address
	Price         *big.Int
	PlatformFee   *big.Int
	CreatorPayout *big.Int
}

// SplitFee computes the platform fee and creator payout for the supplied price
// using floor division on basis points. The two parts always sum to the price;
// truncation only ever rounds the fee down in the creator's favour.
func SplitFee(price *big.Int, feeBps uint32) (fee, payout *big.Int) {
	total := big.NewInt(0)
	if price != nil {
		total = new(big.Int).Set(price)
	}
	fee = new(big.Int).Mul(total, new(big.Int).SetUint64(uint64(feeBps)))
	fee.Div(fee, big.NewInt(int64(MaxFeeBps)))
	payout = new(big.Int).Sub(total, fee)
	return fee, payout
}
