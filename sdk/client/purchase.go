package client

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

// PurchaseReceipt summarises a completed two-phase purchase: the approval
// phase (skipped when the existing allowance already covers the price) and the
// settlement phase.
type PurchaseReceipt struct {
	Reference  string
	ItemID     uint64
	Buyer      common.Address
	Approved   bool
	ApprovedBy *big.Int
	Settlement Settlement
}

// PurchaseItem drives the two-phase purchase protocol the stablecoin's
// approve/transferFrom pattern requires: first the buyer's allowance for the
// settlement module is topped up to the item price, then the purchase is
// settled. The service only requires that sufficient allowance exists when
// the buy executes.
func (c *Client) PurchaseItem(ctx context.Context, buyer common.Address, itemID uint64) (*PurchaseReceipt, error) {
	item, err := c.GetItem(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("purchase %d: fetch item: %w", itemID, err)
	}
	if !item.Active {
		return nil, fmt.Errorf("purchase %d: item is no longer active", itemID)
	}
	price, err := item.PriceAmount()
	if err != nil {
		return nil, fmt.Errorf("purchase %d: %w", itemID, err)
	}
	module, err := c.ModuleAddress(ctx)
	if err != nil {
		return nil, fmt.Errorf("purchase %d: resolve module address: %w", itemID, err)
	}

	receipt := &PurchaseReceipt{
		Reference: uuid.NewString(),
		ItemID:    itemID,
		Buyer:     buyer,
	}

	// Phase 1: approve, only when the standing allowance falls short.
	allowance, err := c.Allowance(ctx, buyer, module)
	if err != nil {
		return nil, fmt.Errorf("purchase %d: check allowance: %w", itemID, err)
	}
	if allowance.Cmp(price) < 0 {
		if err := c.Approve(ctx, buyer, module, price); err != nil {
			return nil, fmt.Errorf("purchase %d: approve: %w", itemID, err)
		}
		receipt.Approved = true
		receipt.ApprovedBy = new(big.Int).Set(price)
	}

	// Phase 2: settle.
	settlement, err := c.BuyItem(ctx, buyer, itemID)
	if err != nil {
		return nil, fmt.Errorf("purchase %d: buy: %w", itemID, err)
	}
	receipt.Settlement = settlement
	return receipt, nil
}
