package escrow

import (
	"strconv"
	"strings"

	"github.com/SKALEZ-A/stablecoin-escrow-sub000/core/types"
)

const (
	EventTypeItemListed    = "escrow.item.listed"
	EventTypeItemPurchased = "escrow.item.purchased"
)

// NewItemListedEvent returns the canonical event payload for a new listing.
func NewItemListedEvent(id uint64, item *Item) *types.Event {
	attrs := make(map[string]string)
	if item == nil {
		return &types.Event{Type: EventTypeItemListed, Attributes: attrs}
	}
	attrs["itemId"] = strconv.FormatUint(id, 10)
	attrs["creator"] = strings.ToLower(item.Creator.Hex())
	if item.Price != nil {
		attrs["price"] = item.Price.String()
	}
	attrs["title"] = item.Title
	attrs["listedAt"] = strconv.FormatUint(item.ListedAt, 10)
	return &types.Event{Type: EventTypeItemListed, Attributes: attrs}
}

// NewItemPurchasedEvent returns the canonical event payload emitted when a
// purchase settles.
func NewItemPurchasedEvent(s *Settlement, item *Item) *types.Event {
	attrs := make(map[string]string)
	if s == nil {
		return &types.Event{Type: EventTypeItemPurchased, Attributes: attrs}
	}
	attrs["itemId"] = strconv.FormatUint(s.ItemID, 10)
	attrs["buyer"] = strings.ToLower(s.Buyer.Hex())
	attrs["creator"] = strings.ToLower(s.Creator.Hex())
	if s.Price != nil {
		attrs["totalPrice"] = s.Price.String()
	}
	if s.PlatformFee != nil {
		attrs["platformFee"] = s.PlatformFee.String()
	}
	if s.CreatorPayout != nil {
		attrs["creatorPayout"] = s.CreatorPayout.String()
	}
	if item != nil {
		attrs["title"] = item.Title
	}
	return &types.Event{Type: EventTypeItemPurchased, Attributes: attrs}
}
