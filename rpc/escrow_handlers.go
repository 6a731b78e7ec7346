package rpc

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/SKALEZ-A/stablecoin-escrow-sub000/native/escrow"
	"github.com/SKALEZ-A/stablecoin-escrow-sub000/native/token"
	"github.com/SKALEZ-A/stablecoin-escrow-sub000/observability/metrics"
)

type calculateFeesParams struct {
	Price string `json:"price"`
}

type getItemParams struct {
	ID uint64 `json:"id"`
}

type listItemParams struct {
	Creator string `json:"creator"`
	Price   string `json:"price"`
	Title   string `json:"title"`
}

type buyItemParams struct {
	Buyer string `json:"buyer"`
	ID    uint64 `json:"id"`
}

type listEventsParams struct {
	Prefix string `json:"prefix,omitempty"`
	Limit  *int   `json:"limit,omitempty"`
}

func (s *Server) handleOwner(json.RawMessage) (interface{}, *RPCError) {
	return AddressResult{Address: strings.ToLower(s.engine.Owner().Hex())}, nil
}

func (s *Server) handleTokenInfo(json.RawMessage) (interface{}, *RPCError) {
	return TokenInfoResult{
		Address:  strings.ToLower(s.cfg.TokenAddress.Hex()),
		Symbol:   s.ledger.Symbol(),
		Decimals: s.ledger.Decimals(),
	}, nil
}

func (s *Server) handleModuleAddress(json.RawMessage) (interface{}, *RPCError) {
	return AddressResult{Address: strings.ToLower(escrow.ModuleAddress().Hex())}, nil
}

func (s *Server) handlePlatformFeePercent(json.RawMessage) (interface{}, *RPCError) {
	return FeePercentResult{FeeBps: s.engine.FeeBps()}, nil
}

func (s *Server) handleNextItemID(json.RawMessage) (interface{}, *RPCError) {
	id, err := s.engine.NextItemID()
	if err != nil {
		return nil, &RPCError{Code: codeServerError, Message: err.Error()}
	}
	return ListResult{ItemID: id}, nil
}

func (s *Server) handleCalculateFees(raw json.RawMessage) (interface{}, *RPCError) {
	var params calculateFeesParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, invalidParams(err)
	}
	price, rpcErr := parseAmount(params.Price, "price")
	if rpcErr != nil {
		return nil, rpcErr
	}
	if price.Sign() <= 0 {
		return nil, &RPCError{Code: codeInvalidParams, Message: escrow.ErrInvalidPrice.Error()}
	}
	fee, payout := s.engine.CalculateFees(price)
	return FeeResult{Price: price.String(), PlatformFee: fee.String(), CreatorPayout: payout.String()}, nil
}

func (s *Server) handleGetItem(raw json.RawMessage) (interface{}, *RPCError) {
	var params getItemParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, invalidParams(err)
	}
	item, err := s.engine.GetItem(params.ID)
	if err != nil {
		return nil, escrowError(err)
	}
	return formatItemResult(params.ID, item), nil
}

func (s *Server) handleListItem(raw json.RawMessage) (interface{}, *RPCError) {
	var params listItemParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, invalidParams(err)
	}
	creator, rpcErr := parseRPCAddress(params.Creator, "creator")
	if rpcErr != nil {
		return nil, rpcErr
	}
	price, rpcErr := parseAmount(params.Price, "price")
	if rpcErr != nil {
		return nil, rpcErr
	}
	id, err := s.engine.ListItem(creator, price, params.Title)
	if err != nil {
		return nil, escrowError(err)
	}
	metrics.Escrow().ItemListed()
	s.log.Info("item listed", "itemId", id, "creator", strings.ToLower(creator.Hex()), "price", price.String())
	return ListResult{ItemID: id}, nil
}

func (s *Server) handleBuyItem(raw json.RawMessage) (interface{}, *RPCError) {
	var params buyItemParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, invalidParams(err)
	}
	buyer, rpcErr := parseRPCAddress(params.Buyer, "buyer")
	if rpcErr != nil {
		return nil, rpcErr
	}
	settlement, err := s.engine.BuyItem(buyer, params.ID)
	if err != nil {
		metrics.Escrow().PurchaseFailed(purchaseFailureReason(err))
		return nil, escrowError(err)
	}
	metrics.Escrow().ItemPurchased(settlement.PlatformFee)
	s.log.Info("item purchased",
		"itemId", settlement.ItemID,
		"buyer", strings.ToLower(settlement.Buyer.Hex()),
		"creator", strings.ToLower(settlement.Creator.Hex()),
		"platformFee", settlement.PlatformFee.String(),
		"creatorPayout", settlement.CreatorPayout.String(),
	)
	return SettlementResult{
		ItemID:        settlement.ItemID,
		Buyer:         strings.ToLower(settlement.Buyer.Hex()),
		Creator:       strings.ToLower(settlement.Creator.Hex()),
		TotalPrice:    settlement.Price.String(),
		PlatformFee:   settlement.PlatformFee.String(),
		CreatorPayout: settlement.CreatorPayout.String(),
	}, nil
}

// handleListEvents returns recent settlement events. The optional prefix
// narrows results to a namespace such as "escrow.item.".
func (s *Server) handleListEvents(raw json.RawMessage) (interface{}, *RPCError) {
	var params listEventsParams
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &params); err != nil {
			return nil, invalidParams(err)
		}
	}
	prefix := "escrow."
	if trimmed := strings.TrimSpace(params.Prefix); trimmed != "" {
		prefix = trimmed
	}
	normalizedPrefix := strings.ToLower(prefix)
	recorded := s.recorder.Events()
	results := make([]EventResult, 0, len(recorded))
	for _, rec := range recorded {
		if !strings.HasPrefix(strings.ToLower(rec.Event.Type), normalizedPrefix) {
			continue
		}
		results = append(results, EventResult{
			Sequence:   rec.Sequence,
			Type:       rec.Event.Type,
			Attributes: rec.Event.Attributes,
		})
	}
	// A limit keeps the newest events; sequences are recorder-assigned so
	// they stay stable across queries.
	if params.Limit != nil {
		limit := *params.Limit
		if limit < 0 {
			limit = 0
		}
		if limit < len(results) {
			results = results[len(results)-limit:]
		}
	}
	return results, nil
}

func formatItemResult(id uint64, item *escrow.Item) ItemResult {
	price := "0"
	if item.Price != nil {
		price = item.Price.String()
	}
	return ItemResult{
		ItemID:   id,
		Creator:  strings.ToLower(item.Creator.Hex()),
		Price:    price,
		Title:    item.Title,
		Active:   item.Active,
		ListedAt: item.ListedAt,
	}
}

func invalidParams(err error) *RPCError {
	return &RPCError{Code: codeInvalidParams, Message: "invalid parameter object", Data: err.Error()}
}

func parseRPCAddress(raw, label string) (common.Address, *RPCError) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return common.Address{}, &RPCError{Code: codeInvalidParams, Message: label + " is required"}
	}
	if !common.IsHexAddress(trimmed) {
		return common.Address{}, &RPCError{Code: codeInvalidParams, Message: "invalid " + label + " address"}
	}
	return common.HexToAddress(trimmed), nil
}

func parseAmount(raw, label string) (*big.Int, *RPCError) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, &RPCError{Code: codeInvalidParams, Message: label + " is required"}
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, &RPCError{Code: codeInvalidParams, Message: fmt.Sprintf("invalid %s: %s", label, raw)}
	}
	if amount.Sign() < 0 {
		return nil, &RPCError{Code: codeInvalidParams, Message: label + " must not be negative"}
	}
	return amount, nil
}

func escrowError(err error) *RPCError {
	switch {
	case errors.Is(err, escrow.ErrItemNotFound):
		return &RPCError{Code: codeNotFound, Message: err.Error()}
	case errors.Is(err, escrow.ErrInvalidCreator),
		errors.Is(err, escrow.ErrInvalidPrice),
		errors.Is(err, escrow.ErrEmptyTitle):
		return &RPCError{Code: codeInvalidParams, Message: err.Error()}
	default:
		return &RPCError{Code: codeServerError, Message: err.Error()}
	}
}

func purchaseFailureReason(err error) string {
	switch {
	case errors.Is(err, escrow.ErrItemNotFound):
		return "not_found"
	case errors.Is(err, escrow.ErrItemInactive):
		return "inactive"
	case errors.Is(err, escrow.ErrSelfPurchase):
		return "self_purchase"
	case errors.Is(err, token.ErrInsufficientAllowance):
		return "allowance"
	case errors.Is(err, token.ErrInsufficientBalance):
		return "balance"
	default:
		return "other"
	}
}
