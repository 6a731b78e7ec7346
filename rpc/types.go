package rpc

import "encoding/json"

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20 // 1 MiB
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeNotFound       = -32004
	codeUnauthorized   = -32001
	codeServerError    = -32000
)

// RPCRequest is a JSON-RPC 2.0 request envelope. Params may be a single
// object or a one-element positional array wrapping that object.
type RPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// RPCError carries a JSON-RPC error payload.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data,omitempty"`
}

// RPCResponse is a JSON-RPC 2.0 response envelope.
type RPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  interface{}     `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// ItemResult is the wire form of a stored listing.
type ItemResult struct {
	ItemID   uint64 `json:"itemId"`
	Creator  string `json:"creator"`
	Price    string `json:"price"`
	Title    string `json:"title"`
	Active   bool   `json:"active"`
	ListedAt uint64 `json:"listedAt"`
}

// FeeResult is the wire form of a fee split computation.
type FeeResult struct {
	Price         string `json:"price"`
	PlatformFee   string `json:"platformFee"`
	CreatorPayout string `json:"creatorPayout"`
}

// ListResult reports the identifier of a new listing.
type ListResult struct {
	ItemID uint64 `json:"itemId"`
}

// SettlementResult is the wire form of a completed purchase.
type SettlementResult struct {
	ItemID        uint64 `json:"itemId"`
	Buyer         string `json:"buyer"`
	Creator       string `json:"creator"`
	TotalPrice    string `json:"totalPrice"`
	PlatformFee   string `json:"platformFee"`
	CreatorPayout string `json:"creatorPayout"`
}

// TokenInfoResult describes the configured stablecoin.
type TokenInfoResult struct {
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
}

// AddressResult wraps a single address value.
type AddressResult struct {
	Address string `json:"address"`
}

// FeePercentResult reports the platform fee in basis points.
type FeePercentResult struct {
	FeeBps uint32 `json:"feeBps"`
}

// AmountResult wraps a single base-unit amount.
type AmountResult struct {
	Amount string `json:"amount"`
}

// EventResult represents an emitted settlement event. Sequence is assigned by
// the recorder and is stable across queries.
type EventResult struct {
	Sequence   uint64            `json:"sequence"`
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}
