package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

const (
	jsonRPCVersion = "2.0"
	defaultRPCID   = 1
)

// Client wraps the settlement service JSON-RPC endpoint with typed helpers.
type Client struct {
	endpoint   string
	httpClient *http.Client
	authToken  string
}

// Option configures the client defaults.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used for RPC calls.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithAuthToken sets the bearer token attached to privileged RPC requests.
func WithAuthToken(token string) Option {
	return func(c *Client) {
		c.authToken = strings.TrimSpace(token)
	}
}

// New initialises a client bound to the provided JSON-RPC endpoint.
func New(endpoint string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimSpace(endpoint)
	if trimmed == "" {
		return nil, fmt.Errorf("client: endpoint required")
	}
	c := &Client{
		endpoint:   trimmed,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if c.httpClient == nil {
		c.httpClient = http.DefaultClient
	}
	return c, nil
}

type rpcRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      int         `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data,omitempty"`
}

func (e *rpcError) Error() string {
	if e == nil {
		return ""
	}
	if e.Data != "" {
		return fmt.Sprintf("rpc error %d: %s (%s)", e.Code, e.Message, e.Data)
	}
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

func (c *Client) call(ctx context.Context, method string, params, result interface{}) error {
	payload, err := json.Marshal(rpcRequest{JSONRPC: jsonRPCVersion, ID: defaultRPCID, Method: method, Params: params})
	if err != nil {
		return fmt.Errorf("client: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("client: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("client: %s: %w", method, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("client: read response: %w", err)
	}
	var envelope rpcResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("client: decode response: %w", err)
	}
	if envelope.Error != nil {
		return envelope.Error
	}
	if result != nil {
		if err := json.Unmarshal(envelope.Result, result); err != nil {
			return fmt.Errorf("client: decode result: %w", err)
		}
	}
	return nil
}

// Item mirrors the escrow_getItem result.
type Item struct {
	ItemID   uint64 `json:"itemId"`
	Creator  string `json:"creator"`
	Price    string `json:"price"`
	Title    string `json:"title"`
	Active   bool   `json:"active"`
	ListedAt uint64 `json:"listedAt"`
}

// PriceAmount parses the item price into a big integer of base units.
func (i Item) PriceAmount() (*big.Int, error) {
	amount, ok := new(big.Int).SetString(i.Price, 10)
	if !ok {
		return nil, fmt.Errorf("client: invalid item price: %s", i.Price)
	}
	return amount, nil
}

// FeeSplit mirrors the escrow_calculateFees result.
type FeeSplit struct {
	Price         string `json:"price"`
	PlatformFee   string `json:"platformFee"`
	CreatorPayout string `json:"creatorPayout"`
}

// Settlement mirrors the escrow_buyItem result.
type Settlement struct {
	ItemID        uint64 `json:"itemId"`
	Buyer         string `json:"buyer"`
	Creator       string `json:"creator"`
	TotalPrice    string `json:"totalPrice"`
	PlatformFee   string `json:"platformFee"`
	CreatorPayout string `json:"creatorPayout"`
}

// TokenInfo mirrors the escrow_token result.
type TokenInfo struct {
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
}

type addressResult struct {
	Address string `json:"address"`
}

type amountResult struct {
	Amount string `json:"amount"`
}

type listResult struct {
	ItemID uint64 `json:"itemId"`
}

// Owner fetches the platform admin address.
func (c *Client) Owner(ctx context.Context) (common.Address, error) {
	var res addressResult
	if err := c.call(ctx, "escrow_owner", nil, &res); err != nil {
		return common.Address{}, err
	}
	return common.HexToAddress(res.Address), nil
}

// ModuleAddress fetches the spender address buyers must approve.
func (c *Client) ModuleAddress(ctx context.Context) (common.Address, error) {
	var res addressResult
	if err := c.call(ctx, "escrow_moduleAddress", nil, &res); err != nil {
		return common.Address{}, err
	}
	return common.HexToAddress(res.Address), nil
}

// Token fetches the configured stablecoin metadata.
func (c *Client) Token(ctx context.Context) (TokenInfo, error) {
	var res TokenInfo
	err := c.call(ctx, "escrow_token", nil, &res)
	return res, err
}

// PlatformFeeBps fetches the platform fee in basis points.
func (c *Client) PlatformFeeBps(ctx context.Context) (uint32, error) {
	var res struct {
		FeeBps uint32 `json:"feeBps"`
	}
	err := c.call(ctx, "escrow_platformFeePercent", nil, &res)
	return res.FeeBps, err
}

// NextItemID fetches the identifier the next listing will receive.
func (c *Client) NextItemID(ctx context.Context) (uint64, error) {
	var res listResult
	err := c.call(ctx, "escrow_nextItemId", nil, &res)
	return res.ItemID, err
}

// GetItem fetches a stored listing.
func (c *Client) GetItem(ctx context.Context, id uint64) (Item, error) {
	var res Item
	err := c.call(ctx, "escrow_getItem", map[string]interface{}{"id": id}, &res)
	return res, err
}

// CalculateFees fetches the fee split for a price in base units.
func (c *Client) CalculateFees(ctx context.Context, price *big.Int) (FeeSplit, error) {
	var res FeeSplit
	err := c.call(ctx, "escrow_calculateFees", map[string]interface{}{"price": price.String()}, &res)
	return res, err
}

// ListItem creates a listing crediting the supplied creator address.
func (c *Client) ListItem(ctx context.Context, creator common.Address, price *big.Int, title string) (uint64, error) {
	var res listResult
	err := c.call(ctx, "escrow_listItem", map[string]interface{}{
		"creator": creator.Hex(),
		"price":   price.String(),
		"title":   title,
	}, &res)
	return res.ItemID, err
}

// BuyItem settles a purchase. The buyer must already hold sufficient
// allowance; use PurchaseItem for the full two-phase flow.
func (c *Client) BuyItem(ctx context.Context, buyer common.Address, id uint64) (Settlement, error) {
	var res Settlement
	err := c.call(ctx, "escrow_buyItem", map[string]interface{}{
		"buyer": buyer.Hex(),
		"id":    id,
	}, &res)
	return res, err
}

// BalanceOf fetches the stablecoin balance of an address.
func (c *Client) BalanceOf(ctx context.Context, addr common.Address) (*big.Int, error) {
	var res amountResult
	if err := c.call(ctx, "token_balanceOf", map[string]interface{}{"address": addr.Hex()}, &res); err != nil {
		return nil, err
	}
	return parseAmount(res.Amount)
}

// Allowance fetches the allowance owner has granted to spender.
func (c *Client) Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error) {
	var res amountResult
	if err := c.call(ctx, "token_allowance", map[string]interface{}{
		"owner":   owner.Hex(),
		"spender": spender.Hex(),
	}, &res); err != nil {
		return nil, err
	}
	return parseAmount(res.Amount)
}

// Approve sets the spender allowance for owner, overwriting any previous
// value.
func (c *Client) Approve(ctx context.Context, owner, spender common.Address, amount *big.Int) error {
	return c.call(ctx, "token_approve", map[string]interface{}{
		"owner":   owner.Hex(),
		"spender": spender.Hex(),
		"amount":  amount.String(),
	}, nil)
}

// Mint credits newly issued supply. Requires the client auth token.
func (c *Client) Mint(ctx context.Context, to common.Address, amount *big.Int) error {
	return c.call(ctx, "token_mint", map[string]interface{}{
		"to":     to.Hex(),
		"amount": amount.String(),
	}, nil)
}

func parseAmount(raw string) (*big.Int, error) {
	amount, ok := new(big.Int).SetString(strings.TrimSpace(raw), 10)
	if !ok {
		return nil, fmt.Errorf("client: invalid amount: %s", raw)
	}
	return amount, nil
}
