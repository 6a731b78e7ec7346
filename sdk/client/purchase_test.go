package client

import (
	"context"
	"math/big"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/SKALEZ-A/stablecoin-escrow-sub000/core/events"
	"github.com/SKALEZ-A/stablecoin-escrow-sub000/native/escrow"
	"github.com/SKALEZ-A/stablecoin-escrow-sub000/native/token"
	"github.com/SKALEZ-A/stablecoin-escrow-sub000/rpc"
	"github.com/SKALEZ-A/stablecoin-escrow-sub000/state"
	"github.com/SKALEZ-A/stablecoin-escrow-sub000/storage"
)

const testMintToken = "sdk-test-mint"

func fillAddr(fill byte) common.Address {
	var a common.Address
	for i := range a {
		a[i] = fill
	}
	return a
}

func newTestClient(t *testing.T) *Client {
	t.Helper()
	manager := state.NewManager(storage.NewMemDB())
	ledger := token.NewLedger("USDC", 6, fillAddr(0xFA))
	ledger.SetState(manager)
	recorder := events.NewRecorder(64)
	engine, err := escrow.NewEngine(fillAddr(0xAD), 1000)
	require.NoError(t, err)
	engine.SetState(manager)
	engine.SetLedger(ledger)
	engine.SetEmitter(recorder)

	server := rpc.NewServer(engine, ledger, recorder, rpc.ServerConfig{
		TokenAddress: fillAddr(0x0C),
		AuthToken:    testMintToken,
	}, nil)
	ts := httptest.NewServer(server.Router())
	t.Cleanup(ts.Close)

	c, err := New(ts.URL+"/rpc", WithAuthToken(testMintToken))
	require.NoError(t, err)
	return c
}

func TestClientViews(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	owner, err := c.Owner(ctx)
	require.NoError(t, err)
	require.Equal(t, fillAddr(0xAD), owner)

	info, err := c.Token(ctx)
	require.NoError(t, err)
	require.Equal(t, "USDC", info.Symbol)
	require.Equal(t, uint8(6), info.Decimals)

	feeBps, err := c.PlatformFeeBps(ctx)
	require.NoError(t, err)
	require.Equal(t, uint32(1000), feeBps)

	next, err := c.NextItemID(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(1), next)
}

func TestClientCalculateFees(t *testing.T) {
	c := newTestClient(t)
	split, err := c.CalculateFees(context.Background(), big.NewInt(100_000000))
	require.NoError(t, err)
	require.Equal(t, "10000000", split.PlatformFee)
	require.Equal(t, "90000000", split.CreatorPayout)
}

func TestClientListAndGet(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	creator := fillAddr(0x01)

	id, err := c.ListItem(ctx, creator, big.NewInt(5_000000), "Sticker pack")
	require.NoError(t, err)
	require.Equal(t, uint64(1), id)

	item, err := c.GetItem(ctx, id)
	require.NoError(t, err)
	require.True(t, item.Active)
	require.Equal(t, "Sticker pack", item.Title)
	price, err := item.PriceAmount()
	require.NoError(t, err)
	require.Equal(t, int64(5_000000), price.Int64())

	_, err = c.GetItem(ctx, 42)
	require.ErrorContains(t, err, "Item does not exist")
}

func TestPurchaseItemEndToEnd(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	creator := fillAddr(0x01)
	buyer := fillAddr(0x02)
	price := big.NewInt(100_000000) // 100 USDC

	id, err := c.ListItem(ctx, creator, price, "Studio print")
	require.NoError(t, err)
	require.NoError(t, c.Mint(ctx, buyer, price))

	receipt, err := c.PurchaseItem(ctx, buyer, id)
	require.NoError(t, err)
	require.NotEmpty(t, receipt.Reference)
	require.True(t, receipt.Approved)
	require.Equal(t, price, receipt.ApprovedBy)
	require.Equal(t, "10000000", receipt.Settlement.PlatformFee)
	require.Equal(t, "90000000", receipt.Settlement.CreatorPayout)

	creatorBalance, err := c.BalanceOf(ctx, creator)
	require.NoError(t, err)
	require.Equal(t, int64(90_000000), creatorBalance.Int64())
	ownerBalance, err := c.BalanceOf(ctx, fillAddr(0xAD))
	require.NoError(t, err)
	require.Equal(t, int64(10_000000), ownerBalance.Int64())
	buyerBalance, err := c.BalanceOf(ctx, buyer)
	require.NoError(t, err)
	require.Zero(t, buyerBalance.Sign())

	// The listing is consumed; a second purchase attempt fails up front.
	_, err = c.PurchaseItem(ctx, buyer, id)
	require.ErrorContains(t, err, "no longer active")
}

func TestPurchaseItemSkipsApproveWhenCovered(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	creator := fillAddr(0x01)
	buyer := fillAddr(0x02)
	price := big.NewInt(2_500000)

	id, err := c.ListItem(ctx, creator, price, "Zine")
	require.NoError(t, err)
	require.NoError(t, c.Mint(ctx, buyer, price))

	module, err := c.ModuleAddress(ctx)
	require.NoError(t, err)
	require.NoError(t, c.Approve(ctx, buyer, module, price))

	receipt, err := c.PurchaseItem(ctx, buyer, id)
	require.NoError(t, err)
	require.False(t, receipt.Approved)
	require.Nil(t, receipt.ApprovedBy)
}

func TestPurchaseItemSelfPurchase(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	creator := fillAddr(0x01)
	price := big.NewInt(1_000000)

	id, err := c.ListItem(ctx, creator, price, "Print")
	require.NoError(t, err)
	require.NoError(t, c.Mint(ctx, creator, price))

	_, err = c.PurchaseItem(ctx, creator, id)
	require.ErrorContains(t, err, "Cannot buy own item")
}

func TestMintRequiresAuthToken(t *testing.T) {
	c := newTestClient(t)
	unauthed, err := New(c.endpoint)
	require.NoError(t, err)
	err = unauthed.Mint(context.Background(), fillAddr(0x02), big.NewInt(1))
	require.ErrorContains(t, err, "bearer token")
}

func TestNewRequiresEndpoint(t *testing.T) {
	_, err := New("   ")
	require.Error(t, err)
}
