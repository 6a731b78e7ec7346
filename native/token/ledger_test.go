package token

import (
	"errors"
	"fmt"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

type memLedgerState struct {
	balances   map[common.Address]*big.Int
	allowances map[string]*big.Int
	failSetFor map[common.Address]bool
}

func newMemLedgerState() *memLedgerState {
	return &memLedgerState{
		balances:   make(map[common.Address]*big.Int),
		allowances: make(map[string]*big.Int),
		failSetFor: make(map[common.Address]bool),
	}
}

func allowanceKey(owner, spender common.Address) string {
	return owner.Hex() + "/" + spender.Hex()
}

func (m *memLedgerState) TokenBalance(addr common.Address) (*big.Int, error) {
	if bal, ok := m.balances[addr]; ok {
		return new(big.Int).Set(bal), nil
	}
	return big.NewInt(0), nil
}

func (m *memLedgerState) TokenSetBalance(addr common.Address, amount *big.Int) error {
	if m.failSetFor[addr] {
		return fmt.Errorf("injected write failure")
	}
	m.balances[addr] = new(big.Int).Set(amount)
	return nil
}

func (m *memLedgerState) TokenAllowance(owner, spender common.Address) (*big.Int, error) {
	if allowance, ok := m.allowances[allowanceKey(owner, spender)]; ok {
		return new(big.Int).Set(allowance), nil
	}
	return big.NewInt(0), nil
}

func (m *memLedgerState) TokenSetAllowance(owner, spender common.Address, amount *big.Int) error {
	m.allowances[allowanceKey(owner, spender)] = new(big.Int).Set(amount)
	return nil
}

func addr(fill byte) common.Address {
	var a common.Address
	for i := range a {
		a[i] = fill
	}
	return a
}

func newTestLedger() (*Ledger, *memLedgerState) {
	state := newMemLedgerState()
	ledger := NewLedger("USDC", 6, addr(0xFA))
	ledger.SetState(state)
	return ledger, state
}

func TestMintRequiresAuthority(t *testing.T) {
	ledger, _ := newTestLedger()
	holder := addr(0x01)
	if err := ledger.Mint(addr(0x02), holder, big.NewInt(100)); !errors.Is(err, ErrUnauthorizedMint) {
		t.Fatalf("expected ErrUnauthorizedMint, got %v", err)
	}
	if err := ledger.Mint(ledger.Authority(), holder, big.NewInt(100)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if got := ledger.BalanceOf(holder); got.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("balance = %s, want 100", got)
	}
}

func TestMintValidation(t *testing.T) {
	ledger, _ := newTestLedger()
	if err := ledger.Mint(ledger.Authority(), common.Address{}, big.NewInt(1)); !errors.Is(err, ErrZeroAddress) {
		t.Fatalf("expected ErrZeroAddress, got %v", err)
	}
	if err := ledger.Mint(ledger.Authority(), addr(0x01), big.NewInt(0)); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestTransferMovesBalance(t *testing.T) {
	ledger, _ := newTestLedger()
	from, to := addr(0x01), addr(0x02)
	if err := ledger.Mint(ledger.Authority(), from, big.NewInt(50)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := ledger.Transfer(from, to, big.NewInt(20)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if got := ledger.BalanceOf(from); got.Cmp(big.NewInt(30)) != 0 {
		t.Fatalf("from balance = %s, want 30", got)
	}
	if got := ledger.BalanceOf(to); got.Cmp(big.NewInt(20)) != 0 {
		t.Fatalf("to balance = %s, want 20", got)
	}
	if err := ledger.Transfer(from, to, big.NewInt(31)); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
}

func TestSelfTransferConservesSupply(t *testing.T) {
	ledger, _ := newTestLedger()
	holder := addr(0x01)
	if err := ledger.Mint(ledger.Authority(), holder, big.NewInt(100)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := ledger.Transfer(holder, holder, big.NewInt(60)); err != nil {
		t.Fatalf("self transfer: %v", err)
	}
	if got := ledger.BalanceOf(holder); got.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("self-transfer changed balance: got %s, want 100", got)
	}
}

func TestSelfTransferFromConservesSupply(t *testing.T) {
	ledger, _ := newTestLedger()
	holder, spender := addr(0x01), addr(0x02)
	if err := ledger.Mint(ledger.Authority(), holder, big.NewInt(100)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := ledger.Approve(holder, spender, big.NewInt(60)); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := ledger.TransferFrom(spender, holder, holder, big.NewInt(60)); err != nil {
		t.Fatalf("self transferFrom: %v", err)
	}
	if got := ledger.BalanceOf(holder); got.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("self-transferFrom changed balance: got %s, want 100", got)
	}
	if got := ledger.Allowance(holder, spender); got.Sign() != 0 {
		t.Fatalf("allowance = %s, want 0 after self-transferFrom", got)
	}
}

func TestApproveOverwrites(t *testing.T) {
	ledger, _ := newTestLedger()
	owner, spender := addr(0x01), addr(0x02)
	if err := ledger.Approve(owner, spender, big.NewInt(100)); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if got := ledger.Allowance(owner, spender); got.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("allowance = %s, want 100", got)
	}
	if err := ledger.Approve(owner, spender, big.NewInt(40)); err != nil {
		t.Fatalf("approve overwrite: %v", err)
	}
	if got := ledger.Allowance(owner, spender); got.Cmp(big.NewInt(40)) != 0 {
		t.Fatalf("allowance = %s, want 40 after overwrite", got)
	}
	if err := ledger.Approve(owner, spender, big.NewInt(0)); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if got := ledger.Allowance(owner, spender); got.Sign() != 0 {
		t.Fatalf("allowance = %s, want 0 after revoke", got)
	}
}

func TestTransferFromConsumesAllowance(t *testing.T) {
	ledger, _ := newTestLedger()
	owner, spender, dest := addr(0x01), addr(0x02), addr(0x03)
	if err := ledger.Mint(ledger.Authority(), owner, big.NewInt(100)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := ledger.TransferFrom(spender, owner, dest, big.NewInt(10)); !errors.Is(err, ErrInsufficientAllowance) {
		t.Fatalf("expected ErrInsufficientAllowance, got %v", err)
	}
	if err := ledger.Approve(owner, spender, big.NewInt(60)); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := ledger.TransferFrom(spender, owner, dest, big.NewInt(45)); err != nil {
		t.Fatalf("transferFrom: %v", err)
	}
	if got := ledger.Allowance(owner, spender); got.Cmp(big.NewInt(15)) != 0 {
		t.Fatalf("allowance = %s, want 15", got)
	}
	if got := ledger.BalanceOf(dest); got.Cmp(big.NewInt(45)) != 0 {
		t.Fatalf("dest balance = %s, want 45", got)
	}
}

func TestSettleFromSplitsAtomically(t *testing.T) {
	ledger, _ := newTestLedger()
	buyer, spender := addr(0x01), addr(0x02)
	feeDest, payoutDest := addr(0x03), addr(0x04)
	if err := ledger.Mint(ledger.Authority(), buyer, big.NewInt(100)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := ledger.Approve(buyer, spender, big.NewInt(100)); err != nil {
		t.Fatalf("approve: %v", err)
	}
	outputs := []Payment{
		{To: feeDest, Amount: big.NewInt(10)},
		{To: payoutDest, Amount: big.NewInt(90)},
	}
	if err := ledger.SettleFrom(spender, buyer, outputs); err != nil {
		t.Fatalf("settle: %v", err)
	}
	if got := ledger.BalanceOf(buyer); got.Sign() != 0 {
		t.Fatalf("buyer balance = %s, want 0", got)
	}
	if got := ledger.BalanceOf(feeDest); got.Cmp(big.NewInt(10)) != 0 {
		t.Fatalf("fee balance = %s, want 10", got)
	}
	if got := ledger.BalanceOf(payoutDest); got.Cmp(big.NewInt(90)) != 0 {
		t.Fatalf("payout balance = %s, want 90", got)
	}
	if got := ledger.Allowance(buyer, spender); got.Sign() != 0 {
		t.Fatalf("allowance = %s, want 0", got)
	}
}

func TestSettleFromChecksTotals(t *testing.T) {
	ledger, _ := newTestLedger()
	buyer, spender := addr(0x01), addr(0x02)
	dest := addr(0x03)
	if err := ledger.Mint(ledger.Authority(), buyer, big.NewInt(50)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := ledger.Approve(buyer, spender, big.NewInt(100)); err != nil {
		t.Fatalf("approve: %v", err)
	}
	// Allowance covers the total but the balance does not.
	err := ledger.SettleFrom(spender, buyer, []Payment{{To: dest, Amount: big.NewInt(60)}})
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if got := ledger.BalanceOf(buyer); got.Cmp(big.NewInt(50)) != 0 {
		t.Fatalf("buyer balance changed on failed settle: %s", got)
	}
	if got := ledger.Allowance(buyer, spender); got.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("allowance changed on failed settle: %s", got)
	}
}

func TestSettleFromRollsBackOnWriteFailure(t *testing.T) {
	ledger, state := newTestLedger()
	buyer, spender := addr(0x01), addr(0x02)
	okDest, badDest := addr(0x03), addr(0x04)
	if err := ledger.Mint(ledger.Authority(), buyer, big.NewInt(100)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := ledger.Approve(buyer, spender, big.NewInt(100)); err != nil {
		t.Fatalf("approve: %v", err)
	}
	state.failSetFor[badDest] = true
	err := ledger.SettleFrom(spender, buyer, []Payment{
		{To: okDest, Amount: big.NewInt(10)},
		{To: badDest, Amount: big.NewInt(90)},
	})
	if err == nil {
		t.Fatal("expected settle failure")
	}
	if got := ledger.BalanceOf(buyer); got.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("buyer balance = %s, want 100 after rollback", got)
	}
	if got := ledger.BalanceOf(okDest); got.Sign() != 0 {
		t.Fatalf("partial credit survived rollback: %s", got)
	}
	if got := ledger.Allowance(buyer, spender); got.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("allowance = %s, want 100 after rollback", got)
	}
}
