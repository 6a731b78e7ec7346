package token

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrInsufficientBalance   = errors.New("token: insufficient balance")
	ErrInsufficientAllowance = errors.New("token: insufficient allowance")
	ErrInvalidAmount         = errors.New("token: amount must be positive")
	ErrZeroAddress           = errors.New("token: zero address")
	ErrUnauthorizedMint      = errors.New("token: mint requires the token authority")

	errNilState = errors.New("token ledger: state not configured")
)

// ledgerState abstracts the persistence backend the ledger reads balances and
// allowances from. Absent entries read as zero.
type ledgerState interface {
	TokenBalance(addr common.Address) (*big.Int, error)
	TokenSetBalance(addr common.Address, amount *big.Int) error
	TokenAllowance(owner, spender common.Address) (*big.Int, error)
	TokenSetAllowance(owner, spender common.Address, amount *big.Int) error
}

// Payment names a single credit applied during a settlement.
type Payment struct {
	To     common.Address
	Amount *big.Int
}

// Ledger implements an ERC-20 style stablecoin ledger: balances, overwrite
// approvals and allowance-gated transfers. All monetary values are integers in
// the token's base unit.
type Ledger struct {
	mu        sync.RWMutex
	state     ledgerState
	symbol    string
	decimals  uint8
	authority common.Address
}

// NewLedger constructs a ledger for the supplied token metadata. The authority
// address is the only account permitted to mint new supply (genesis and
// test-network funding).
func NewLedger(symbol string, decimals uint8, authority common.Address) *Ledger {
	return &Ledger{symbol: symbol, decimals: decimals, authority: authority}
}

// SetState configures the state backend used by the ledger.
func (l *Ledger) SetState(state ledgerState) { l.state = state }

// Symbol returns the token symbol.
func (l *Ledger) Symbol() string { return l.symbol }

// Decimals returns the number of base-unit decimals.
func (l *Ledger) Decimals() uint8 { return l.decimals }

// Authority returns the mint authority address.
func (l *Ledger) Authority() common.Address { return l.authority }

func cloneAmount(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

// BalanceOf returns the balance held by addr. Unknown accounts read as zero.
func (l *Ledger) BalanceOf(addr common.Address) *big.Int {
	if l == nil || l.state == nil {
		return big.NewInt(0)
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	bal, err := l.state.TokenBalance(addr)
	if err != nil {
		return big.NewInt(0)
	}
	return cloneAmount(bal)
}

// Allowance returns the amount spender may move on behalf of owner.
func (l *Ledger) Allowance(owner, spender common.Address) *big.Int {
	if l == nil || l.state == nil {
		return big.NewInt(0)
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	allowance, err := l.state.TokenAllowance(owner, spender)
	if err != nil {
		return big.NewInt(0)
	}
	return cloneAmount(allowance)
}

// Approve sets the spender allowance for owner, overwriting any previous
// value. A zero amount revokes the approval.
func (l *Ledger) Approve(owner, spender common.Address, amount *big.Int) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	if owner == (common.Address{}) || spender == (common.Address{}) {
		return ErrZeroAddress
	}
	amt := cloneAmount(amount)
	if amt.Sign() < 0 {
		return ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.TokenSetAllowance(owner, spender, amt)
}

// Mint credits newly issued supply to the recipient. Only the configured
// authority may mint.
func (l *Ledger) Mint(caller, to common.Address, amount *big.Int) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	if caller != l.authority {
		return ErrUnauthorizedMint
	}
	if to == (common.Address{}) {
		return ErrZeroAddress
	}
	amt := cloneAmount(amount)
	if amt.Sign() <= 0 {
		return ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	bal, err := l.state.TokenBalance(to)
	if err != nil {
		return err
	}
	return l.state.TokenSetBalance(to, new(big.Int).Add(cloneAmount(bal), amt))
}

// Transfer moves amount from one holder to another.
func (l *Ledger) Transfer(from, to common.Address, amount *big.Int) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.move(from, to, amount)
}

// TransferFrom moves amount from the holder to the recipient on behalf of the
// spender, consuming the spender's allowance.
func (l *Ledger) TransferFrom(spender, from, to common.Address, amount *big.Int) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	amt := cloneAmount(amount)
	if amt.Sign() <= 0 {
		return ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	allowance, err := l.state.TokenAllowance(from, spender)
	if err != nil {
		return err
	}
	allowance = cloneAmount(allowance)
	if allowance.Cmp(amt) < 0 {
		return ErrInsufficientAllowance
	}
	if err := l.move(from, to, amt); err != nil {
		return err
	}
	return l.state.TokenSetAllowance(from, spender, new(big.Int).Sub(allowance, amt))
}

// SettleFrom applies a multi-output settlement on behalf of the spender: the
// total of all outputs is debited from the holder once, each output is
// credited, and the spender allowance is reduced by the total. The operation
// is atomic; any failure rolls back all partial writes.
func (l *Ledger) SettleFrom(spender, from common.Address, outputs []Payment) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	total := big.NewInt(0)
	for _, out := range outputs {
		if out.To == (common.Address{}) {
			return ErrZeroAddress
		}
		amt := cloneAmount(out.Amount)
		if amt.Sign() < 0 {
			return ErrInvalidAmount
		}
		total.Add(total, amt)
	}
	if total.Sign() <= 0 {
		return ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	allowance, err := l.state.TokenAllowance(from, spender)
	if err != nil {
		return err
	}
	allowance = cloneAmount(allowance)
	if allowance.Cmp(total) < 0 {
		return ErrInsufficientAllowance
	}
	fromBal, err := l.state.TokenBalance(from)
	if err != nil {
		return err
	}
	fromBal = cloneAmount(fromBal)
	if fromBal.Cmp(total) < 0 {
		return ErrInsufficientBalance
	}

	rollbacks := make([]func(), 0, len(outputs)+2)
	revert := func() {
		for i := len(rollbacks) - 1; i >= 0; i-- {
			rollbacks[i]()
		}
	}

	originalFrom := cloneAmount(fromBal)
	if err := l.state.TokenSetBalance(from, new(big.Int).Sub(fromBal, total)); err != nil {
		return err
	}
	rollbacks = append(rollbacks, func() { _ = l.state.TokenSetBalance(from, originalFrom) })

	for _, out := range outputs {
		amt := cloneAmount(out.Amount)
		if amt.Sign() == 0 {
			continue
		}
		toBal, err := l.state.TokenBalance(out.To)
		if err != nil {
			revert()
			return err
		}
		originalTo := cloneAmount(toBal)
		recipient := out.To
		if err := l.state.TokenSetBalance(recipient, new(big.Int).Add(cloneAmount(toBal), amt)); err != nil {
			revert()
			return err
		}
		rollbacks = append(rollbacks, func() { _ = l.state.TokenSetBalance(recipient, originalTo) })
	}

	if err := l.state.TokenSetAllowance(from, spender, new(big.Int).Sub(allowance, total)); err != nil {
		revert()
		return err
	}
	return nil
}

// move debits from and credits to without touching allowances. Callers must
// hold the ledger lock.
func (l *Ledger) move(from, to common.Address, amount *big.Int) error {
	if from == (common.Address{}) || to == (common.Address{}) {
		return ErrZeroAddress
	}
	amt := cloneAmount(amount)
	if amt.Sign() <= 0 {
		return ErrInvalidAmount
	}
	fromBal, err := l.state.TokenBalance(from)
	if err != nil {
		return err
	}
	fromBal = cloneAmount(fromBal)
	if fromBal.Cmp(amt) < 0 {
		return ErrInsufficientBalance
	}
	originalFrom := cloneAmount(fromBal)
	if err := l.state.TokenSetBalance(from, new(big.Int).Sub(fromBal, amt)); err != nil {
		return err
	}
	restoreDebit := func(cause error) error {
		if restoreErr := l.state.TokenSetBalance(from, originalFrom); restoreErr != nil {
			return fmt.Errorf("token: credit failed (%v) and debit rollback failed: %w", cause, restoreErr)
		}
		return cause
	}
	// Read the recipient only after the debit so a self-transfer credits the
	// already-debited balance and nets to zero.
	toBal, err := l.state.TokenBalance(to)
	if err != nil {
		return restoreDebit(err)
	}
	if err := l.state.TokenSetBalance(to, new(big.Int).Add(cloneAmount(toBal), amt)); err != nil {
		return restoreDebit(err)
	}
	return nil
}
