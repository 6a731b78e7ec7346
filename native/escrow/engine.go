package escrow

import (
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/SKALEZ-A/stablecoin-escrow-sub000/core/events"
	"github.com/SKALEZ-A/stablecoin-escrow-sub000/core/types"
	"github.com/SKALEZ-A/stablecoin-escrow-sub000/native/token"
)

type engineState interface {
	EscrowItemPut(id uint64, item *Item) error
	EscrowItemGet(id uint64) (*Item, bool)
	EscrowNextItemID() (uint64, error)
	EscrowSetNextItemID(id uint64) error
}

type tokenLedger interface {
	BalanceOf(addr common.Address) *big.Int
	Allowance(owner, spender common.Address) *big.Int
	SettleFrom(spender, from common.Address, outputs []token.Payment) error
}

type escrowEvent struct {
	evt *types.Event
}

func (e escrowEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e escrowEvent) Event() *types.Event { return e.evt }

// ModuleAddress returns the deterministic address the settlement engine spends
// allowances from. Buyers approve this address before calling BuyItem, the way
// they would approve the contract address on-chain.
func ModuleAddress() common.Address {
	hash := ethcrypto.Keccak256([]byte("stablecoin-escrow/settlement-module"))
	return common.BytesToAddress(hash[12:])
}

// Engine wires the escrow settlement business logic with external state, the
// token ledger and event emission. Calls are serialized by an internal mutex,
// the in-process analogue of chain-ordered transaction execution: every
// operation runs to completion before the next begins.
type Engine struct {
	mu      sync.Mutex
	state   engineState
	token   tokenLedger
	emitter events.Emitter
	owner   common.Address
	feeBps  uint32
	nowFn   func() int64
}

// NewEngine creates a settlement engine with a no-op emitter. Callers can
// override the emitter via SetEmitter.
func NewEngine(owner common.Address, feeBps uint32) (*Engine, error) {
	if owner == (common.Address{}) {
		return nil, errNilOwner
	}
	if feeBps > MaxFeeBps {
		return nil, errFeeBps
	}
	return &Engine{
		owner:   owner,
		feeBps:  feeBps,
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}, nil
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetLedger configures the token ledger settlements execute against.
func (e *Engine) SetLedger(ledger tokenLedger) { e.token = ledger }

// SetEmitter configures the event emitter used by the engine. Passing nil
// resets the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source used by the engine. Primarily intended
// for tests to provide deterministic timestamps.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// Owner returns the platform admin address receiving fees.
func (e *Engine) Owner() common.Address { return e.owner }

// FeeBps returns the platform fee in basis points.
func (e *Engine) FeeBps() uint32 { return e.feeBps }

func (e *Engine) emit(event *types.Event) {
	if e == nil || e.emitter == nil || event == nil {
		return
	}
	e.emitter.Emit(escrowEvent{evt: event})
}

// CalculateFees returns the platform fee and creator payout for the supplied
// price under the configured fee schedule.
func (e *Engine) CalculateFees(price *big.Int) (fee, payout *big.Int) {
	return SplitFee(price, e.feeBps)
}

// NextItemID returns the identifier the next successful listing will receive.
func (e *Engine) NextItemID() (uint64, error) {
	if e == nil || e.state == nil {
		return 0, errNilState
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.EscrowNextItemID()
}

// GetItem returns a copy of the stored item record.
func (e *Engine) GetItem(id uint64) (*Item, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	item, ok := e.state.EscrowItemGet(id)
	if !ok {
		return nil, ErrItemNotFound
	}
	return item, nil
}

// ListItem validates and persists a new listing, allocating the next item
// identifier. Identifiers start at 1 and only advance on success, so failed
// listings never consume an id. Any caller may list on behalf of any creator;
// only the creator address receives the payout at purchase time.
func (e *Engine) ListItem(creator common.Address, price *big.Int, title string) (uint64, error) {
	if e == nil || e.state == nil {
		return 0, errNilState
	}
	if creator == (common.Address{}) {
		return 0, ErrInvalidCreator
	}
	if price == nil || price.Sign() <= 0 {
		return 0, ErrInvalidPrice
	}
	if strings.TrimSpace(title) == "" {
		return 0, ErrEmptyTitle
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	id, err := e.state.EscrowNextItemID()
	if err != nil {
		return 0, err
	}
	item := &Item{
		Creator:  creator,
		Price:    new(big.Int).Set(price),
		Title:    title,
		Active:   true,
		ListedAt: uint64(e.nowFn()),
	}
	// Advance the counter before storing the item so a partial failure can
	// never leave a record behind under an unconsumed id.
	if err := e.state.EscrowSetNextItemID(id + 1); err != nil {
		return 0, err
	}
	if err := e.state.EscrowItemPut(id, item); err != nil {
		if restoreErr := e.state.EscrowSetNextItemID(id); restoreErr != nil {
			return 0, restoreErr
		}
		return 0, err
	}
	e.emit(NewItemListedEvent(id, item))
	return id, nil
}

// BuyItem settles the purchase of an active item: the platform fee moves from
// the buyer to the owner, the remainder to the creator, and the item is
// permanently deactivated. The whole operation is atomic; on any failure the
// item and all balances are left exactly as before the call.
//
// The buyer must have approved at least the item price for ModuleAddress on
// the token ledger beforehand. The engine has no knowledge of how that
// approval was obtained; it only requires sufficient allowance at the moment
// of settlement.
func (e *Engine) BuyItem(buyer common.Address, itemID uint64) (*Settlement, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if e.token == nil {
		return nil, errNilLedger
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	item, ok := e.state.EscrowItemGet(itemID)
	if !ok {
		return nil, ErrItemNotFound
	}
	if !item.Active {
		return nil, ErrItemInactive
	}
	if buyer == item.Creator {
		return nil, ErrSelfPurchase
	}
	fee, payout := SplitFee(item.Price, e.feeBps)

	// Effects before interactions: deactivate the listing, then settle. The
	// ledger settlement is itself atomic, so a failure there restores the
	// listing and leaves no partial transfer behind.
	deactivated := item.Clone()
	deactivated.Active = false
	if err := e.state.EscrowItemPut(itemID, deactivated); err != nil {
		return nil, err
	}
	outputs := make([]token.Payment, 0, 2)
	if fee.Sign() > 0 {
		outputs = append(outputs, token.Payment{To: e.owner, Amount: fee})
	}
	if payout.Sign() > 0 {
		outputs = append(outputs, token.Payment{To: item.Creator, Amount: payout})
	}
	if err := e.token.SettleFrom(ModuleAddress(), buyer, outputs); err != nil {
		if restoreErr := e.state.EscrowItemPut(itemID, item); restoreErr != nil {
			return nil, restoreErr
		}
		return nil, err
	}

	settlement := &Settlement{
		ItemID:        itemID,
		Buyer:         buyer,
		Creator:       item.Creator,
		Price:         new(big.Int).Set(item.Price),
		PlatformFee:   fee,
		CreatorPayout: payout,
	}
	e.emit(NewItemPurchasedEvent(settlement, deactivated))
	return settlement, nil
}
