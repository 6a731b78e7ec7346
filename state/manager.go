package state

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/SKALEZ-A/stablecoin-escrow-sub000/native/escrow"
	"github.com/SKALEZ-A/stablecoin-escrow-sub000/storage"
)

// Manager persists escrow items, the listing counter and the token ledger over
// a key-value database. Records are RLP encoded; absent keys read as zero
// values so a fresh database is immediately usable.
type Manager struct {
	db storage.Database
}

// NewManager wraps the supplied database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

// storedItem is the RLP wire form of an escrow item.
type storedItem struct {
	Creator  common.Address
	Price    *big.Int
	Title    string
	Active   bool
	ListedAt uint64
}

func newStoredItem(item *escrow.Item) *storedItem {
	price := big.NewInt(0)
	if item.Price != nil {
		price = new(big.Int).Set(item.Price)
	}
	return &storedItem{
		Creator:  item.Creator,
		Price:    price,
		Title:    item.Title,
		Active:   item.Active,
		ListedAt: item.ListedAt,
	}
}

func (s *storedItem) toItem() *escrow.Item {
	return &escrow.Item{
		Creator:  s.Creator,
		Price:    new(big.Int).Set(s.Price),
		Title:    s.Title,
		Active:   s.Active,
		ListedAt: s.ListedAt,
	}
}

// EscrowItemPut validates and persists the supplied item under the given id.
func (m *Manager) EscrowItemPut(id uint64, item *escrow.Item) error {
	if item == nil {
		return fmt.Errorf("state: nil item")
	}
	sanitized, err := escrow.SanitizeItem(item)
	if err != nil {
		return err
	}
	encoded, err := rlp.EncodeToBytes(newStoredItem(sanitized))
	if err != nil {
		return err
	}
	return m.db.Put(escrowItemKey(id), encoded)
}

// EscrowItemGet returns the stored item for the id, if any.
func (m *Manager) EscrowItemGet(id uint64) (*escrow.Item, bool) {
	data, err := m.db.Get(escrowItemKey(id))
	if err != nil || len(data) == 0 {
		return nil, false
	}
	stored := new(storedItem)
	if err := rlp.DecodeBytes(data, stored); err != nil {
		return nil, false
	}
	return stored.toItem(), true
}

// EscrowNextItemID returns the next listing identifier. Identifiers start
// at 1.
func (m *Manager) EscrowNextItemID() (uint64, error) {
	data, err := m.db.Get(escrowNextItemIDKey)
	if errors.Is(err, storage.ErrNotFound) {
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	var id uint64
	if err := rlp.DecodeBytes(data, &id); err != nil {
		return 0, err
	}
	if id == 0 {
		id = 1
	}
	return id, nil
}

// EscrowSetNextItemID persists the listing counter.
func (m *Manager) EscrowSetNextItemID(id uint64) error {
	encoded, err := rlp.EncodeToBytes(id)
	if err != nil {
		return err
	}
	return m.db.Put(escrowNextItemIDKey, encoded)
}

// TokenBalance returns the stored balance for addr. Unknown accounts read as
// zero.
func (m *Manager) TokenBalance(addr common.Address) (*big.Int, error) {
	return m.readAmount(tokenBalanceKey(addr))
}

// TokenSetBalance persists the balance for addr.
func (m *Manager) TokenSetBalance(addr common.Address, amount *big.Int) error {
	return m.writeAmount(tokenBalanceKey(addr), amount)
}

// TokenAllowance returns the stored allowance granted by owner to spender.
func (m *Manager) TokenAllowance(owner, spender common.Address) (*big.Int, error) {
	return m.readAmount(tokenAllowanceKey(owner, spender))
}

// TokenSetAllowance persists the allowance granted by owner to spender.
func (m *Manager) TokenSetAllowance(owner, spender common.Address, amount *big.Int) error {
	return m.writeAmount(tokenAllowanceKey(owner, spender), amount)
}

func (m *Manager) readAmount(key []byte) (*big.Int, error) {
	data, err := m.db.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return big.NewInt(0), nil
	}
	if err != nil {
		return nil, err
	}
	amount := new(big.Int)
	if err := rlp.DecodeBytes(data, amount); err != nil {
		return nil, err
	}
	return amount, nil
}

func (m *Manager) writeAmount(key []byte, amount *big.Int) error {
	if amount == nil {
		amount = big.NewInt(0)
	}
	if amount.Sign() < 0 {
		return fmt.Errorf("state: negative amount")
	}
	encoded, err := rlp.EncodeToBytes(amount)
	if err != nil {
		return err
	}
	return m.db.Put(key, encoded)
}
