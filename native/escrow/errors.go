package escrow

import "errors"

// Validation and state-precondition failures. The message text mirrors the
// revert reason strings of the on-chain EscrowPayment deployment so clients
// migrating from the contract ABI observe identical error surfaces.
var (
	ErrInvalidCreator = errors.New("Invalid creator address")
	ErrInvalidPrice   = errors.New("Price must be greater than 0")
	ErrEmptyTitle     = errors.New("Title cannot be empty")
	ErrItemNotFound   = errors.New("Item does not exist")
	ErrItemInactive   = errors.New("Item is not active")
	ErrSelfPurchase   = errors.New("Cannot buy own item")
)

var (
	errNilState  = errors.New("escrow engine: state not configured")
	errNilLedger = errors.New("escrow engine: token ledger not configured")
	errNilOwner  = errors.New("escrow engine: platform owner not configured")
	errFeeBps    = errors.New("escrow engine: fee bps out of range")
)
