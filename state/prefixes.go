package state

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

var escrowNextItemIDKey = []byte("escrow/next-item-id")

func escrowItemKey(id uint64) []byte {
	return []byte(fmt.Sprintf("escrow/item/%020d", id))
}

func tokenBalanceKey(addr common.Address) []byte {
	return []byte(fmt.Sprintf("token/balance/%x", addr.Bytes()))
}

func tokenAllowanceKey(owner, spender common.Address) []byte {
	return []byte(fmt.Sprintf("token/allowance/%x/%x", owner.Bytes(), spender.Bytes()))
}
