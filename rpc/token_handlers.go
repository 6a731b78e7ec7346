package rpc

import (
	"encoding/json"
	"strings"
)

type balanceOfParams struct {
	Address string `json:"address"`
}

type allowanceParams struct {
	Owner   string `json:"owner"`
	Spender string `json:"spender"`
}

type approveParams struct {
	Owner   string `json:"owner"`
	Spender string `json:"spender"`
	Amount  string `json:"amount"`
}

type transferParams struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount string `json:"amount"`
}

type mintParams struct {
	To     string `json:"to"`
	Amount string `json:"amount"`
}

func (s *Server) handleBalanceOf(raw json.RawMessage) (interface{}, *RPCError) {
	var params balanceOfParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, invalidParams(err)
	}
	addr, rpcErr := parseRPCAddress(params.Address, "address")
	if rpcErr != nil {
		return nil, rpcErr
	}
	return AmountResult{Amount: s.ledger.BalanceOf(addr).String()}, nil
}

func (s *Server) handleAllowance(raw json.RawMessage) (interface{}, *RPCError) {
	var params allowanceParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, invalidParams(err)
	}
	owner, rpcErr := parseRPCAddress(params.Owner, "owner")
	if rpcErr != nil {
		return nil, rpcErr
	}
	spender, rpcErr := parseRPCAddress(params.Spender, "spender")
	if rpcErr != nil {
		return nil, rpcErr
	}
	return AmountResult{Amount: s.ledger.Allowance(owner, spender).String()}, nil
}

func (s *Server) handleApprove(raw json.RawMessage) (interface{}, *RPCError) {
	var params approveParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, invalidParams(err)
	}
	owner, rpcErr := parseRPCAddress(params.Owner, "owner")
	if rpcErr != nil {
		return nil, rpcErr
	}
	spender, rpcErr := parseRPCAddress(params.Spender, "spender")
	if rpcErr != nil {
		return nil, rpcErr
	}
	amount, rpcErr := parseAmount(params.Amount, "amount")
	if rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.ledger.Approve(owner, spender, amount); err != nil {
		return nil, &RPCError{Code: codeServerError, Message: err.Error()}
	}
	s.log.Info("allowance approved",
		"owner", strings.ToLower(owner.Hex()),
		"spender", strings.ToLower(spender.Hex()),
		"amount", amount.String(),
	)
	return AmountResult{Amount: amount.String()}, nil
}

func (s *Server) handleTransfer(raw json.RawMessage) (interface{}, *RPCError) {
	var params transferParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, invalidParams(err)
	}
	from, rpcErr := parseRPCAddress(params.From, "from")
	if rpcErr != nil {
		return nil, rpcErr
	}
	to, rpcErr := parseRPCAddress(params.To, "to")
	if rpcErr != nil {
		return nil, rpcErr
	}
	amount, rpcErr := parseAmount(params.Amount, "amount")
	if rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.ledger.Transfer(from, to, amount); err != nil {
		return nil, &RPCError{Code: codeServerError, Message: err.Error()}
	}
	return AmountResult{Amount: amount.String()}, nil
}

func (s *Server) handleMint(raw json.RawMessage) (interface{}, *RPCError) {
	var params mintParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, invalidParams(err)
	}
	to, rpcErr := parseRPCAddress(params.To, "to")
	if rpcErr != nil {
		return nil, rpcErr
	}
	amount, rpcErr := parseAmount(params.Amount, "amount")
	if rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.ledger.Mint(s.ledger.Authority(), to, amount); err != nil {
		return nil, &RPCError{Code: codeServerError, Message: err.Error()}
	}
	s.log.Info("supply minted", "to", strings.ToLower(to.Hex()), "amount", amount.String())
	return AmountResult{Amount: amount.String()}, nil
}
