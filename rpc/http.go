package rpc

import (
	"crypto/subtle"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/SKALEZ-A/stablecoin-escrow-sub000/core/events"
	"github.com/SKALEZ-A/stablecoin-escrow-sub000/native/escrow"
	"github.com/SKALEZ-A/stablecoin-escrow-sub000/native/token"
)

// ServerConfig carries deployment metadata the RPC surface exposes alongside
// engine state.
type ServerConfig struct {
	// TokenAddress is the configured stablecoin deployment served by the
	// escrow_token view.
	TokenAddress common.Address
	// AuthToken, when set, is required as a bearer token on privileged
	// methods (token_mint).
	AuthToken string
}

// Server dispatches JSON-RPC requests against the settlement engine and the
// token ledger.
type Server struct {
	engine   *escrow.Engine
	ledger   *token.Ledger
	recorder *events.Recorder
	cfg      ServerConfig
	log      *slog.Logger
}

// NewServer constructs an RPC server bound to the supplied engine and ledger.
func NewServer(engine *escrow.Engine, ledger *token.Ledger, recorder *events.Recorder, cfg ServerConfig, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{engine: engine, ledger: ledger, recorder: recorder, cfg: cfg, log: log}
}

// Router mounts the RPC endpoint alongside health and metrics handlers.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Post("/rpc", s.handleRPC)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())
	return r
}

type handlerFunc func(params json.RawMessage) (interface{}, *RPCError)

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes+1))
	if err != nil {
		writeRPCError(w, nil, &RPCError{Code: codeInvalidRequest, Message: "unable to read request body"})
		return
	}
	if len(body) > maxRequestBytes {
		writeRPCError(w, nil, &RPCError{Code: codeInvalidRequest, Message: "request body too large"})
		return
	}
	var req RPCRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeRPCError(w, nil, &RPCError{Code: codeParseError, Message: "invalid JSON payload", Data: err.Error()})
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeRPCError(w, req.ID, &RPCError{Code: codeInvalidRequest, Message: "unsupported JSON-RPC version"})
		return
	}
	method := strings.TrimSpace(req.Method)
	handler, privileged := s.lookup(method)
	if handler == nil {
		writeRPCError(w, req.ID, &RPCError{Code: codeMethodNotFound, Message: "method not found: " + method})
		return
	}
	if privileged {
		if rpcErr := s.authorize(r); rpcErr != nil {
			writeRPCError(w, req.ID, rpcErr)
			return
		}
	}
	result, rpcErr := handler(unwrapParams(req.Params))
	if rpcErr != nil {
		s.log.Warn("rpc call failed", "method", method, "code", rpcErr.Code, "message", rpcErr.Message)
		writeRPCError(w, req.ID, rpcErr)
		return
	}
	writeRPCResult(w, req.ID, result)
}

func (s *Server) lookup(method string) (handlerFunc, bool) {
	switch method {
	case "escrow_owner":
		return s.handleOwner, false
	case "escrow_token":
		return s.handleTokenInfo, false
	case "escrow_moduleAddress":
		return s.handleModuleAddress, false
	case "escrow_platformFeePercent":
		return s.handlePlatformFeePercent, false
	case "escrow_nextItemId":
		return s.handleNextItemID, false
	case "escrow_calculateFees":
		return s.handleCalculateFees, false
	case "escrow_getItem":
		return s.handleGetItem, false
	case "escrow_listItem":
		return s.handleListItem, false
	case "escrow_buyItem":
		return s.handleBuyItem, false
	case "escrow_listEvents":
		return s.handleListEvents, false
	case "token_balanceOf":
		return s.handleBalanceOf, false
	case "token_allowance":
		return s.handleAllowance, false
	case "token_approve":
		return s.handleApprove, false
	case "token_transfer":
		return s.handleTransfer, false
	case "token_mint":
		return s.handleMint, true
	}
	return nil, false
}

func (s *Server) authorize(r *http.Request) *RPCError {
	expected := strings.TrimSpace(s.cfg.AuthToken)
	if expected == "" {
		return &RPCError{Code: codeUnauthorized, Message: "privileged methods disabled: no auth token configured"}
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return &RPCError{Code: codeUnauthorized, Message: "missing bearer token"}
	}
	supplied := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	if subtle.ConstantTimeCompare([]byte(supplied), []byte(expected)) != 1 {
		return &RPCError{Code: codeUnauthorized, Message: "invalid bearer token"}
	}
	return nil
}

// unwrapParams accepts either a bare params object or the positional
// one-element array convention.
func unwrapParams(raw json.RawMessage) json.RawMessage {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil
	}
	if strings.HasPrefix(trimmed, "[") {
		var elems []json.RawMessage
		if err := json.Unmarshal(raw, &elems); err != nil || len(elems) == 0 {
			return nil
		}
		return elems[0]
	}
	return raw
}

func writeRPCResult(w http.ResponseWriter, id json.RawMessage, result interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result})
}

func writeRPCError(w http.ResponseWriter, id json.RawMessage, rpcErr *RPCError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatusFor(rpcErr.Code))
	_ = json.NewEncoder(w).Encode(RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: rpcErr})
}

func httpStatusFor(code int) int {
	switch code {
	case codeParseError, codeInvalidRequest, codeInvalidParams:
		return http.StatusBadRequest
	case codeMethodNotFound, codeNotFound:
		return http.StatusNotFound
	case codeUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
