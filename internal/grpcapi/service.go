package grpcapi

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/kaspanet/ordindexer/internal/chain"
	"github.com/kaspanet/ordindexer/internal/movetracker"
	"github.com/kaspanet/ordindexer/internal/ordmempool"
	"github.com/kaspanet/ordindexer/internal/scriptstats"
	"github.com/kaspanet/ordindexer/internal/store"
	"github.com/kaspanet/ordindexer/internal/tokenengine"
	"github.com/kaspanet/ordindexer/util/chainhash"
)

const serviceName = "ordindexer.Query"

// queryServer implements the handler bodies registered in
// queryServiceDesc (desc.go). It holds the same Deps internal/restapi's
// handlers close over, so both adapters read from identical state.
type queryServer struct {
	deps *Deps
}

type TokenRequest struct {
	Tick string `json:"tick"`
}

type BalanceRequest struct {
	Owner string `json:"owner"`
	Tick  string `json:"tick"`
}

type OwnerRequest struct {
	Owner string `json:"owner"`
}

type OutpointRequest struct {
	TxID string `json:"txid"`
	Vout uint32 `json:"vout"`
}

type ScriptHashRequest struct {
	ScriptHash string `json:"scripthash"`
}

type MempoolTxRequest struct {
	TxID string `json:"txid"`
}

func (s *queryServer) Token(_ context.Context, req *TokenRequest) (*tokenengine.TokenInfo, error) {
	info, ok, err := tokenengine.Token(s.deps.Store, req.Tick)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("no token deployed with tick %q", req.Tick)
	}
	return &info, nil
}

func (s *queryServer) Balance(_ context.Context, req *BalanceRequest) (*BalanceReply, error) {
	amt, err := tokenengine.Balance(s.deps.Store, req.Owner, req.Tick)
	if err != nil {
		return nil, err
	}
	return &BalanceReply{Amount: amt}, nil
}

type BalanceReply struct {
	Amount uint64 `json:"amount"`
}

func (s *queryServer) AccountBalances(_ context.Context, req *OwnerRequest) (*AccountBalancesReply, error) {
	balances, err := tokenengine.AccountBalances(s.deps.Store, req.Owner)
	if err != nil {
		return nil, err
	}
	return &AccountBalancesReply{Balances: balances}, nil
}

type AccountBalancesReply struct {
	Balances []tokenengine.AccountBalance `json:"balances"`
}

func (s *queryServer) OutstandingTransfers(_ context.Context, req *OwnerRequest) (*OutstandingTransfersReply, error) {
	transfers, err := tokenengine.OutstandingTransfers(s.deps.Store, req.Owner)
	if err != nil {
		return nil, err
	}
	return &OutstandingTransfersReply{Transfers: transfers}, nil
}

type OutstandingTransfersReply struct {
	Transfers []tokenengine.OutstandingTransfer `json:"transfers"`
}

func (s *queryServer) InscriptionAtOutpoint(_ context.Context, req *OutpointRequest) (*InscriptionAtOutpointReply, error) {
	txid, err := chainhash.NewHashFromStr(req.TxID)
	if err != nil {
		return nil, err
	}
	found, err := movetracker.InscriptionAtOutpoint(s.deps.Store, chain.Outpoint{TxID: *txid, Vout: req.Vout})
	if err != nil {
		return nil, err
	}
	return &InscriptionAtOutpointReply{Inscriptions: found}, nil
}

type InscriptionAtOutpointReply struct {
	Inscriptions []movetracker.ExtraData `json:"inscriptions"`
}

func (s *queryServer) OwnerHistory(_ context.Context, req *OwnerRequest) (*OwnerHistoryReply, error) {
	history, err := movetracker.OwnerHistory(s.deps.Store, req.Owner)
	if err != nil {
		return nil, err
	}
	return &OwnerHistoryReply{Entries: history}, nil
}

type OwnerHistoryReply struct {
	Entries []movetracker.OwnerHistoryEntry `json:"entries"`
}

func (s *queryServer) UserStats(_ context.Context, req *OwnerRequest) (*movetracker.UserOrdStats, error) {
	stats, err := movetracker.UserStats(s.deps.Store, req.Owner)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

func (s *queryServer) ScriptStats(_ context.Context, req *ScriptHashRequest) (*scriptstats.ScriptStats, error) {
	sh, err := decodeScriptHash(req.ScriptHash)
	if err != nil {
		return nil, err
	}
	stats, err := scriptstats.Stats(s.deps.Store, s.deps.Headers, sh)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

func (s *queryServer) MempoolTx(_ context.Context, req *MempoolTxRequest) (*chain.Tx, error) {
	if s.deps.Mempool == nil {
		return nil, fmt.Errorf("mempool not available")
	}
	txid, err := chainhash.NewHashFromStr(req.TxID)
	if err != nil {
		return nil, err
	}
	tx, ok := s.deps.Mempool.LookupTx(*txid)
	if !ok {
		return nil, fmt.Errorf("no such transaction in the mempool")
	}
	return tx, nil
}

func (s *queryServer) MempoolRecent(_ context.Context, _ *Empty) (*MempoolRecentReply, error) {
	if s.deps.Mempool == nil {
		return nil, fmt.Errorf("mempool not available")
	}
	return &MempoolRecentReply{Overview: s.deps.Mempool.RecentOverview()}, nil
}

type MempoolRecentReply struct {
	Overview []ordmempool.TxOverview `json:"overview"`
}

func (s *queryServer) MempoolBacklog(_ context.Context, _ *Empty) (*ordmempool.BacklogStats, error) {
	if s.deps.Mempool == nil {
		return nil, fmt.Errorf("mempool not available")
	}
	stats := s.deps.Mempool.BacklogStats()
	return &stats, nil
}

// Empty is the request message for methods that take no parameters.
type Empty struct{}

func decodeScriptHash(s string) (store.ScriptHash, error) {
	var sh store.ScriptHash
	decoded, err := hex.DecodeString(s)
	if err != nil || len(decoded) != len(sh) {
		return sh, fmt.Errorf("scripthash must be a hex-encoded 32-byte value")
	}
	copy(sh[:], decoded)
	return sh, nil
}
