package restapi

import (
	"encoding/hex"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/kaspanet/ordindexer/internal/chain"
	"github.com/kaspanet/ordindexer/internal/movetracker"
	"github.com/kaspanet/ordindexer/internal/reassembler"
	"github.com/kaspanet/ordindexer/internal/scriptstats"
	"github.com/kaspanet/ordindexer/internal/store"
	"github.com/kaspanet/ordindexer/internal/tokenengine"
	"github.com/kaspanet/ordindexer/util/chainhash"
)

const (
	routeParamScriptHash = "scripthash"
	routeParamTxID       = "txid"
	routeParamVout       = "vout"
	routeParamOwner      = "owner"
	routeParamTick       = "tick"
)

func addRoutes(router *mux.Router, deps *Deps) {
	router.HandleFunc("/", makeHandler(deps, mainHandler))

	router.HandleFunc("/scripthash/{"+routeParamScriptHash+"}/stats",
		makeHandler(deps, getScriptStatsHandler)).Methods("GET")
	router.HandleFunc("/scripthash/{"+routeParamScriptHash+"}/utxos",
		makeHandler(deps, getScriptUtxosHandler)).Methods("GET")

	router.HandleFunc("/inscription/{"+routeParamTxID+"}/{"+routeParamVout+"}",
		makeHandler(deps, getInscriptionAtOutpointHandler)).Methods("GET")

	router.HandleFunc("/address/{"+routeParamOwner+"}/history",
		makeHandler(deps, getOwnerHistoryHandler)).Methods("GET")
	router.HandleFunc("/address/{"+routeParamOwner+"}/stats",
		makeHandler(deps, getUserStatsHandler)).Methods("GET")
	router.HandleFunc("/address/{"+routeParamOwner+"}/balances",
		makeHandler(deps, getAccountBalancesHandler)).Methods("GET")
	router.HandleFunc("/address/{"+routeParamOwner+"}/balance/{"+routeParamTick+"}",
		makeHandler(deps, getBalanceHandler)).Methods("GET")
	router.HandleFunc("/address/{"+routeParamOwner+"}/transfers",
		makeHandler(deps, getOutstandingTransfersHandler)).Methods("GET")

	router.HandleFunc("/token/{"+routeParamTick+"}",
		makeHandler(deps, getTokenHandler)).Methods("GET")

	router.HandleFunc("/mempool/tx/{"+routeParamTxID+"}",
		makeHandler(deps, getMempoolTxHandler)).Methods("GET")
	router.HandleFunc("/mempool/recent",
		makeHandler(deps, getMempoolRecentHandler)).Methods("GET")
	router.HandleFunc("/mempool/backlog",
		makeHandler(deps, getMempoolBacklogHandler)).Methods("GET")
}

func mainHandler(_ map[string]string, _ map[string][]string, _ *Deps) (interface{}, *HandlerError) {
	return "ordindexer REST API is running", nil
}

func parseScriptHash(s string) (store.ScriptHash, *HandlerError) {
	var sh store.ScriptHash
	raw, err := hex.DecodeString(s)
	if err != nil || len(raw) != len(sh) {
		return sh, NewHandlerError(http.StatusUnprocessableEntity, "scripthash must be a hex-encoded 32-byte value")
	}
	copy(sh[:], raw)
	return sh, nil
}

func parseOutpoint(txidStr, voutStr string) (chain.Outpoint, *HandlerError) {
	txid, err := chainhash.NewHashFromStr(txidStr)
	if err != nil {
		return chain.Outpoint{}, NewHandlerError(http.StatusUnprocessableEntity, "txid must be a hex-encoded transaction id")
	}
	vout, err := strconv.ParseUint(voutStr, 10, 32)
	if err != nil {
		return chain.Outpoint{}, NewHandlerError(http.StatusUnprocessableEntity, "vout must be a non-negative integer")
	}
	return chain.Outpoint{TxID: *txid, Vout: uint32(vout)}, nil
}

func getScriptStatsHandler(routeParams map[string]string, _ map[string][]string, deps *Deps) (interface{}, *HandlerError) {
	sh, hErr := parseScriptHash(routeParams[routeParamScriptHash])
	if hErr != nil {
		return nil, hErr
	}
	stats, err := scriptstats.Stats(deps.Store, deps.Headers, sh)
	if err != nil {
		return nil, NewHandlerError(http.StatusInternalServerError, err.Error())
	}
	return stats, nil
}

func getScriptUtxosHandler(routeParams map[string]string, _ map[string][]string, deps *Deps) (interface{}, *HandlerError) {
	sh, hErr := parseScriptHash(routeParams[routeParamScriptHash])
	if hErr != nil {
		return nil, hErr
	}
	utxos, ok, err := scriptstats.ReadUtxoCache(deps.Store, deps.Headers, sh)
	if err != nil {
		return nil, NewHandlerError(http.StatusInternalServerError, err.Error())
	}
	if !ok {
		return nil, NewHandlerError(http.StatusNotFound, "no valid cached utxo snapshot for this scripthash")
	}
	return utxos, nil
}

// inscriptionEntry adds the body's coarse media family to ExtraData for
// display purposes; this surface serves JSON metadata rather than raw
// inscription content, so the classification rides along as a field
// rather than an HTTP Content-Type response header.
type inscriptionEntry struct {
	movetracker.ExtraData
	Media string `json:"media"`
}

func getInscriptionAtOutpointHandler(routeParams map[string]string, _ map[string][]string, deps *Deps) (interface{}, *HandlerError) {
	op, hErr := parseOutpoint(routeParams[routeParamTxID], routeParams[routeParamVout])
	if hErr != nil {
		return nil, hErr
	}
	found, err := movetracker.InscriptionAtOutpoint(deps.Store, op)
	if err != nil {
		return nil, NewHandlerError(http.StatusInternalServerError, err.Error())
	}
	out := make([]inscriptionEntry, len(found))
	for i, d := range found {
		out[i] = inscriptionEntry{ExtraData: d, Media: reassembler.ClassifyMedia(string(d.ContentType)).String()}
	}
	return out, nil
}

func getOwnerHistoryHandler(routeParams map[string]string, _ map[string][]string, deps *Deps) (interface{}, *HandlerError) {
	history, err := movetracker.OwnerHistory(deps.Store, routeParams[routeParamOwner])
	if err != nil {
		return nil, NewHandlerError(http.StatusInternalServerError, err.Error())
	}
	return history, nil
}

func getUserStatsHandler(routeParams map[string]string, _ map[string][]string, deps *Deps) (interface{}, *HandlerError) {
	stats, err := movetracker.UserStats(deps.Store, routeParams[routeParamOwner])
	if err != nil {
		return nil, NewHandlerError(http.StatusInternalServerError, err.Error())
	}
	return stats, nil
}

func getAccountBalancesHandler(routeParams map[string]string, _ map[string][]string, deps *Deps) (interface{}, *HandlerError) {
	balances, err := tokenengine.AccountBalances(deps.Store, routeParams[routeParamOwner])
	if err != nil {
		return nil, NewHandlerError(http.StatusInternalServerError, err.Error())
	}
	return balances, nil
}

func getBalanceHandler(routeParams map[string]string, _ map[string][]string, deps *Deps) (interface{}, *HandlerError) {
	amt, err := tokenengine.Balance(deps.Store, routeParams[routeParamOwner], routeParams[routeParamTick])
	if err != nil {
		return nil, NewHandlerError(http.StatusInternalServerError, err.Error())
	}
	return amt, nil
}

func getOutstandingTransfersHandler(routeParams map[string]string, _ map[string][]string, deps *Deps) (interface{}, *HandlerError) {
	transfers, err := tokenengine.OutstandingTransfers(deps.Store, routeParams[routeParamOwner])
	if err != nil {
		return nil, NewHandlerError(http.StatusInternalServerError, err.Error())
	}
	return transfers, nil
}

func getTokenHandler(routeParams map[string]string, _ map[string][]string, deps *Deps) (interface{}, *HandlerError) {
	tick := routeParams[routeParamTick]
	info, ok, err := tokenengine.Token(deps.Store, tick)
	if err != nil {
		return nil, NewHandlerError(http.StatusInternalServerError, err.Error())
	}
	if !ok {
		return nil, NewHandlerError(http.StatusNotFound, "no token deployed with this tick")
	}
	return info, nil
}

func getMempoolTxHandler(routeParams map[string]string, _ map[string][]string, deps *Deps) (interface{}, *HandlerError) {
	txid, err := chainhash.NewHashFromStr(routeParams[routeParamTxID])
	if err != nil {
		return nil, NewHandlerError(http.StatusUnprocessableEntity, "txid must be a hex-encoded transaction id")
	}
	if deps.Mempool == nil {
		return nil, NewHandlerError(http.StatusServiceUnavailable, "mempool not available")
	}
	tx, ok := deps.Mempool.LookupTx(*txid)
	if !ok {
		return nil, NewHandlerError(http.StatusNotFound, "no such transaction in the mempool")
	}
	return tx, nil
}

func getMempoolRecentHandler(_ map[string]string, _ map[string][]string, deps *Deps) (interface{}, *HandlerError) {
	if deps.Mempool == nil {
		return nil, NewHandlerError(http.StatusServiceUnavailable, "mempool not available")
	}
	return deps.Mempool.RecentOverview(), nil
}

func getMempoolBacklogHandler(_ map[string]string, _ map[string][]string, deps *Deps) (interface{}, *HandlerError) {
	if deps.Mempool == nil {
		return nil, NewHandlerError(http.StatusServiceUnavailable, "mempool not available")
	}
	return deps.Mempool.BacklogStats(), nil
}
