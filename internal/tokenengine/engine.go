package tokenengine

import (
	"encoding/binary"
	"math"
	"sort"

	"github.com/pkg/errors"

	"github.com/kaspanet/ordindexer/internal/chain"
	"github.com/kaspanet/ordindexer/internal/store"
)

type actionKind int

const (
	actionDeploy actionKind = iota
	actionMint
	actionTransfer
	actionTransferred
)

// logEntry is one (height, tx-index)-stamped token action awaiting
// commit, mirroring the source's token_actions: Vec<(u32, usize, TokenAction)>.
type logEntry struct {
	height  uint64
	txIndex int
	kind    actionKind

	genesis  chain.Outpoint // actionDeploy
	deploy   DeployProto    // actionDeploy
	owner    string         // actionMint, actionTransfer (owner), actionTransferred (recipient)
	mint     MintProto      // actionMint
	location chain.Outpoint // actionTransfer, actionTransferred
	transfer TransferProto  // actionTransfer
}

type accountKey struct {
	owner string
	tick  string
}

type tokenState struct {
	genesis chain.Outpoint
	deploy  DeployProto
}

type liveTransfer struct {
	owner string
	proto TransferProto
}

// Engine owns the token/account cache and the pending action log for
// one indexing session. Grounded on token.rs's TokenCache.
type Engine struct {
	st *store.Store

	tokens   map[string]*tokenState
	accounts map[accountKey]uint64

	actions []logEntry

	// allTransfers holds Transfer-inscribe claims keyed by the
	// inscription's location: those logged but not yet committed, plus
	// those validated by Commit and not yet redeemed.
	allTransfers map[chain.Outpoint]TransferProto

	// liveTransfers holds validated, outstanding transfer claims: the
	// in-memory mirror of persisted TokenTransfer rows, consulted by
	// TryTransfer so a Transfer-send is only logged for a location
	// that is actually redeemable.
	liveTransfers map[chain.Outpoint]liveTransfer
}

// New constructs an Engine bound to st's inscription table.
func New(st *store.Store) *Engine {
	return &Engine{
		st:            st,
		tokens:        make(map[string]*tokenState),
		accounts:      make(map[accountKey]uint64),
		allTransfers:  make(map[chain.Outpoint]TransferProto),
		liveTransfers: make(map[chain.Outpoint]liveTransfer),
	}
}

// LoadLiveTransfers rehydrates allTransfers/liveTransfers from the
// persisted TokenTransfer rows, restoring TryTransfer's view of
// outstanding claims across a process restart. Call once at startup
// before feeding any blocks through the engine.
func (e *Engine) LoadLiveTransfers() error {
	c := e.st.Inscription.IterScan([]byte{store.PrefixTokenTransfer})
	defer c.Close()
	for c.Next() {
		key := c.Key()
		if len(key) != 1+32+4 {
			continue
		}
		var loc chain.Outpoint
		copy(loc.TxID[:], key[1:33])
		loc.Vout = binary.LittleEndian.Uint32(key[33:37])

		owner, proto, err := decodeTokenTransferValue(c.Value())
		if err != nil {
			return err
		}
		e.allTransfers[loc] = proto
		e.liveTransfers[loc] = liveTransfer{owner: owner, proto: proto}
	}
	return c.Error()
}

// ParseTokenAction inspects one completed (or freshly relocated)
// inscription's content and, if it decodes as a bel-20 message, logs
// the corresponding action. Mirrors TokenCache::parse_token_action.
func (e *Engine) ParseTokenAction(height uint64, txIndex int, owner string, contentType string, content []byte, genesis, location chain.Outpoint) {
	action, ok := ParseBRC(contentType, content)
	if !ok {
		return
	}
	switch p := action.(type) {
	case *DeployProto:
		e.actions = append(e.actions, logEntry{height: height, txIndex: txIndex, kind: actionDeploy, genesis: genesis, deploy: *p})
	case *MintProto:
		e.actions = append(e.actions, logEntry{height: height, txIndex: txIndex, kind: actionMint, owner: owner, mint: *p})
	case *TransferProto:
		e.actions = append(e.actions, logEntry{height: height, txIndex: txIndex, kind: actionTransfer, owner: owner, location: location, transfer: *p})
		e.allTransfers[location] = *p
	}
}

// TryTransfer implements movetracker.TransferNotifier: it logs a
// Transfer-send action iff previousOutpoint is both a known
// Transfer-inscribe claim and a currently-live (validated, unredeemed)
// transfer. Mirrors TokenCache::try_transfered.
func (e *Engine) TryTransfer(height uint64, txIndex int, previousOutpoint chain.Outpoint, newOwner string) {
	if _, ok := e.allTransfers[previousOutpoint]; !ok {
		return
	}
	if _, ok := e.liveTransfers[previousOutpoint]; !ok {
		return
	}
	e.actions = append(e.actions, logEntry{height: height, txIndex: txIndex, kind: actionTransferred, owner: newOwner, location: previousOutpoint})
}

func (e *Engine) getToken(tick string) (*tokenState, bool, error) {
	if tok, ok := e.tokens[tick]; ok {
		return tok, true, nil
	}
	raw, found, err := e.st.Inscription.Get(store.TokenKeyKey(tick))
	if err != nil {
		return nil, false, err
	}
	if !found {
		return nil, false, nil
	}
	genesis, deploy, err := decodeTokenValue(raw)
	if err != nil {
		return nil, false, err
	}
	tok := &tokenState{genesis: genesis, deploy: deploy}
	e.tokens[tick] = tok
	return tok, true, nil
}

func (e *Engine) getAccount(key accountKey) (uint64, error) {
	if amt, ok := e.accounts[key]; ok {
		return amt, nil
	}
	raw, found, err := e.st.Inscription.Get(store.TokenAccountKey(key.owner, key.tick))
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, nil
	}
	amt, err := decodeTokenAccountValue(raw)
	if err != nil {
		return 0, err
	}
	e.accounts[key] = amt
	return amt, nil
}

// saturatingAdd clamps to math.MaxUint64 instead of wrapping, the way
// §4.5 requires for the mint supply-cap check specifically (everything
// else in the engine uses exact arithmetic). Mirrors the addSigned
// clamp in movetracker.go.
func saturatingAdd(a, b uint64) uint64 {
	sum := a + b
	if sum < a {
		return math.MaxUint64
	}
	return sum
}

// Commit sorts the pending action log by (height, tx-index) and
// applies every rule in order, writing one atomic batch. Any rule
// failure silently skips that action rather than aborting the commit,
// per §4.5. Mirrors process_token_actions + write_token_data +
// write_valid_transfers, fused into a single pass over one batch.
func (e *Engine) Commit() error {
	sort.SliceStable(e.actions, func(i, j int) bool {
		if e.actions[i].height != e.actions[j].height {
			return e.actions[i].height < e.actions[j].height
		}
		return e.actions[i].txIndex < e.actions[j].txIndex
	})

	batch := store.NewBatch()
	touchedTokens := make(map[string]bool)
	touchedAccounts := make(map[accountKey]bool)

	for _, a := range e.actions {
		switch a.kind {
		case actionDeploy:
			tick := a.deploy.Tick
			_, exists, err := e.getToken(tick)
			if err != nil {
				return err
			}
			if exists {
				continue
			}
			e.tokens[tick] = &tokenState{genesis: a.genesis, deploy: a.deploy}
			touchedTokens[tick] = true

		case actionMint:
			tick := a.mint.Tick
			tok, exists, err := e.getToken(tick)
			if err != nil {
				return err
			}
			if !exists {
				continue
			}
			if tok.deploy.Lim != a.mint.Amt || saturatingAdd(tok.deploy.Supply, a.mint.Amt) > tok.deploy.Max {
				continue
			}
			tok.deploy.Supply += a.mint.Amt
			touchedTokens[tick] = true

			key := accountKey{owner: a.owner, tick: tick}
			amt, err := e.getAccount(key)
			if err != nil {
				return err
			}
			e.accounts[key] = amt + a.mint.Amt
			touchedAccounts[key] = true

		case actionTransfer:
			proto, claimed := e.allTransfers[a.location]
			if !claimed {
				continue
			}
			delete(e.allTransfers, a.location)

			tick := a.transfer.Tick
			_, exists, err := e.getToken(tick)
			if err != nil {
				return err
			}
			if !exists {
				continue
			}

			key := accountKey{owner: a.owner, tick: tick}
			amt, err := e.getAccount(key)
			if err != nil {
				return err
			}
			if a.transfer.Amt > amt {
				continue
			}
			e.accounts[key] = amt - a.transfer.Amt
			touchedAccounts[key] = true

			e.allTransfers[a.location] = proto
			e.liveTransfers[a.location] = liveTransfer{owner: a.owner, proto: proto}
			batch.Put(store.TokenTransferKey(&a.location.TxID, a.location.Vout), encodeTokenTransferValue(a.owner, proto))
			batch.Put(store.TokenTransferOwnerIndexKey(a.owner, tick, &a.location.TxID, a.location.Vout), []byte{})

		case actionTransferred:
			lt, live := e.liveTransfers[a.location]
			if !live {
				continue
			}
			delete(e.liveTransfers, a.location)
			delete(e.allTransfers, a.location)

			tick := lt.proto.Tick
			_, exists, err := e.getToken(tick)
			if err != nil {
				return err
			}
			if !exists {
				continue
			}

			key := accountKey{owner: a.owner, tick: tick}
			amt, err := e.getAccount(key)
			if err != nil {
				return err
			}
			e.accounts[key] = amt + lt.proto.Amt
			touchedAccounts[key] = true

			batch.Delete(store.TokenTransferKey(&a.location.TxID, a.location.Vout))
			batch.Delete(store.TokenTransferOwnerIndexKey(lt.owner, tick, &a.location.TxID, a.location.Vout))

		default:
			return errors.Errorf("tokenengine: unknown action kind %d", a.kind)
		}
	}
	e.actions = e.actions[:0]

	for tick := range touchedTokens {
		tok := e.tokens[tick]
		batch.Put(store.TokenKeyKey(tick), encodeTokenValue(tok.genesis, tok.deploy))
	}
	for key := range touchedAccounts {
		batch.Put(store.TokenAccountKey(key.owner, key.tick), encodeTokenAccountValue(e.accounts[key]))
	}

	if batch.Len() == 0 {
		return nil
	}
	return e.st.Inscription.Write(batch, false)
}
