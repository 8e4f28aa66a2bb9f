package tokenengine

import (
	"encoding/binary"

	"github.com/kaspanet/ordindexer/internal/chain"
	"github.com/kaspanet/ordindexer/internal/store"
)

// TokenInfo is a deployed bel-20 token's current state.
type TokenInfo struct {
	Tick    string
	Genesis chain.Outpoint
	Deploy  DeployProto
}

// Token returns the deploy row for tick, or ok=false if tick has never
// been deployed.
func Token(st *store.Store, tick string) (info TokenInfo, ok bool, err error) {
	raw, found, err := st.Inscription.Get(store.TokenKeyKey(tick))
	if err != nil || !found {
		return TokenInfo{}, false, err
	}
	genesis, deploy, err := decodeTokenValue(raw)
	if err != nil {
		return TokenInfo{}, false, err
	}
	return TokenInfo{Tick: tick, Genesis: genesis, Deploy: deploy}, true, nil
}

// Balance returns owner's current balance of tick, or zero if owner
// has never held it.
func Balance(st *store.Store, owner, tick string) (uint64, error) {
	raw, found, err := st.Inscription.Get(store.TokenAccountKey(owner, tick))
	if err != nil || !found {
		return 0, err
	}
	return decodeTokenAccountValue(raw)
}

// AccountBalance is one (tick, amount) pair held by an owner.
type AccountBalance struct {
	Tick   string
	Amount uint64
}

// AccountBalances returns every tick owner holds a nonzero-history
// balance row for. Scanning TokenAccountPrefix(owner) and splitting
// the tick out of the remainder of the key relies on owner being
// known in full up front, since TokenAccountKey packs owner and tick
// back to back with no delimiter.
func AccountBalances(st *store.Store, owner string) ([]AccountBalance, error) {
	prefix := store.TokenAccountPrefix(owner)
	cur := st.Inscription.IterScan(prefix)
	defer cur.Close()

	var out []AccountBalance
	for cur.Next() {
		key := cur.Key()
		if len(key) <= len(prefix) {
			continue
		}
		tick := string(key[len(prefix):])
		amt, err := decodeTokenAccountValue(cur.Value())
		if err != nil {
			return nil, err
		}
		out = append(out, AccountBalance{Tick: tick, Amount: amt})
	}
	return out, cur.Error()
}

// OutstandingTransfer is one live, unredeemed Transfer-inscribe claim.
type OutstandingTransfer struct {
	Tick     string
	Location chain.Outpoint
	Amount   uint64
}

// OutstandingTransfers returns every live transfer claim owner can
// currently redeem. The secondary index gives the location of each
// claim; the claim's tick and amount are read back off the primary
// TokenTransfer row, which is the one row TryTransfer actually
// consults, so the two can never disagree.
func OutstandingTransfers(st *store.Store, owner string) ([]OutstandingTransfer, error) {
	prefix := store.TokenTransferOwnerIndexPrefix(owner)
	cur := st.Inscription.IterScan(prefix)
	defer cur.Close()

	const suffixLen = 32 + 4
	var out []OutstandingTransfer
	for cur.Next() {
		key := cur.Key()
		if len(key) < suffixLen {
			continue
		}
		suffix := key[len(key)-suffixLen:]

		var loc chain.Outpoint
		copy(loc.TxID[:], suffix[0:32])
		loc.Vout = binary.LittleEndian.Uint32(suffix[32:36])

		raw, found, err := st.Inscription.Get(store.TokenTransferKey(&loc.TxID, loc.Vout))
		if err != nil {
			return nil, err
		}
		if !found {
			continue
		}
		_, proto, err := decodeTokenTransferValue(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, OutstandingTransfer{Tick: proto.Tick, Location: loc, Amount: proto.Amt})
	}
	return out, cur.Error()
}
