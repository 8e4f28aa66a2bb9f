package movetracker

import (
	"encoding/binary"

	"github.com/kaspanet/ordindexer/internal/chain"
	"github.com/kaspanet/ordindexer/internal/store"
)

// InscriptionAtOutpoint returns every inscription currently located
// anywhere within op's output, ordered by offset ascending.
func InscriptionAtOutpoint(st *store.Store, op chain.Outpoint) ([]ExtraData, error) {
	cur := st.Inscription.IterScan(store.InscriptionOutpointPrefix(&op.TxID, op.Vout))
	defer cur.Close()

	var out []ExtraData
	for cur.Next() {
		d, err := decodeExtraData(cur.Value())
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, cur.Error()
}

// OwnerHistoryEntry is one row of an owner's inscription history: the
// location the inscription sat at, and its identity.
type OwnerHistoryEntry struct {
	Location    Location
	Number      uint64
	GenesisTxID chain.Outpoint
}

// OwnerHistory returns every inscription currently recorded under
// owner, decoding the location straight out of the OrdHistoryRow key
// the way the original serves an address's inscription listing.
func OwnerHistory(st *store.Store, owner string) ([]OwnerHistoryEntry, error) {
	cur := st.Inscription.IterScan(store.OwnerHistoryPrefix(owner))
	defer cur.Close()

	var out []OwnerHistoryEntry
	for cur.Next() {
		key := cur.Key()
		prefixLen := 1 + len(owner)
		if len(key) < prefixLen+32+4+8 {
			continue
		}
		rest := key[prefixLen:]
		var loc Location
		copy(loc.TxID[:], rest[0:32])
		loc.Vout = binary.LittleEndian.Uint32(rest[32:36])
		loc.Offset = binary.BigEndian.Uint64(rest[36:44])

		val := cur.Value()
		if len(val) < 40 {
			continue
		}
		entry := OwnerHistoryEntry{Location: loc}
		entry.Number = binary.LittleEndian.Uint64(val[0:8])
		copy(entry.GenesisTxID.TxID[:], val[8:40])
		out = append(out, entry)
	}
	return out, cur.Error()
}

// UserStats returns the persisted UserOrdStats row for owner, or the
// zero value if owner has never been recorded.
func UserStats(st *store.Store, owner string) (UserOrdStats, error) {
	val, found, err := st.Inscription.Get(store.UserOrdStatsKey(owner))
	if err != nil || !found {
		return UserOrdStats{}, err
	}
	s, err := decodeUserOrdStats(val)
	if err != nil {
		return UserOrdStats{}, err
	}
	return *s, nil
}
