// Package movetracker implements C6: following each inscription's
// hosting satoshi as its output is spent, assigning it a new
// (outpoint, offset, owner), and resolving satoshis that fall past a
// transaction's outputs ("leaked") onto the block's coinbase. It is
// grounded on original_source/src/new_index/move_updater.rs and
// original_source/src/inscription_entries/inscription.rs's
// InscriptionSearcher/LeakedInscriptions types, translated from the
// per-batch BTreeMap/HashMap working set there into an explicit
// per-block pass over this package's own store rows.
package movetracker

import (
	"encoding/hex"
	"sort"

	"github.com/pkg/errors"

	"github.com/kaspanet/ordindexer/internal/chain"
	"github.com/kaspanet/ordindexer/internal/netparams"
	"github.com/kaspanet/ordindexer/internal/reassembler"
	"github.com/kaspanet/ordindexer/internal/store"
	"github.com/kaspanet/ordindexer/util"
	"github.com/kaspanet/ordindexer/util/chainhash"
)

// TransferNotifier receives a try_transfer callback the first time each
// inscription moves within a ProcessBlocks call, for every inscription
// whether or not it carries a token transfer, mirroring the real
// implementation's token_cache.try_transfer hook.
type TransferNotifier interface {
	TryTransfer(height uint64, txIndex int, previousOutpoint chain.Outpoint, newOwner string)
}

// BlockInput is one block's worth of work for ProcessBlocks: its
// height, its transactions, and the inscriptions the reassembler
// completed for the first time in this block.
type BlockInput struct {
	Height    uint64
	Block     *chain.Block
	Completed []reassembler.NumberedInscription
}

// ShadowRecorder captures the pre-change value of a row about to be
// overwritten or deleted, so a later reorg can restore it. Implemented
// by reorgbuffer.Buffer; kept as an interface here to avoid
// movetracker depending on reorgbuffer.
type ShadowRecorder interface {
	ShadowInscription(height uint64, key, value []byte) error
	ShadowOwnerHistory(height uint64, key, value []byte) error
}

// Tracker owns the inscription table and replays moves into it.
type Tracker struct {
	st        *store.Store
	netParams *netparams.Params
	notifier  TransferNotifier
	shadow    ShadowRecorder
}

// New constructs a Tracker. notifier may be nil if nothing needs the
// try_transfer hook (e.g. TokenEngine not wired up yet).
func New(st *store.Store, netParams *netparams.Params, notifier TransferNotifier) *Tracker {
	return &Tracker{st: st, netParams: netParams, notifier: notifier}
}

// SetShadowRecorder wires in reorgbuffer.Buffer so every inscription
// move also shadow-writes its pre-move row, keeping the last
// HEIGHT_DELAY blocks reversible. Optional: nil (the default) disables
// shadow-writing.
func (t *Tracker) SetShadowRecorder(r ShadowRecorder) {
	t.shadow = r
}

// workingEntry is one inscription's state while ProcessBlocks is
// threading it across inputs/outputs within this call.
type workingEntry struct {
	data     ExtraData
	current  Location
	original Location
	fresh    bool // true: no persisted row to delete (new this batch)
	notified bool

	originalOwner string
	originalValue uint64

	moved         bool   // true: applyMove touched this entry at least once this batch
	movedAtHeight uint64 // height of the block that caused the move, for shadow bookkeeping
}

func locationOf(txID *chainhash.Hash, vout uint32, offset uint64) Location {
	return Location{TxID: *txID, Vout: vout, Offset: offset}
}

// ProcessBlocks runs the move algorithm over blocks in order and
// writes the resulting InscriptionExtraData / OrdHistoryRow /
// UserOrdStats deltas atomically per call.
func (t *Tracker) ProcessBlocks(blocks []BlockInput) error {
	working := make(map[Location]*workingEntry)

	for _, b := range blocks {
		for _, c := range b.Completed {
			loc := locationOf(&c.LocationTxID, 0, 0)
			working[loc] = &workingEntry{
				data: ExtraData{
					Number:        c.Number,
					GenesisTxID:   c.GenesisTxID,
					ContentType:   c.ContentType,
					ContentLength: uint64(len(c.Body)),
					BlockHeight:   c.Height,
					Owner:         c.Owner,
					Value:         c.Value,
				},
				current:       loc,
				original:      loc,
				fresh:         true,
				originalOwner: c.Owner,
				originalValue: c.Value,
			}
		}
	}

	for _, b := range blocks {
		if err := t.loadReferencedInscriptions(b.Block, working); err != nil {
			return err
		}
	}

	for _, b := range blocks {
		if err := t.processBlock(b, working); err != nil {
			return errors.Wrapf(err, "processing block at height %d", b.Height)
		}
	}

	return t.writeMoves(working)
}

// loadReferencedInscriptions range-scans the inscription table for
// every outpoint any input in block spends, folding already-persisted
// rows into working (without overwriting an entry already staged from
// this batch's freshly completed inscriptions).
func (t *Tracker) loadReferencedInscriptions(block *chain.Block, working map[Location]*workingEntry) error {
	seen := make(map[chain.Outpoint]bool)
	for _, tx := range block.Transactions {
		if tx.IsCoinbase() {
			continue
		}
		for _, in := range tx.TxIn {
			seen[in.PreviousOutpoint] = true
		}
	}

	for op := range seen {
		cur := t.st.Inscription.IterScan(store.InscriptionOutpointPrefix(&op.TxID, op.Vout))
		for cur.Next() {
			loc, err := decodeLocationKey(cur.Key())
			if err != nil {
				cur.Close()
				return err
			}
			if _, already := working[*loc]; already {
				continue
			}
			data, err := decodeExtraData(cur.Value())
			if err != nil {
				cur.Close()
				return err
			}
			working[*loc] = &workingEntry{
				data:          *data,
				current:       *loc,
				original:      *loc,
				fresh:         false,
				originalOwner: data.Owner,
				originalValue: data.Value,
			}
		}
		if err := cur.Error(); err != nil {
			cur.Close()
			return err
		}
		cur.Close()
	}
	return nil
}

// entriesAtOutpoint returns every working entry currently located at
// op (any offset), sorted by offset ascending per the tie-break rule.
func entriesAtOutpoint(working map[Location]*workingEntry, op chain.Outpoint) []*workingEntry {
	var found []*workingEntry
	for loc, e := range working {
		if loc.TxID == op.TxID && loc.Vout == op.Vout {
			found = append(found, e)
		}
	}
	sort.Slice(found, func(i, j int) bool { return found[i].current.Offset < found[j].current.Offset })
	return found
}

type leakedItem struct {
	entry     *workingEntry
	feeOffset uint64
	txIndex   int
}

func (t *Tracker) processBlock(b BlockInput, working map[Location]*workingEntry) error {
	block := b.Block
	if len(block.Transactions) == 0 {
		return nil
	}
	coinbase := block.Transactions[0]
	if !coinbase.IsCoinbase() {
		return errors.New("movetracker: block's first transaction is not a coinbase")
	}

	var blockFeeAccum uint64
	leakedBuckets := make(map[uint64][]leakedItem)
	bucketTxFee := make(map[uint64]uint64)
	var bucketOrder []uint64

	for txIndex := 1; txIndex < len(block.Transactions); txIndex++ {
		tx := block.Transactions[txIndex]

		inputValues := make([]uint64, len(tx.TxIn))
		for i, in := range tx.TxIn {
			out, found, err := t.lookupTxOut(in.PreviousOutpoint)
			if err != nil {
				return err
			}
			if !found {
				return errors.Errorf("movetracker: missing previous output %s:%d", in.PreviousOutpoint.TxID.String(), in.PreviousOutpoint.Vout)
			}
			inputValues[i] = out.Value
		}
		var inputSum, outputSum uint64
		for _, v := range inputValues {
			inputSum += v
		}
		for _, out := range tx.TxOut {
			outputSum += out.Value
		}
		if inputSum < outputSum {
			return errors.Errorf("movetracker: tx %s spends more than its inputs provide", tx.TxID().String())
		}
		totalTxFee := inputSum - outputSum
		blockFeeAccum += totalTxFee

		exclusiveCum := exclusivePrefixSum(inputValues)
		truncatedCum := truncatedPrefixSum(inputValues, totalTxFee)

		firstLeakInTx := true
		bucketKeyForTx := blockFeeAccum

		for idx, in := range tx.TxIn {
			entries := entriesAtOutpoint(working, in.PreviousOutpoint)
			for _, e := range entries {
				delete(working, e.current)

				vout, offsetWithin, ok := resolveAgainstOutputs(truncatedCum, idx, e.current.Offset, tx.TxOut)
				if ok {
					newOwner, _ := util.AddressForScript(tx.TxOut[vout].PkScript, t.netParams)
					if newOwner == "" {
						newOwner = hex.EncodeToString(tx.TxOut[vout].PkScript)
					}
					t.applyMove(e, locationOf(tx.TxID(), vout, offsetWithin), tx.TxOut[vout].Value, newOwner, b.Height, txIndex)
					working[e.current] = e
					continue
				}

				feeOffset := exclusiveCum[idx] + e.current.Offset - outputSum
				txFee := uint64(0)
				if firstLeakInTx {
					txFee = totalTxFee
					firstLeakInTx = false
				}
				if _, exists := leakedBuckets[bucketKeyForTx]; !exists {
					bucketOrder = append(bucketOrder, bucketKeyForTx)
					bucketTxFee[bucketKeyForTx] = txFee
				} else if txFee != 0 {
					bucketTxFee[bucketKeyForTx] = txFee
				}
				leakedBuckets[bucketKeyForTx] = append(leakedBuckets[bucketKeyForTx], leakedItem{entry: e, feeOffset: feeOffset, txIndex: txIndex})
			}
		}
	}

	if len(leakedBuckets) == 0 {
		return nil
	}

	var coinbaseOutputsTotal uint64
	for _, out := range coinbase.TxOut {
		coinbaseOutputsTotal += out.Value
	}
	subsidy := coinbaseOutputsTotal - blockFeeAccum // tx processing above asserted inputSum>=outputSum per-tx, so accum <= coinbase total in any valid block

	sort.Slice(bucketOrder, func(i, j int) bool { return bucketOrder[i] < bucketOrder[j] })
	for _, p := range bucketOrder {
		txFee := bucketTxFee[p]
		for _, item := range leakedBuckets[p] {
			incOffset := p - txFee + item.feeOffset
			total := incOffset + subsidy

			vout, offsetWithin, ok := resolveAgainstOutputs([]uint64{0}, 0, total, coinbase.TxOut)
			var newLoc Location
			var newOwner string
			var newValue uint64
			if ok {
				newOwner, _ = util.AddressForScript(coinbase.TxOut[vout].PkScript, t.netParams)
				if newOwner == "" {
					newOwner = hex.EncodeToString(coinbase.TxOut[vout].PkScript)
				}
				newLoc = locationOf(coinbase.TxID(), vout, offsetWithin)
				newValue = coinbase.TxOut[vout].Value
			} else {
				newOwner = "leaked"
				newLoc = locationOf(coinbase.TxID(), uint32(len(coinbase.TxOut)), total)
				newValue = 0
			}

			e := item.entry
			t.applyMove(e, newLoc, newValue, newOwner, b.Height, item.txIndex)
			working[newLoc] = e
		}
	}
	return nil
}

func (t *Tracker) applyMove(e *workingEntry, newLoc Location, newValue uint64, newOwner string, height uint64, txIndex int) {
	if !e.notified && t.notifier != nil {
		t.notifier.TryTransfer(height, txIndex, chain.Outpoint{TxID: e.current.TxID, Vout: e.current.Vout}, newOwner)
	}
	e.notified = true
	e.current = newLoc
	e.data.Value = newValue
	e.data.Owner = newOwner
	if !e.moved {
		e.moved = true
		e.movedAtHeight = height
	}
}

// exclusivePrefixSum returns, for values v0..vn-1, [0, v0, v0+v1, ...,
// sum-before-last] -- the position each input's own value range
// starts at, before any fee truncation.
func exclusivePrefixSum(values []uint64) []uint64 {
	cum := make([]uint64, len(values))
	var running uint64
	for i, v := range values {
		cum[i] = running
		running += v
	}
	return cum
}

// truncatedPrefixSum mirrors InscriptionSearcher::calc_offsets: the
// smallest suffix of inputs covering fee is popped entirely (treated
// as pure fee, absent from the result), the one input straddling the
// fee boundary keeps only its non-fee remainder, and the exclusive
// prefix sum is computed over what is left, in original front-to-back
// order. A short result (len < len(values)) signals that trailing
// inputs were fully consumed as fee.
func truncatedPrefixSum(values []uint64, fee uint64) []uint64 {
	remaining := append([]uint64(nil), values...)
	for len(remaining) > 0 {
		last := remaining[len(remaining)-1]
		if last > fee {
			remaining[len(remaining)-1] = last - fee
			break
		}
		fee -= last
		remaining = remaining[:len(remaining)-1]
	}
	return exclusivePrefixSum(remaining)
}

// resolveAgainstOutputs maps an input-relative offset to an output
// index and within-output offset, mirroring
// InscriptionSearcher::get_output_index_by_input. ok is false
// (leaked) when idx has no entry in cum (its input was entirely fee)
// or the absolute offset exceeds every output's value.
func resolveAgainstOutputs(cum []uint64, idx int, relOffset uint64, outs []*chain.TxOut) (vout uint32, offset uint64, ok bool) {
	if idx >= len(cum) {
		return 0, 0, false
	}
	absolute := cum[idx] + relOffset
	for i, out := range outs {
		if absolute < out.Value {
			return uint32(i), absolute, true
		}
		absolute -= out.Value
	}
	return 0, 0, false
}

// writeMoves commits the final state of every touched inscription:
// delete its old ExtraData/OwnerHistory rows (if it had any), insert
// the new ones, and adjust UserOrdStats for every owner that lost or
// gained an inscription.
func (t *Tracker) writeMoves(working map[Location]*workingEntry) error {
	if len(working) == 0 {
		return nil
	}

	statsDelta := make(map[string]struct {
		amount int64
		count  int64
	})

	batch := store.NewBatch()
	for loc, e := range working {
		if !e.fresh {
			oldExtraKey := store.InscriptionKey(&e.original.TxID, e.original.Vout, e.original.Offset)
			oldHistoryKey := store.OwnerHistoryKey(e.originalOwner, &e.original.TxID, e.original.Vout, e.original.Offset)
			oldHistoryValue := ownerHistoryPayload(e.data.Number, &e.data.GenesisTxID)

			if t.shadow != nil && e.moved {
				oldData := e.data
				oldData.Owner = e.originalOwner
				oldData.Value = e.originalValue
				if err := t.shadow.ShadowInscription(e.movedAtHeight, oldExtraKey, encodeExtraData(&oldData)); err != nil {
					return err
				}
				if err := t.shadow.ShadowOwnerHistory(e.movedAtHeight, oldHistoryKey, oldHistoryValue); err != nil {
					return err
				}
			}

			batch.Delete(oldExtraKey)
			batch.Delete(oldHistoryKey)

			d := statsDelta[e.originalOwner]
			d.amount -= int64(e.originalValue)
			d.count--
			statsDelta[e.originalOwner] = d
		}

		batch.Put(store.InscriptionKey(&loc.TxID, loc.Vout, loc.Offset), encodeExtraData(&e.data))
		batch.Put(store.OwnerHistoryKey(e.data.Owner, &loc.TxID, loc.Vout, loc.Offset), ownerHistoryPayload(e.data.Number, &e.data.GenesisTxID))

		d := statsDelta[e.data.Owner]
		d.amount += int64(e.data.Value)
		d.count++
		statsDelta[e.data.Owner] = d
	}

	for owner, delta := range statsDelta {
		stats, found, err := t.st.Inscription.Get(store.UserOrdStatsKey(owner))
		if err != nil {
			return err
		}
		current := &UserOrdStats{}
		if found {
			current, err = decodeUserOrdStats(stats)
			if err != nil {
				return err
			}
		}
		current.Amount = addSigned(current.Amount, delta.amount)
		current.Count = addSigned(current.Count, delta.count)
		batch.Put(store.UserOrdStatsKey(owner), encodeUserOrdStats(current))
	}

	return t.st.Inscription.Write(batch, false)
}

func addSigned(base uint64, delta int64) uint64 {
	if delta < 0 && uint64(-delta) > base {
		return 0
	}
	return uint64(int64(base) + delta)
}

func (t *Tracker) lookupTxOut(op chain.Outpoint) (*chain.TxOut, bool, error) {
	val, ok, err := t.st.TxStore.Get(store.TxOutKey(op))
	if err != nil || !ok {
		return nil, ok, err
	}
	if len(val) < 8 {
		return nil, false, errors.New("movetracker: corrupt txout row")
	}
	value := uint64(0)
	for i := 0; i < 8; i++ {
		value |= uint64(val[i]) << (8 * i)
	}
	return &chain.TxOut{Value: value, PkScript: val[8:]}, true, nil
}
