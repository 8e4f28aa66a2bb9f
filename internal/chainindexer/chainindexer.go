// Package chainindexer implements C4: the two-phase block ingestion
// loop described in SPEC_FULL.md's ChainIndexer contract. It is
// grounded on blockdag.BlockDAG's header-then-body ingestion ordering
// and on util/panics.GoroutineWrapperFunc's panic-safe bounded
// goroutine fan-out, adapted from a DAG's multi-parent acceptance walk
// to following a single best chain.
package chainindexer

import (
	"bytes"
	"strconv"
	"sync"

	"github.com/pkg/errors"

	"github.com/kaspanet/ordindexer/internal/chain"
	"github.com/kaspanet/ordindexer/internal/headerlist"
	"github.com/kaspanet/ordindexer/internal/logs"
	"github.com/kaspanet/ordindexer/internal/netparams"
	"github.com/kaspanet/ordindexer/internal/rpcclient"
	"github.com/kaspanet/ordindexer/internal/store"
	"github.com/kaspanet/ordindexer/util"
	"github.com/kaspanet/ordindexer/util/chainhash"
)

// RPC is the subset of *rpcclient.Client Update needs, narrowed to an
// interface so tests can inject a fake node.
type RPC interface {
	GetBestBlockHash() (*chainhash.Hash, error)
	GetBlockHeader(hash *chainhash.Hash) (*rpcclient.BlockHeaderResult, error)
}

// Fetcher is the subset of *fetcher.Fetcher Update needs.
type Fetcher interface {
	FetchByHash(hash *chainhash.Hash) (*chain.Block, error)
}

// Indexer drives Update(), writing txstore and history rows for every
// newly connected block.
type Indexer struct {
	st            *store.Store
	hl            *headerlist.List
	fetch         Fetcher
	rpc           RPC
	netParams     *netparams.Params
	addressSearch bool
	indexUnspendables bool
	concurrency   int
	log           *logs.Logger
}

// SetLogger attaches a subsystem logger used to report replay progress
// during a long Update call. Optional: Update runs silently if unset.
func (idx *Indexer) SetLogger(log *logs.Logger) {
	idx.log = log
}

// New constructs an Indexer.
func New(st *store.Store, hl *headerlist.List, fetch Fetcher, rpc RPC,
	netParams *netparams.Params, addressSearch, indexUnspendables bool, concurrency int) *Indexer {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Indexer{
		st: st, hl: hl, fetch: fetch, rpc: rpc, netParams: netParams,
		addressSearch: addressSearch, indexUnspendables: indexUnspendables, concurrency: concurrency,
	}
}

// UpdateResult reports what Update did: the newly connected nodes (in
// ascending-height order) and, on a reorg, the nodes rewound off the
// old tip (in descending-height order, highest first -- the order
// TempBuffer replays its shadow rows in).
type UpdateResult struct {
	Added   []*headerlist.Node
	Removed []*headerlist.Node
}

// Update implements the ChainIndexer contract: resolve the header
// delta against the node's current best hash, disconnect stale tip
// nodes, then for each new block in turn write its txstore rows,
// connect its header and write its history rows, so a block's history
// rows are written only once its own txstore rows exist.
func (idx *Indexer) Update() (*UpdateResult, error) {
	bestHash, err := idx.rpc.GetBestBlockHash()
	if err != nil {
		return nil, errors.Wrap(err, "getbestblockhash")
	}

	tip := idx.hl.Tip()
	if tip != nil && tip.Hash == *bestHash {
		return &UpdateResult{}, nil
	}

	headersToConnect, forkHeight, err := idx.resolveDelta(bestHash)
	if err != nil {
		return nil, err
	}

	var removed []*headerlist.Node
	for idx.hl.Tip() != nil && int64(idx.hl.Tip().Height) > forkHeight {
		node, err := idx.hl.Disconnect()
		if err != nil {
			return nil, errors.Wrap(err, "disconnecting stale tip during reorg")
		}
		removed = append(removed, node)
	}

	added := make([]*headerlist.Node, 0, len(headersToConnect))
	prog := newProgress(idx.log, "replaying blocks", len(headersToConnect))
	for _, hdr := range headersToConnect {
		hash := hdr.BlockHash()
		block, err := idx.fetch.FetchByHash(&hash)
		if err != nil {
			return nil, errors.Wrapf(err, "fetching block %s", hash.String())
		}

		if err := idx.writeTxStoreRows(block, &hash); err != nil {
			return nil, errors.Wrapf(err, "writing txstore rows for block %s", hash.String())
		}

		node, err := idx.hl.Connect(hdr, hash)
		if err != nil {
			return nil, errors.Wrapf(err, "connecting header %s", hash.String())
		}
		added = append(added, node)

		if err := idx.writeHistoryRows(block, node); err != nil {
			return nil, errors.Wrapf(err, "writing history rows for block %s", hash.String())
		}
		prog.inc()
	}
	prog.finish()

	if err := idx.st.Flush(); err != nil {
		return nil, errors.Wrap(err, "flushing after update")
	}

	return &UpdateResult{Added: added, Removed: removed}, nil
}

// resolveDelta walks back from bestHash over JSON-RPC getblockheader
// calls until it reaches a hash HeaderList already knows (the fork
// point), returning the walked headers in ascending-height
// (fork-to-tip) order.
func (idx *Indexer) resolveDelta(bestHash *chainhash.Hash) (headers []chain.BlockHeader, forkHeight int64, err error) {
	var reverseHeaders []chain.BlockHeader
	cur := *bestHash
	for {
		if node, ok := idx.hl.NodeByHash(&cur); ok {
			forkHeight = int64(node.Height)
			break
		}

		result, err := idx.rpc.GetBlockHeader(&cur)
		if err != nil {
			return nil, 0, errors.Wrapf(err, "getblockheader %s", cur.String())
		}
		hdr, err := headerFromRPCResult(result)
		if err != nil {
			return nil, 0, err
		}
		reverseHeaders = append(reverseHeaders, *hdr)

		if result.PreviousHash == "" {
			forkHeight = -1 // genesis has no known ancestor; connect from height 0
			break
		}
		prev, err := chainhash.NewHashFromStr(result.PreviousHash)
		if err != nil {
			return nil, 0, err
		}
		cur = *prev
	}

	headers = make([]chain.BlockHeader, len(reverseHeaders))
	for i, h := range reverseHeaders {
		headers[len(reverseHeaders)-1-i] = h
	}
	return headers, forkHeight, nil
}

func headerFromRPCResult(r *rpcclient.BlockHeaderResult) (*chain.BlockHeader, error) {
	merkleRoot, err := chainhash.NewHashFromStr(r.MerkleRoot)
	if err != nil {
		return nil, err
	}
	var prevBlock chainhash.Hash
	if r.PreviousHash != "" {
		h, err := chainhash.NewHashFromStr(r.PreviousHash)
		if err != nil {
			return nil, err
		}
		prevBlock = *h
	}
	var bits uint32
	if r.Bits != "" {
		b, err := strconv.ParseUint(r.Bits, 16, 32)
		if err != nil {
			return nil, err
		}
		bits = uint32(b)
	}
	return &chain.BlockHeader{
		Version:    r.Version,
		PrevBlock:  prevBlock,
		MerkleRoot: *merkleRoot,
		Timestamp:  r.Time,
		Bits:       bits,
		Nonce:      r.Nonce,
	}, nil
}

// writeTxStoreRows writes, per transaction in block: the raw tx bytes,
// its confirmation row, and a txout row per spendable output; then the
// block's header/txid-list/meta/done rows. Per-tx work runs over a
// bounded worker pool since the rows are independent of one another.
func (idx *Indexer) writeTxStoreRows(block *chain.Block, blockHash *chainhash.Hash) error {
	sem := make(chan struct{}, idx.concurrency)
	var wg sync.WaitGroup
	errs := make([]error, len(block.Transactions))

	for i, tx := range block.Transactions {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, tx *chain.Tx) {
			defer wg.Done()
			defer func() { <-sem }()
			errs[i] = idx.writeOneTx(tx, blockHash)
		}(i, tx)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return err
		}
	}

	return idx.writeBlockMeta(block, blockHash)
}

func (idx *Indexer) writeOneTx(tx *chain.Tx, blockHash *chainhash.Hash) error {
	txID := tx.TxID()

	var txBuf bytes.Buffer
	if err := tx.Serialize(&txBuf); err != nil {
		return err
	}

	batch := store.NewBatch()
	batch.Put(store.TxKey(txID), txBuf.Bytes())
	batch.Put(store.TxConfKey(txID), blockHash[:])

	for vout, out := range tx.TxOut {
		if !idx.indexUnspendables && isUnspendable(out.PkScript) {
			continue
		}
		op := chain.NewOutpoint(txID, uint32(vout))
		batch.Put(store.TxOutKey(op), txOutValue(out))
	}

	return idx.st.TxStore.Write(batch, false)
}

func txOutValue(out *chain.TxOut) []byte {
	var buf bytes.Buffer
	var valueBuf [8]byte
	for i := 0; i < 8; i++ {
		valueBuf[i] = byte(out.Value >> (8 * i))
	}
	buf.Write(valueBuf[:])
	buf.Write(out.PkScript)
	return buf.Bytes()
}

func isUnspendable(pkScript []byte) bool {
	return len(pkScript) > 0 && pkScript[0] == 0x6a // OP_RETURN
}

func (idx *Indexer) writeBlockMeta(block *chain.Block, blockHash *chainhash.Hash) error {
	var hdrBuf bytes.Buffer
	if err := block.Header.Serialize(&hdrBuf); err != nil {
		return err
	}

	var txidsBuf bytes.Buffer
	for _, tx := range block.Transactions {
		txid := tx.TxID()
		txidsBuf.Write(txid[:])
	}

	meta := blockMetaBytes(block)

	batch := store.NewBatch()
	batch.Put(store.BlockHeaderKey(blockHash), hdrBuf.Bytes())
	batch.Put(store.BlockTxsKey(blockHash), txidsBuf.Bytes())
	batch.Put(store.BlockMetaKey(blockHash), meta)
	batch.Put(store.BlockDoneKey(blockHash), []byte{1})
	return idx.st.TxStore.Write(batch, false)
}

func blockMetaBytes(block *chain.Block) []byte {
	size := uint32(block.SerializeSize())
	weight := uint32(block.Weight())
	buf := make([]byte, 8)
	for i := 0; i < 4; i++ {
		buf[i] = byte(size >> (8 * i))
		buf[4+i] = byte(weight >> (8 * i))
	}
	return buf
}

// writeHistoryRows produces funding, spending, edge and (optionally)
// address-prefix rows for every transaction in block, resolving each
// input's previous output from the now fully-populated txstore.
func (idx *Indexer) writeHistoryRows(block *chain.Block, node *headerlist.Node) error {
	batch := store.NewBatch()

	for _, tx := range block.Transactions {
		txID := tx.TxID()

		for vout, out := range tx.TxOut {
			if !idx.indexUnspendables && isUnspendable(out.PkScript) {
				continue
			}
			sh := store.HashScript(out.PkScript)
			batch.Put(store.HistoryFundKey(sh, node.Height, txID, uint32(vout)), fundPayload(out.Value))

			if idx.addressSearch {
				if addr, ok := util.AddressForScript(out.PkScript, idx.netParams); ok {
					batch.Put(store.AddrKey(addr), []byte{1})
				}
			}
		}

		if tx.IsCoinbase() {
			continue
		}
		for vin, in := range tx.TxIn {
			prevOut, found, err := idx.lookupTxOut(in.PreviousOutpoint)
			if err != nil {
				return err
			}
			if !found {
				return errors.Errorf("history: missing previous output %s:%d (input %d of tx %s)",
					in.PreviousOutpoint.TxID.String(), in.PreviousOutpoint.Vout, vin, txID.String())
			}
			sh := store.HashScript(prevOut.PkScript)
			batch.Put(store.HistorySpendKey(sh, node.Height, txID, uint32(vin)), spendPayload(&in.PreviousOutpoint, prevOut.Value))
			batch.Put(store.EdgeKey(&in.PreviousOutpoint.TxID, in.PreviousOutpoint.Vout, txID, uint32(vin)), []byte{1})
		}
	}

	return idx.st.History.Write(batch, false)
}

func fundPayload(value uint64) []byte {
	buf := make([]byte, 8)
	for i := 0; i < 8; i++ {
		buf[i] = byte(value >> (8 * i))
	}
	return buf
}

func spendPayload(prevOutpoint *chain.Outpoint, value uint64) []byte {
	buf := make([]byte, 0, 32+4+8)
	buf = append(buf, prevOutpoint.TxID[:]...)
	voutBuf := make([]byte, 4)
	for i := 0; i < 4; i++ {
		voutBuf[i] = byte(prevOutpoint.Vout >> (8 * i))
	}
	buf = append(buf, voutBuf...)
	valueBuf := make([]byte, 8)
	for i := 0; i < 8; i++ {
		valueBuf[i] = byte(value >> (8 * i))
	}
	return append(buf, valueBuf...)
}

// lookupTxOut resolves an outpoint's TxOut from the txstore's O-prefixed rows.
func (idx *Indexer) lookupTxOut(op chain.Outpoint) (*chain.TxOut, bool, error) {
	val, ok, err := idx.st.TxStore.Get(store.TxOutKey(op))
	if err != nil || !ok {
		return nil, ok, err
	}
	if len(val) < 8 {
		return nil, false, errors.New("corrupt txout row")
	}
	var value uint64
	for i := 0; i < 8; i++ {
		value |= uint64(val[i]) << (8 * i)
	}
	return &chain.TxOut{Value: value, PkScript: val[8:]}, true, nil
}
