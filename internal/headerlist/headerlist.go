// Package headerlist implements C2: an in-memory view of the indexer's
// own best chain, supporting by-hash, by-height, median-time-past and
// tip queries. It is grounded on
// domain/consensus/datastructures/blockheaderstore/blockheaderstore.go's
// staging/commit/cache shape, collapsed from a DAG's per-block-hash
// store into a single linear chain (one node per height) since the
// indexed chain has no blue-score/selected-parent concept: height is
// the total order.
package headerlist

import (
	"bytes"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/kaspanet/ordindexer/internal/chain"
	"github.com/kaspanet/ordindexer/internal/store"
	"github.com/kaspanet/ordindexer/util/chainhash"
)

// medianTimeSpan is the number of preceding blocks whose timestamps
// are considered when computing a node's median time past, matching
// Bitcoin-lineage consensus rules.
const medianTimeSpan = 11

// Node is one entry of the best chain: a block header plus its
// resolved height.
type Node struct {
	Hash   chainhash.Hash
	Header chain.BlockHeader
	Height uint64
}

// List is the in-memory best-chain header list. It is the
// authoritative source of "what height is this hash at" and "what is
// the current tip" for every other component; ChainIndexer is the
// only writer.
type List struct {
	mu sync.RWMutex

	byHash   map[chainhash.Hash]*Node
	byHeight []*Node // byHeight[i] is the node at height i
	tbl      *store.Table
}

// New constructs an empty List backed by tbl (the txstore table,
// conventionally) for persistence of headers and the tip marker.
func New(tbl *store.Table) *List {
	return &List{
		byHash: make(map[chainhash.Hash]*Node),
		tbl:    tbl,
	}
}

// Load rebuilds the in-memory index from persisted rows: the tip
// marker gives the best hash, and each node is walked back via
// PrevBlock until genesis (or a hash the table doesn't have, which
// would be a corrupt store). Heights are assigned top-down then
// reversed into increasing order.
func Load(tbl *store.Table) (*List, error) {
	l := New(tbl)

	tipBytes, ok, err := tbl.Get(store.TipKey)
	if err != nil {
		return nil, errors.Wrap(err, "reading tip marker")
	}
	if !ok {
		return l, nil // empty chain
	}
	var tipHash chainhash.Hash
	if err := tipHash.SetBytes(tipBytes); err != nil {
		return nil, errors.Wrap(err, "decoding tip marker")
	}

	var chainRev []*Node
	cur := tipHash
	for {
		hdrBytes, ok, err := tbl.Get(store.BlockHeaderKey(&cur))
		if err != nil {
			return nil, errors.Wrapf(err, "reading header %s", cur.String())
		}
		if !ok {
			return nil, errors.Errorf("header list: missing header for %s while walking back from tip", cur.String())
		}
		hdr, err := decodeHeader(hdrBytes)
		if err != nil {
			return nil, err
		}
		node := &Node{Hash: cur, Header: *hdr}
		chainRev = append(chainRev, node)
		if hdr.PrevBlock == (chainhash.Hash{}) {
			break // genesis
		}
		cur = hdr.PrevBlock
	}

	l.byHeight = make([]*Node, len(chainRev))
	for i, node := range chainRev {
		height := uint64(len(chainRev) - 1 - i)
		node.Height = height
		l.byHeight[height] = node
		l.byHash[node.Hash] = node
	}
	return l, nil
}

func decodeHeader(b []byte) (*chain.BlockHeader, error) {
	hdr := &chain.BlockHeader{}
	if err := hdr.Deserialize(bytes.NewReader(b)); err != nil {
		return nil, errors.Wrap(err, "decoding block header")
	}
	return hdr, nil
}

func encodeHeader(hdr *chain.BlockHeader) ([]byte, error) {
	var buf bytes.Buffer
	if err := hdr.Serialize(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Tip returns the current best node, or nil if the chain is empty.
func (l *List) Tip() *Node {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.byHeight) == 0 {
		return nil
	}
	return l.byHeight[len(l.byHeight)-1]
}

// Height returns the current tip's height, or -1 if the chain is empty.
func (l *List) Height() int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return int64(len(l.byHeight)) - 1
}

// NodeByHash looks up a node by its block hash.
func (l *List) NodeByHash(hash *chainhash.Hash) (*Node, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	n, ok := l.byHash[*hash]
	return n, ok
}

// NodeByHeight looks up a node by height.
func (l *List) NodeByHeight(height uint64) (*Node, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if height >= uint64(len(l.byHeight)) {
		return nil, false
	}
	return l.byHeight[height], true
}

// Connect appends a new tip, persisting the header row and advancing
// the tip marker. The caller must have already verified header.PrevBlock
// equals the current tip's hash (or the chain is empty and this is
// genesis).
func (l *List) Connect(header chain.BlockHeader, hash chainhash.Hash) (*Node, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	height := uint64(len(l.byHeight))
	if height > 0 {
		tip := l.byHeight[height-1]
		if header.PrevBlock != tip.Hash {
			return nil, errors.Errorf("connect: header's prev block %s does not match tip %s", header.PrevBlock.String(), tip.Hash.String())
		}
	}

	hdrBytes, err := encodeHeader(&header)
	if err != nil {
		return nil, err
	}
	if err := l.tbl.Put(store.BlockHeaderKey(&hash), hdrBytes); err != nil {
		return nil, err
	}
	if err := l.tbl.PutSync(store.TipKey, hash[:]); err != nil {
		return nil, err
	}

	node := &Node{Hash: hash, Header: header, Height: height}
	l.byHeight = append(l.byHeight, node)
	l.byHash[hash] = node
	return node, nil
}

// Disconnect removes the current tip (for reorg rewind), restoring the
// previous node as the tip. It returns the removed node.
func (l *List) Disconnect() (*Node, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.byHeight) == 0 {
		return nil, errors.New("disconnect: chain is empty")
	}
	removed := l.byHeight[len(l.byHeight)-1]
	l.byHeight = l.byHeight[:len(l.byHeight)-1]
	delete(l.byHash, removed.Hash)

	if err := l.tbl.Remove(store.BlockHeaderKey(&removed.Hash)); err != nil {
		return nil, err
	}
	if len(l.byHeight) == 0 {
		if err := l.tbl.Remove(store.TipKey); err != nil {
			return nil, err
		}
	} else {
		newTip := l.byHeight[len(l.byHeight)-1]
		if err := l.tbl.PutSync(store.TipKey, newTip.Hash[:]); err != nil {
			return nil, err
		}
	}
	return removed, nil
}

// MedianTimePast returns the median timestamp of node and up to the
// medianTimeSpan-1 blocks preceding it.
func (l *List) MedianTimePast(node *Node) uint32 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	timestamps := make([]uint32, 0, medianTimeSpan)
	for i := 0; i < medianTimeSpan; i++ {
		height := int64(node.Height) - int64(i)
		if height < 0 {
			break
		}
		timestamps = append(timestamps, l.byHeight[height].Header.Timestamp)
	}
	sort.Slice(timestamps, func(i, j int) bool { return timestamps[i] < timestamps[j] })
	return timestamps[len(timestamps)/2]
}

// FindFork looks up candidatePrevHash, the parent hash of a candidate
// chain's lowest not-yet-connected header, in the list. It returns that
// parent's height (the last height shared with the current chain) and
// true, or false if the hash is not in the list. It does not walk any
// further back than that one hash.
func (l *List) FindFork(candidatePrevHash chainhash.Hash) (forkHeight uint64, ok bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	node, found := l.byHash[candidatePrevHash]
	if !found {
		return 0, false
	}
	return node.Height, true
}
