package rpcclient

import (
	"encoding/hex"

	"github.com/pkg/errors"

	"github.com/kaspanet/ordindexer/util/chainhash"
)

// BlockHeaderResult mirrors the subset of a Bitcoin-lineage
// getblockheader verbose reply the indexer consumes.
type BlockHeaderResult struct {
	Hash          string `json:"hash"`
	Confirmations int64  `json:"confirmations"`
	Height        uint64 `json:"height"`
	Version       int32  `json:"version"`
	MerkleRoot    string `json:"merkleroot"`
	Time          uint32 `json:"time"`
	Bits          string `json:"bits"`
	Nonce         uint32 `json:"nonce"`
	PreviousHash  string `json:"previousblockhash"`
}

// MempoolEntry mirrors getmempoolentry's per-transaction reply.
type MempoolEntry struct {
	VSize           uint64  `json:"vsize"`
	Fee             float64 `json:"fee"`
	Time            int64   `json:"time"`
	Height          uint64  `json:"height"`
	DescendantCount uint64  `json:"descendantcount"`
	Depends         []string `json:"depends"`
}

// NetworkInfo mirrors the subset of getnetworkinfo the indexer reports
// through its own status endpoints.
type NetworkInfo struct {
	Version         uint32 `json:"version"`
	SubVersion      string `json:"subversion"`
	ProtocolVersion uint32 `json:"protocolversion"`
	Connections     int64  `json:"connections"`
}

// GetBestBlockHash returns the tip's hash.
func (c *Client) GetBestBlockHash() (*chainhash.Hash, error) {
	var hashStr string
	if err := c.call("getbestblockhash", nil, &hashStr); err != nil {
		return nil, err
	}
	return chainhash.NewHashFromStr(hashStr)
}

// GetBlockHash returns the hash of the block at height.
func (c *Client) GetBlockHash(height uint64) (*chainhash.Hash, error) {
	var hashStr string
	if err := c.call("getblockhash", []interface{}{height}, &hashStr); err != nil {
		return nil, err
	}
	return chainhash.NewHashFromStr(hashStr)
}

// GetBlockHeader returns the verbose header for hash.
func (c *Client) GetBlockHeader(hash *chainhash.Hash) (*BlockHeaderResult, error) {
	var result BlockHeaderResult
	if err := c.call("getblockheader", []interface{}{hash.String(), true}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetBlockRaw returns the raw serialized block bytes for hash, using
// verbosity 0 ("getblock" returning a hex string) since the indexer
// parses the wire format itself via internal/chain.
func (c *Client) GetBlockRaw(hash *chainhash.Hash) ([]byte, error) {
	var blockHex string
	if err := c.call("getblock", []interface{}{hash.String(), 0}, &blockHex); err != nil {
		return nil, err
	}
	raw, err := hex.DecodeString(blockHex)
	if err != nil {
		return nil, errors.Wrap(err, "decoding raw block hex")
	}
	return raw, nil
}

// GetRawTransaction returns the raw serialized transaction bytes for
// txid. blockHash, if non-nil, hints the daemon at which block to
// search a non-mempool, non-wallet transaction in.
func (c *Client) GetRawTransaction(txID *chainhash.Hash, blockHash *chainhash.Hash) ([]byte, error) {
	params := []interface{}{txID.String(), false}
	if blockHash != nil {
		params = append(params, blockHash.String())
	}
	var txHex string
	if err := c.call("getrawtransaction", params, &txHex); err != nil {
		return nil, err
	}
	raw, err := hex.DecodeString(txHex)
	if err != nil {
		return nil, errors.Wrap(err, "decoding raw transaction hex")
	}
	return raw, nil
}

// GetRawMempool returns every txid currently in the node's mempool.
func (c *Client) GetRawMempool() ([]*chainhash.Hash, error) {
	var hashStrs []string
	if err := c.call("getrawmempool", []interface{}{false}, &hashStrs); err != nil {
		return nil, err
	}
	hashes := make([]*chainhash.Hash, len(hashStrs))
	for i, s := range hashStrs {
		h, err := chainhash.NewHashFromStr(s)
		if err != nil {
			return nil, err
		}
		hashes[i] = h
	}
	return hashes, nil
}

// GetMempoolEntry returns the mempool entry for txID.
func (c *Client) GetMempoolEntry(txID *chainhash.Hash) (*MempoolEntry, error) {
	var entry MempoolEntry
	if err := c.call("getmempoolentry", []interface{}{txID.String()}, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// EstimateSmartFee returns the estimated fee rate (in coins per kB) to
// confirm within confTarget blocks.
func (c *Client) EstimateSmartFee(confTarget int) (float64, error) {
	var result struct {
		FeeRate float64  `json:"feerate"`
		Errors  []string `json:"errors"`
	}
	if err := c.call("estimatesmartfee", []interface{}{confTarget}, &result); err != nil {
		return 0, err
	}
	return result.FeeRate, nil
}

// GetNetworkInfo returns the daemon's network info.
func (c *Client) GetNetworkInfo() (*NetworkInfo, error) {
	var info NetworkInfo
	if err := c.call("getnetworkinfo", nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// SendRawTransaction broadcasts a raw transaction and returns its txid.
func (c *Client) SendRawTransaction(raw []byte) (*chainhash.Hash, error) {
	var txIDStr string
	if err := c.call("sendrawtransaction", []interface{}{hex.EncodeToString(raw)}, &txIDStr); err != nil {
		return nil, err
	}
	return chainhash.NewHashFromStr(txIDStr)
}
