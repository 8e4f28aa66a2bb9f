package ordmempool

import (
	"sort"

	"github.com/kaspanet/ordindexer/util/chainhash"
)

// TxFeeInfo is the cached fee/size pair computed once per mempool
// transaction at insert time, mirroring util::fees::TxFeeInfo.
type TxFeeInfo struct {
	Fee   uint64 // satoshis
	VSize uint64 // virtual bytes
}

// FeeRate returns the transaction's fee rate in sat/vbyte. Zero-size
// transactions report a zero rate rather than dividing by zero.
func (f TxFeeInfo) FeeRate() float64 {
	if f.VSize == 0 {
		return 0
	}
	return float64(f.Fee) / float64(f.VSize)
}

// BacklogStats summarizes the fee-paying backlog: total count, total
// vsize, total fee, and a descending fee-rate histogram, mirroring
// BacklogStats in mempool.rs.
type BacklogStats struct {
	Count        uint32
	VSize        uint64
	TotalFee     uint64
	FeeHistogram []FeeHistogramBucket
}

// FeeHistogramBucket is one (fee-rate boundary, vsize) bucket, where
// VSize is the vsize of this bucket's own transactions, not a running
// total; the same (f32, u32) pair shape the original's JSON output
// uses.
type FeeHistogramBucket struct {
	FeeRate float64
	VSize   uint64
}

// minBucketVSize is the smallest amount of vsize a histogram bucket
// accumulates before it is closed out and a new (lower) fee-rate
// boundary starts, keeping the histogram small regardless of mempool
// size. original_source's own fee-bucketing source was not present in
// the retrieval pack; this bucketing scheme is this repository's own,
// matching only the output shape (Vec<(f32, u32)>) mempool.rs exposes.
const minBucketVSize = 50_000

func computeBacklogStats(feeInfo map[chainhash.Hash]TxFeeInfo) BacklogStats {
	if len(feeInfo) == 0 {
		return BacklogStats{FeeHistogram: []FeeHistogramBucket{{FeeRate: 0, VSize: 0}}}
	}

	infos := make([]TxFeeInfo, 0, len(feeInfo))
	var totalFee uint64
	var totalVSize uint64
	for _, fi := range feeInfo {
		infos = append(infos, fi)
		totalFee += fi.Fee
		totalVSize += fi.VSize
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].FeeRate() > infos[j].FeeRate() })

	return BacklogStats{
		Count:        uint32(len(infos)),
		VSize:        totalVSize,
		TotalFee:     totalFee,
		FeeHistogram: makeFeeHistogram(infos),
	}
}

// makeFeeHistogram walks infos (already sorted by descending fee rate)
// and closes out a bucket every time accumulated vsize within it
// crosses minBucketVSize, recording the fee rate of the last
// transaction that fell into the bucket as its lower boundary.
func makeFeeHistogram(infos []TxFeeInfo) []FeeHistogramBucket {
	var buckets []FeeHistogramBucket
	var bucketVSize uint64
	var lastRate float64

	for _, fi := range infos {
		bucketVSize += fi.VSize
		lastRate = fi.FeeRate()
		if bucketVSize >= minBucketVSize {
			buckets = append(buckets, FeeHistogramBucket{FeeRate: lastRate, VSize: bucketVSize})
			bucketVSize = 0
		}
	}
	if bucketVSize > 0 {
		buckets = append(buckets, FeeHistogramBucket{FeeRate: lastRate, VSize: bucketVSize})
	}
	if len(buckets) == 0 {
		buckets = []FeeHistogramBucket{{FeeRate: 0, VSize: 0}}
	}
	return buckets
}
