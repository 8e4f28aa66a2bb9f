// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package chainhash provides the 32-byte double-SHA256 digest type
// used to identify blocks, transactions and scripts throughout this
// repository, grounded on the usage contract the teacher's daghash
// package exposes (Hash, TxID, big/little-endian string forms)
// without carrying over its DAG-specific multi-parent helpers.
package chainhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// HashSize is the size, in bytes, of a hash produced by this package.
const HashSize = 32

// Hash is a 32-byte double-SHA256 digest.
type Hash [HashSize]byte

// TxID is an alias of Hash used where the value identifies a transaction.
type TxID = Hash

// String returns the big-endian (reversed, block-explorer convention)
// hex encoding of the hash.
func (h Hash) String() string {
	var reversed Hash
	for i := 0; i < HashSize/2; i++ {
		reversed[i], reversed[HashSize-1-i] = h[HashSize-1-i], h[i]
	}
	return hex.EncodeToString(reversed[:])
}

// CloneBytes returns a newly-allocated copy of the hash bytes in
// their natural (little-endian, internal) order.
func (h *Hash) CloneBytes() []byte {
	newHash := make([]byte, HashSize)
	copy(newHash, h[:])
	return newHash
}

// SetBytes sets the hash to the bytes in newHash, which must be
// HashSize bytes long and already in internal byte order.
func (h *Hash) SetBytes(newHash []byte) error {
	if len(newHash) != HashSize {
		return fmt.Errorf("invalid hash length of %v, want %v", len(newHash), HashSize)
	}
	copy(h[:], newHash)
	return nil
}

// IsEqual returns whether h and target reference the same hash value.
func (h *Hash) IsEqual(target *Hash) bool {
	if h == nil && target == nil {
		return true
	}
	if h == nil || target == nil {
		return false
	}
	return *h == *target
}

// NewHash constructs a Hash from a byte slice in internal (little-endian) order.
func NewHash(newHash []byte) (*Hash, error) {
	var h Hash
	if err := h.SetBytes(newHash); err != nil {
		return nil, err
	}
	return &h, nil
}

// HashB computes a single SHA256 digest of b.
func HashB(b []byte) []byte {
	h := sha256.Sum256(b)
	return h[:]
}

// DoubleHashB computes sha256(sha256(b)).
func DoubleHashB(b []byte) []byte {
	first := sha256.Sum256(b)
	second := sha256.Sum256(first[:])
	return second[:]
}

// DoubleHashH computes sha256(sha256(b)) and returns it as a Hash.
func DoubleHashH(b []byte) Hash {
	first := sha256.Sum256(b)
	return Hash(sha256.Sum256(first[:]))
}

// NewHashFromStr parses the reversed hex string produced by String
// back into a Hash.
func NewHashFromStr(hash string) (*Hash, error) {
	ret := new(Hash)
	if err := Decode(ret, hash); err != nil {
		return nil, err
	}
	return ret, nil
}

// Decode decodes the reversed hex string src into dst.
func Decode(dst *Hash, src string) error {
	reversedHashBytes, err := hex.DecodeString(src)
	if err != nil {
		return err
	}
	if len(reversedHashBytes) != HashSize {
		return fmt.Errorf("invalid hash string length of %v, want %v", len(reversedHashBytes), HashSize)
	}
	for i, b := range reversedHashBytes {
		dst[HashSize-1-i] = b
	}
	return nil
}
