// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package util

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/kaspanet/ordindexer/internal/netparams"
	"github.com/kaspanet/ordindexer/util/base58"
	"golang.org/x/crypto/ripemd160"
)

// ErrChecksumMismatch describes an error where decoding failed due to a bad checksum.
var ErrChecksumMismatch = errors.New("checksum mismatch")

// ErrUnknownAddressType describes an address whose version byte isn't
// registered for any known address type on the given network.
var ErrUnknownAddressType = errors.New("unknown address type")

// Address is an interface type for any type of destination a
// transaction output may spend to: pay-to-pubkey-hash (P2PKH) and
// pay-to-script-hash (P2SH). It is designed to be generic enough that
// other address kinds could be added later without changing the
// decode/encode API, the same shape the teacher's util.Address
// interface uses (there, over Bech32; here, over Base58Check, since
// the indexed chain is a Bitcoin-lineage UTXO chain rather than a DAG).
type Address interface {
	// String returns the human-readable, network-prefixed encoding.
	String() string

	// EncodeAddress returns the string encoding of the payment
	// address. For the address kinds implemented here this is
	// equivalent to String.
	EncodeAddress() string

	// ScriptAddress returns the raw 20-byte hash to be used when
	// inserting the address into a txout's script.
	ScriptAddress() []byte

	// IsForNetwork reports whether the address was derived under params.
	IsForNetwork(params *netparams.Params) bool
}

// DecodeAddress decodes a Base58Check-encoded address string under
// the given network params, the network always coming from the
// caller's configured netparams.Params rather than being hardcoded,
// per the redesign flag on address derivation.
func DecodeAddress(addr string, params *netparams.Params) (Address, error) {
	decoded, version, err := base58.CheckDecode(addr)
	if err != nil {
		if err == base58.ErrChecksum {
			return nil, ErrChecksumMismatch
		}
		return nil, fmt.Errorf("decoded address is of unknown format: %s", err)
	}

	switch len(decoded) {
	case ripemd160.Size:
		switch version {
		case params.PubKeyHashAddrID:
			return newAddressPubKeyHash(params, decoded)
		case params.ScriptHashAddrID:
			return newAddressScriptHashFromHash(params, decoded)
		default:
			return nil, ErrUnknownAddressType
		}
	default:
		return nil, errors.New("decoded address is of unknown size")
	}
}

// AddressPubKeyHash is an Address for a pay-to-pubkey-hash (P2PKH) output.
type AddressPubKeyHash struct {
	params *netparams.Params
	hash   [ripemd160.Size]byte
}

// NewAddressPubKeyHash returns a new AddressPubKeyHash. pkHash must be
// 20 bytes (a RIPEMD160 digest).
func NewAddressPubKeyHash(pkHash []byte, params *netparams.Params) (*AddressPubKeyHash, error) {
	return newAddressPubKeyHash(params, pkHash)
}

func newAddressPubKeyHash(params *netparams.Params, pkHash []byte) (*AddressPubKeyHash, error) {
	if len(pkHash) != ripemd160.Size {
		return nil, errors.New("pkHash must be 20 bytes")
	}
	addr := &AddressPubKeyHash{params: params}
	copy(addr.hash[:], pkHash)
	return addr, nil
}

// EncodeAddress implements Address.
func (a *AddressPubKeyHash) EncodeAddress() string {
	return base58.CheckEncode(a.hash[:], a.params.PubKeyHashAddrID)
}

// ScriptAddress implements Address.
func (a *AddressPubKeyHash) ScriptAddress() []byte { return a.hash[:] }

// IsForNetwork implements Address.
func (a *AddressPubKeyHash) IsForNetwork(params *netparams.Params) bool {
	return a.params.Name == params.Name
}

// String implements Address.
func (a *AddressPubKeyHash) String() string { return a.EncodeAddress() }

// Hash160 returns the underlying pubkey-hash array.
func (a *AddressPubKeyHash) Hash160() *[ripemd160.Size]byte { return &a.hash }

// AddressScriptHash is an Address for a pay-to-script-hash (P2SH) output.
type AddressScriptHash struct {
	params *netparams.Params
	hash   [ripemd160.Size]byte
}

// NewAddressScriptHash returns a new AddressScriptHash for the given
// serialized redeem script.
func NewAddressScriptHash(serializedScript []byte, params *netparams.Params) (*AddressScriptHash, error) {
	return newAddressScriptHashFromHash(params, Hash160(serializedScript))
}

// NewAddressScriptHashFromHash returns a new AddressScriptHash.
// scriptHash must be 20 bytes.
func NewAddressScriptHashFromHash(scriptHash []byte, params *netparams.Params) (*AddressScriptHash, error) {
	return newAddressScriptHashFromHash(params, scriptHash)
}

func newAddressScriptHashFromHash(params *netparams.Params, scriptHash []byte) (*AddressScriptHash, error) {
	if len(scriptHash) != ripemd160.Size {
		return nil, errors.New("scriptHash must be 20 bytes")
	}
	addr := &AddressScriptHash{params: params}
	copy(addr.hash[:], scriptHash)
	return addr, nil
}

// EncodeAddress implements Address.
func (a *AddressScriptHash) EncodeAddress() string {
	return base58.CheckEncode(a.hash[:], a.params.ScriptHashAddrID)
}

// ScriptAddress implements Address.
func (a *AddressScriptHash) ScriptAddress() []byte { return a.hash[:] }

// IsForNetwork implements Address.
func (a *AddressScriptHash) IsForNetwork(params *netparams.Params) bool {
	return a.params.Name == params.Name
}

// String implements Address.
func (a *AddressScriptHash) String() string { return a.EncodeAddress() }

// Hash160 returns the underlying script-hash array.
func (a *AddressScriptHash) Hash160() *[ripemd160.Size]byte { return &a.hash }

// Hash160 calculates the RIPEMD160(SHA256(b)) digest, the standard
// pubkey/script-hash construction.
func Hash160(buf []byte) []byte {
	sha := sha256.Sum256(buf)
	ripemd := ripemd160.New()
	ripemd.Write(sha[:])
	return ripemd.Sum(nil)
}
