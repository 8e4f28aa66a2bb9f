package util

import (
	"github.com/kaspanet/ordindexer/internal/netparams"
)

// Standard script template opcodes, the minimal subset this indexer
// needs to recognize in order to derive a display address for history
// rows; there is no general-purpose script-template matcher in the
// pack (the teacher's txscript package carries only its script
// execution engine, not its standard-script classifier), so this is a
// direct, hand-written match against the two templates P2PKH/P2SH
// addressing covers.
const (
	opDup         = 0x76
	opHash160     = 0xa9
	opEqualVerify = 0x88
	opCheckSig    = 0xac
	opEqual       = 0x87
)

// AddressForScript recognizes a standard P2PKH or P2SH output script
// and returns its display address under params. ok is false for any
// other script form (multisig, bare pubkey, OP_RETURN, non-standard).
func AddressForScript(script []byte, params *netparams.Params) (addr string, ok bool) {
	switch {
	case len(script) == 25 &&
		script[0] == opDup && script[1] == opHash160 && script[2] == 0x14 &&
		script[23] == opEqualVerify && script[24] == opCheckSig:
		a, err := NewAddressPubKeyHash(script[3:23], params)
		if err != nil {
			return "", false
		}
		return a.EncodeAddress(), true

	case len(script) == 23 &&
		script[0] == opHash160 && script[1] == 0x14 && script[22] == opEqual:
		a, err := NewAddressScriptHashFromHash(script[2:22], params)
		if err != nil {
			return "", false
		}
		return a.EncodeAddress(), true

	default:
		return "", false
	}
}
