// Package tokenengine implements C7: parsing the bel-20 JSON token
// protocol out of completed inscription bodies, logging deploy/mint/
// transfer/transferred actions in (height, tx-index) order, and
// committing them against token/account state with the same
// silent-skip-on-rule-failure semantics as the original implementation.
// Grounded on original_source/src/new_index/token.rs.
package tokenengine

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// DeployProto is a parsed bel-20 deploy message.
type DeployProto struct {
	Tick   string
	Max    uint64
	Lim    uint64
	Dec    uint8
	Supply uint64
}

// MintProto is a parsed bel-20 mint message.
type MintProto struct {
	Tick string
	Amt  uint64
}

// TransferProto is a parsed bel-20 transfer message.
type TransferProto struct {
	Tick string
	Amt  uint64
}

const (
	defaultDec    = 18
	defaultSupply = 0
	maxDec        = 18
)

// acceptedContentTypes mirrors the original's text/plain + application/json
// whitelist, normalized (trimmed, spaces removed, lowercased) before lookup.
var acceptedContentTypes = map[string]bool{
	"text/plain;charset=utf-8":       true,
	"text/plain":                     true,
	"application/json":               true,
	"application/json;charset=utf-8": true,
}

// normalizeContentType trims, strips spaces, and lowercases ct, matching
// content_type.trim().replace(' ', "").to_lowercase() in the source.
func normalizeContentType(ct string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(ct), " ", ""))
}

// wireMessage is the tagged-union JSON shape every bel-20 message
// arrives in. Numeric fields are carried as JSON strings per the
// protocol's string-encoded-decimal convention; a field present as a
// bare JSON number fails to unmarshal here exactly as the original's
// DisplayFromStr deserializer would reject it.
type wireMessage struct {
	P      string `json:"p"`
	Op     string `json:"op"`
	Tick   string `json:"tick"`
	Max    string `json:"max"`
	Lim    string `json:"lim"`
	Dec    string `json:"dec"`
	Supply string `json:"supply"`
	Amt    string `json:"amt"`
}

// ParseBRC decodes content as a bel-20 message, returning one of
// *DeployProto, *MintProto, *TransferProto, or ok=false if content_type
// is not a recognized text encoding, the JSON is malformed, or the
// message fails schema/field validation (tick length, dec bound).
func ParseBRC(contentType string, content []byte) (action interface{}, ok bool) {
	if !acceptedContentTypes[normalizeContentType(contentType)] {
		return nil, false
	}

	var wire wireMessage
	if err := json.Unmarshal(bytes.ToLower(content), &wire); err != nil {
		return nil, false
	}
	if wire.P != "bel-20" {
		return nil, false
	}

	switch wire.Op {
	case "deploy":
		if len(wire.Tick) != 4 {
			return nil, false
		}
		max, err := strconv.ParseUint(wire.Max, 10, 64)
		if err != nil {
			return nil, false
		}
		lim, err := strconv.ParseUint(wire.Lim, 10, 64)
		if err != nil {
			return nil, false
		}
		dec := uint64(defaultDec)
		if wire.Dec != "" {
			dec, err = strconv.ParseUint(wire.Dec, 10, 8)
			if err != nil {
				return nil, false
			}
		}
		if dec > maxDec {
			return nil, false
		}
		supply := uint64(defaultSupply)
		if wire.Supply != "" {
			supply, err = strconv.ParseUint(wire.Supply, 10, 64)
			if err != nil {
				return nil, false
			}
		}
		return &DeployProto{Tick: wire.Tick, Max: max, Lim: lim, Dec: uint8(dec), Supply: supply}, true

	case "mint":
		if len(wire.Tick) != 4 {
			return nil, false
		}
		amt, err := strconv.ParseUint(wire.Amt, 10, 64)
		if err != nil {
			return nil, false
		}
		return &MintProto{Tick: wire.Tick, Amt: amt}, true

	case "transfer":
		if len(wire.Tick) != 4 {
			return nil, false
		}
		amt, err := strconv.ParseUint(wire.Amt, 10, 64)
		if err != nil {
			return nil, false
		}
		return &TransferProto{Tick: wire.Tick, Amt: amt}, true

	default:
		return nil, false
	}
}
