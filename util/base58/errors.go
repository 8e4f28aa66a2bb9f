package base58

import "errors"

// ErrChecksum indicates that the checksum of a check-encoded string
// does not verify against the checksum.
var ErrChecksum = errors.New("checksum error")

// ErrInvalidFormat indicates that the check-encoded string has an
// invalid format.
var ErrInvalidFormat = errors.New("invalid format: version and/or checksum bytes missing")
