// Package ident encodes storage identifiers as short URL-safe strings,
// base64 (url alphabet, no padding) over the identifier's minimal byte
// representation.
package ident

import (
	"encoding/base64"
	"encoding/binary"

	"bindrop/pkg/domain"
)

// ObjectIDLen is the byte width of backend-generated fixed-width ids.
const ObjectIDLen = 12

// EncodeBytes serializes raw identifier bytes without trimming. Used for
// fixed-width backend-generated ids.
func EncodeBytes(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}

// DecodeBytes is the inverse of EncodeBytes. Characters outside the
// alphabet map to ErrIDMalformed.
func DecodeBytes(s string) ([]byte, error) {
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, domain.ErrIDMalformed
	}
	return b, nil
}

// DecodeObjectID decodes a fixed-width id and rejects any other byte
// count. Wrong length is a hard failure, never truncation or padding.
func DecodeObjectID(s string) ([]byte, error) {
	b, err := DecodeBytes(s)
	if err != nil {
		return nil, err
	}
	if len(b) != ObjectIDLen {
		return nil, domain.ErrIDMalformed
	}
	return b, nil
}

// EncodeUint64 produces the shortest possible string for n: big-endian
// bytes with leading zeros trimmed, keeping at least one byte so zero
// still encodes to a non-empty string.
func EncodeUint64(n uint64) string {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], n)
	i := 0
	for i < len(buf)-1 && buf[i] == 0 {
		i++
	}
	return EncodeBytes(buf[i:])
}

// DecodeUint64 inverts EncodeUint64. More than 8 decoded bytes cannot fit
// the identifier width and fail.
func DecodeUint64(s string) (uint64, error) {
	b, err := DecodeBytes(s)
	if err != nil {
		return 0, err
	}
	if len(b) == 0 || len(b) > 8 {
		return 0, domain.ErrIDMalformed
	}
	var n uint64
	for _, c := range b {
		n = n<<8 | uint64(c)
	}
	return n, nil
}
