package util

import (
	"io"

	"github.com/pkg/errors"

	"bindrop/pkg/domain"
)

const readChunkSize = 1024

// ReadExact reads exactly n bytes from r. A declared length over the
// limit fails with ErrTooBig before any byte is read; a stream that ends
// early is an I/O error, never a clipped result.
func ReadExact(r io.Reader, n, limit int64) ([]byte, error) {
	if n > limit {
		return nil, domain.ErrTooBig
	}
	if n < 0 {
		return nil, domain.ErrInvalidRequest
	}
	data := make([]byte, n)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, errors.Wrap(err, "read body")
	}
	return data, nil
}

// ReadAll reads r to EOF in fixed-size chunks, failing with ErrTooBig the
// moment the accumulated size would exceed the limit. The final payload
// never exceeds limit bytes; at most one chunk beyond is held transiently.
func ReadAll(r io.Reader, limit int64) ([]byte, error) {
	result := make([]byte, 0, readChunkSize)
	buf := make([]byte, readChunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if int64(len(result))+int64(n) > limit {
				return nil, domain.ErrTooBig
			}
			result = append(result, buf[:n]...)
		}
		if err == io.EOF {
			return result, nil
		}
		if err != nil {
			return nil, errors.Wrap(err, "read body")
		}
	}
}
