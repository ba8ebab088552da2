package protocol

import (
	"encoding/binary"
	"fmt"
	"math"
	"unicode/utf8"
)

const (
	// MaxShortStringLen is the largest UTF-8 byte length a short string can carry.
	MaxShortStringLen = math.MaxUint8
	// MaxBlobLen is the largest payload a length-prefixed blob can carry.
	MaxBlobLen = math.MaxUint16

	blobHeaderLen = 2
	float64Len    = 8
)

// EncodeShortString returns s behind a single-byte length prefix.
func EncodeShortString(s string) ([]byte, error) {
	return AppendShortString(make([]byte, 0, 1+len(s)), s)
}

// AppendShortString appends the short-string encoding of s to dst.
func AppendShortString(dst []byte, s string) ([]byte, error) {
	if len(s) > MaxShortStringLen {
		return dst, fmt.Errorf("%w: %d bytes exceeds %d", ErrFieldTooLong, len(s), MaxShortStringLen)
	}
	if !utf8.ValidString(s) {
		return dst, ErrInvalidEncoding
	}
	dst = append(dst, byte(len(s)))
	return append(dst, s...), nil
}

// ReadShortString decodes a short string at offset and returns it with the
// number of bytes consumed, prefix included.
func ReadShortString(buf []byte, offset int) (string, int, error) {
	if offset < 0 || offset >= len(buf) {
		return "", 0, ErrTruncated
	}
	n := int(buf[offset])
	start := offset + 1
	if len(buf)-start < n {
		return "", 0, fmt.Errorf("%w: short string declares %d bytes, %d remain", ErrTruncated, n, len(buf)-start)
	}
	raw := buf[start : start+n]
	if !utf8.Valid(raw) {
		return "", 0, ErrInvalidEncoding
	}
	return string(raw), 1 + n, nil
}

// EncodeBlob returns b behind a 2-byte big-endian length prefix. An empty
// blob is the canonical encoding of an absent value.
func EncodeBlob(b []byte) ([]byte, error) {
	return AppendBlob(make([]byte, 0, blobHeaderLen+len(b)), b)
}

// AppendBlob appends the length-prefixed encoding of b to dst.
func AppendBlob(dst []byte, b []byte) ([]byte, error) {
	if len(b) > MaxBlobLen {
		return dst, fmt.Errorf("%w: %d bytes exceeds %d", ErrFieldTooLong, len(b), MaxBlobLen)
	}
	dst = binary.BigEndian.AppendUint16(dst, uint16(len(b)))
	return append(dst, b...), nil
}

// ReadBlob returns the raw window of a length-prefixed blob at offset and the
// number of bytes consumed, prefix included. The returned slice aliases buf.
func ReadBlob(buf []byte, offset int) ([]byte, int, error) {
	if offset < 0 || len(buf)-offset < blobHeaderLen {
		return nil, 0, ErrTruncated
	}
	n := int(binary.BigEndian.Uint16(buf[offset : offset+blobHeaderLen]))
	start := offset + blobHeaderLen
	if len(buf)-start < n {
		return nil, 0, fmt.Errorf("%w: blob declares %d bytes, %d remain", ErrTruncated, n, len(buf)-start)
	}
	return buf[start : start+n], blobHeaderLen + n, nil
}

// AppendFloat64 appends v as an 8-byte big-endian IEEE 754 double.
func AppendFloat64(dst []byte, v float64) []byte {
	return binary.BigEndian.AppendUint64(dst, math.Float64bits(v))
}

// ReadFloat64 decodes an 8-byte big-endian IEEE 754 double at offset.
func ReadFloat64(buf []byte, offset int) (float64, int, error) {
	if offset < 0 || len(buf)-offset < float64Len {
		return 0, 0, ErrTruncated
	}
	return math.Float64frombits(binary.BigEndian.Uint64(buf[offset : offset+float64Len])), float64Len, nil
}
