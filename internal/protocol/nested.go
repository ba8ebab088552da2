package protocol

import (
	"bytes"
	"fmt"
	"reflect"
)

// NestedMessage is an opaque protocol message embedded in a record. The codec
// never looks inside it.
type NestedMessage interface {
	MarshalBinary() ([]byte, error)
}

// NestedValidator is implemented by nested messages that can check their own
// contract before being framed.
type NestedValidator interface {
	Validate() error
}

// NestedDecoder reconstructs a nested message from at most maxLen bytes of buf
// starting at offset. It reports how many bytes of the window it used; the
// enclosing length prefix, not that count, decides where the next field starts.
type NestedDecoder interface {
	DecodeNested(buf []byte, offset, maxLen int) (int, NestedMessage, error)
}

// NestedDecoderFunc adapts a function to NestedDecoder.
type NestedDecoderFunc func(buf []byte, offset, maxLen int) (int, NestedMessage, error)

func (f NestedDecoderFunc) DecodeNested(buf []byte, offset, maxLen int) (int, NestedMessage, error) {
	return f(buf, offset, maxLen)
}

// RawMessage is a nested message kept as its encoded bytes.
type RawMessage []byte

func (m RawMessage) MarshalBinary() ([]byte, error) {
	return bytes.Clone(m), nil
}

func (m RawMessage) Validate() error {
	if len(m) == 0 {
		return fmt.Errorf("%w: raw message is empty", ErrInvalidNestedMessage)
	}
	return nil
}

// RawDecoder decodes nested windows into RawMessage copies.
var RawDecoder NestedDecoder = NestedDecoderFunc(func(buf []byte, offset, maxLen int) (int, NestedMessage, error) {
	if offset < 0 || maxLen < 0 || len(buf)-offset < maxLen {
		return 0, nil, ErrTruncated
	}
	return maxLen, RawMessage(bytes.Clone(buf[offset : offset+maxLen])), nil
})

// nestedAbsent reports whether m stands for a missing message, including a
// typed nil pointer stored in the interface.
func nestedAbsent(m NestedMessage) bool {
	if m == nil {
		return true
	}
	v := reflect.ValueOf(m)
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
		return v.IsNil()
	}
	return false
}

func validateNested(field string, m NestedMessage) error {
	if nestedAbsent(m) {
		return nil
	}
	v, ok := m.(NestedValidator)
	if !ok {
		return nil
	}
	if err := v.Validate(); err != nil {
		return fieldErr(field, ErrInvalidNestedMessage, err.Error())
	}
	return nil
}

func appendNested(dst []byte, field string, m NestedMessage) ([]byte, error) {
	if nestedAbsent(m) {
		return AppendBlob(dst, nil)
	}
	raw, err := m.MarshalBinary()
	if err != nil {
		return dst, fieldErr(field, ErrInvalidNestedMessage, err.Error())
	}
	if len(raw) == 0 {
		return dst, fieldErr(field, ErrInvalidNestedMessage, "present message encodes to zero bytes")
	}
	out, err := AppendBlob(dst, raw)
	if err != nil {
		return dst, fieldErr(field, err, "")
	}
	return out, nil
}

// readNested consumes one length-prefixed nested slot. A zero-length slot
// yields nil without calling dec.
func readNested(buf []byte, offset int, field string, dec NestedDecoder) (NestedMessage, int, error) {
	window, n, err := ReadBlob(buf, offset)
	if err != nil {
		return nil, 0, fieldErr(field, err, "")
	}
	if len(window) == 0 {
		return nil, n, nil
	}
	if dec == nil {
		return nil, 0, fieldErr(field, ErrInvalidNestedMessage, "no nested decoder configured")
	}
	start := offset + blobHeaderLen
	end := start + len(window)
	used, msg, err := dec.DecodeNested(buf[:end:end], start, len(window))
	if err != nil {
		return nil, 0, fieldErr(field, ErrInvalidNestedMessage, err.Error())
	}
	if used < 0 || used > len(window) {
		return nil, 0, fieldErr(field, ErrInvalidNestedMessage,
			fmt.Sprintf("decoder used %d bytes of a %d byte window", used, len(window)))
	}
	if nestedAbsent(msg) {
		return nil, 0, fieldErr(field, ErrInvalidNestedMessage, "decoder returned no message")
	}
	return msg, n, nil
}
