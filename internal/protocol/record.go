package protocol

import "fmt"

// Tag is the leading byte of every envelope; it selects the record layout.
type Tag uint8

// TagTransaction identifies TransactionRecord envelopes. Other values are
// reserved for future record kinds.
const TagTransaction Tag = 1

func (t Tag) String() string {
	switch t {
	case TagTransaction:
		return "transaction"
	default:
		return fmt.Sprintf("tag(%d)", uint8(t))
	}
}

// Record is one decoded envelope body.
type Record interface {
	Tag() Tag
	Validate() error
	MarshalBinary() ([]byte, error)
}

// Decoder decodes one record starting at offset, tag byte included, and
// reports the bytes consumed.
type Decoder interface {
	Decode(buf []byte, offset int) (Record, int, error)
}

// DecoderFunc adapts a function to Decoder.
type DecoderFunc func(buf []byte, offset int) (Record, int, error)

func (f DecoderFunc) Decode(buf []byte, offset int) (Record, int, error) {
	return f(buf, offset)
}

// Encode validates r and returns its envelope bytes.
func Encode(r Record) ([]byte, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: nil record", ErrInvalidField)
	}
	return r.MarshalBinary()
}

func expectTag(buf []byte, offset int, want Tag) error {
	if offset < 0 || offset >= len(buf) {
		return ErrTruncated
	}
	if got := Tag(buf[offset]); got != want {
		return fmt.Errorf("%w: got %s want %s", ErrWrongRecordType, got, want)
	}
	return nil
}
