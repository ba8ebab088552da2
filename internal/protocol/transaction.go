package protocol

import (
	"fmt"
	"math"
	"time"
)

const (
	fieldServerName   = "server_name"
	fieldTimestampIn  = "timestamp_in"
	fieldMessageIn    = "message_in"
	fieldTimestampOut = "timestamp_out"
	fieldMessageOut   = "message_out"
)

// TransactionRecord is one captured request/response exchange. Either
// message may be nil independently of the other: a request that was never
// answered, or a response injected without a captured request.
//
// Wire layout, integers big-endian:
//
//	tag(1) name_len(1) name(N) ts_in(8) in_len(2) in(L1) ts_out(8) out_len(2) out(L2)
type TransactionRecord struct {
	ServerName   string
	TimestampIn  float64
	MessageIn    NestedMessage
	TimestampOut float64
	MessageOut   NestedMessage
}

// Timestamp converts t to the fractional Unix seconds used on the wire.
func Timestamp(t time.Time) float64 {
	return float64(t.Unix()) + float64(t.Nanosecond())/float64(time.Second)
}

// TimeOf converts wire seconds back to a time.Time.
func TimeOf(ts float64) time.Time {
	sec, frac := math.Modf(ts)
	return time.Unix(int64(sec), int64(frac*float64(time.Second)))
}

func (r *TransactionRecord) Tag() Tag {
	return TagTransaction
}

// Validate checks the record against its wire limits and requires finite
// timestamps. It runs before every encode.
func (r *TransactionRecord) Validate() error {
	if err := validateTimestamp(fieldTimestampIn, r.TimestampIn); err != nil {
		return err
	}
	if err := validateTimestamp(fieldTimestampOut, r.TimestampOut); err != nil {
		return err
	}
	return r.validateWire()
}

// validateWire runs after every decode. Non-finite timestamps written by
// other encoders still decode; they only fail when re-encoded.
func (r *TransactionRecord) validateWire() error {
	if n := len(r.ServerName); n > MaxShortStringLen {
		return fieldErr(fieldServerName, ErrFieldTooLong,
			fmt.Sprintf("%d UTF-8 bytes exceeds %d", n, MaxShortStringLen))
	}
	if err := validateNested(fieldMessageIn, r.MessageIn); err != nil {
		return err
	}
	return validateNested(fieldMessageOut, r.MessageOut)
}

func validateTimestamp(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fieldErr(field, ErrInvalidField, "timestamp must be a finite number")
	}
	return nil
}

func (r *TransactionRecord) MarshalBinary() ([]byte, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	buf := make([]byte, 0, 1+1+len(r.ServerName)+2*(float64Len+blobHeaderLen))
	buf = append(buf, byte(TagTransaction))

	buf, err := AppendShortString(buf, r.ServerName)
	if err != nil {
		return nil, fieldErr(fieldServerName, err, "")
	}
	buf = AppendFloat64(buf, r.TimestampIn)
	if buf, err = appendNested(buf, fieldMessageIn, r.MessageIn); err != nil {
		return nil, err
	}
	buf = AppendFloat64(buf, r.TimestampOut)
	if buf, err = appendNested(buf, fieldMessageOut, r.MessageOut); err != nil {
		return nil, err
	}
	return buf, nil
}

// DecodeTransaction decodes a TransactionRecord at offset. Each field's
// position depends on the length of the one before it, so the order below is
// the wire order.
func DecodeTransaction(buf []byte, offset int, nested NestedDecoder) (*TransactionRecord, int, error) {
	if err := expectTag(buf, offset, TagTransaction); err != nil {
		return nil, 0, err
	}
	pos := offset + 1
	rec := &TransactionRecord{}

	name, n, err := ReadShortString(buf, pos)
	if err != nil {
		return nil, 0, fieldErr(fieldServerName, err, "")
	}
	rec.ServerName = name
	pos += n

	if rec.TimestampIn, n, err = ReadFloat64(buf, pos); err != nil {
		return nil, 0, fieldErr(fieldTimestampIn, err, "")
	}
	pos += n

	if rec.MessageIn, n, err = readNested(buf, pos, fieldMessageIn, nested); err != nil {
		return nil, 0, err
	}
	pos += n

	if rec.TimestampOut, n, err = ReadFloat64(buf, pos); err != nil {
		return nil, 0, fieldErr(fieldTimestampOut, err, "")
	}
	pos += n

	if rec.MessageOut, n, err = readNested(buf, pos, fieldMessageOut, nested); err != nil {
		return nil, 0, err
	}
	pos += n

	if err := rec.validateWire(); err != nil {
		return nil, 0, err
	}
	return rec, pos - offset, nil
}

// TransactionDecoder plugs DecodeTransaction into a Registry.
type TransactionDecoder struct {
	Nested NestedDecoder
}

func (d TransactionDecoder) Decode(buf []byte, offset int) (Record, int, error) {
	rec, n, err := DecodeTransaction(buf, offset, d.Nested)
	if err != nil {
		return nil, 0, err
	}
	return rec, n, nil
}
