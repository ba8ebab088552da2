package protocol

import (
	"encoding/binary"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubMessage struct {
	body    []byte
	invalid bool
}

func (m *stubMessage) MarshalBinary() ([]byte, error) {
	return m.body, nil
}

func (m *stubMessage) Validate() error {
	if m.invalid {
		return errors.New("stub marked invalid")
	}
	return nil
}

// countingDecoder records how often the nested decoder runs.
type countingDecoder struct {
	calls int
}

func (d *countingDecoder) DecodeNested(buf []byte, offset, maxLen int) (int, NestedMessage, error) {
	d.calls++
	return RawDecoder.DecodeNested(buf, offset, maxLen)
}

func fullTransaction() *TransactionRecord {
	return &TransactionRecord{
		ServerName:   "name.example.com",
		TimestampIn:  12345.0,
		MessageIn:    RawMessage(relayedSolicitPacket),
		TimestampOut: 23456.0,
		MessageOut:   RawMessage(relayedAdvertisePacket),
	}
}

func transactionFixture(in, out []byte) []byte {
	buf := []byte{0x01, 0x10}
	buf = append(buf, "name.example.com"...)
	buf = append(buf, mustHex("40C81C8000000000")...)
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(in)))
	buf = append(buf, in...)
	buf = append(buf, mustHex("40D6E80000000000")...)
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(out)))
	return append(buf, out...)
}

func TestTransactionEncodeMatchesWireLayout(t *testing.T) {
	got, err := fullTransaction().MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, transactionFixture(relayedSolicitPacket, relayedAdvertisePacket), got)
}

func TestTransactionDecodeFixture(t *testing.T) {
	fixture := transactionFixture(relayedSolicitPacket, relayedAdvertisePacket)
	rec, n, err := DecodeTransaction(fixture, 0, RawDecoder)
	require.NoError(t, err)
	assert.Equal(t, len(fixture), n)
	assert.Equal(t, fullTransaction(), rec)
}

func TestTransactionRoundTrip(t *testing.T) {
	cases := map[string]*TransactionRecord{
		"both":        fullTransaction(),
		"no inbound":  {ServerName: "a", TimestampIn: 1.5, TimestampOut: 2, MessageOut: RawMessage{0x02}},
		"no outbound": {ServerName: "b", TimestampIn: -3, MessageIn: RawMessage{0x01}},
		"neither":     {},
		"long name":   {ServerName: strings.Repeat("n", 255), TimestampIn: 1e300},
	}
	for name, rec := range cases {
		t.Run(name, func(t *testing.T) {
			enc, err := rec.MarshalBinary()
			require.NoError(t, err)
			got, n, err := DecodeTransaction(enc, 0, RawDecoder)
			require.NoError(t, err)
			assert.Equal(t, len(enc), n)
			assert.Equal(t, rec, got)
		})
	}
}

func TestTransactionAbsentInboundSkipsNestedDecoder(t *testing.T) {
	rec := fullTransaction()
	rec.MessageIn = nil
	enc, err := rec.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, transactionFixture(nil, relayedAdvertisePacket), enc)

	// message_in length sits right after the name and timestamp
	lenOffset := 2 + len(rec.ServerName) + 8
	assert.Equal(t, []byte{0x00, 0x00}, enc[lenOffset:lenOffset+2])

	dec := &countingDecoder{}
	got, _, err := DecodeTransaction(enc, 0, dec)
	require.NoError(t, err)
	assert.Nil(t, got.MessageIn)
	assert.Equal(t, RawMessage(relayedAdvertisePacket), got.MessageOut)
	assert.Equal(t, 1, dec.calls)
}

func TestTransactionAbsentOutbound(t *testing.T) {
	fixture := transactionFixture(relayedSolicitPacket, nil)
	got, n, err := DecodeTransaction(fixture, 0, RawDecoder)
	require.NoError(t, err)
	assert.Equal(t, len(fixture), n)
	assert.Equal(t, RawMessage(relayedSolicitPacket), got.MessageIn)
	assert.Nil(t, got.MessageOut)
}

func TestTransactionTypedNilMessageIsAbsent(t *testing.T) {
	var missing *stubMessage
	rec := &TransactionRecord{ServerName: "x", MessageIn: missing}
	enc, err := rec.MarshalBinary()
	require.NoError(t, err)
	got, _, err := DecodeTransaction(enc, 0, RawDecoder)
	require.NoError(t, err)
	assert.Nil(t, got.MessageIn)
}

func TestTransactionDecodeAtOffset(t *testing.T) {
	fixture := transactionFixture(relayedSolicitPacket, relayedAdvertisePacket)
	buf := append([]byte{0xEE, 0xEE, 0xEE}, fixture...)
	rec, n, err := DecodeTransaction(buf, 3, RawDecoder)
	require.NoError(t, err)
	assert.Equal(t, len(fixture), n)
	assert.Equal(t, "name.example.com", rec.ServerName)
}

func TestTransactionWrongRecordType(t *testing.T) {
	_, _, err := DecodeTransaction([]byte{0xFF, 0x00}, 0, RawDecoder)
	require.ErrorIs(t, err, ErrWrongRecordType)

	_, _, err = DecodeTransaction(nil, 0, RawDecoder)
	require.ErrorIs(t, err, ErrTruncated)
}

func TestTransactionTruncatedNestedMessage(t *testing.T) {
	buf := []byte{0x01, 0x00}
	buf = AppendFloat64(buf, 1)
	buf = append(buf, 0x00, 0x0A)
	buf = append(buf, 1, 2, 3, 4, 5)

	_, _, err := DecodeTransaction(buf, 0, RawDecoder)
	require.ErrorIs(t, err, ErrTruncated)

	var fe *FieldError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "message_in", fe.Field)
}

func TestTransactionTruncatedEverywhere(t *testing.T) {
	enc, err := fullTransaction().MarshalBinary()
	require.NoError(t, err)
	for cut := 1; cut < len(enc); cut += 7 {
		_, _, err := DecodeTransaction(enc[:cut], 0, RawDecoder)
		if !errors.Is(err, ErrTruncated) {
			t.Fatalf("cut=%d: expected ErrTruncated, got %v", cut, err)
		}
	}
}

func TestTransactionServerNameBoundary(t *testing.T) {
	rec := fullTransaction()
	rec.ServerName = strings.Repeat("x", 255)
	require.NoError(t, rec.Validate())

	rec.ServerName = strings.Repeat("x", 256)
	err := rec.Validate()
	require.ErrorIs(t, err, ErrFieldTooLong)

	_, err = rec.MarshalBinary()
	require.ErrorIs(t, err, ErrFieldTooLong)
}

func TestTransactionTimestampValidation(t *testing.T) {
	rec := fullTransaction()
	rec.TimestampIn = 1
	require.NoError(t, rec.Validate())
	rec.TimestampIn = 1.5
	require.NoError(t, rec.Validate())

	rec.TimestampIn = math.NaN()
	require.ErrorIs(t, rec.Validate(), ErrInvalidField)

	rec.TimestampIn = 1
	rec.TimestampOut = math.Inf(1)
	require.ErrorIs(t, rec.Validate(), ErrInvalidField)
}

func TestTransactionDecodeAcceptsNonFiniteTimestamps(t *testing.T) {
	buf := []byte{0x01, 0x00}
	buf = AppendFloat64(buf, math.NaN())
	buf = append(buf, 0x00, 0x00)
	buf = AppendFloat64(buf, math.Inf(-1))
	buf = append(buf, 0x00, 0x00)

	rec, n, err := DecodeTransaction(buf, 0, RawDecoder)
	require.NoError(t, err)
	assert.Equal(t, len(buf), n)
	assert.True(t, math.IsNaN(rec.TimestampIn))
	assert.True(t, math.IsInf(rec.TimestampOut, -1))

	_, err = rec.MarshalBinary()
	require.ErrorIs(t, err, ErrInvalidField)
	var ferr *FieldError
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, "timestamp_in", ferr.Field)
}

func TestTransactionNestedValidation(t *testing.T) {
	rec := fullTransaction()
	rec.MessageIn = &stubMessage{body: []byte{1}, invalid: true}
	require.ErrorIs(t, rec.Validate(), ErrInvalidNestedMessage)

	rec = fullTransaction()
	rec.MessageOut = &stubMessage{body: []byte{1}, invalid: true}
	require.ErrorIs(t, rec.Validate(), ErrInvalidNestedMessage)

	rec = fullTransaction()
	rec.MessageOut = &stubMessage{}
	_, err := rec.MarshalBinary()
	require.ErrorIs(t, err, ErrInvalidNestedMessage)
}

func TestTransactionDeclaredLengthIsAuthoritative(t *testing.T) {
	fixture := transactionFixture([]byte{1, 2, 3, 4, 5}, []byte{9})
	short := NestedDecoderFunc(func(buf []byte, offset, maxLen int) (int, NestedMessage, error) {
		return 1, RawMessage{buf[offset]}, nil
	})
	rec, n, err := DecodeTransaction(fixture, 0, short)
	require.NoError(t, err)
	assert.Equal(t, len(fixture), n)
	assert.Equal(t, RawMessage{1}, rec.MessageIn)
	assert.Equal(t, 23456.0, rec.TimestampOut)
	assert.Equal(t, RawMessage{9}, rec.MessageOut)
}

func TestTransactionNestedDecoderOverrun(t *testing.T) {
	fixture := transactionFixture([]byte{1, 2}, nil)
	greedy := NestedDecoderFunc(func(buf []byte, offset, maxLen int) (int, NestedMessage, error) {
		return maxLen + 1, RawMessage{1}, nil
	})
	_, _, err := DecodeTransaction(fixture, 0, greedy)
	require.ErrorIs(t, err, ErrInvalidNestedMessage)
}

func TestTransactionNestedDecoderSeesOnlyItsWindow(t *testing.T) {
	fixture := transactionFixture([]byte{1, 2, 3}, []byte{4})
	var windowEnd int
	probe := NestedDecoderFunc(func(buf []byte, offset, maxLen int) (int, NestedMessage, error) {
		if windowEnd == 0 {
			windowEnd = len(buf)
			assert.Equal(t, offset+maxLen, len(buf))
			assert.Equal(t, len(buf), cap(buf))
		}
		return maxLen, RawMessage(buf[offset : offset+maxLen]), nil
	})
	_, _, err := DecodeTransaction(fixture, 0, probe)
	require.NoError(t, err)
	assert.Equal(t, 2+16+8+2+3, windowEnd)
}

func TestTransactionNestedDecoderErrorIsWrapped(t *testing.T) {
	fixture := transactionFixture([]byte{1}, nil)
	broken := NestedDecoderFunc(func([]byte, int, int) (int, NestedMessage, error) {
		return 0, nil, errors.New("bad packet")
	})
	_, _, err := DecodeTransaction(fixture, 0, broken)
	require.ErrorIs(t, err, ErrInvalidNestedMessage)
	assert.Contains(t, err.Error(), "bad packet")
}

func TestTimestampConversion(t *testing.T) {
	at := time.Unix(1700000000, 250*int64(time.Millisecond))
	ts := Timestamp(at)
	assert.Equal(t, 1700000000.25, ts)
	assert.WithinDuration(t, at, TimeOf(ts), time.Microsecond)
}
