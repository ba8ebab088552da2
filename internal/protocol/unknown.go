package protocol

import "bytes"

// UnknownRecord carries an envelope whose tag has no registered decoder. The
// payload is kept verbatim so the envelope can be forwarded unchanged.
type UnknownRecord struct {
	TypeTag Tag
	Payload []byte
}

func (r *UnknownRecord) Tag() Tag {
	return r.TypeTag
}

// Validate always succeeds: any 8-bit tag and any byte payload is a valid
// unknown record.
func (r *UnknownRecord) Validate() error {
	return nil
}

func (r *UnknownRecord) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 0, 1+len(r.Payload))
	buf = append(buf, byte(r.TypeTag))
	return append(buf, r.Payload...), nil
}

// DecodeUnknown takes the tag at offset and everything after it as payload.
// It only fails on an empty window.
func DecodeUnknown(buf []byte, offset int) (*UnknownRecord, int, error) {
	if offset < 0 || offset >= len(buf) {
		return nil, 0, ErrTruncated
	}
	rec := &UnknownRecord{
		TypeTag: Tag(buf[offset]),
		Payload: bytes.Clone(buf[offset+1:]),
	}
	return rec, len(buf) - offset, nil
}

// UnknownDecoder is the fallback used for unregistered tags.
var UnknownDecoder Decoder = DecoderFunc(func(buf []byte, offset int) (Record, int, error) {
	rec, n, err := DecodeUnknown(buf, offset)
	if err != nil {
		return nil, 0, err
	}
	return rec, n, nil
})
