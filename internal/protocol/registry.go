package protocol

import "sort"

// Registry maps tags to record decoders. It is built by its owner during
// setup and only read afterwards, so it needs no locking: finish every
// Register call before decoding from several goroutines.
type Registry struct {
	decoders map[Tag]Decoder
}

func NewRegistry() *Registry {
	return &Registry{decoders: make(map[Tag]Decoder)}
}

// NewDefaultRegistry returns a registry that knows TransactionRecord, decoding
// its nested messages with nested.
func NewDefaultRegistry(nested NestedDecoder) *Registry {
	r := NewRegistry()
	r.Register(TagTransaction, TransactionDecoder{Nested: nested})
	return r
}

// Register associates tag with d. A later call for the same tag replaces the
// earlier decoder.
func (r *Registry) Register(tag Tag, d Decoder) {
	r.decoders[tag] = d
}

func (r *Registry) Lookup(tag Tag) (Decoder, bool) {
	d, ok := r.decoders[tag]
	return d, ok
}

// Tags lists the registered tags in ascending order.
func (r *Registry) Tags() []Tag {
	out := make([]Tag, 0, len(r.decoders))
	for tag := range r.decoders {
		out = append(out, tag)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Decode dispatches on the tag byte at offset. Unregistered tags decode as
// UnknownRecord over the rest of buf, so buf must be bounded to one envelope.
func (r *Registry) Decode(buf []byte, offset int) (Record, int, error) {
	if offset < 0 || offset >= len(buf) {
		return nil, 0, ErrTruncated
	}
	if d, ok := r.decoders[Tag(buf[offset])]; ok && d != nil {
		return d.Decode(buf, offset)
	}
	return UnknownDecoder.Decode(buf, offset)
}

// DecodeEnvelope decodes a whole envelope from the start of buf.
func (r *Registry) DecodeEnvelope(buf []byte) (Record, error) {
	rec, _, err := r.Decode(buf, 0)
	return rec, err
}
