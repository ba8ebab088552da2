// Package dhcpmsg adapts DHCPv6 messages to the nested message contract of
// the envelope codec.
package dhcpmsg

import (
	"errors"
	"fmt"

	"github.com/danmuck/dhcptap/internal/protocol"
	"github.com/insomniacslk/dhcp/dhcpv6"
)

var ErrNoMessage = errors.New("dhcpmsg: no dhcpv6 message")

// Message embeds a parsed DHCPv6 message or relay message.
type Message struct {
	dhcpv6.DHCPv6
}

// Wrap returns nil for a nil message so the codec frames it as absent.
func Wrap(m dhcpv6.DHCPv6) protocol.NestedMessage {
	if m == nil {
		return nil
	}
	return &Message{DHCPv6: m}
}

func (m *Message) MarshalBinary() ([]byte, error) {
	if m == nil || m.DHCPv6 == nil {
		return nil, ErrNoMessage
	}
	return m.ToBytes(), nil
}

func (m *Message) Validate() error {
	if m == nil || m.DHCPv6 == nil {
		return ErrNoMessage
	}
	if m.Type() == dhcpv6.MessageTypeNone {
		return fmt.Errorf("dhcpmsg: message type %d is not a DHCPv6 message", m.Type())
	}
	return nil
}

// Decoder parses nested windows with dhcpv6.FromBytes. The whole window is
// handed to the parser and reported as used.
type Decoder struct{}

func (Decoder) DecodeNested(buf []byte, offset, maxLen int) (int, protocol.NestedMessage, error) {
	if offset < 0 || maxLen < 0 || len(buf)-offset < maxLen {
		return 0, nil, protocol.ErrTruncated
	}
	msg, err := dhcpv6.FromBytes(buf[offset : offset+maxLen])
	if err != nil {
		return 0, nil, fmt.Errorf("dhcpmsg: parse: %w", err)
	}
	return maxLen, &Message{DHCPv6: msg}, nil
}

// NewRegistry returns an envelope registry that decodes transaction messages
// as DHCPv6.
func NewRegistry() *protocol.Registry {
	return protocol.NewDefaultRegistry(Decoder{})
}

// Unwrap returns the DHCPv6 message behind a nested message, if any.
func Unwrap(m protocol.NestedMessage) (dhcpv6.DHCPv6, bool) {
	msg, ok := m.(*Message)
	if !ok || msg == nil || msg.DHCPv6 == nil {
		return nil, false
	}
	return msg.DHCPv6, true
}
