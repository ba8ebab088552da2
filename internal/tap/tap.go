// Package tap turns a DHCP server's request/response hooks into published
// transaction envelopes. It is the API a DHCP server embeds: call Begin when a
// request arrives and Finish once the response is sent.
package tap

import (
	"context"
	"fmt"
	"time"

	"github.com/danmuck/dhcptap/internal/observability"
	"github.com/danmuck/dhcptap/internal/protocol"
	"github.com/danmuck/dhcptap/internal/sink"
	"github.com/rs/zerolog"
)

// Handler captures one transaction per Begin/Finish pair. It keeps no
// per-transaction state; the caller carries the pending record between hooks.
type Handler struct {
	serverName string
	pub        sink.Publisher
	log        zerolog.Logger
	now        func() time.Time
}

func NewHandler(serverName string, pub sink.Publisher, logger zerolog.Logger) *Handler {
	return &Handler{
		serverName: serverName,
		pub:        pub,
		log:        logger,
		now:        time.Now,
	}
}

// Begin starts a record for an inbound message. in may be nil.
func (h *Handler) Begin(in protocol.NestedMessage) *protocol.TransactionRecord {
	return &protocol.TransactionRecord{
		ServerName:  h.serverName,
		TimestampIn: protocol.Timestamp(h.now()),
		MessageIn:   in,
	}
}

// Finish completes rec with the outbound message and publishes it. Failures
// are logged and returned; they never affect the DHCP exchange itself.
func (h *Handler) Finish(ctx context.Context, rec *protocol.TransactionRecord, out protocol.NestedMessage) error {
	if rec == nil {
		return nil
	}
	if h.pub == nil {
		h.log.Debug().Msg("no publisher configured, dropping transaction")
		return nil
	}
	rec.TimestampOut = protocol.Timestamp(h.now())
	rec.MessageOut = out

	payload, err := protocol.Encode(rec)
	if err != nil {
		observability.RecordCodecError("encode", err)
		h.log.Warn().Err(err).Str("server", rec.ServerName).Msg("not logging transaction")
		return fmt.Errorf("tap: encode: %w", err)
	}
	observability.RecordEncode(rec.Tag(), len(payload))

	if err := h.pub.Publish(ctx, payload); err != nil {
		h.log.Warn().Err(err).Int("bytes", len(payload)).Msg("not logging transaction")
		return fmt.Errorf("tap: publish: %w", err)
	}
	h.log.Debug().
		Int("bytes", len(payload)).
		Bool("has_in", rec.MessageIn != nil).
		Bool("has_out", rec.MessageOut != nil).
		Msg("transaction published")
	return nil
}
