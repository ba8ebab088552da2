package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/danmuck/dhcptap/internal/logging"
	"github.com/danmuck/dhcptap/internal/observability"
	"github.com/danmuck/dhcptap/internal/protocol"
	"github.com/danmuck/dhcptap/internal/sink"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func newWatchCmd(root *rootOptions) *cobra.Command {
	var raw bool
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Subscribe to the configured topic and log every envelope",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			sc, err := cfg.SinkConfig()
			if err != nil {
				return err
			}
			logger := logging.New("watch")

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if cfg.MetricsAddr != "" {
				srv := &http.Server{Addr: cfg.MetricsAddr, Handler: observability.Handler(), ReadHeaderTimeout: 5 * time.Second}
				go func() {
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						logger.Error().Err(err).Str("addr", cfg.MetricsAddr).Msg("metrics server stopped")
					}
				}()
				defer srv.Shutdown(context.Background())
			}

			sub, err := sink.NewMQTT(sc, logger)
			if err != nil {
				return err
			}
			defer sub.Close()

			reg := registryFor(raw)
			if err := sub.Subscribe(ctx, func(topic string, payload []byte) {
				logEnvelope(logger, reg, topic, payload)
			}); err != nil {
				return err
			}
			logger.Info().Str("topic", sc.Topic).Strs("brokers", sc.Brokers).Msg("watching")
			<-ctx.Done()
			return nil
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "keep nested messages as opaque bytes")
	return cmd
}

func logEnvelope(logger zerolog.Logger, reg *protocol.Registry, topic string, payload []byte) {
	rec, n, err := reg.Decode(payload, 0)
	if err != nil {
		observability.RecordCodecError("decode", err)
		logger.Warn().Err(err).Str("topic", topic).Int("bytes", len(payload)).Msg("undecodable envelope")
		return
	}
	observability.RecordDecode(rec.Tag(), n)

	event := logger.Info().Str("topic", topic).Str("kind", rec.Tag().String()).Int("bytes", n)
	switch r := rec.(type) {
	case *protocol.TransactionRecord:
		event = event.
			Str("server", r.ServerName).
			Time("in", protocol.TimeOf(r.TimestampIn)).
			Time("out", protocol.TimeOf(r.TimestampOut)).
			Bool("has_in", r.MessageIn != nil).
			Bool("has_out", r.MessageOut != nil)
	case *protocol.UnknownRecord:
		event = event.Int("payload_bytes", len(r.Payload))
	}
	event.Msg("envelope")
}
