package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"github.com/danmuck/dhcptap/internal/dhcpmsg"
	"github.com/danmuck/dhcptap/internal/logging"
	"github.com/danmuck/dhcptap/internal/observability"
	"github.com/danmuck/dhcptap/internal/protocol"
	"github.com/danmuck/dhcptap/internal/sink"
	"github.com/spf13/cobra"
)

type transactionFlags struct {
	serverName string
	inHex      string
	outHex     string
	tsIn       float64
	tsOut      float64
	raw        bool
}

func (f *transactionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.serverName, "server-name", "", "capturing server name (defaults to the host name)")
	cmd.Flags().StringVar(&f.inHex, "in-hex", "", "inbound message as hex (empty means absent)")
	cmd.Flags().StringVar(&f.outHex, "out-hex", "", "outbound message as hex (empty means absent)")
	cmd.Flags().Float64Var(&f.tsIn, "ts-in", 0, "inbound timestamp in Unix seconds (defaults to now)")
	cmd.Flags().Float64Var(&f.tsOut, "ts-out", 0, "outbound timestamp in Unix seconds (defaults to now)")
	cmd.Flags().BoolVar(&f.raw, "raw", false, "do not require messages to parse as DHCPv6")
}

func (f *transactionFlags) record(cmd *cobra.Command, now time.Time) (*protocol.TransactionRecord, error) {
	rec := &protocol.TransactionRecord{
		ServerName:   f.serverName,
		TimestampIn:  f.tsIn,
		TimestampOut: f.tsOut,
	}
	if rec.ServerName == "" {
		host, err := os.Hostname()
		if err != nil {
			return nil, fmt.Errorf("server name: %w", err)
		}
		rec.ServerName = host
	}
	if !cmd.Flags().Changed("ts-in") {
		rec.TimestampIn = protocol.Timestamp(now)
	}
	if !cmd.Flags().Changed("ts-out") {
		rec.TimestampOut = protocol.Timestamp(now)
	}

	var err error
	if rec.MessageIn, err = f.message(f.inHex); err != nil {
		return nil, fmt.Errorf("in-hex: %w", err)
	}
	if rec.MessageOut, err = f.message(f.outHex); err != nil {
		return nil, fmt.Errorf("out-hex: %w", err)
	}
	return rec, nil
}

func (f *transactionFlags) message(s string) (protocol.NestedMessage, error) {
	if s == "" {
		return nil, nil
	}
	b, err := parseHex(s)
	if err != nil {
		return nil, err
	}
	if f.raw {
		return protocol.RawMessage(b), nil
	}
	_, msg, err := dhcpmsg.Decoder{}.DecodeNested(b, 0, len(b))
	return msg, err
}

func encodeRecord(rec protocol.Record) ([]byte, error) {
	enc, err := protocol.Encode(rec)
	if err != nil {
		observability.RecordCodecError("encode", err)
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	observability.RecordEncode(rec.Tag(), len(enc))
	return enc, nil
}

func newEncodeCmd() *cobra.Command {
	flags := &transactionFlags{}
	cmd := &cobra.Command{
		Use:   "encode",
		Short: "Build a transaction envelope and print it as hex",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rec, err := flags.record(cmd, time.Now())
			if err != nil {
				return err
			}
			enc, err := encodeRecord(rec)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(enc))
			return err
		},
	}
	flags.register(cmd)
	return cmd
}

func newPublishCmd(root *rootOptions) *cobra.Command {
	flags := &transactionFlags{}
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Build a transaction envelope and publish it to the configured topic",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			if flags.serverName == "" {
				flags.serverName = cfg.ServerName
			}
			rec, err := flags.record(cmd, time.Now())
			if err != nil {
				return err
			}
			enc, err := encodeRecord(rec)
			if err != nil {
				return err
			}

			sc, err := cfg.SinkConfig()
			if err != nil {
				return err
			}
			logger := logging.New("publish")
			pub, err := sink.NewMQTT(sc, logger)
			if err != nil {
				return err
			}
			defer pub.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), sc.ConnectTimeout+sc.PublishTimeout)
			defer cancel()
			if err := pub.Publish(ctx, enc); err != nil {
				return err
			}
			logger.Info().Str("topic", sc.Topic).Int("bytes", len(enc)).Msg("envelope published")
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}
