package main

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/danmuck/dhcptap/internal/dhcpmsg"
	"github.com/danmuck/dhcptap/internal/protocol"
	"gopkg.in/yaml.v3"
)

type recordView struct {
	Kind        string           `yaml:"kind"`
	Tag         uint8            `yaml:"tag"`
	Size        int              `yaml:"size"`
	Transaction *transactionView `yaml:"transaction,omitempty"`
	Payload     string           `yaml:"payload,omitempty"`
}

type transactionView struct {
	ServerName   string       `yaml:"server_name"`
	TimestampIn  float64      `yaml:"timestamp_in"`
	TimeIn       string       `yaml:"time_in"`
	MessageIn    *messageView `yaml:"message_in"`
	TimestampOut float64      `yaml:"timestamp_out"`
	TimeOut      string       `yaml:"time_out"`
	MessageOut   *messageView `yaml:"message_out"`
}

type messageView struct {
	Type   string `yaml:"type,omitempty"`
	Relay  bool   `yaml:"relay,omitempty"`
	Length int    `yaml:"length"`
	Hex    string `yaml:"hex"`
}

func viewRecord(rec protocol.Record, size int) (recordView, error) {
	v := recordView{Kind: rec.Tag().String(), Tag: uint8(rec.Tag()), Size: size}
	switch r := rec.(type) {
	case *protocol.TransactionRecord:
		in, err := viewMessage(r.MessageIn)
		if err != nil {
			return recordView{}, err
		}
		out, err := viewMessage(r.MessageOut)
		if err != nil {
			return recordView{}, err
		}
		v.Transaction = &transactionView{
			ServerName:   r.ServerName,
			TimestampIn:  r.TimestampIn,
			TimeIn:       protocol.TimeOf(r.TimestampIn).UTC().Format(time.RFC3339Nano),
			MessageIn:    in,
			TimestampOut: r.TimestampOut,
			TimeOut:      protocol.TimeOf(r.TimestampOut).UTC().Format(time.RFC3339Nano),
			MessageOut:   out,
		}
	case *protocol.UnknownRecord:
		v.Kind = "unknown"
		v.Payload = hex.EncodeToString(r.Payload)
	}
	return v, nil
}

func viewMessage(m protocol.NestedMessage) (*messageView, error) {
	if m == nil {
		return nil, nil
	}
	raw, err := m.MarshalBinary()
	if err != nil {
		return nil, err
	}
	v := &messageView{Length: len(raw), Hex: hex.EncodeToString(raw)}
	if msg, ok := dhcpmsg.Unwrap(m); ok {
		v.Type = msg.Type().String()
		v.Relay = msg.IsRelay()
	}
	return v, nil
}

func renderYAML(v any) (string, error) {
	var b strings.Builder
	enc := yaml.NewEncoder(&b)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("render yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	return b.String(), nil
}

// parseHex accepts hex with optional whitespace and an optional 0x prefix.
func parseHex(s string) ([]byte, error) {
	s = strings.Join(strings.Fields(s), "")
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex: %w", err)
	}
	return b, nil
}
