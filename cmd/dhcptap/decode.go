package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/danmuck/dhcptap/internal/dhcpmsg"
	"github.com/danmuck/dhcptap/internal/observability"
	"github.com/danmuck/dhcptap/internal/protocol"
	"github.com/spf13/cobra"
)

func newDecodeCmd() *cobra.Command {
	var (
		file string
		raw  bool
	)
	cmd := &cobra.Command{
		Use:   "decode [hex]",
		Short: "Decode one envelope and print it as YAML",
		Long: `Decode one envelope given as a hex argument, a binary file (--file) or hex on
stdin. Transaction messages are parsed as DHCPv6 unless --raw is set.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			buf, err := readEnvelope(cmd.InOrStdin(), args, file)
			if err != nil {
				return err
			}
			out, err := decodeToYAML(buf, raw)
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), out)
			return err
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "read a binary envelope from this file")
	cmd.Flags().BoolVar(&raw, "raw", false, "keep nested messages as opaque bytes")
	return cmd
}

func readEnvelope(stdin io.Reader, args []string, file string) ([]byte, error) {
	switch {
	case len(args) == 1 && file != "":
		return nil, errors.New("pass either a hex argument or --file, not both")
	case len(args) == 1:
		return parseHex(args[0])
	case file != "":
		return os.ReadFile(file)
	default:
		b, err := io.ReadAll(stdin)
		if err != nil {
			return nil, err
		}
		return parseHex(string(b))
	}
}

func registryFor(raw bool) *protocol.Registry {
	if raw {
		return protocol.NewDefaultRegistry(protocol.RawDecoder)
	}
	return dhcpmsg.NewRegistry()
}

func decodeToYAML(buf []byte, raw bool) (string, error) {
	rec, n, err := registryFor(raw).Decode(buf, 0)
	if err != nil {
		observability.RecordCodecError("decode", err)
		return "", fmt.Errorf("decode envelope: %w", err)
	}
	observability.RecordDecode(rec.Tag(), n)
	view, err := viewRecord(rec, n)
	if err != nil {
		return "", err
	}
	return renderYAML(view)
}
