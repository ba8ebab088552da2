package main

import (
	"bytes"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/danmuck/dhcptap/internal/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestParseHex(t *testing.T) {
	b, err := parseHex("0x01 02\n0a ff")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x02, 0x0a, 0xff}, b)

	_, err = parseHex("zz")
	assert.Error(t, err)
}

func TestEncodeThenDecodeRaw(t *testing.T) {
	encoded, err := run(t, "", "encode", "--raw",
		"--server-name", "name.example.com",
		"--ts-in", "1700000000.25", "--ts-out", "1700000001.5",
		"--in-hex", "0102")
	require.NoError(t, err)

	buf, err := hex.DecodeString(strings.TrimSpace(encoded))
	require.NoError(t, err)
	assert.Equal(t, byte(protocol.TagTransaction), buf[0])

	out, err := run(t, strings.TrimSpace(encoded), "decode", "--raw")
	require.NoError(t, err)

	var view recordView
	require.NoError(t, yaml.Unmarshal([]byte(out), &view))
	assert.Equal(t, "transaction", view.Kind)
	assert.Equal(t, len(buf), view.Size)
	require.NotNil(t, view.Transaction)
	assert.Equal(t, "name.example.com", view.Transaction.ServerName)
	assert.Equal(t, 1700000000.25, view.Transaction.TimestampIn)
	require.NotNil(t, view.Transaction.MessageIn)
	assert.Equal(t, "0102", view.Transaction.MessageIn.Hex)
	assert.Nil(t, view.Transaction.MessageOut)
}

func TestDecodeUnknownTag(t *testing.T) {
	out, err := run(t, "", "decode", "ff0102")
	require.NoError(t, err)

	var view recordView
	require.NoError(t, yaml.Unmarshal([]byte(out), &view))
	assert.Equal(t, "unknown", view.Kind)
	assert.Equal(t, uint8(0xff), view.Tag)
	assert.Equal(t, "0102", view.Payload)
}

func TestDecodeRejectsTruncated(t *testing.T) {
	_, err := run(t, "", "decode", "0110")
	require.Error(t, err)
	assert.ErrorIs(t, err, protocol.ErrTruncated)
}

func TestEncodeRejectsInvalidDHCPv6(t *testing.T) {
	_, err := run(t, "", "encode", "--server-name", "x", "--in-hex", "01")
	assert.Error(t, err)
}

func TestDecodeArgAndFileConflict(t *testing.T) {
	_, err := run(t, "", "decode", "--file", "x.bin", "01")
	assert.Error(t, err)
}
