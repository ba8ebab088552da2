package protocol

import (
	"encoding/hex"
	"strings"
)

// Relayed DHCPv6 solicit and advertise packets captured from a two-hop relay
// chain. The codec treats them as opaque bytes.
var (
	relayedSolicitPacket = mustHex(`
		0c0120010db8ffff0001000000000000
		0001fe800000000000003631c4fffe3c
		b2f1000900c20c000000000000000000
		0000000000000000fe80000000000000
		3631c4fffe3cb2f10009007901f350d6
		0008000200000001000a000300013431
		c43cb2f1000e00000003000cc43cb2f1
		000000000000000000190029c43cb2f1
		0000000000000000001a001900000000
		00000000000000000000000000000000
		00000000000014000000060010001700
		38001f00190003001100520053001000
		0400000368001200054661322f330025
		001600000009020023000001000a0003
		000100211c7d486e001200074769302f
		302f3000250016000000090200000000
		00000a0003000124e9b36e8100`)

	relayedAdvertisePacket = mustHex(`
		0d0120010db8ffff0001000000000000
		0001fe800000000000003631c4fffe3c
		b2f1001200074769302f302f30000900
		c40d0000000000000000000000000000
		000000fe800000000000003631c4fffe
		3cb2f1001200054661322f3300090095
		02f350d600030028c43cb2f100000000
		000000000005001820010db8ffff0001
		000c00000000e09c0000017700000258
		00190029c43cb2f10000000000000000
		001a001900000177000002583820010d
		b8ffccfe000000000000000000000100
		0a000300013431c43cb2f10002000e00
		0100011d1d49cf00137265ca42001400
		00001700102001486048600000000000
		0000008888`)
)

func mustHex(s string) []byte {
	s = strings.Join(strings.Fields(s), "")
	b, err := hex.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return b
}
