// Package protocol owns the tagged envelope wire format.
//
// Ownership boundary:
// - variable-length field primitives (short strings, length-prefixed blobs)
// - nested message contract and absent-slot policy
// - tag registry and dispatch, with an opaque fallback for unknown tags
// - transaction record layout and validation
//
// The package performs no I/O and never logs; every failure is returned to
// the caller as one of the Err* sentinels.
package protocol
