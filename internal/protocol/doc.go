// Package protocol defines the launcher's wire format: length-prefixed,
// type-tagged frames carrying CBOR payloads, and the closed catalog of
// messages exchanged on the Control, Sync and Exec logical channels.
//
// A frame is
//
//	[u32 big-endian length][u8 tag][payload]
//
// where length counts the tag byte plus the payload.
package protocol
