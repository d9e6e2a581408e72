// Package ripwire implements the wire format of the router-id RIPv2
// variant: a 4-byte header followed by zero or more 20-byte entries.
package ripwire

// Field values fixed by this protocol (spec.md §4.1).
const (
	Command uint8 = 2 // Response; Requests are neither sent nor accepted.
	Version uint8 = 2

	addressFamilyInet uint16 = 2 // AF_INET

	headerSize = 4
	entrySize  = 20

	// HeaderSize is the exported form of headerSize, for callers (e.g.
	// internal/engine) that need to recognise an all-header, zero-entry
	// encode without importing wire-layout internals.
	HeaderSize = headerSize

	// Infinity is the saturating metric value denoting an unreachable
	// destination.
	Infinity = 16

	// MaxDatagramSize is the largest datagram this protocol will ever
	// send or accept (spec.md §6).
	MaxDatagramSize = 4096
)

// Entry is one advertised (destination, metric) pair, decoded from or
// destined for the wire. Metric is in [0, 16]; Encode emits 0 only for the
// self-route (see Encode/Decode for the exact rules).
type Entry struct {
	Destination int
	Metric      int
}

// Packet is the result of a successful Decode.
type Packet struct {
	SenderID int
	Entries  map[int]int // destination router-id -> advertised metric
}
