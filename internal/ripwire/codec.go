package ripwire

import (
	"encoding/binary"
	"fmt"
)

// Row is the minimal view of a route-table row the codec needs to encode
// an outbound packet. internal/route.Table produces these; ripwire does not
// import internal/route to keep the wire format free of route-table
// lifecycle concerns.
type Row struct {
	Destination int
	Cost        int
	NextHop     int
	Changed     bool
}

// Encode builds a Response packet advertising rows to targetPeerID, applying
// poisoned reverse and (if triggered) filtering to only changed rows, per
// spec.md §4.1.
func Encode(rows []Row, senderID, targetPeerID int, triggered bool) []byte {
	buf := make([]byte, headerSize, headerSize+len(rows)*entrySize)
	buf[0] = Command
	buf[1] = Version
	binary.BigEndian.PutUint16(buf[2:4], uint16(senderID))

	for _, row := range rows {
		if triggered && !row.Changed {
			continue
		}

		metric := row.Cost
		if metric > Infinity {
			metric = Infinity
		}
		if row.NextHop == targetPeerID && row.Destination != targetPeerID {
			metric = Infinity // poisoned reverse
		}

		entry := make([]byte, entrySize)
		binary.BigEndian.PutUint16(entry[0:2], addressFamilyInet)
		// entry[2:4] must-be-zero
		binary.BigEndian.PutUint32(entry[4:8], uint32(row.Destination))
		// entry[8:12], entry[12:16] must-be-zero
		binary.BigEndian.PutUint32(entry[16:20], uint32(metric))
		buf = append(buf, entry...)
	}

	return buf
}

// Decode validates and parses a received datagram into a sender id and the
// set of advertised (destination, metric) pairs, per spec.md §4.1.
func Decode(data []byte) (Packet, error) {
	if len(data) < headerSize {
		return Packet{}, fmt.Errorf("ripwire: packet too short (%d bytes)", len(data))
	}
	if data[0] != Command {
		return Packet{}, fmt.Errorf("ripwire: unsupported command %d", data[0])
	}
	if data[1] != Version {
		return Packet{}, fmt.Errorf("ripwire: unsupported version %d", data[1])
	}

	senderID := int(binary.BigEndian.Uint16(data[2:4]))

	payload := data[headerSize:]
	if len(payload)%entrySize != 0 {
		return Packet{}, fmt.Errorf("ripwire: payload length %d is not a multiple of %d", len(payload), entrySize)
	}

	entries := make(map[int]int, len(payload)/entrySize)
	for off := 0; off < len(payload); off += entrySize {
		e := payload[off : off+entrySize]

		addressFamily := binary.BigEndian.Uint16(e[0:2])
		if addressFamily != addressFamilyInet {
			return Packet{}, fmt.Errorf("ripwire: unsupported address family %d", addressFamily)
		}
		if binary.BigEndian.Uint16(e[2:4]) != 0 {
			return Packet{}, fmt.Errorf("ripwire: non-zero reserved field at offset %d", off+2)
		}
		destination := int(binary.BigEndian.Uint32(e[4:8]))
		if binary.BigEndian.Uint32(e[8:12]) != 0 {
			return Packet{}, fmt.Errorf("ripwire: non-zero reserved field at offset %d", off+8)
		}
		if binary.BigEndian.Uint32(e[12:16]) != 0 {
			return Packet{}, fmt.Errorf("ripwire: non-zero reserved field at offset %d", off+12)
		}
		metric := int(binary.BigEndian.Uint32(e[16:20]))
		if metric < 0 || metric > Infinity {
			return Packet{}, fmt.Errorf("ripwire: metric %d out of range at offset %d", metric, off+16)
		}

		// Last entry for a duplicated destination within one packet wins
		// (spec.md §4.1 tie-break).
		entries[destination] = metric
	}

	return Packet{SenderID: senderID, Entries: entries}, nil
}
