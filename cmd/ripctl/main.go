// Command ripctl decodes and prints one RIP datagram, for manual
// inspection of packets captured off the wire. It has no part in the
// engine's control flow; it exercises internal/ripwire.Decode only.
package main

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/routesim/ripd/internal/ripwire"
)

func main() {
	data, err := readInput(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "ripctl: %v\n", err)
		os.Exit(1)
	}

	pkt, err := ripwire.Decode(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ripctl: decode failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("sender_id: %d\n", pkt.SenderID)
	fmt.Printf("entries:   %d\n", len(pkt.Entries))

	dests := make([]int, 0, len(pkt.Entries))
	for d := range pkt.Entries {
		dests = append(dests, d)
	}
	sort.Ints(dests)
	for _, d := range dests {
		fmt.Printf("  dest=%-5d metric=%d\n", d, pkt.Entries[d])
	}
}

// readInput reads a hex-encoded datagram from args[0] if given, a file
// path if args[0] starts with "@", or stdin otherwise.
func readInput(args []string) ([]byte, error) {
	var raw string
	switch {
	case len(args) == 0:
		b, err := io.ReadAll(bufio.NewReader(os.Stdin))
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		raw = string(b)

	case strings.HasPrefix(args[0], "@"):
		b, err := os.ReadFile(args[0][1:])
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", args[0][1:], err)
		}
		raw = string(b)

	default:
		raw = args[0]
	}

	raw = strings.TrimSpace(raw)
	data, err := hex.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("input is not valid hex: %w", err)
	}
	return data, nil
}
