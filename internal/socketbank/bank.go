// Package socketbank owns the UDP sockets of spec.md §4.5: one bound
// endpoint per configured input port, with the first designated as the
// send endpoint for all outbound datagrams. A reader goroutine per socket
// feeds one shared channel; internal/engine is the sole consumer of that
// channel and the sole owner of all other daemon state, matching the
// reader-goroutine-feeds-a-channel/single-consumer shape the teacher uses
// for its Kafka pipelines (internal/kafka/state_consumer.go +
// internal/state/pipeline.go).
package socketbank

import (
	"fmt"
	"net"

	"go.uber.org/zap"
)

// Datagram is one received UDP payload, tagged with the local port it
// arrived on (useful for diagnostics; the protocol identifies the sender
// by router-id inside the payload, not by source port).
type Datagram struct {
	Data       []byte
	LocalPort  int
}

// Bank is the set of bound UDP sockets for one router instance.
type Bank struct {
	conns  []*net.UDPConn
	send   *net.UDPConn
	logger *zap.Logger
	inbox  chan Datagram
}

// Open binds one UDP socket to 127.0.0.1:port for every port in ports. The
// first port's socket is used for all sends. Returns a bind error (fatal,
// per spec.md §7) if any socket cannot be created, after closing any
// sockets already opened.
func Open(ports []int, logger *zap.Logger) (*Bank, error) {
	if len(ports) == 0 {
		return nil, fmt.Errorf("socketbank: no input ports configured")
	}

	b := &Bank{
		logger: logger,
		inbox:  make(chan Datagram, 64),
	}

	for _, port := range ports {
		addr := &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: port}
		conn, err := net.ListenUDP("udp", addr)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("socketbank: binding 127.0.0.1:%d: %w", port, err)
		}
		b.conns = append(b.conns, conn)
	}
	b.send = b.conns[0]

	return b, nil
}

// Serve launches one reader goroutine per socket, each pushing received
// datagrams onto the shared inbox channel until Close is called. It
// returns immediately; callers read from Packets().
func (b *Bank) Serve() {
	for _, conn := range b.conns {
		go b.readLoop(conn)
	}
}

func (b *Bank) readLoop(conn *net.UDPConn) {
	buf := make([]byte, 4096)
	localPort := conn.LocalAddr().(*net.UDPAddr).Port
	for {
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			// Closed sockets surface here on shutdown; nothing to log.
			return
		}
		data := make([]byte, n)
		copy(data, buf[:n])
		b.inbox <- Datagram{Data: data, LocalPort: localPort}
	}
}

// Packets returns the channel reader goroutines publish received
// datagrams to.
func (b *Bank) Packets() <-chan Datagram {
	return b.inbox
}

// SendTo sends payload to 127.0.0.1:port using the designated send socket.
// A send error is fatal per spec.md §7 and is returned for the caller to
// act on.
func (b *Bank) SendTo(port int, payload []byte) error {
	addr := &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: port}
	_, err := b.send.WriteToUDP(payload, addr)
	return err
}

// Close closes every socket in the bank.
func (b *Bank) Close() {
	for _, conn := range b.conns {
		conn.Close()
	}
}
