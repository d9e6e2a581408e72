package socketbank

import (
	"net"
	"testing"
	"time"

	"go.uber.org/zap"
)

func freePorts(t *testing.T, n int) []int {
	t.Helper()
	var ports []int
	var conns []*net.UDPConn
	for i := 0; i < n; i++ {
		conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 0})
		if err != nil {
			t.Fatalf("reserving a free port: %v", err)
		}
		conns = append(conns, conn)
		ports = append(ports, conn.LocalAddr().(*net.UDPAddr).Port)
	}
	for _, c := range conns {
		c.Close()
	}
	return ports
}

func TestBank_SendAndReceive(t *testing.T) {
	ports := freePorts(t, 2)

	b, err := Open(ports, zap.NewNop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer b.Close()
	b.Serve()

	if err := b.SendTo(ports[1], []byte("hello")); err != nil {
		t.Fatalf("SendTo: %v", err)
	}

	select {
	case dgram := <-b.Packets():
		if string(dgram.Data) != "hello" {
			t.Fatalf("received %q, want %q", dgram.Data, "hello")
		}
		if dgram.LocalPort != ports[1] {
			t.Fatalf("LocalPort = %d, want %d", dgram.LocalPort, ports[1])
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for datagram")
	}
}

func TestOpen_NoPorts(t *testing.T) {
	if _, err := Open(nil, zap.NewNop()); err == nil {
		t.Fatal("expected error for empty port list")
	}
}
