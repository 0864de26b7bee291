package transport

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/hemlock/nuggets/internal/game"
)

func writeMap(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "map.txt")
	content := strings.Join([]string{
		"+--------+",
		"|........|",
		"|........|",
		"+--------+",
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestAllowEvictsOldestAddressPastCap(t *testing.T) {
	srv := &Server{ratePerSec: rate.Limit(20), rateBurst: 40, limiters: make(map[string]*rate.Limiter)}
	first := Addr{addr: &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 1}}
	for i := 0; i < maxTrackedAddrs; i++ {
		addr := Addr{addr: &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: i + 1}}
		if !srv.allow(addr) {
			t.Fatalf("address %d should be allowed under the cap", i)
		}
	}
	if len(srv.limiters) != maxTrackedAddrs {
		t.Fatalf("tracked %d addresses, want %d", len(srv.limiters), maxTrackedAddrs)
	}

	fresh := Addr{addr: &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: maxTrackedAddrs + 1}}
	if !srv.allow(fresh) {
		t.Fatal("a new address past the cap should still be allowed, evicting the oldest entry")
	}
	if len(srv.limiters) != maxTrackedAddrs {
		t.Fatalf("map grew past the cap: %d entries", len(srv.limiters))
	}
	if _, tracked := srv.limiters[first.String()]; tracked {
		t.Fatal("the oldest address should have been evicted to make room")
	}
}

func TestServeRespondsToPlayAndShutsDownOnCancel(t *testing.T) {
	serverConn, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	srv := &Server{conn: serverConn, ratePerSec: rate.Limit(20), rateBurst: 40, limiters: make(map[string]*rate.Limiter)}
	g, err := game.New(writeMap(t), 42, srv, nil)
	if err != nil {
		t.Fatal(err)
	}
	srv.g = g

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	client, err := net.Dial("udp", serverConn.LocalAddr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer client.Close()

	if _, err := client.Write([]byte("PLAY Tester")); err != nil {
		t.Fatal(err)
	}

	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 4096)
	n, err := client.Read(buf)
	if err != nil {
		t.Fatalf("expected a reply to PLAY, got error: %v", err)
	}
	if got := string(buf[:n]); !strings.HasPrefix(got, "OK ") {
		t.Fatalf("first reply = %q, want OK prefix", got)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve returned error after cancel: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not shut down after context cancellation")
	}
}
