// Package transport drives the UDP datagram I/O: a single goroutine
// owns one socket, reads one datagram at a time, hands it to the
// game, and writes replies. There is no worker pool and no locking —
// the entire game state is only ever touched from this one goroutine.
package transport

import (
	"context"
	"fmt"
	"log"
	"net"
	"sync"

	"golang.org/x/time/rate"

	"github.com/hemlock/nuggets/internal/game"
)

const maxDatagramSize = 4096

// maxTrackedAddrs bounds the rate-limiter table: once this many
// distinct sending addresses are being tracked, the oldest is evicted
// to make room for a newly-seen one, so the table never grows past
// this size and a flood of distinct addresses can't lock out
// legitimate newcomers forever. A real game only ever seats
// MaxPlayers players plus one spectator, so this ceiling is purely a
// guard against address-flood from addresses the game never admits.
const maxTrackedAddrs = 4096

// Addr wraps *net.UDPAddr behind game.Addr, so the game package never
// imports net directly.
type Addr struct {
	addr *net.UDPAddr
}

func (a Addr) Equal(other game.Addr) bool {
	o, ok := other.(Addr)
	return ok && a.addr.IP.Equal(o.addr.IP) && a.addr.Port == o.addr.Port && a.addr.Zone == o.addr.Zone
}

func (a Addr) String() string {
	if a.addr == nil {
		return "<nil>"
	}
	return a.addr.String()
}

// Server is the single-threaded event loop owner.
type Server struct {
	conn net.PacketConn
	g    *game.Game

	ratePerSec rate.Limit
	rateBurst  int
	limiters   map[string]*rate.Limiter
	limitOrder []string // FIFO of limiters' keys, oldest first, for eviction at maxTrackedAddrs

	closeOnce sync.Once
}

// New builds a Server over an already-bound conn, rate-limiting each
// sending address to ratePerSec datagrams/second with a burst of
// rateBurst, so a single misbehaving client cannot starve everyone
// else's turn. Construct the Game with this Server as its Sender,
// then call SetGame before Serve: the two constructors are mutually
// dependent, so wiring happens in two steps.
func New(conn net.PacketConn, g *game.Game, ratePerSec, rateBurst int) *Server {
	return &Server{
		conn:       conn,
		g:          g,
		ratePerSec: rate.Limit(ratePerSec),
		rateBurst:  rateBurst,
		limiters:   make(map[string]*rate.Limiter),
	}
}

// SetGame attaches the Game this Server dispatches datagrams into.
func (s *Server) SetGame(g *game.Game) { s.g = g }

// Send implements game.Sender. A write failure is logged and
// swallowed: datagram loss is expected over UDP, not fatal.
func (s *Server) Send(to game.Addr, msg string) {
	addr, ok := to.(Addr)
	if !ok {
		log.Printf("transport: Send called with foreign address type %T", to)
		return
	}
	if _, err := s.conn.WriteTo([]byte(msg), addr.addr); err != nil {
		log.Printf("transport: write to %s failed: %v", addr, err)
	}
}

func (s *Server) allow(addr Addr) bool {
	key := addr.String()
	limiter, ok := s.limiters[key]
	if !ok {
		if len(s.limiters) >= maxTrackedAddrs {
			evict := s.limitOrder[0]
			s.limitOrder = s.limitOrder[1:]
			delete(s.limiters, evict)
			log.Printf("transport: rate-limiter table full (%d addrs), evicting oldest (%s) for %s", maxTrackedAddrs, evict, key)
		}
		limiter = rate.NewLimiter(s.ratePerSec, s.rateBurst)
		s.limiters[key] = limiter
		s.limitOrder = append(s.limitOrder, key)
	}
	return limiter.Allow()
}

// Serve blocks, reading and dispatching datagrams until the game
// reports it is over or ctx is canceled. It returns nil on either a
// clean game end or context cancellation.
func (s *Server) Serve(ctx context.Context) error {
	stopped := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			s.closeOnce.Do(func() { s.conn.Close() })
		case <-stopped:
		}
	}()
	defer close(stopped)

	buf := make([]byte, maxDatagramSize)
	for {
		n, from, err := s.conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("transport: read: %w", err)
		}

		udp, ok := from.(*net.UDPAddr)
		if !ok {
			log.Printf("transport: ignoring datagram from non-UDP address %s", from)
			continue
		}
		addr := Addr{addr: udp}
		if !s.allow(addr) {
			continue
		}

		if s.g.HandleDatagram(addr, string(buf[:n])) {
			log.Printf("🏆 game over: all gold collected")
			s.g.Finish()
			s.closeOnce.Do(func() { s.conn.Close() })
			return nil
		}
	}
}
