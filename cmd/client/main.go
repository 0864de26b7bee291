// cmd/client is a thin terminal shim: it tracks just enough state to
// render the server's DISPLAY blocks and forwards every keystroke
// verbatim, leaving all filtering to the server.
package main

import (
	"bufio"
	"fmt"
	"log"
	"net"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"github.com/hemlock/nuggets/internal/protocol"
)

type client struct {
	conn     *net.UDPConn
	isPlayer bool
	letter   byte
	rows     int
	cols     int
	portStr  string
}

func main() {
	if len(os.Args) != 3 && len(os.Args) != 4 {
		fmt.Fprintln(os.Stderr, "usage: client <host> <port> [<playerName>]")
		os.Exit(1)
	}
	host, port := os.Args[1], os.Args[2]

	addr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(host, port))
	if err != nil {
		log.Fatalf("resolve %s:%s: %v", host, port, err)
	}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		log.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	c := &client{conn: conn, portStr: port}

	if len(os.Args) == 4 {
		c.isPlayer = true
		send(conn, protocol.VerbPlay+" "+os.Args[3])
	} else {
		send(conn, protocol.VerbSpectate)
	}

	restore, err := setRawMode(int(os.Stdin.Fd()))
	if err != nil {
		log.Printf("warning: could not set raw terminal mode: %v", err)
	} else {
		defer restore()
	}

	quit := make(chan struct{})
	go c.readLoop(quit)
	c.inputLoop(quit)
}

func send(conn *net.UDPConn, msg string) {
	if _, err := conn.Write([]byte(msg)); err != nil {
		log.Printf("send %q: %v", msg, err)
	}
}

// readLoop consumes server datagrams and renders the client's minimal
// state, matching handleMessage in the original player shim.
func (c *client) readLoop(quit chan struct{}) {
	buf := make([]byte, 65536)
	for {
		n, err := c.conn.Read(buf)
		if err != nil {
			log.Printf("read: %v", err)
			close(quit)
			return
		}
		msg := string(buf[:n])

		switch {
		case strings.HasPrefix(msg, protocol.VerbGrid+" "):
			rows, cols, err := protocol.ParseGrid(msg[len(protocol.VerbGrid)+1:])
			if err != nil {
				log.Printf("malformed GRID: %v", err)
				continue
			}
			c.rows, c.cols = rows, cols
			fmt.Printf("\x1b[2J\x1b[HEnlarge your window to %d high and %d wide if needed.\n", rows+1, cols+1)

		case strings.HasPrefix(msg, protocol.VerbGold+" "):
			g, err := protocol.ParseGold(msg[len(protocol.VerbGold)+1:])
			if err != nil {
				log.Printf("malformed GOLD: %v", err)
				continue
			}
			c.printGold(g)

		case strings.HasPrefix(msg, protocol.VerbDisplay+"\n"):
			fmt.Printf("\x1b[H%s", msg[len(protocol.VerbDisplay)+1:])

		case strings.HasPrefix(msg, protocol.VerbQuit+" "):
			fmt.Println(msg[len(protocol.VerbQuit)+1:])
			close(quit)
			return

		case strings.HasPrefix(msg, protocol.VerbError+" "):
			log.Printf("server: %s", msg[len(protocol.VerbError)+1:])

		case strings.HasPrefix(msg, protocol.VerbOK+" "):
			if len(msg) > len(protocol.VerbOK)+1 {
				c.letter = msg[len(protocol.VerbOK)+1]
			}
		}
	}
}

func (c *client) printGold(g protocol.GoldUpdate) {
	if c.isPlayer {
		if g.JustCollected == 0 {
			fmt.Printf("Player %c has %d nuggets (%d unclaimed).\n", c.letter, g.Purse, g.Remaining)
		} else {
			fmt.Printf("Player %c has %d nuggets (%d unclaimed). GOLD received: %d\n",
				c.letter, g.Purse, g.Remaining, g.JustCollected)
		}
		return
	}
	fmt.Printf("Spectator: %d nuggets unclaimed. Play at port %s\n", g.Remaining, c.portStr)
}

// inputLoop reads one byte at a time and forwards it verbatim as
// "KEY <c>"; the server, not this shim, decides what is valid. On a
// quit keystroke it waits briefly for readLoop to print the server's
// farewell before returning, rather than racing it to exit.
func (c *client) inputLoop(quit chan struct{}) {
	r := bufio.NewReader(os.Stdin)
	keys := make(chan byte)
	go func() {
		for {
			b, err := r.ReadByte()
			if err != nil {
				return
			}
			keys <- b
		}
	}()

	for {
		select {
		case <-quit:
			return
		case b := <-keys:
			send(c.conn, fmt.Sprintf("%s %c", protocol.VerbKey, b))
			if b == 'Q' || b == 'q' {
				select {
				case <-quit:
				case <-time.After(2 * time.Second):
				}
				return
			}
		}
	}
}

// setRawMode puts fd into cbreak/no-echo mode (ICANON and ECHO off,
// signal-generating keys left intact), mirroring the original's
// ncurses cbreak()+noecho(). It returns a function that restores the
// prior terminal state.
func setRawMode(fd int) (func(), error) {
	original, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return nil, err
	}

	raw := *original
	raw.Lflag &^= unix.ICANON | unix.ECHO
	raw.Cc[unix.VMIN] = 1
	raw.Cc[unix.VTIME] = 0

	if err := unix.IoctlSetTermios(fd, unix.TCSETS, &raw); err != nil {
		return nil, err
	}
	return func() {
		unix.IoctlSetTermios(fd, unix.TCSETS, original)
	}, nil
}
