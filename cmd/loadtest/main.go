// cmd/loadtest generalizes the teacher's websocket load generator to
// the real UDP protocol: N goroutines each dial their own socket,
// PLAY, wander randomly, and quit, tallying server replies.
package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hemlock/nuggets/internal/protocol"
)

var walkKeys = []byte{'h', 'l', 'j', 'k', 'y', 'u', 'b', 'n'}

func main() {
	if len(os.Args) != 3 {
		fmt.Fprintln(os.Stderr, "usage: loadtest <host:port> <numClients>")
		os.Exit(1)
	}
	target := os.Args[1]
	numClients, err := strconv.Atoi(os.Args[2])
	if err != nil || numClients < 1 {
		log.Fatalf("bad numClients %q: %v", os.Args[2], err)
	}
	duration := envDuration("NUGGETS_LOADTEST_DURATION", 30*time.Second)

	log.Printf("🧪 Starting load test: %d clients against %s for %v", numClients, target, duration)

	ctx, cancel := context.WithTimeout(context.Background(), duration)
	defer cancel()

	var wg sync.WaitGroup
	var oks, quits, errs, sent int64

	for i := 0; i < numClients; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			runClient(ctx, target, id, &oks, &quits, &errs, &sent)
		}(i)

		if i%50 == 0 {
			time.Sleep(10 * time.Millisecond)
		}
	}

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()

	for {
		select {
		case <-done:
			log.Printf("✅ load test complete: sent=%d ok=%d quit=%d errors=%d",
				atomic.LoadInt64(&sent), atomic.LoadInt64(&oks), atomic.LoadInt64(&quits), atomic.LoadInt64(&errs))
			return
		case <-ticker.C:
			log.Printf("📊 sent=%d ok=%d quit=%d errors=%d",
				atomic.LoadInt64(&sent), atomic.LoadInt64(&oks), atomic.LoadInt64(&quits), atomic.LoadInt64(&errs))
		}
	}
}

func runClient(ctx context.Context, target string, id int, oks, quits, errs, sent *int64) {
	addr, err := net.ResolveUDPAddr("udp", target)
	if err != nil {
		log.Printf("client %d: resolve: %v", id, err)
		atomic.AddInt64(errs, 1)
		return
	}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		log.Printf("client %d: dial: %v", id, err)
		atomic.AddInt64(errs, 1)
		return
	}
	defer conn.Close()

	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(id)))

	conn.Write([]byte(fmt.Sprintf("%s loadtest-%d", protocol.VerbPlay, id)))
	atomic.AddInt64(sent, 1)

	replies := make(chan string, 16)
	go readReplies(conn, replies)

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.Write([]byte(protocol.VerbKey + " Q"))
			atomic.AddInt64(sent, 1)
			return

		case msg, ok := <-replies:
			if !ok {
				return
			}
			switch {
			case strings.HasPrefix(msg, protocol.VerbOK+" "):
				atomic.AddInt64(oks, 1)
			case strings.HasPrefix(msg, protocol.VerbQuit+" "):
				atomic.AddInt64(quits, 1)
				return
			case strings.HasPrefix(msg, protocol.VerbError+" "):
				atomic.AddInt64(errs, 1)
			}

		case <-ticker.C:
			key := walkKeys[rng.Intn(len(walkKeys))]
			conn.Write([]byte(fmt.Sprintf("%s %c", protocol.VerbKey, key)))
			atomic.AddInt64(sent, 1)
		}
	}
}

func readReplies(conn *net.UDPConn, out chan<- string) {
	defer close(out)
	buf := make([]byte, 65536)
	for {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		n, err := conn.Read(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			return
		}
		out <- string(buf[:n])
	}
}

func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
