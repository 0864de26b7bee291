package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hemlock/nuggets/internal/config"
	"github.com/hemlock/nuggets/internal/game"
	"github.com/hemlock/nuggets/internal/metrics"
	"github.com/hemlock/nuggets/internal/transport"
)

func main() {
	cfg, code, err := config.Parse(os.Args[1:])
	if err != nil {
		log.Printf("❌ %v", err)
		os.Exit(code)
	}

	listenAddr := net.JoinHostPort(cfg.ListenHost, strconv.Itoa(cfg.ListenPort))
	conn, err := net.ListenPacket("udp", listenAddr)
	if err != nil {
		log.Printf("❌ listen on %s: %v", listenAddr, err)
		os.Exit(config.ExitTransport)
	}
	if err := transport.TuneBuffers(conn); err != nil {
		log.Printf("⚠️  socket buffer tuning: %v", err)
	}

	recorder := metrics.New()
	if cfg.MetricsAddr != "" {
		go serveMetrics(cfg.MetricsAddr)
	}

	srv := transport.New(conn, nil, cfg.RateLimitPerSec, cfg.RateLimitBurst)
	g, err := game.New(cfg.MapPath, cfg.Seed, srv, recorder)
	if err != nil {
		log.Printf("❌ %v", err)
		conn.Close()
		os.Exit(config.ExitBadMap)
	}
	srv.SetGame(g)

	port := conn.LocalAddr().(*net.UDPAddr).Port
	log.Printf("Ready to play, waiting at port %d", port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Serve(ctx); err != nil {
		log.Printf("❌ server: %v", err)
		os.Exit(1)
	}
	log.Printf("🏁 server shut down cleanly")
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	log.Printf("📊 metrics listening on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Printf("⚠️  metrics server: %v", err)
	}
}
