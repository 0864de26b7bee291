// Package metrics exposes Prometheus instrumentation for the game
// server, following the promauto global-variable pattern.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/hemlock/nuggets/internal/game"
)

var (
	playersSeated = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "nuggets_players_seated",
		Help: "Number of players currently seated at the table",
	})

	playersJoinedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nuggets_players_joined_total",
		Help: "Total number of players ever admitted via PLAY",
	})

	playersLeftTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nuggets_players_left_total",
		Help: "Total number of players who have quit",
	})

	spectatorPresent = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "nuggets_spectator_present",
		Help: "1 if a spectator currently holds the slot, else 0",
	})

	goldRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "nuggets_gold_remaining",
		Help: "Nuggets not yet collected",
	})

	pilesRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "nuggets_piles_remaining",
		Help: "Gold piles not yet collected",
	})

	datagramsHandled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nuggets_datagrams_handled_total",
		Help: "Datagrams successfully decoded, by verb",
	}, []string{"verb"})

	datagramsMalformed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nuggets_datagrams_malformed_total",
		Help: "Datagrams that failed to decode",
	})
)

// Recorder adapts the promauto collectors above to game.Recorder.
type Recorder struct {
	seated int
}

// New returns a Recorder wired to the package-level collectors.
func New() *Recorder { return &Recorder{} }

var _ game.Recorder = (*Recorder)(nil)

func (r *Recorder) PlayerJoined() {
	r.seated++
	playersSeated.Set(float64(r.seated))
	playersJoinedTotal.Inc()
}

func (r *Recorder) PlayerLeft() {
	r.seated--
	playersSeated.Set(float64(r.seated))
	playersLeftTotal.Inc()
}

func (r *Recorder) SpectatorChanged(present bool) {
	if present {
		spectatorPresent.Set(1)
	} else {
		spectatorPresent.Set(0)
	}
}

func (r *Recorder) GoldRemaining(n int)  { goldRemaining.Set(float64(n)) }
func (r *Recorder) PilesRemaining(n int) { pilesRemaining.Set(float64(n)) }

func (r *Recorder) DatagramHandled(verb string) { datagramsHandled.WithLabelValues(verb).Inc() }
func (r *Recorder) DatagramMalformed()          { datagramsMalformed.Inc() }
