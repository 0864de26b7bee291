// Package game implements the authoritative game loop: player
// admission, gold placement, movement, pickup, and per-client
// broadcast.
package game

import (
	"fmt"
	"log"
	"math/rand"
	"strings"

	"github.com/hemlock/nuggets/internal/grid"
	"github.com/hemlock/nuggets/internal/protocol"
)

const (
	MaxPlayers    = 26
	MaxNameLength = 50
	GoldTotal     = 250
	GoldMinPiles  = 10
	GoldMaxPiles  = 30
)

// Addr is an opaque, comparable handle to a client's transport
// address. The game package never inspects its representation; the
// transport layer supplies the concrete implementation, keeping raw
// address comparison behind the module boundary.
type Addr interface {
	Equal(Addr) bool
	String() string
}

// Sender delivers an encoded datagram to an address. Send errors are
// logged by the implementation and never surfaced here: datagram
// loss is expected and tolerated.
type Sender interface {
	Send(to Addr, msg string)
}

// Recorder observes game events for metrics purposes. All methods
// must be safe to call from the single game-loop goroutine; a nil
// Recorder is valid and every call on it is a no-op via NopRecorder.
type Recorder interface {
	PlayerJoined()
	PlayerLeft()
	SpectatorChanged(present bool)
	GoldRemaining(n int)
	PilesRemaining(n int)
	DatagramHandled(verb string)
	DatagramMalformed()
}

// NopRecorder implements Recorder with no-ops.
type NopRecorder struct{}

func (NopRecorder) PlayerJoined()          {}
func (NopRecorder) PlayerLeft()            {}
func (NopRecorder) SpectatorChanged(bool)  {}
func (NopRecorder) GoldRemaining(int)      {}
func (NopRecorder) PilesRemaining(int)     {}
func (NopRecorder) DatagramHandled(string) {}
func (NopRecorder) DatagramMalformed()     {}

// Player is a seated participant, created on PLAY and never removed
// from the table: quitting marks Active false but keeps the slot,
// alias, and final purse for the end-game scoreboard. See DESIGN.md.
type Player struct {
	Addr          Addr
	Name          string
	Alias         byte
	Purse         int
	JustCollected int
	Row, Col      int
	Seen          *grid.Grid
	Active        bool
}

// Game owns the entire world: the two grids, the player table, the
// spectator slot, and gold accounting. It is mutated only by the
// single event-loop goroutine that calls HandleDatagram.
type Game struct {
	master, raw *grid.Grid
	rows, cols  int

	players []*Player

	spectator    Addr
	hasSpectator bool

	goldPilesLeft int
	goldCollected int
	goldLeft      int

	rng      *rand.Rand
	sender   Sender
	recorder Recorder
}

// New loads the map at mapPath twice (master and raw), seeds the RNG,
// and scatters the initial gold piles.
func New(mapPath string, seed int64, sender Sender, recorder Recorder) (*Game, error) {
	master, err := grid.Load(mapPath)
	if err != nil {
		return nil, err
	}
	raw := master.Clone()

	if recorder == nil {
		recorder = NopRecorder{}
	}

	g := &Game{
		master:   master,
		raw:      raw,
		rows:     master.Rows(),
		cols:     master.Cols(),
		rng:      rand.New(rand.NewSource(seed)),
		sender:   sender,
		recorder: recorder,
	}
	g.dropGold()
	return g, nil
}

// Rows and Cols report the map dimensions for the GRID advisory.
func (g *Game) Rows() int { return g.rows }
func (g *Game) Cols() int { return g.cols }

// GoldLeft reports nuggets not yet collected.
func (g *Game) GoldLeft() int { return g.goldLeft }

// randomEmptyFloor rejection-samples a random (row, col) that is
// currently bare floor on the master grid.
func (g *Game) randomEmptyFloor() (int, int) {
	for {
		r := g.rng.Intn(g.rows)
		c := g.rng.Intn(g.cols)
		if g.master.IsEmptyFloor(r, c) {
			return r, c
		}
	}
}

func (g *Game) dropGold() {
	g.goldPilesLeft = g.rng.Intn(GoldMaxPiles-GoldMinPiles) + GoldMinPiles
	g.goldCollected = 0
	g.goldLeft = GoldTotal

	for i := 0; i < g.goldPilesLeft; i++ {
		r, c := g.randomEmptyFloor()
		g.master.Set(r, c, grid.Gold)
	}
	g.recorder.PilesRemaining(g.goldPilesLeft)
	g.recorder.GoldRemaining(g.goldLeft)
}

// sanitizeName trims name to MaxNameLength bytes and replaces any byte
// that is neither graphic nor blank with '_'.
func sanitizeName(name string) string {
	if len(name) > MaxNameLength {
		name = name[:MaxNameLength]
	}
	b := []byte(name)
	for i, ch := range b {
		if isGraphic(ch) || isBlank(ch) {
			continue
		}
		b[i] = '_'
	}
	return string(b)
}

func isGraphic(ch byte) bool { return ch > 0x20 && ch < 0x7f }
func isBlank(ch byte) bool   { return ch == ' ' || ch == '\t' }

func nameIsEmpty(name string) bool {
	return strings.TrimSpace(name) == ""
}

// findPlayer returns the seated player at addr, or nil.
func (g *Game) findPlayer(addr Addr) *Player {
	for _, p := range g.players {
		if p.Addr.Equal(addr) {
			return p
		}
	}
	return nil
}

// findPlayerAt returns the active player occupying (r, c), or nil.
func (g *Game) findPlayerAt(r, c int) *Player {
	for _, p := range g.players {
		if p.Active && p.Row == r && p.Col == c {
			return p
		}
	}
	return nil
}

// HandleDatagram decodes and dispatches one inbound datagram. It
// returns true when the game has ended and the caller should tear
// down after this handler returns.
func (g *Game) HandleDatagram(from Addr, raw string) bool {
	msg, err := protocol.DecodeClient(raw)
	if err != nil {
		g.recorder.DatagramMalformed()
		log.Printf("game: dropping malformed datagram from %s: %v", from, err)
		return false
	}
	g.recorder.DatagramHandled(msg.Verb)

	switch msg.Verb {
	case protocol.VerbPlay:
		return g.HandlePlay(from, msg.Name)
	case protocol.VerbSpectate:
		return g.HandleSpectate(from)
	case protocol.VerbKey:
		return g.HandleKey(from, msg.Key)
	default:
		return false
	}
}

// HandlePlay admits from as a new seated player named name, subject to
// the capacity and name-emptiness refusals.
func (g *Game) HandlePlay(from Addr, name string) bool {
	if p := g.findPlayer(from); p != nil {
		if p.Active {
			g.sender.Send(from, protocol.EncodeOK(p.Alias))
			g.sender.Send(from, protocol.EncodeGrid(g.rows, g.cols))
			return false
		}
		g.reseatPlayer(p, name)
		return false
	}
	if len(g.players) >= MaxPlayers {
		g.sender.Send(from, protocol.EncodeQuit("Game is full: no more players can join."))
		return false
	}
	if nameIsEmpty(name) {
		g.sender.Send(from, protocol.EncodeQuit("Sorry: you must provide player's name."))
		return false
	}

	alias := byte('A' + len(g.players))
	r, c := g.randomEmptyFloor()

	p := &Player{
		Addr:   from,
		Name:   sanitizeName(name),
		Alias:  alias,
		Row:    r,
		Col:    c,
		Seen:   grid.New(g.rows, g.cols),
		Active: true,
	}
	g.players = append(g.players, p)
	g.master.Set(r, c, alias)

	g.sender.Send(from, protocol.EncodeOK(alias))
	g.sender.Send(from, protocol.EncodeGrid(g.rows, g.cols))

	g.recorder.PlayerJoined()
	g.broadcastAll()
	return false
}

// reseatPlayer re-admits an address that quit earlier under its
// original alias and purse, dropping it back onto a fresh random
// floor tile rather than appending a second table entry for the same
// address. If that address is also the current spectator, it is
// evicted from the spectator slot first: one address cannot be both
// an active player and the spectator at once.
func (g *Game) reseatPlayer(p *Player, name string) {
	if g.hasSpectator && g.spectator.Equal(p.Addr) {
		g.sender.Send(g.spectator, protocol.EncodeQuit("You are now playing."))
		g.hasSpectator = false
		g.recorder.SpectatorChanged(false)
	}
	if !nameIsEmpty(name) {
		p.Name = sanitizeName(name)
	}
	r, c := g.randomEmptyFloor()
	p.Row, p.Col = r, c
	p.Active = true
	g.master.Set(r, c, p.Alias)

	g.sender.Send(p.Addr, protocol.EncodeOK(p.Alias))
	g.sender.Send(p.Addr, protocol.EncodeGrid(g.rows, g.cols))

	g.recorder.PlayerJoined()
	g.broadcastAll()
}

// HandleSpectate admits from as the spectator, evicting any incumbent.
func (g *Game) HandleSpectate(from Addr) bool {
	if g.hasSpectator {
		g.sender.Send(g.spectator, protocol.EncodeQuit("You have been replaced by a new spectator."))
	}
	g.spectator = from
	g.hasSpectator = true
	g.recorder.SpectatorChanged(true)

	g.sender.Send(from, protocol.EncodeGrid(g.rows, g.cols))
	g.broadcastAll()
	return false
}

// handleQuit processes a Q keypress from a player or the spectator. It is
// idempotent; a quit player stays in the table with Active set false
// rather than being removed.
func (g *Game) handleQuit(from Addr) {
	if g.hasSpectator && g.spectator.Equal(from) {
		g.sender.Send(g.spectator, protocol.EncodeQuit("Thanks for watching!"))
		g.hasSpectator = false
		g.recorder.SpectatorChanged(false)
	}

	for _, p := range g.players {
		if !p.Addr.Equal(from) || !p.Active {
			continue
		}
		g.sender.Send(p.Addr, protocol.EncodeQuit("Thanks for playing!"))
		g.master.Set(p.Row, p.Col, g.raw.At(p.Row, p.Col))
		p.Active = false
		g.recorder.PlayerLeft()
	}

	g.broadcastAll()
}

// direction is a single key's row/column delta.
type direction struct{ dr, dc int }

var stepDirections = map[byte]direction{
	'h': {0, -1}, 'l': {0, 1}, 'j': {1, 0}, 'k': {-1, 0},
	'y': {-1, -1}, 'u': {-1, 1}, 'b': {1, -1}, 'n': {1, 1},
}

// HandleKey dispatches a single keypress for the player seated at
// from, over the 8-direction movement alphabet plus run (uppercase)
// and quit.
func (g *Game) HandleKey(from Addr, key byte) bool {
	if key == 'Q' || key == 'q' {
		g.handleQuit(from)
		return false
	}

	p := g.findPlayer(from)
	if p == nil || !p.Active {
		log.Printf("game: KEY from unseated address %s", from)
		return false
	}

	lower := key
	run := key >= 'A' && key <= 'Z'
	if run {
		lower = key - 'A' + 'a'
	}

	dir, ok := stepDirections[lower]
	if !ok {
		g.sender.Send(from, protocol.EncodeError(fmt.Sprintf("Unknown Keystroke: %c", key)))
		log.Printf("game: unknown keystroke %q from %s", key, from)
		return g.goldPilesLeft == 0
	}

	if run {
		for g.moveOnce(p, dir.dr, dir.dc) {
		}
	} else {
		g.moveOnce(p, dir.dr, dir.dc)
	}

	return g.goldPilesLeft == 0
}

// moveOnce attempts one step from p's current position in direction
// (dr, dc), resolving swaps and pickups along the way. It reports
// whether the player actually moved (a run continues only while this
// is true).
func (g *Game) moveOnce(p *Player, dr, dc int) bool {
	newRow, newCol := p.Row+dr, p.Col+dc

	if !g.master.CanMoveTo(newRow, newCol) {
		return false
	}

	oldRow, oldCol := p.Row, p.Col

	if other := g.findPlayerAt(newRow, newCol); other != nil {
		other.Row, other.Col = oldRow, oldCol
		g.master.Set(other.Row, other.Col, other.Alias)
		p.Row, p.Col = newRow, newCol
		g.master.Set(p.Row, p.Col, p.Alias)
		g.broadcastAll()
		return true
	}

	if g.master.IsGold(newRow, newCol) {
		p.Row, p.Col = newRow, newCol
		g.master.Set(oldRow, oldCol, g.raw.At(oldRow, oldCol))
		g.master.Set(p.Row, p.Col, p.Alias)
		g.pickupGold(p)
		g.broadcastAll()
		return true
	}

	p.Row, p.Col = newRow, newCol
	g.master.Set(oldRow, oldCol, g.raw.At(oldRow, oldCol))
	g.master.Set(p.Row, p.Col, p.Alias)
	g.broadcastAll()
	return true
}

// pickupGold implements the per-pile gold split: each pile but the
// last draws a random amount bounded so every remaining pile can
// still pay out at least one nugget; the last pile takes everything
// that's left.
func (g *Game) pickupGold(p *Player) {
	var amount int
	if g.goldPilesLeft == 1 {
		amount = g.goldLeft
	} else {
		maxPerPile := g.goldLeft - g.goldPilesLeft + 1
		amount = g.rng.Intn(maxPerPile) + 1
	}

	p.Purse += amount
	p.JustCollected = amount
	g.goldCollected += amount
	g.goldLeft -= amount
	g.goldPilesLeft--

	g.recorder.GoldRemaining(g.goldLeft)
	g.recorder.PilesRemaining(g.goldPilesLeft)
}

// broadcastAll recomputes each active player's visibility and sends
// GOLD+DISPLAY to every seated player and the spectator.
func (g *Game) broadcastAll() {
	if g.hasSpectator {
		g.sender.Send(g.spectator, protocol.EncodeGold(0, 0, g.goldLeft))
		g.sender.Send(g.spectator, protocol.EncodeDisplay(g.master.String()))
	}

	for _, p := range g.players {
		if !p.Active {
			continue
		}
		grid.SetVisibility(g.master, g.raw, p.Seen, p.Row, p.Col)
		g.sender.Send(p.Addr, protocol.EncodeGold(p.JustCollected, p.Purse, g.goldLeft))
		g.sender.Send(p.Addr, protocol.EncodeDisplay(p.Seen.String()))
		p.JustCollected = 0
	}
}

// Over reports whether every gold pile has been collected.
func (g *Game) Over() bool { return g.goldPilesLeft == 0 }

// Scoreboard renders the final "QUIT GAME OVER:" payload: every
// seated player (including those who already quit), alias,
// right-aligned purse, real name.
func (g *Game) Scoreboard() string {
	var b strings.Builder
	b.WriteString("GAME OVER:\n")
	for _, p := range g.players {
		fmt.Fprintf(&b, "%c%8d   %s\n", p.Alias, p.Purse, p.Name)
	}
	return b.String()
}

// Finish broadcasts the final scoreboard as a QUIT payload to every
// seated player and the spectator.
func (g *Game) Finish() {
	payload := protocol.EncodeQuit(g.Scoreboard())
	if g.hasSpectator {
		g.sender.Send(g.spectator, payload)
	}
	for _, p := range g.players {
		g.sender.Send(p.Addr, payload)
	}
}
