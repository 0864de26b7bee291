// Package protocol implements the textual datagram wire protocol:
// encoding and decoding of every message verb exchanged between
// client and server.
package protocol

import (
	"fmt"
	"strconv"
	"strings"
)

// Client-to-server verbs.
const (
	VerbPlay     = "PLAY"
	VerbSpectate = "SPECTATE"
	VerbKey      = "KEY"
)

// Server-to-client verbs.
const (
	VerbOK      = "OK"
	VerbGrid    = "GRID"
	VerbGold    = "GOLD"
	VerbDisplay = "DISPLAY"
	VerbQuit    = "QUIT"
	VerbError   = "ERROR"
)

// ClientMessage is a decoded datagram received from a client.
type ClientMessage struct {
	Verb string
	Name string // PLAY payload
	Key  byte   // KEY payload
}

// DecodeClient parses a raw datagram sent by a client. It returns an
// error for an unrecognized verb or a malformed KEY payload; callers
// decide how to respond (unknown verbs are logged and ignored,
// malformed KEY payloads may draw an ERROR reply).
func DecodeClient(raw string) (ClientMessage, error) {
	switch {
	case strings.HasPrefix(raw, VerbPlay+" "):
		return ClientMessage{Verb: VerbPlay, Name: raw[len(VerbPlay)+1:]}, nil
	case raw == VerbSpectate:
		return ClientMessage{Verb: VerbSpectate}, nil
	case strings.HasPrefix(raw, VerbKey+" "):
		payload := raw[len(VerbKey)+1:]
		if len(payload) != 1 {
			return ClientMessage{}, fmt.Errorf("protocol: malformed KEY payload %q", payload)
		}
		return ClientMessage{Verb: VerbKey, Key: payload[0]}, nil
	default:
		return ClientMessage{}, fmt.Errorf("protocol: unrecognized message %q", raw)
	}
}

// EncodeOK builds the OK reply to a successful PLAY.
func EncodeOK(alias byte) string {
	return fmt.Sprintf("%s %c", VerbOK, alias)
}

// EncodeGrid builds the GRID advisory sent after PLAY/SPECTATE.
func EncodeGrid(rows, cols int) string {
	return fmt.Sprintf("%s %d %d", VerbGrid, rows, cols)
}

// EncodeGold builds the scoreboard line sent on every broadcast.
func EncodeGold(justCollected, purse, remaining int) string {
	return fmt.Sprintf("%s %d %d %d", VerbGold, justCollected, purse, remaining)
}

// EncodeDisplay builds the DISPLAY block: the verb, a newline, the
// rendered grid (which itself ends in a newline per Grid.String).
func EncodeDisplay(rendered string) string {
	return VerbDisplay + "\n" + rendered
}

// EncodeQuit builds a QUIT datagram carrying reason (a refusal message
// or the final scoreboard).
func EncodeQuit(reason string) string {
	return VerbQuit + " " + reason
}

// EncodeError builds a non-fatal ERROR advisory.
func EncodeError(text string) string {
	return VerbError + " " + text
}

// ParseGrid parses a "GRID rows cols" message as seen by the client.
func ParseGrid(payload string) (rows, cols int, err error) {
	fields := strings.Fields(payload)
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("protocol: malformed GRID payload %q", payload)
	}
	rows, err = strconv.Atoi(fields[0])
	if err != nil {
		return 0, 0, fmt.Errorf("protocol: bad GRID rows %q: %w", fields[0], err)
	}
	cols, err = strconv.Atoi(fields[1])
	if err != nil {
		return 0, 0, fmt.Errorf("protocol: bad GRID cols %q: %w", fields[1], err)
	}
	return rows, cols, nil
}

// GoldUpdate is the parsed payload of a GOLD message.
type GoldUpdate struct {
	JustCollected int
	Purse         int
	Remaining     int
}

// ParseGold parses a "GOLD justCollected purse remaining" message as
// seen by the client.
func ParseGold(payload string) (GoldUpdate, error) {
	fields := strings.Fields(payload)
	if len(fields) != 3 {
		return GoldUpdate{}, fmt.Errorf("protocol: malformed GOLD payload %q", payload)
	}
	vals := make([]int, 3)
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return GoldUpdate{}, fmt.Errorf("protocol: bad GOLD field %q: %w", f, err)
		}
		vals[i] = n
	}
	return GoldUpdate{JustCollected: vals[0], Purse: vals[1], Remaining: vals[2]}, nil
}
