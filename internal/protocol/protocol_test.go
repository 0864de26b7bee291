package protocol

import "testing"

func TestDecodeClientPlay(t *testing.T) {
	msg, err := DecodeClient("PLAY Alice")
	if err != nil {
		t.Fatal(err)
	}
	if msg.Verb != VerbPlay || msg.Name != "Alice" {
		t.Fatalf("got %+v", msg)
	}
}

func TestDecodeClientSpectate(t *testing.T) {
	msg, err := DecodeClient("SPECTATE")
	if err != nil {
		t.Fatal(err)
	}
	if msg.Verb != VerbSpectate {
		t.Fatalf("got %+v", msg)
	}
}

func TestDecodeClientSpectateRejectsTrailingGarbage(t *testing.T) {
	if _, err := DecodeClient("SPECTATEfoo"); err == nil {
		t.Fatal("expected error for SPECTATE with trailing bytes")
	}
	if _, err := DecodeClient("SPECTATE 123"); err == nil {
		t.Fatal("expected error for SPECTATE with a payload")
	}
}

func TestDecodeClientKey(t *testing.T) {
	msg, err := DecodeClient("KEY h")
	if err != nil {
		t.Fatal(err)
	}
	if msg.Verb != VerbKey || msg.Key != 'h' {
		t.Fatalf("got %+v", msg)
	}
}

func TestDecodeClientMalformedKey(t *testing.T) {
	if _, err := DecodeClient("KEY hh"); err == nil {
		t.Fatal("expected error for multi-byte KEY payload")
	}
	if _, err := DecodeClient("KEY "); err == nil {
		t.Fatal("expected error for empty KEY payload")
	}
}

func TestDecodeClientUnknownVerb(t *testing.T) {
	if _, err := DecodeClient("FROBNICATE"); err == nil {
		t.Fatal("expected error for unknown verb")
	}
}

func TestEncodeRoundTripGridAndGold(t *testing.T) {
	rows, cols, err := ParseGrid(EncodeGrid(21, 79)[len(VerbGrid)+1:])
	if err != nil {
		t.Fatal(err)
	}
	if rows != 21 || cols != 79 {
		t.Fatalf("got %d %d", rows, cols)
	}

	g, err := ParseGold(EncodeGold(5, 10, 240)[len(VerbGold)+1:])
	if err != nil {
		t.Fatal(err)
	}
	if g.JustCollected != 5 || g.Purse != 10 || g.Remaining != 240 {
		t.Fatalf("got %+v", g)
	}
}

func TestEncodeDisplayAndQuit(t *testing.T) {
	if got, want := EncodeDisplay("..\n.."), "DISPLAY\n..\n.."; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	if got, want := EncodeQuit("Thanks for playing!"), "QUIT Thanks for playing!"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
