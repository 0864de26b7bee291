package config

import (
	"os"
	"path/filepath"
	"testing"
)

func tempMap(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "map.txt")
	if err := os.WriteFile(path, []byte("+--+\n|..|\n+--+\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParseRequiresAtLeastOneArg(t *testing.T) {
	if _, code, err := Parse(nil); err == nil || code != ExitUsage {
		t.Fatalf("got code=%d err=%v, want ExitUsage", code, err)
	}
}

func TestParseRejectsTooManyArgs(t *testing.T) {
	if _, code, err := Parse([]string{"a", "b", "c"}); err == nil || code != ExitUsage {
		t.Fatalf("got code=%d err=%v, want ExitUsage", code, err)
	}
}

func TestParseRejectsMissingMap(t *testing.T) {
	if _, code, err := Parse([]string{"/no/such/map.txt"}); err == nil || code != ExitBadMap {
		t.Fatalf("got code=%d err=%v, want ExitBadMap", code, err)
	}
}

func TestParseRejectsBadSeed(t *testing.T) {
	path := tempMap(t)
	if _, code, err := Parse([]string{path, "not-a-number"}); err == nil || code != ExitBadSeed {
		t.Fatalf("got code=%d err=%v, want ExitBadSeed", code, err)
	}
}

func TestParseAcceptsMapAndSeed(t *testing.T) {
	path := tempMap(t)
	cfg, code, err := Parse([]string{path, "99"})
	if err != nil {
		t.Fatal(err)
	}
	if code != ExitOK {
		t.Fatalf("code = %d, want ExitOK", code)
	}
	if !cfg.HasSeed || cfg.Seed != 99 {
		t.Fatalf("cfg.Seed = %d (has=%v), want 99", cfg.Seed, cfg.HasSeed)
	}
}

func TestParseWithoutSeedDerivesFromPID(t *testing.T) {
	path := tempMap(t)
	cfg, _, err := Parse([]string{path})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.HasSeed {
		t.Fatal("HasSeed should be false when no seed argument is given")
	}
	if cfg.Seed != int64(os.Getpid()) {
		t.Fatalf("Seed = %d, want pid %d", cfg.Seed, os.Getpid())
	}
}
