package cache

import (
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestKeyIsStableAndPrefixed(t *testing.T) {
	a := Key("same prompt")
	b := Key("same prompt")
	c := Key("different prompt")

	if a != b {
		t.Errorf("identical content produced different keys: %q vs %q", a, b)
	}
	if a == c {
		t.Error("different content produced the same key")
	}
	if !strings.HasPrefix(a, "adjudex:v1:") {
		t.Errorf("key %q missing version prefix", a)
	}
}

func TestDiskCache_RoundTripAndExpiry(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Hour)
	key := Key("a judge prompt")

	if err := c.Set(key, []byte("verdict"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, found := c.Get(key)
	if !found || string(got) != "verdict" {
		t.Fatalf("Get = %q, %v; want verdict, true", got, found)
	}

	// The key prefix must not leak colons into file names.
	matches, err := filepath.Glob(filepath.Join(dir, "*.cache"))
	if err != nil || len(matches) != 1 {
		t.Fatalf("cache files = %v (err %v), want exactly one", matches, err)
	}
	if strings.ContainsRune(filepath.Base(matches[0]), ':') {
		t.Errorf("cache file name %q contains a colon", matches[0])
	}

	if err := c.Set(key, []byte("stale"), -time.Second); err != nil {
		t.Fatalf("Set expired: %v", err)
	}
	if _, found := c.Get(key); found {
		t.Error("expired entry still served")
	}
}

func TestLayeredCache_PromotesDiskHits(t *testing.T) {
	dir := t.TempDir()
	key := Key("prompt")

	// Seed only the disk layer, as a fresh process would see it.
	if err := NewDiskCache(dir, time.Hour).Set(key, []byte("cached"), 0); err != nil {
		t.Fatalf("seed disk: %v", err)
	}

	c := NewLayeredCache(time.Hour, dir, time.Hour)
	got, found := c.Get(key)
	if !found || string(got) != "cached" {
		t.Fatalf("Get = %q, %v; want cached, true", got, found)
	}

	// The hit was promoted into memory.
	if _, found := c.memory.Get(key); !found {
		t.Error("disk hit was not promoted into the memory layer")
	}
}
