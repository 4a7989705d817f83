package api

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func deduperFixture(t *testing.T) (*miniredis.Miniredis, *RedisDeduper) {
	t.Helper()
	m, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(m.Close)

	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() {
		if cerr := client.Close(); cerr != nil {
			t.Logf("redis close: %v", cerr)
		}
	})
	return m, NewRedisDeduper(client, time.Minute)
}

func TestRedisDeduperAddDetectsDuplicates(t *testing.T) {
	m, deduper := deduperFixture(t)
	ctx := context.Background()

	added, err := deduper.Add(ctx, "user", "k1")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if !added {
		t.Fatal("expected first add to succeed")
	}
	if ttl := m.TTL(deduper.key("user", "k1")); ttl <= 0 || ttl > time.Minute {
		t.Fatalf("unexpected TTL: %v", ttl)
	}

	again, err := deduper.Add(ctx, "user", "k1")
	if err != nil {
		t.Fatalf("second add: %v", err)
	}
	if again {
		t.Fatal("expected second add to report a duplicate")
	}
}

func TestRedisDeduperKeysAreUserScoped(t *testing.T) {
	_, deduper := deduperFixture(t)
	ctx := context.Background()

	if added, err := deduper.Add(ctx, "alice", "k1"); err != nil || !added {
		t.Fatalf("alice add: added=%v err=%v", added, err)
	}
	if added, err := deduper.Add(ctx, "bob", "k1"); err != nil || !added {
		t.Fatalf("the same key under another user must be accepted: added=%v err=%v", added, err)
	}
}

func TestRedisDeduperRemoveFreesKey(t *testing.T) {
	_, deduper := deduperFixture(t)
	ctx := context.Background()

	if _, err := deduper.Add(ctx, "user", "k1"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := deduper.Remove(ctx, "user", "k1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	added, err := deduper.Add(ctx, "user", "k1")
	if err != nil {
		t.Fatalf("re-add: %v", err)
	}
	if !added {
		t.Fatal("expected the key to be reusable after removal")
	}
}
