package api

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestDeduper(t *testing.T) *RedisDeduper {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisDeduper(client, time.Hour)
}

func TestRedisDeduperAdd(t *testing.T) {
	d := newTestDeduper(t)
	ctx := context.Background()

	added, err := d.Add(ctx, "u1", "k1")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if !added {
		t.Fatal("first add must claim the key")
	}

	added, err = d.Add(ctx, "u1", "k1")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if added {
		t.Fatal("second add must report a replay")
	}

	// Keys are scoped per user.
	added, err = d.Add(ctx, "u2", "k1")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if !added {
		t.Fatal("same key for another user must be independent")
	}
}

func TestRedisDeduperRemoveAllowsRetry(t *testing.T) {
	d := newTestDeduper(t)
	ctx := context.Background()

	if _, err := d.Add(ctx, "u1", "k1"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := d.Remove(ctx, "u1", "k1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	added, err := d.Add(ctx, "u1", "k1")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if !added {
		t.Fatal("removed key must be claimable again")
	}
}
