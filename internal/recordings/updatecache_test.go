package recordings

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newUpdateCacheForTest(t *testing.T) (*UpdateCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewUpdateCache(rdb), mr
}

func TestUpdateCacheFirstSeen(t *testing.T) {
	cache, _ := newUpdateCacheForTest(t)
	ctx := context.Background()

	first, err := cache.FirstSeen(ctx, 1001)
	if err != nil {
		t.Fatalf("FirstSeen: %v", err)
	}
	if !first {
		t.Error("first delivery of an update id must report first=true")
	}

	second, err := cache.FirstSeen(ctx, 1001)
	if err != nil {
		t.Fatalf("FirstSeen repeat: %v", err)
	}
	if second {
		t.Error("redelivery of the same update id must report first=false")
	}
}

func TestUpdateCacheDistinctUpdateIDs(t *testing.T) {
	cache, _ := newUpdateCacheForTest(t)
	ctx := context.Background()

	if _, err := cache.FirstSeen(ctx, 1001); err != nil {
		t.Fatalf("FirstSeen: %v", err)
	}
	first, err := cache.FirstSeen(ctx, 1002)
	if err != nil {
		t.Fatalf("FirstSeen: %v", err)
	}
	if !first {
		t.Error("a different update id must be first=true")
	}
}

func TestUpdateCacheKeyExpires(t *testing.T) {
	cache, mr := newUpdateCacheForTest(t)
	ctx := context.Background()

	if _, err := cache.FirstSeen(ctx, 1001); err != nil {
		t.Fatalf("FirstSeen: %v", err)
	}
	if ttl := mr.TTL("tg:update:1001"); ttl != updateKeyTTL {
		t.Errorf("ttl = %v, want %v", ttl, updateKeyTTL)
	}

	mr.FastForward(updateKeyTTL)

	first, err := cache.FirstSeen(ctx, 1001)
	if err != nil {
		t.Fatalf("FirstSeen after expiry: %v", err)
	}
	if !first {
		t.Error("an expired update id must be first=true again")
	}
}
