package blackboard

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestSetGet(t *testing.T) {
	s, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer s.Close()

	store := NewRedisStore(&redis.Options{Addr: s.Addr()}, nil)
	defer store.Close()
	ctx := context.Background()
	key := "vectorized_info:agent_1:Will AI replace 30% of jobs by 2040?"
	if err := store.Set(ctx, key, "seeded"); err != nil {
		t.Fatalf("set: %v", err)
	}
	val, ok, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok || val != "seeded" {
		t.Fatalf("unexpected value %q (found=%v)", val, ok)
	}
	// plain string keys, readable by any Redis client
	if raw, _ := s.Get(key); raw != "seeded" {
		t.Fatalf("expected plain string in redis got %q", raw)
	}
}

func TestGetMissing(t *testing.T) {
	s, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer s.Close()

	store := NewRedisStore(&redis.Options{Addr: s.Addr()}, nil)
	defer store.Close()
	val, ok, err := store.Get(context.Background(), "vectorized_info:agent_1:unknown event")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ok || val != "" {
		t.Fatalf("expected missing key, got %q", val)
	}
}

func TestPingFailure(t *testing.T) {
	s, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	store := NewRedisStore(&redis.Options{Addr: s.Addr()}, nil)
	defer store.Close()
	if err := store.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
	s.Close()
	if err := store.Ping(context.Background()); err == nil {
		t.Fatal("expected ping error after server shutdown")
	}
}
