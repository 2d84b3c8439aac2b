package querycache

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type item struct {
	Name string `json:"name"`
}

func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	var got []item
	ok, err := store.Get(ctx, "countries", &got)
	if err != nil || ok {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}

	if err := store.Set(ctx, "countries", []item{{Name: "Nigeria"}}, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	ok, err = store.Get(ctx, "countries", &got)
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if len(got) != 1 || got[0].Name != "Nigeria" {
		t.Fatalf("unexpected cached value %+v", got)
	}

	if err := store.Delete(ctx, "countries"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	ok, _ = store.Get(ctx, "countries", &got)
	if ok {
		t.Fatal("expected miss after delete")
	}
}

func TestRedisStore(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	store := NewRedis(client)
	exerciseStore(t, store)

	if err := store.Set(context.Background(), "balances", []item{{Name: "NGN"}}, time.Second); err != nil {
		t.Fatalf("set: %v", err)
	}
	if !mr.Exists(keyPrefix + "balances") {
		t.Fatal("expected prefixed key in redis")
	}
	mr.FastForward(2 * time.Second)
	var got []item
	if ok, _ := store.Get(context.Background(), "balances", &got); ok {
		t.Fatal("expected entry to expire")
	}
}

func TestMemoryStore(t *testing.T) {
	store := NewMemory()
	exerciseStore(t, store)

	now := time.Now()
	store.now = func() time.Time { return now }
	if err := store.Set(context.Background(), "providers", []item{{Name: "MTN"}}, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	now = now.Add(2 * time.Minute)
	var got []item
	if ok, _ := store.Get(context.Background(), "providers", &got); ok {
		t.Fatal("expected entry to expire")
	}
}
