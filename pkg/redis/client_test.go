package redis

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type fakeCmdable struct {
	values map[string]string
}

func newFakeCmdable() *fakeCmdable {
	return &fakeCmdable{values: map[string]string{}}
}

func (f *fakeCmdable) Ping(ctx context.Context) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(ctx)
	cmd.SetVal("PONG")
	return cmd
}

func (f *fakeCmdable) Set(ctx context.Context, key string, value any, _ time.Duration) *redis.StatusCmd {
	f.values[key] = toString(value)
	cmd := redis.NewStatusCmd(ctx)
	cmd.SetVal("OK")
	return cmd
}

func (f *fakeCmdable) Get(ctx context.Context, key string) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx)
	if val, ok := f.values[key]; ok {
		cmd.SetVal(val)
	} else {
		cmd.SetErr(redis.Nil)
	}
	return cmd
}

func (f *fakeCmdable) SetNX(ctx context.Context, key string, value any, _ time.Duration) *redis.BoolCmd {
	cmd := redis.NewBoolCmd(ctx)
	if _, exists := f.values[key]; exists {
		cmd.SetVal(false)
		return cmd
	}
	f.values[key] = toString(value)
	cmd.SetVal(true)
	return cmd
}

func (f *fakeCmdable) Incr(ctx context.Context, key string) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	current := int64(0)
	if val, ok := f.values[key]; ok && val == "1" {
		current = 1
	}
	current++
	if current == 1 {
		f.values[key] = "1"
	} else {
		f.values[key] = "2"
	}
	cmd.SetVal(current)
	return cmd
}

func (f *fakeCmdable) Expire(ctx context.Context, _ string, _ time.Duration) *redis.BoolCmd {
	cmd := redis.NewBoolCmd(ctx)
	cmd.SetVal(true)
	return cmd
}

func (f *fakeCmdable) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	var removed int64
	for _, key := range keys {
		if _, ok := f.values[key]; ok {
			delete(f.values, key)
			removed++
		}
	}
	cmd.SetVal(removed)
	return cmd
}

func toString(value any) string {
	if s, ok := value.(string); ok {
		return s
	}
	return "1"
}

func TestIdempotencyKeyNamespacing(t *testing.T) {
	client := &Client{store: newFakeCmdable()}
	key := client.IdempotencyKey("payments", "tx-1:ref-9")
	if key != "imf:idempotency:payments:tx-1:ref-9" {
		t.Fatalf("unexpected key %q", key)
	}
}

func TestSetNXIsFirstWriterWins(t *testing.T) {
	client := &Client{store: newFakeCmdable()}
	ctx := context.Background()

	first, err := client.SetNX(ctx, "k", "1", time.Minute)
	if err != nil || !first {
		t.Fatalf("first SetNX: got (%t, %v)", first, err)
	}
	second, err := client.SetNX(ctx, "k", "1", time.Minute)
	if err != nil {
		t.Fatalf("second SetNX error: %v", err)
	}
	if second {
		t.Fatal("second SetNX should not win")
	}
}

func TestDelRemovesKeys(t *testing.T) {
	client := &Client{store: newFakeCmdable()}
	ctx := context.Background()

	if err := client.Set(ctx, "k", "v", 0); err != nil {
		t.Fatalf("set error: %v", err)
	}
	if err := client.Del(ctx, "k"); err != nil {
		t.Fatalf("del error: %v", err)
	}
	if _, err := client.Get(ctx, "k"); err == nil {
		t.Fatal("expected miss after delete")
	}
}

func TestUninitializedClientErrors(t *testing.T) {
	client := &Client{}
	if _, err := client.SetNX(context.Background(), "k", "1", 0); err == nil {
		t.Fatal("expected error from uninitialized client")
	}
}
