package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	goredis "github.com/go-redis/redis"

	"finbot/internal/kv"
)

type fakeClient struct {
	data    map[string]string
	failSet error
	closed  bool
}

func (f *fakeClient) Get(key string) *goredis.StringCmd {
	v, ok := f.data[key]
	if !ok {
		return goredis.NewStringResult("", goredis.Nil)
	}
	return goredis.NewStringResult(v, nil)
}

func (f *fakeClient) Set(key string, value interface{}, _ time.Duration) *goredis.StatusCmd {
	if f.failSet != nil {
		return goredis.NewStatusResult("", f.failSet)
	}
	f.data[key] = string(value.([]byte))
	return goredis.NewStatusResult("OK", nil)
}

func (f *fakeClient) Ping() *goredis.StatusCmd { return goredis.NewStatusResult("PONG", nil) }

func (f *fakeClient) Close() error {
	f.closed = true
	return nil
}

func TestStoreGetPut(t *testing.T) {
	fc := &fakeClient{data: map[string]string{}}
	s := newStore(fc, "finbot:")
	ctx := context.Background()

	if _, err := s.Get(ctx, "financialData"); !errors.Is(err, kv.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.Put(ctx, "financialData", []byte(`{}`)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, ok := fc.data["finbot:financialData"]; !ok {
		t.Fatalf("prefix not applied: %v", fc.data)
	}
	got, err := s.Get(ctx, "financialData")
	if err != nil || string(got) != `{}` {
		t.Fatalf("get = %q err=%v", got, err)
	}
	if err := s.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
	if err := s.Close(); err != nil || !fc.closed {
		t.Fatalf("close not forwarded")
	}
}

func TestStorePutError(t *testing.T) {
	s := newStore(&fakeClient{data: map[string]string{}, failSet: errors.New("READONLY")}, "")
	if err := s.Put(context.Background(), "k", []byte("v")); err == nil {
		t.Fatalf("expected error")
	}
}

func TestStoreHonoursCancelledContext(t *testing.T) {
	s := newStore(&fakeClient{data: map[string]string{}}, "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Get(ctx, "k"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
