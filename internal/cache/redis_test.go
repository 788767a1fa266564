package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func TestOpenRedis_Success(t *testing.T) {
	s := miniredis.RunT(t)

	c, err := OpenRedis(context.Background(), s.Addr(), 3)
	if err != nil {
		t.Fatalf("OpenRedis: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	if got := c.Options().DB; got != 3 {
		t.Fatalf("client DB = %d, want 3", got)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := c.Set(ctx, "idem:k", "v", time.Minute).Err(); err != nil {
		t.Fatalf("SET: %v", err)
	}
	s.Select(3)
	if got, _ := s.Get("idem:k"); got != "v" {
		t.Fatalf("miniredis value = %q, want v", got)
	}
}

func TestOpenRedis_Failure(t *testing.T) {
	s := miniredis.RunT(t)
	addr := s.Addr()
	s.Close()

	if _, err := OpenRedis(context.Background(), addr, 0); err == nil {
		t.Fatal("expected error, got nil")
	}
}
