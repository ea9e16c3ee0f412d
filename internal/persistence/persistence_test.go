package persistence

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/spec-kit/property-service/internal/config"
)

func TestRetrySucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := retry(context.Background(), 3, time.Millisecond, zap.NewNop(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("connection refused")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestRetryReturnsLastError(t *testing.T) {
	want := errors.New("still down")
	calls := 0
	err := retry(context.Background(), 2, time.Millisecond, zap.NewNop(), func(context.Context) error {
		calls++
		return want
	})
	if !errors.Is(err, want) {
		t.Fatalf("err = %v, want %v", err, want)
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
}

func TestRetryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := retry(ctx, 5, time.Hour, zap.NewNop(), func(context.Context) error {
		return errors.New("down")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestOpenStoreRequiresDSN(t *testing.T) {
	_, err := OpenStore(context.Background(), config.PostgresConfig{}, "property-service", zap.NewNop())
	if !errors.Is(err, ErrNoDSN) {
		t.Fatalf("err = %v, want ErrNoDSN", err)
	}
}

func TestPoolCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(NewPoolCollector("postgres", func() PoolStats {
		return PoolStats{Total: 4, Idle: 1, InUse: 3, WaitHits: 2}
	}))

	expected := `
# HELP property_pool_in_use_connections Connections currently checked out.
# TYPE property_pool_in_use_connections gauge
property_pool_in_use_connections{pool="postgres"} 3
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "property_pool_in_use_connections"); err != nil {
		t.Fatal(err)
	}
	if n, err := testutil.GatherAndCount(reg); err != nil || n != 4 {
		t.Fatalf("metric count = %d, err = %v", n, err)
	}
}

func TestNilStoreIsSafe(t *testing.T) {
	var s *Store
	if s.Pool() != nil {
		t.Fatal("expected nil pool")
	}
	if err := s.Ping(context.Background()); err == nil {
		t.Fatal("expected error from unconfigured store")
	}
	if s.Stats() != (PoolStats{}) {
		t.Fatal("expected zero stats")
	}
	s.Close()
}
