package cache

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestKey(t *testing.T) {
	t.Run("Without Arguments", func(t *testing.T) {
		if got := Key("spotify.track.get", nil); got != "spotify.track.get" {
			t.Errorf("expected bare operation key, got %s", got)
		}
	})

	t.Run("Sorted Arguments", func(t *testing.T) {
		a := url.Values{}
		a.Set("market", "US")
		a.Set("id", "4aawyAB9vmqN3uQ7FjRGTy")

		b := url.Values{}
		b.Set("id", "4aawyAB9vmqN3uQ7FjRGTy")
		b.Set("market", "US")

		if Key("spotify.track.get", a) != Key("spotify.track.get", b) {
			t.Error("expected argument order to not affect the key")
		}
	})
}

func TestTieredCache(t *testing.T) {
	t.Run("Hit Within TTL", func(t *testing.T) {
		c := New(nil)

		var calls int32
		compute := func(ctx context.Context) (any, error) {
			atomic.AddInt32(&calls, 1)
			return "value", nil
		}

		for range 3 {
			v, err := c.GetOrCompute(context.Background(), "k", TierCatalog, compute)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if v != "value" {
				t.Errorf("expected 'value', got %v", v)
			}
		}

		if n := atomic.LoadInt32(&calls); n != 1 {
			t.Errorf("expected 1 upstream call, got %d", n)
		}
	})

	t.Run("Expiry", func(t *testing.T) {
		c := New(TierConfig{"short": 10 * time.Millisecond})

		now := time.Now()
		c.clock = func() time.Time { return now }

		var calls int32
		compute := func(ctx context.Context) (any, error) {
			atomic.AddInt32(&calls, 1)
			return "value", nil
		}

		if _, err := c.GetOrCompute(context.Background(), "k", "short", compute); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		now = now.Add(11 * time.Millisecond)

		if _, err := c.GetOrCompute(context.Background(), "k", "short", compute); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if n := atomic.LoadInt32(&calls); n != 2 {
			t.Errorf("expected recompute after expiry, got %d calls", n)
		}
	})

	t.Run("Unknown Tier", func(t *testing.T) {
		c := New(nil)
		_, err := c.GetOrCompute(context.Background(), "k", "bogus", func(ctx context.Context) (any, error) {
			return nil, nil
		})
		if err == nil {
			t.Error("expected error for unknown tier")
		}
	})

	t.Run("Errors Are Not Cached", func(t *testing.T) {
		c := New(nil)

		var calls int32
		compute := func(ctx context.Context) (any, error) {
			if atomic.AddInt32(&calls, 1) == 1 {
				return nil, errors.New("upstream failure")
			}
			return "recovered", nil
		}

		if _, err := c.GetOrCompute(context.Background(), "k", TierSearch, compute); err == nil {
			t.Fatal("expected first call to fail")
		}

		v, err := c.GetOrCompute(context.Background(), "k", TierSearch, compute)
		if err != nil {
			t.Fatalf("expected second call to succeed, got %v", err)
		}
		if v != "recovered" {
			t.Errorf("expected 'recovered', got %v", v)
		}
	})

	t.Run("Stampede Collapses To One Call", func(t *testing.T) {
		c := New(nil)

		var calls int32
		release := make(chan struct{})
		compute := func(ctx context.Context) (any, error) {
			atomic.AddInt32(&calls, 1)
			<-release
			return "shared", nil
		}

		const n = 16
		var wg sync.WaitGroup
		results := make([]any, n)
		errs := make([]error, n)

		for i := range n {
			wg.Add(1)
			go func() {
				defer wg.Done()
				results[i], errs[i] = c.GetOrCompute(context.Background(), "k", TierCatalog, compute)
			}()
		}

		// Give every goroutine a chance to reach the flight before the
		// compute function returns.
		time.Sleep(50 * time.Millisecond)
		close(release)
		wg.Wait()

		for i := range n {
			if errs[i] != nil {
				t.Fatalf("caller %d: expected no error, got %v", i, errs[i])
			}
			if results[i] != "shared" {
				t.Errorf("caller %d: expected 'shared', got %v", i, results[i])
			}
		}

		if got := atomic.LoadInt32(&calls); got != 1 {
			t.Errorf("expected exactly 1 upstream call, got %d", got)
		}
	})

	t.Run("Invalidate By Prefix", func(t *testing.T) {
		c := New(nil)

		compute := func(v string) func(context.Context) (any, error) {
			return func(ctx context.Context) (any, error) { return v, nil }
		}

		c.GetOrCompute(context.Background(), "spotify.playlist.get?id=p1", TierCatalog, compute("a"))
		c.GetOrCompute(context.Background(), "spotify.playlist.tracks?id=p1", TierCatalog, compute("b"))
		c.GetOrCompute(context.Background(), "spotify.track.get?id=t1", TierCatalog, compute("c"))

		if dropped := c.Invalidate("spotify.playlist."); dropped != 2 {
			t.Errorf("expected 2 entries dropped, got %d", dropped)
		}

		if c.Len() != 1 {
			t.Errorf("expected 1 surviving entry, got %d", c.Len())
		}

		var calls int32
		c.GetOrCompute(context.Background(), "spotify.playlist.get?id=p1", TierCatalog, func(ctx context.Context) (any, error) {
			atomic.AddInt32(&calls, 1)
			return "fresh", nil
		})
		if atomic.LoadInt32(&calls) != 1 {
			t.Error("expected recompute after invalidation")
		}
	})

	t.Run("Clear", func(t *testing.T) {
		c := New(nil)
		c.GetOrCompute(context.Background(), "k", TierCatalog, func(ctx context.Context) (any, error) {
			return "v", nil
		})
		c.Clear()
		if c.Len() != 0 {
			t.Errorf("expected empty cache, got %d entries", c.Len())
		}
	})
}

func TestDefaultTiers(t *testing.T) {
	tiers := DefaultTiers()

	if tiers[TierCatalog] != 24*time.Hour {
		t.Errorf("expected catalog tier TTL of 24h, got %v", tiers[TierCatalog])
	}
	if tiers[TierSearch] != time.Hour {
		t.Errorf("expected search tier TTL of 1h, got %v", tiers[TierSearch])
	}
	if tiers[TierStatic] != 7*24*time.Hour {
		t.Errorf("expected static tier TTL of 168h, got %v", tiers[TierStatic])
	}
}
