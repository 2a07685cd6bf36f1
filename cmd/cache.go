package main

import (
	"context"

	"github.com/desertthunder/muse/internal/cache"
	"github.com/urfave/cli/v3"
)

// CacheTiers prints the cache tier names and durations.
func (r *Runner) CacheTiers(ctx context.Context, cmd *cli.Command) error {
	tc := r.cache
	if tc == nil {
		tc = cache.New(nil)
	}

	for _, tier := range tc.Tiers() {
		r.writePlain("%-12s %v\n", tier.Name, tier.TTL)
	}
	return nil
}

// CacheClear drops cached responses, optionally limited to one resource
// prefix.
//
// The cache is in-process, so this only matters for long-lived sessions;
// a fresh process starts empty.
func (r *Runner) CacheClear(ctx context.Context, cmd *cli.Command) error {
	r.loadConfig(cmd)
	if err := r.ensureSession(); err != nil {
		return err
	}

	if r.cache == nil {
		r.writePlain("Caching is disabled.\n")
		return nil
	}

	if resource := cmd.String("resource"); resource != "" {
		dropped := r.cache.Invalidate(resource)
		r.writePlain("✓ Dropped %d cached response(s) for %q\n", dropped, resource)
		return nil
	}

	r.cache.Clear()
	r.writePlain("✓ Cache cleared\n")
	return nil
}
