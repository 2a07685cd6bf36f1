package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/muse/internal/shared"
	"github.com/urfave/cli/v3"
)

// APIGet performs an authenticated GET against the provider API and prints
// the raw response.
func (r *Runner) APIGet(ctx context.Context, cmd *cli.Command) error {
	r.loadConfig(cmd)

	path := cmd.StringArg("path")
	if path == "" {
		return fmt.Errorf("%w: path (e.g. /me/top/artists)", shared.ErrMissingArgument)
	}

	if err := r.ensureSession(); err != nil {
		return err
	}

	resp, err := r.api.Get(ctx, path)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	return r.writeRaw(resp, cmd.Bool("pretty"))
}

// APIPost performs an authenticated POST with a JSON body and prints the
// raw response.
func (r *Runner) APIPost(ctx context.Context, cmd *cli.Command) error {
	r.loadConfig(cmd)

	path := cmd.StringArg("path")
	if path == "" {
		return fmt.Errorf("%w: path", shared.ErrMissingArgument)
	}

	if err := r.ensureSession(); err != nil {
		return err
	}

	resp, err := r.api.Post(ctx, path, []byte(cmd.String("data")))
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	return r.writeRaw(resp, true)
}
