package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/muse/internal/formatter"
	"github.com/desertthunder/muse/internal/shared"
	"github.com/urfave/cli/v3"
)

// SpotifyProfile fetches and prints the authenticated user's profile.
func (r *Runner) SpotifyProfile(ctx context.Context, cmd *cli.Command) error {
	r.loadConfig(cmd)
	if err := r.ensureSession(); err != nil {
		return err
	}

	user, err := r.spotify.CurrentUser(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch profile: %w", err)
	}

	return r.writeJSON(user, cmd.Bool("pretty"))
}

// SpotifyTrack fetches a track from the catalog.
func (r *Runner) SpotifyTrack(ctx context.Context, cmd *cli.Command) error {
	r.loadConfig(cmd)

	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: track id", shared.ErrMissingArgument)
	}

	if err := r.ensureSession(); err != nil {
		return err
	}

	track, err := r.spotify.GetTrack(ctx, id, cmd.String("market"))
	if err != nil {
		return fmt.Errorf("failed to fetch track: %w", err)
	}

	return r.writeJSON(track, cmd.Bool("pretty"))
}

// SpotifySearch searches the catalog for tracks.
func (r *Runner) SpotifySearch(ctx context.Context, cmd *cli.Command) error {
	r.loadConfig(cmd)

	query := cmd.StringArg("query")
	if query == "" {
		return fmt.Errorf("%w: search query", shared.ErrMissingArgument)
	}

	if err := r.ensureSession(); err != nil {
		return err
	}

	result, err := r.spotify.Search(ctx, query, int(cmd.Int("limit")))
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	return r.writeJSON(result, cmd.Bool("pretty"))
}

// SpotifySaved lists the user's saved tracks, optionally exported to CSV,
// Markdown, or plain text.
func (r *Runner) SpotifySaved(ctx context.Context, cmd *cli.Command) error {
	r.loadConfig(cmd)
	if err := r.ensureSession(); err != nil {
		return err
	}

	page, err := r.spotify.SavedTracks(ctx, int(cmd.Int("limit")), int(cmd.Int("offset")))
	if err != nil {
		return fmt.Errorf("failed to fetch saved tracks: %w", err)
	}

	var data []byte
	switch format := cmd.String("format"); format {
	case "", "json":
		return r.writeJSON(page, cmd.Bool("pretty"))
	case "csv":
		if data, err = formatter.TracksToCSV(page.Items); err != nil {
			return err
		}
	case "md", "markdown":
		data = formatter.TracksToMarkdown("Saved Tracks", page.Items)
	case "text":
		data = formatter.TracksToText("Saved Tracks", page.Items)
	default:
		return fmt.Errorf("%w: unknown format %q (json, csv, md, text)", shared.ErrInvalidFlag, format)
	}

	if output := cmd.String("output"); output != "" {
		if err := formatter.WriteToFile(output, data); err != nil {
			return err
		}
		r.writePlain("✓ Wrote %s\n", output)
		return nil
	}

	return r.writePlain("%s", data)
}

// SpotifySave adds tracks to the user's library.
func (r *Runner) SpotifySave(ctx context.Context, cmd *cli.Command) error {
	r.loadConfig(cmd)
	if err := r.ensureSession(); err != nil {
		return err
	}

	ids := cmd.StringSlice("id")
	if err := r.spotify.SaveTracks(ctx, ids); err != nil {
		return fmt.Errorf("failed to save tracks: %w", err)
	}

	r.writePlain("✓ Saved %d track(s)\n", len(ids))
	return nil
}

// SpotifyPlaylists lists the user's playlists.
func (r *Runner) SpotifyPlaylists(ctx context.Context, cmd *cli.Command) error {
	r.loadConfig(cmd)
	if err := r.ensureSession(); err != nil {
		return err
	}

	page, err := r.spotify.Playlists(ctx, 50, 0)
	if err != nil {
		return fmt.Errorf("failed to fetch playlists: %w", err)
	}

	return r.writeJSON(page, cmd.Bool("pretty"))
}

// SpotifyReleases shows new album releases.
func (r *Runner) SpotifyReleases(ctx context.Context, cmd *cli.Command) error {
	r.loadConfig(cmd)
	if err := r.ensureSession(); err != nil {
		return err
	}

	releases, err := r.spotify.NewReleases(ctx, 20)
	if err != nil {
		return fmt.Errorf("failed to fetch new releases: %w", err)
	}

	return r.writeJSON(releases, cmd.Bool("pretty"))
}

// SpotifyPlaying shows the current playback state.
func (r *Runner) SpotifyPlaying(ctx context.Context, cmd *cli.Command) error {
	r.loadConfig(cmd)
	if err := r.ensureSession(); err != nil {
		return err
	}

	state, err := r.spotify.PlaybackState(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch playback state: %w", err)
	}
	if state == nil {
		r.writePlain("Nothing playing.\n")
		return nil
	}

	return r.writeJSON(state, cmd.Bool("pretty"))
}
