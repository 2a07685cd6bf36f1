package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/desertthunder/muse/internal/shared"
	"github.com/urfave/cli/v3"
)

// loadConfig reloads configuration from the command's --config flag when the
// file exists.
func (r *Runner) loadConfig(cmd *cli.Command) {
	configPath := cmd.String("config")
	if configPath == "" {
		return
	}
	if _, err := os.Stat(configPath); err != nil {
		return
	}

	config, err := shared.LoadConfig(configPath)
	if err != nil {
		r.logger.Warn("failed to load config, keeping current settings", "path", configPath, "error", err)
		return
	}
	r.config = config
}

// AuthLogin runs the configured OAuth2 flow and stores the credential.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	r.loadConfig(cmd)

	if flow := cmd.String("flow"); flow != "" {
		r.config.Credentials.Spotify.Flow = flow
	}

	if err := r.ensureSession(); err != nil {
		return err
	}

	cred, err := r.client.Engine().Authorize(ctx)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	r.writePlain("✓ Authenticated via %s flow\n", cred.Flow)
	if !cred.ExpiresAt.IsZero() {
		r.writePlain("Token expires: %s\n", cred.ExpiresAt.Format(time.RFC1123))
	}
	if scopes := cred.ScopeString(); scopes != "" {
		r.writePlain("Granted scopes: %s\n", scopes)
	}

	return nil
}

// AuthLogout clears the stored credential.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	r.loadConfig(cmd)

	if err := r.ensureSession(); err != nil {
		return err
	}

	if err := r.client.Logout(); err != nil {
		return fmt.Errorf("logout failed: %w", err)
	}

	r.writePlain("✓ Logged out\n")
	return nil
}

// AuthStatus shows the current credential state without touching the
// network.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	r.loadConfig(cmd)

	if err := r.ensureSession(); err != nil {
		return err
	}

	cred := r.store.Current()
	if cred == nil {
		r.writePlain("Not authenticated. Run 'muse auth login'.\n")
		return nil
	}

	now := time.Now()
	r.writePlain("Flow: %s\n", cred.Flow)

	switch {
	case cred.ExpiresAt.IsZero():
		r.writePlain("Token: valid (no expiry)\n")
	case cred.Expired(now):
		if cred.Refreshable() {
			r.writePlain("Token: expired (will refresh on next request)\n")
		} else {
			r.writePlain("Token: expired (reauthorize with 'muse auth login')\n")
		}
	default:
		r.writePlain("Token: valid, expires %s\n", cred.ExpiresAt.Format(time.RFC1123))
	}

	if scopes := cred.ScopeString(); scopes != "" {
		r.writePlain("Scopes: %s\n", scopes)
	}

	return nil
}

// AuthRefresh forces a token refresh.
func (r *Runner) AuthRefresh(ctx context.Context, cmd *cli.Command) error {
	r.loadConfig(cmd)

	if err := r.ensureSession(); err != nil {
		return err
	}

	cred, err := r.client.Engine().ForceRefresh(ctx)
	if err != nil {
		return fmt.Errorf("refresh failed: %w", err)
	}

	r.writePlain("✓ Token refreshed, expires %s\n", cred.ExpiresAt.Format(time.RFC1123))
	return nil
}
