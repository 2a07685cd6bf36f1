package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"slices"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/muse/internal/cache"
	"github.com/desertthunder/muse/internal/services"
	"github.com/desertthunder/muse/internal/session"
	"github.com/desertthunder/muse/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/time/rate"
)

// Runner holds all dependencies for CLI commands and provides methods for
// each command action. The session stack is built lazily so commands that
// never touch the API (setup, cache tiers) work without credentials.
type Runner struct {
	config     *shared.Config
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer

	db      *sql.DB
	store   session.Store
	client  *session.Client
	spotify *services.SpotifyService
	api     *services.APIService
	cache   *cache.TieredCache
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer

	// Spotify and API override the lazily built services in tests.
	Spotify *services.SpotifyService
	API     *services.APIService
}

// NewRunner creates a new Runner with the provided configuration.
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &Runner{
		config:     opts.Config,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		spotify:    opts.Spotify,
		api:        opts.API,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, spotifyCommand, apiCommand, cacheCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// resolveScopes expands configured scope entries: entries naming a scope
// category expand through [services.ScopesFor], the rest pass through as
// literal scopes.
func resolveScopes(entries []string) []string {
	if len(entries) == 0 {
		entries = []string{"library", "playlists", "users"}
	}

	var scopes []string
	for _, entry := range entries {
		if expanded, err := services.ScopesFor(entry); err == nil {
			scopes = append(scopes, expanded...)
			continue
		}
		scopes = append(scopes, entry)
	}

	slices.Sort(scopes)
	return slices.Compact(scopes)
}

// ensureSession builds the credential store, flow engine, and session
// client on first use.
func (r *Runner) ensureSession() error {
	if r.client != nil {
		return nil
	}

	pc := r.config.Credentials.Spotify
	if pc.ClientID == "" {
		return fmt.Errorf("%w: credentials.spotify.client_id is not set", shared.ErrMissingConfig)
	}

	flowCfg := services.SpotifyFlowConfig(pc)
	flowCfg.Scopes = resolveScopes(pc.Scopes)
	flowCfg.ListenAddr = fmt.Sprintf("%s:%d", r.config.Server.Host, r.config.Server.Port)

	accountID := session.AccountID(pc.ClientID, flowCfg.Flow, r.config.Session.User)

	if r.config.Session.Persist {
		db, err := shared.NewDatabase(r.config.Database.Path)
		if err != nil {
			return fmt.Errorf("failed to open database (run 'muse setup database' first): %w", err)
		}
		shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)
		r.db = db

		store := session.NewSQLiteStore(db, accountID)
		if err := store.Load(); err != nil {
			return fmt.Errorf("failed to load persisted credential: %w", err)
		}
		r.store = store
	} else {
		r.store = session.NewMemoryStore()
	}

	engine, err := session.NewFlowEngine(flowCfg, r.store, r.logger)
	if err != nil {
		return err
	}
	engine.SetHTTPClient(r.httpClient)

	opts := []session.ClientOption{
		session.WithHTTPClient(r.httpClient),
		session.WithLogger(r.logger),
		session.WithRateLimit(rate.Limit(10), 20),
	}
	if r.config.Cache.Enabled {
		r.cache = cache.New(nil)
		opts = append(opts, session.WithCache(r.cache))
	}

	r.client = session.NewClient(services.SpotifyBaseURL, engine, r.store, opts...)
	if r.spotify == nil {
		r.spotify = services.NewSpotifyService(r.client)
	}
	if r.api == nil {
		r.api = services.NewAPIService(r.client)
	}

	return nil
}

// close releases the database handle if one was opened.
func (r *Runner) close() {
	if r.db != nil {
		r.db.Close()
	}
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// writeRaw prints a raw API response, pretty-printing JSON bodies.
func (r *Runner) writeRaw(resp *services.APIResponse, pretty bool) error {
	if resp.IsJSON && pretty {
		out, err := json.MarshalIndent(resp.JSONData, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to format JSON: %w", err)
		}
		return r.writePlain("%s\n", out)
	}
	return r.writePlain("%s\n", resp.Body)
}
