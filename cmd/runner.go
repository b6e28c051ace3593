package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/wamp/internal/auth"
	"github.com/desertthunder/wamp/internal/keychain"
	"github.com/desertthunder/wamp/internal/library"
	"github.com/desertthunder/wamp/internal/models"
	"github.com/desertthunder/wamp/internal/oauth"
	"github.com/desertthunder/wamp/internal/playback"
	"github.com/desertthunder/wamp/internal/server"
	"github.com/desertthunder/wamp/internal/shared"
	"github.com/desertthunder/wamp/internal/spotify"
	"github.com/desertthunder/wamp/internal/transport"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// Collaborators are built on first use by [Runner.ensure] so that flags (config path, device, log
// destination) parsed before the action can still shape them.
type Runner struct {
	config       *shared.Config
	configPath   string
	loadConfig   bool
	deviceID     string
	store        *keychain.Store
	browser      auth.BrowserSession
	apiExec      transport.Executor
	accountsExec transport.Executor
	oauth        *oauth.Client
	api          *spotify.Client
	auth         *auth.Manager
	library      *library.Service
	player       *spotify.WebPlayer
	playback     *playback.Controller
	httpClient   *http.Client
	logger       *log.Logger
	output       io.Writer

	once    sync.Once
	initErr error
	closers []func() error
}

// RunnerOpts contains configuration options for creating a Runner.
//
// Store, Browser and the executors replace the production collaborators; tests use them.
type RunnerOpts struct {
	Config           *shared.Config
	ConfigPath       string
	Store            *keychain.Store
	Browser          auth.BrowserSession
	APIExecutor      transport.Executor
	AccountsExecutor transport.Executor
	HTTPClient       *http.Client
	Logger           *log.Logger
	Output           io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	loadConfig := opts.Config == nil
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
		config:       opts.Config,
		configPath:   opts.ConfigPath,
		loadConfig:   loadConfig,
		store:        opts.Store,
		browser:      opts.Browser,
		apiExec:      opts.APIExecutor,
		accountsExec: opts.AccountsExecutor,
		httpClient:   opts.HTTPClient,
		logger:       opts.Logger,
		output:       opts.Output,
	}
}

// SetLogger replaces the logger. It only reaches collaborators built afterwards.
func (r *Runner) SetLogger(l *log.Logger) {
	if l != nil {
		r.logger = l
	}
}

// Close releases resources opened while wiring, such as the sqlite token database.
func (r *Runner) Close() error {
	var errs []error
	for _, fn := range r.closers {
		errs = append(errs, fn())
	}
	r.closers = nil
	return errors.Join(errs...)
}

func (r *Runner) app() *cli.Command {
	return &cli.Command{
		Name:    "wamp",
		Usage:   "A retro Spotify player for the terminal",
		Version: "0.3.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Enable debug logging",
			},
		},
		Before:   r.before,
		Commands: r.register(),
	}
}

func (r *Runner) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}
	if cmd.IsSet("config") || r.configPath == "" {
		r.configPath = cmd.String("config")
	}
	return ctx, nil
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, libraryCommand, playerCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// ensure loads configuration and builds the collaborators once.
func (r *Runner) ensure(ctx context.Context) error {
	r.once.Do(func() { r.initErr = r.wire(ctx) })
	return r.initErr
}

func (r *Runner) wire(ctx context.Context) error {
	if r.loadConfig {
		config, err := shared.LoadOrDefault(r.configPath)
		if err != nil {
			return err
		}
		config.ApplyEnv()
		r.config = config
	}
	cfg := r.config

	if r.store == nil {
		backend, closeFn, err := keychain.NewBackend(ctx, cfg, r.logger)
		if err != nil {
			return fmt.Errorf("failed to open token store: %w", err)
		}
		r.closers = append(r.closers, closeFn)
		r.store = keychain.NewStore(backend, cfg.Keychain.Service, r.logger)
	}

	oauthOpts := []oauth.Option{oauth.WithLogger(r.logger)}
	if r.accountsExec != nil {
		oauthOpts = append(oauthOpts, oauth.WithExecutor(r.accountsExec))
	}
	r.oauth = oauth.NewClient(oauth.Config{
		ClientID:     cfg.Credentials.Spotify.ClientID,
		ClientSecret: cfg.Credentials.Spotify.ClientSecret,
		RedirectURI:  r.redirectURI(),
		AccountsURL:  cfg.API.AccountsURL,
	}, oauthOpts...)

	apiOpts := []spotify.Option{spotify.WithLogger(r.logger), spotify.WithRateLimit(cfg.API.RequestsPerSecond)}
	if r.apiExec != nil {
		apiOpts = append(apiOpts, spotify.WithExecutor(r.apiExec))
	}
	r.api = spotify.NewClient(cfg.API.BaseURL, apiOpts...)

	if r.browser == nil {
		r.browser = server.NewLoopbackSession(r.logger,
			server.WithOpener(r.openBrowser),
			server.WithReady(func(addr string) { r.logger.Debug("callback server ready", "addr", addr) }),
		)
	}

	r.auth = auth.NewManager(r.store, r.oauth, r.api, r.browser, r.logger)
	r.auth.OnStateChange(func(s auth.State) { r.logger.Debug("auth state", "state", s) })
	r.library = library.NewService(r.api, r.logger)
	r.player = spotify.NewWebPlayer(r.api, cfg.Player.Interval(), r.deviceID)
	r.playback = playback.NewController(r.player, r.logger)
	return nil
}

// redirectURI falls back to the loopback callback server when none is configured.
func (r *Runner) redirectURI() string {
	if uri := r.config.Credentials.Spotify.RedirectURI; uri != "" {
		return uri
	}
	return fmt.Sprintf("http://%s/callback", r.config.Server.Addr())
}

func (r *Runner) openBrowser(url string) error {
	r.writePlain("→ Opening browser for Spotify authorization...\n")
	if err := shared.OpenBrowser(url); err != nil {
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", url)
		return err
	}
	r.writePlain("→ Waiting for authorization (2 minute timeout)...\n")
	return nil
}

// session restores the stored login before an API command.
func (r *Runner) session(ctx context.Context) (*models.User, error) {
	if err := r.ensure(ctx); err != nil {
		return nil, err
	}
	user, err := r.auth.Restore(ctx)
	if errors.Is(err, shared.ErrNotAuthenticated) {
		return nil, fmt.Errorf("%w (run 'wamp auth login' first)", err)
	}
	return user, err
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

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

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
