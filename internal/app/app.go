package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/five82/melocuore/internal/admin"
	"github.com/five82/melocuore/internal/api"
	"github.com/five82/melocuore/internal/audiofile"
	"github.com/five82/melocuore/internal/config"
	"github.com/five82/melocuore/internal/prefs"
	"github.com/five82/melocuore/internal/recognize"
	"github.com/five82/melocuore/internal/session"
	"github.com/five82/melocuore/internal/state"
	"github.com/five82/melocuore/internal/ui"
)

// Options configure the Melocuore application.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses default ~/.config/melocuore/prefs.toml

	// Overrides applied on top of the config file. Zero values keep the
	// file's settings. RetryCeiling is a pointer because zero is valid.
	APIURL       string
	RetryCeiling *int
	RetryDelay   time.Duration
	PollEvery    time.Duration

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// env holds the wired services shared by the TUI and the headless commands.
type env struct {
	cfg      config.Config
	logger   *slog.Logger
	client   *api.Client
	sessions *session.Store
	closeLog func() error
}

func open(opts Options) (*env, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	applyOverrides(&cfg, opts)

	logger, closeLog, err := openLog(cfg.LogPath, cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	client, err := api.NewClient(cfg.ClientOptions(logger))
	if err != nil {
		_ = closeLog()
		return nil, fmt.Errorf("init api client: %w", err)
	}
	sessions, err := session.Open(cfg.SessionPath, client, logger)
	if err != nil {
		_ = closeLog()
		return nil, fmt.Errorf("open session: %w", err)
	}
	client.UseSession(sessions, sessions)

	logger.Debug("client configured", "api_url", client.BaseURL(), "retry_ceiling", cfg.Recognition.RetryCeiling, "retry_delay", cfg.Recognition.RetryDelay)
	return &env{cfg: cfg, logger: logger, client: client, sessions: sessions, closeLog: closeLog}, nil
}

func (e *env) Close() {
	if e.closeLog != nil {
		_ = e.closeLog()
	}
}

func applyOverrides(cfg *config.Config, opts Options) {
	if opts.APIURL != "" {
		cfg.APIURL = opts.APIURL
	}
	if opts.RetryCeiling != nil && *opts.RetryCeiling >= 0 {
		cfg.Recognition.RetryCeiling = *opts.RetryCeiling
	}
	if opts.RetryDelay > 0 {
		cfg.Recognition.RetryDelay = opts.RetryDelay
	}
}

// openLog sends slog output to path. The terminal belongs to the TUI, so
// nothing is logged to stdout or stderr.
func openLog(path string, level slog.Level) (*slog.Logger, func() error, error) {
	if path == "" {
		return slog.New(slog.DiscardHandler), func() error { return nil }, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: level}))
	return logger, f.Close, nil
}

// recognizer builds a fresh workflow per run so each run reports to its own
// observer. The extension is checked before the session guard, which may
// refresh the credential over the network.
func (e *env) recognizer() ui.Recognizer {
	return func(ctx context.Context, path string, observe recognize.Observer) (recognize.Outcome, error) {
		if !audiofile.Allowed(filepath.Base(path)) {
			return recognize.Outcome{}, &recognize.ValidationError{Path: path, Message: "only MP3/WAV allowed"}
		}
		if _, err := e.sessions.Guard(ctx); err != nil {
			return recognize.Outcome{}, err
		}
		wf := recognize.New(e.client, e.sessions, e.cfg.Recognition,
			recognize.WithLogger(e.logger),
			recognize.WithObserver(observe),
		)
		return wf.Run(ctx, path)
	}
}

// guardedAdmin checks the superuser flag before every admin call.
type guardedAdmin struct {
	sessions *session.Store
	svc      *admin.Service
}

func (g guardedAdmin) Load(ctx context.Context, tab admin.Tab) (admin.Table, error) {
	if _, err := g.sessions.RequireAdmin(ctx); err != nil {
		return admin.Table{}, err
	}
	return g.svc.Load(ctx, tab)
}

func (g guardedAdmin) Create(ctx context.Context, tab admin.Tab, values admin.Values) (admin.Table, error) {
	if _, err := g.sessions.RequireAdmin(ctx); err != nil {
		return admin.Table{}, err
	}
	return g.svc.Create(ctx, tab, values)
}

func (g guardedAdmin) Update(ctx context.Context, tab admin.Tab, id int64, values admin.Values) (admin.Table, error) {
	if _, err := g.sessions.RequireAdmin(ctx); err != nil {
		return admin.Table{}, err
	}
	return g.svc.Update(ctx, tab, id, values)
}

func (g guardedAdmin) Delete(ctx context.Context, tab admin.Tab, id int64, label string, confirm admin.Confirmer) (admin.Table, error) {
	if _, err := g.sessions.RequireAdmin(ctx); err != nil {
		return admin.Table{}, err
	}
	return g.svc.Delete(ctx, tab, id, label, confirm)
}

func (g guardedAdmin) ToggleSuperuser(ctx context.Context, id int64, current bool) (admin.Table, error) {
	if _, err := g.sessions.RequireAdmin(ctx); err != nil {
		return admin.Table{}, err
	}
	return g.svc.ToggleSuperuser(ctx, id, current)
}

// Run boots the Melocuore TUI until the user quits or the context is cancelled.
func Run(ctx context.Context, opts Options) error {
	e, err := open(opts)
	if err != nil {
		return err
	}
	defer e.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	userPrefs, _ := prefs.Load(opts.PrefsPath)
	store := &state.Store{}

	interval := defaultPollInterval
	if opts.PollEvery > 0 {
		interval = opts.PollEvery
	}
	StartPoller(ctx, store, e.sessions, e.client, interval, e.logger)

	e.logger.Info("starting tui", "api_url", e.client.BaseURL())
	err = ui.Run(ui.Options{
		Context:   ctx,
		Sessions:  e.sessions,
		Library:   e.client,
		Admin:     guardedAdmin{sessions: e.sessions, svc: admin.NewService(e.client, e.logger)},
		Recognize: e.recognizer(),
		Store:     store,
		Logger:    e.logger,
		LogPath:   e.cfg.LogPath,
		ThemeName: userPrefs.Theme,
		PrefsPath: opts.PrefsPath,
	})
	if err != nil {
		e.logger.Error("tui exited", "error", err)
	}
	return err
}
