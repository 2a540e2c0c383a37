package app

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/five82/melocuore/internal/api"
	"github.com/five82/melocuore/internal/session"
	"github.com/five82/melocuore/internal/state"
)

const (
	defaultPollInterval = 30 * time.Second
	maxBackoff          = 5 * time.Minute
	refreshTimeout      = 15 * time.Second
)

// library is the part of the API client the poller reads.
type library interface {
	ListFiles(ctx context.Context) ([]api.UploadedAsset, error)
	ListAnalyses(ctx context.Context) ([]api.AnalysisRecord, error)
}

// sessionView reports whether anyone is signed in.
type sessionView interface {
	Current() session.Session
}

// StartPoller launches a background goroutine that keeps the signed-in user's
// files and history fresh in the store. Failures back off exponentially. It
// returns immediately.
func StartPoller(ctx context.Context, store *state.Store, sessions sessionView, lib library, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	logger = logger.With("component", "poller")

	go func() {
		failures := 0
		for {
			timer := time.NewTimer(calculateBackoff(failures, interval))
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}

			if !sessions.Current().Authenticated() {
				failures = 0
				continue
			}
			if err := refresh(ctx, store, lib); err != nil {
				if ctx.Err() != nil {
					return
				}
				failures++
				logger.Warn("library refresh failed", "error", err, "failures", failures)
				continue
			}
			failures = 0
		}
	}()
}

// calculateBackoff doubles the interval per consecutive failure, capped at
// maxBackoff.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 {
		return base
	}
	d := base
	for i := 0; i < failures; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	return d
}

// refresh loads files and history together. Nothing is replaced unless both
// succeed.
func refresh(ctx context.Context, store *state.Store, lib library) error {
	ctx, cancel := context.WithTimeout(ctx, refreshTimeout)
	defer cancel()

	var (
		assets  []api.UploadedAsset
		records []api.AnalysisRecord
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		assets, err = lib.ListFiles(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		records, err = lib.ListAnalyses(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		store.SetUploads(nil, err)
		return err
	}
	store.SetUploads(assets, nil)
	store.SetHistory(records, nil)
	return nil
}
