package recognize

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/five82/melocuore/internal/api"
	"github.com/five82/melocuore/internal/audiofile"
)

// Backend is the part of the API client the workflow needs.
type Backend interface {
	Upload(ctx context.Context, endpoint string, file api.UploadFile) (api.UploadedAsset, error)
	RecognitionStatus(ctx context.Context, endpoint string, assetID int64) (api.RecognitionResult, error)
	SaveAnalysis(ctx context.Context, record api.AnalysisRecord) error
}

// Identity supplies the acting user's id, decoded from the local credential.
type Identity interface {
	UserID() (int64, bool)
}

// Workflow uploads a file and follows its recognition to a terminal state.
type Workflow struct {
	backend  Backend
	identity Identity
	cfg      Config
	logger   *slog.Logger
	observer Observer
	wait     func(ctx context.Context, d time.Duration) error
}

// Option customizes a Workflow.
type Option func(*Workflow)

// WithLogger sets the workflow logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Workflow) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithObserver registers a progress callback.
func WithObserver(obs Observer) Option {
	return func(w *Workflow) { w.observer = obs }
}

// WithWait replaces the retry timer. Tests use it to record delays.
func WithWait(wait func(ctx context.Context, d time.Duration) error) Option {
	return func(w *Workflow) {
		if wait != nil {
			w.wait = wait
		}
	}
}

// New builds a workflow for cfg.
func New(backend Backend, identity Identity, cfg Config, opts ...Option) *Workflow {
	w := &Workflow{
		backend:  backend,
		identity: identity,
		cfg:      cfg.normalized(),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		wait:     sleep,
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With("component", "recognize")
	return w
}

// Config returns the effective settings.
func (w *Workflow) Config() Config {
	return w.cfg
}

// Run validates, uploads and resolves the recognition of the file at path.
// Cancelling ctx stops any pending retry; Run then returns ctx.Err() and
// publishes no outcome.
func (w *Workflow) Run(ctx context.Context, path string) (Outcome, error) {
	name := filepath.Base(path)
	if !audiofile.Allowed(name) {
		return Outcome{}, &ValidationError{Path: path, Message: "only MP3/WAV allowed"}
	}
	info, err := audiofile.Inspect(path)
	if err != nil {
		return Outcome{}, &SubmitError{Message: "cannot read " + name, Err: err}
	}

	log := w.logger.With("file", name)
	log.Info("uploading", "size", info.Size, "content_type", info.ContentType)
	asset, err := w.backend.Upload(ctx, w.cfg.PreviewEndpoint, api.UploadFile{
		Path:        path,
		Name:        name,
		ContentType: info.ContentType,
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Outcome{}, ctxErr
		}
		log.Warn("upload failed", "error", err)
		return Outcome{}, &SubmitError{Message: api.Message(err, "upload failed"), Err: err}
	}
	log = log.With("asset_id", asset.ID)
	log.Info("uploaded")
	w.publish(Event{Kind: EventUploaded, Asset: asset})

	a := &attempt{asset: asset}
	var out Outcome
	switch {
	case asset.Preview != nil && asset.Preview.Status.Terminal():
		log.Info("recognition preview is terminal", "status", asset.Preview.Status.Normalize())
		out = a.resolve(*asset.Preview)
		out.FromPreview = true
	case asset.ID <= 0:
		out = Outcome{State: StateError, Message: "The server did not return a recognition id"}
	default:
		out, err = w.poll(ctx, log, a)
		if err != nil {
			return Outcome{}, err
		}
	}
	// The only exit that resolves the attempt.
	return w.finish(ctx, log, a, out), nil
}

func (w *Workflow) poll(ctx context.Context, log *slog.Logger, a *attempt) (Outcome, error) {
	retries := 0
	for {
		w.publish(Event{Kind: EventPolling, Asset: a.asset, Attempt: a.queries + 1, MaxQueries: w.cfg.MaxQueries()})
		res, err := w.backend.RecognitionStatus(ctx, w.cfg.PollEndpoint, a.asset.ID)
		a.queries++
		if ctxErr := ctx.Err(); ctxErr != nil {
			log.Info("recognition cancelled", "queries", a.queries)
			return Outcome{}, ctxErr
		}

		switch {
		case err == nil && (res.Status.Terminal() || res.QuotaExceeded):
			return a.resolve(res), nil
		case api.IsQuotaExceeded(err):
			return a.quota(api.Message(err, "")), nil
		case errors.Is(err, api.ErrUnauthorized):
			return Outcome{
				State:   StateError,
				Asset:   a.asset,
				Message: "Session expired; sign in again",
				Detail:  api.Message(err, ""),
			}, nil
		case err != nil:
			log.Warn("status query failed", "attempt", a.queries, "error", err)
		default:
			log.Debug("recognition pending", "attempt", a.queries, "status", res.Status)
		}

		if retries >= w.cfg.RetryCeiling {
			msg := fmt.Sprintf("Recognition is still running after %d checks; look for it later in your history", a.queries)
			out := Outcome{State: StateExhausted, Asset: a.asset, Result: res, Message: msg}
			if err != nil {
				out.Detail = api.Message(err, err.Error())
			}
			return out, nil
		}
		retries++
		if err := w.wait(ctx, w.cfg.RetryDelay); err != nil {
			log.Info("recognition cancelled while waiting", "queries", a.queries)
			return Outcome{}, err
		}
	}
}

// finish stores the history record for found results and then publishes
// the outcome, so observers see whether the write succeeded.
func (w *Workflow) finish(ctx context.Context, log *slog.Logger, a *attempt, out Outcome) Outcome {
	out.Asset = a.asset
	out.Queries = a.queries
	if out.State == StateFound {
		out.HistorySaved = w.saveHistory(ctx, log, a.asset, out)
	}
	log.Info("recognition resolved", "state", out.State, "queries", out.Queries, "preview", out.FromPreview, "saved", out.HistorySaved)
	w.publish(Event{Kind: EventResolved, Asset: a.asset, Outcome: out})
	return out
}

func (w *Workflow) saveHistory(ctx context.Context, log *slog.Logger, asset api.UploadedAsset, out Outcome) bool {
	if w.identity == nil {
		log.Warn("skipping history write: no session")
		return false
	}
	userID, ok := w.identity.UserID()
	if !ok {
		log.Warn("skipping history write: credential has no user id")
		return false
	}
	record := historyRecord(asset, out.Result, out.View, userID)
	if err := w.backend.SaveAnalysis(ctx, record); err != nil {
		log.Warn("history write failed", "error", err)
		return false
	}
	log.Info("history saved", "user_id", userID)
	return true
}

func (w *Workflow) publish(ev Event) {
	if w.observer != nil {
		w.observer(ev)
	}
}

type attempt struct {
	asset   api.UploadedAsset
	queries int
}

func (a *attempt) resolve(res api.RecognitionResult) Outcome {
	if res.QuotaExceeded {
		out := a.quota(firstNonEmpty(res.Error, res.Message))
		out.Result = res
		return out
	}
	out := Outcome{Asset: a.asset, Result: res}
	switch res.Status.Normalize() {
	case api.StatusFound:
		out.State = StateFound
		out.View = Present(res)
		out.Message = out.View.Headline()
		out.Detail = res.Message
	case api.StatusNotFound:
		out.State = StateNotFound
		out.Message = "Track not found"
		out.Detail = res.Message
	default:
		out.State = StateError
		out.Message = firstNonEmpty(res.Error, res.Message, "Recognition failed")
	}
	return out
}

func (a *attempt) quota(detail string) Outcome {
	return Outcome{
		State:         StateError,
		Asset:         a.asset,
		QuotaExceeded: true,
		Message:       "Recognition quota exceeded; try again later",
		Detail:        detail,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
