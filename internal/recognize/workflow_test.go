package recognize

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/five82/melocuore/internal/api"
)

type statusReply struct {
	res api.RecognitionResult
	err error
}

type fakeBackend struct {
	asset     api.UploadedAsset
	uploadErr error
	replies   []statusReply
	saveErr   error

	uploads  []api.UploadFile
	queries  []int64
	saved    []api.AnalysisRecord
	onStatus func(n int)
}

func (f *fakeBackend) Upload(_ context.Context, _ string, file api.UploadFile) (api.UploadedAsset, error) {
	f.uploads = append(f.uploads, file)
	if f.uploadErr != nil {
		return api.UploadedAsset{}, f.uploadErr
	}
	return f.asset, nil
}

func (f *fakeBackend) RecognitionStatus(_ context.Context, _ string, id int64) (api.RecognitionResult, error) {
	f.queries = append(f.queries, id)
	n := len(f.queries)
	if f.onStatus != nil {
		f.onStatus(n)
	}
	if n > len(f.replies) {
		return api.RecognitionResult{Status: api.StatusProcessing}, nil
	}
	r := f.replies[n-1]
	return r.res, r.err
}

func (f *fakeBackend) SaveAnalysis(_ context.Context, rec api.AnalysisRecord) error {
	f.saved = append(f.saved, rec)
	return f.saveErr
}

type fixedIdentity int64

func (f fixedIdentity) UserID() (int64, bool) { return int64(f), f > 0 }

type recordedWaits struct {
	delays []time.Duration
}

func (r *recordedWaits) wait(ctx context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return ctx.Err()
}

func writeAudio(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("ID3\x03\x00\x00\x00\x00\x00\x00"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func floatPtr(v float64) *float64 { return &v }

func processing() statusReply {
	return statusReply{res: api.RecognitionResult{Status: api.StatusProcessing}}
}

func found(title, artist string) statusReply {
	return statusReply{res: api.RecognitionResult{
		Status:     api.StatusFound,
		Confidence: floatPtr(0.8),
		Track:      &api.TrackMatch{Title: title, Artist: artist},
	}}
}

func newTestWorkflow(backend *fakeBackend, waits *recordedWaits, cfg Config, opts ...Option) *Workflow {
	opts = append(opts, WithWait(waits.wait))
	return New(backend, fixedIdentity(9), cfg, opts...)
}

func testConfig() Config {
	return Config{RetryCeiling: 5, RetryDelay: 3 * time.Second}
}

func TestRunRejectsUnsupportedExtensionWithoutNetwork(t *testing.T) {
	for _, name := range []string{"noise.flac", "clip.ogg", "notes.txt", "mp3"} {
		backend := &fakeBackend{}
		w := newTestWorkflow(backend, &recordedWaits{}, testConfig())

		_, err := w.Run(context.Background(), filepath.Join(t.TempDir(), name))
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("%s: error = %v, want ValidationError", name, err)
		}
		if verr.Message != "only MP3/WAV allowed" {
			t.Fatalf("%s: message = %q", name, verr.Message)
		}
		if len(backend.uploads) != 0 || len(backend.queries) != 0 {
			t.Fatalf("%s: network calls issued: uploads=%d queries=%d", name, len(backend.uploads), len(backend.queries))
		}
	}
}

func TestRunPreviewFoundSkipsPollingAndSavesHistory(t *testing.T) {
	backend := &fakeBackend{asset: api.UploadedAsset{
		ID:   42,
		Name: "track.mp3",
		Preview: &api.RecognitionResult{
			Status:     api.StatusFound,
			Confidence: floatPtr(0.92),
			Track:      &api.TrackMatch{Title: "X", Artist: "Y"},
		},
	}}
	waits := &recordedWaits{}
	var events []EventKind
	w := newTestWorkflow(backend, waits, testConfig(), WithObserver(func(ev Event) { events = append(events, ev.Kind) }))

	out, err := w.Run(context.Background(), writeAudio(t, "track.mp3"))
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if out.State != StateFound || !out.FromPreview {
		t.Fatalf("outcome = %v preview=%v, want found from preview", out.State, out.FromPreview)
	}
	if out.Message != "X by Y, 92% confidence" {
		t.Fatalf("Message = %q, want X by Y, 92%% confidence", out.Message)
	}
	if len(backend.queries) != 0 {
		t.Fatalf("queries = %d, want 0", len(backend.queries))
	}
	if len(backend.saved) != 1 {
		t.Fatalf("history writes = %d, want 1", len(backend.saved))
	}
	rec := backend.saved[0]
	if rec.User != 9 || rec.UploadedFile != 42 || rec.Title != "X" || rec.Artist != "Y" || rec.Confidence != 0.92 {
		t.Fatalf("record = %#v, want user 9 file 42 X/Y 0.92", rec)
	}
	if rec.Track != nil {
		t.Fatalf("record.Track = %v, want nil for unmatched catalog id", *rec.Track)
	}
	if !out.HistorySaved {
		t.Fatalf("HistorySaved = false, want true")
	}
	if len(backend.uploads) != 1 || backend.uploads[0].Name != "track.mp3" || backend.uploads[0].ContentType != "audio/mpeg" {
		t.Fatalf("uploads = %#v, want track.mp3 audio/mpeg", backend.uploads)
	}
	want := []EventKind{EventUploaded, EventResolved}
	if len(events) != len(want) || events[0] != want[0] || events[1] != want[1] {
		t.Fatalf("events = %v, want %v", events, want)
	}
}

func TestRunFoundOnFirstQueryIssuesOneQuery(t *testing.T) {
	backend := &fakeBackend{asset: api.UploadedAsset{ID: 5}, replies: []statusReply{found("A", "B")}}
	waits := &recordedWaits{}
	w := newTestWorkflow(backend, waits, testConfig())

	out, err := w.Run(context.Background(), writeAudio(t, "a.mp3"))
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if out.State != StateFound || out.Queries != 1 {
		t.Fatalf("outcome = %v queries=%d, want found after 1", out.State, out.Queries)
	}
	if len(backend.queries) != 1 || len(waits.delays) != 0 {
		t.Fatalf("queries=%d waits=%d, want 1 and 0", len(backend.queries), len(waits.delays))
	}
}

func TestRunProcessingThenFound(t *testing.T) {
	for n := 0; n < 5; n++ {
		replies := make([]statusReply, 0, n+1)
		for i := 0; i < n; i++ {
			replies = append(replies, processing())
		}
		replies = append(replies, found("A", "B"))
		backend := &fakeBackend{asset: api.UploadedAsset{ID: 5}, replies: replies}
		waits := &recordedWaits{}
		w := newTestWorkflow(backend, waits, testConfig())

		out, err := w.Run(context.Background(), writeAudio(t, "a.wav"))
		if err != nil {
			t.Fatalf("n=%d: Run returned error: %v", n, err)
		}
		if out.State != StateFound {
			t.Fatalf("n=%d: state = %v, want found", n, out.State)
		}
		if len(backend.queries) != n+1 {
			t.Fatalf("n=%d: queries = %d, want %d", n, len(backend.queries), n+1)
		}
		if len(waits.delays) != n {
			t.Fatalf("n=%d: waits = %d, want %d", n, len(waits.delays), n)
		}
		for _, d := range waits.delays {
			if d != 3*time.Second {
				t.Fatalf("n=%d: delay = %v, want 3s", n, d)
			}
		}
		if len(backend.saved) != 1 {
			t.Fatalf("n=%d: history writes = %d, want 1", n, len(backend.saved))
		}
	}
}

func TestRunProcessingUntilCeilingIsExhausted(t *testing.T) {
	backend := &fakeBackend{asset: api.UploadedAsset{ID: 5}}
	waits := &recordedWaits{}
	w := newTestWorkflow(backend, waits, Config{RetryCeiling: 3, RetryDelay: 2 * time.Second})

	out, err := w.Run(context.Background(), writeAudio(t, "a.mp3"))
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if out.State != StateExhausted {
		t.Fatalf("state = %v, want exhausted", out.State)
	}
	if out.QuotaExceeded {
		t.Fatalf("exhausted outcome flagged as quota")
	}
	if len(backend.queries) != 4 || len(waits.delays) != 3 {
		t.Fatalf("queries=%d waits=%d, want 4 and 3", len(backend.queries), len(waits.delays))
	}
	if len(backend.saved) != 0 {
		t.Fatalf("history writes = %d, want 0", len(backend.saved))
	}
	if !strings.Contains(out.Message, "still running") {
		t.Fatalf("Message = %q, want exhausted message", out.Message)
	}
}

func TestRunNotFoundAfterProcessing(t *testing.T) {
	backend := &fakeBackend{
		asset: api.UploadedAsset{ID: 42},
		replies: []statusReply{
			processing(),
			{res: api.RecognitionResult{Status: api.StatusNotFound}},
		},
	}
	waits := &recordedWaits{}
	w := newTestWorkflow(backend, waits, testConfig())

	out, err := w.Run(context.Background(), writeAudio(t, "track.wav"))
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if out.State != StateNotFound || !strings.Contains(out.Message, "not found") {
		t.Fatalf("outcome = %v %q, want not_found", out.State, out.Message)
	}
	if len(backend.queries) != 2 {
		t.Fatalf("queries = %d, want 2", len(backend.queries))
	}
	if backend.queries[0] != 42 {
		t.Fatalf("queried asset %d, want 42", backend.queries[0])
	}
	if len(backend.saved) != 0 {
		t.Fatalf("history writes = %d, want 0", len(backend.saved))
	}
}

func TestRunQuotaIsTerminalAndDistinct(t *testing.T) {
	cases := map[string]statusReply{
		"payload": {res: api.RecognitionResult{Status: api.StatusError, QuotaExceeded: true, Error: "daily limit"}},
		"status":  {err: &api.APIError{Status: 429, Message: "daily limit", QuotaExceeded: true}},
	}
	for name, reply := range cases {
		backend := &fakeBackend{asset: api.UploadedAsset{ID: 1}, replies: []statusReply{reply}}
		waits := &recordedWaits{}
		w := newTestWorkflow(backend, waits, testConfig())

		out, err := w.Run(context.Background(), writeAudio(t, "a.mp3"))
		if err != nil {
			t.Fatalf("%s: Run returned error: %v", name, err)
		}
		if out.State != StateError || !out.QuotaExceeded {
			t.Fatalf("%s: outcome = %v quota=%v, want quota error", name, out.State, out.QuotaExceeded)
		}
		if len(backend.queries) != 1 {
			t.Fatalf("%s: queries = %d, want 1", name, len(backend.queries))
		}
		if out.Detail != "daily limit" {
			t.Fatalf("%s: Detail = %q, want daily limit", name, out.Detail)
		}
	}
}

func TestRunErrorStatusStopsPolling(t *testing.T) {
	backend := &fakeBackend{
		asset:   api.UploadedAsset{ID: 1},
		replies: []statusReply{{res: api.RecognitionResult{Status: api.StatusError, Error: "decoder crashed"}}},
	}
	w := newTestWorkflow(backend, &recordedWaits{}, testConfig())

	out, err := w.Run(context.Background(), writeAudio(t, "a.mp3"))
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if out.State != StateError || out.QuotaExceeded || out.Message != "decoder crashed" {
		t.Fatalf("outcome = %#v, want plain error", out)
	}
}

func TestRunRetriesTransportAndMalformedReplies(t *testing.T) {
	backend := &fakeBackend{
		asset: api.UploadedAsset{ID: 1},
		replies: []statusReply{
			{err: &api.TransportError{Method: "GET", Path: "/x", Err: errors.New("connection reset")}},
			{err: errors.New("decode response: unexpected EOF")},
			{res: api.RecognitionResult{Status: "queued"}},
			found("A", "B"),
		},
	}
	waits := &recordedWaits{}
	w := newTestWorkflow(backend, waits, testConfig())

	out, err := w.Run(context.Background(), writeAudio(t, "a.mp3"))
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if out.State != StateFound || len(backend.queries) != 4 {
		t.Fatalf("outcome = %v queries=%d, want found after 4", out.State, len(backend.queries))
	}
}

func TestRunTransportFailureAtCeilingIsExhausted(t *testing.T) {
	transport := statusReply{err: &api.TransportError{Method: "GET", Path: "/x", Err: errors.New("refused")}}
	backend := &fakeBackend{asset: api.UploadedAsset{ID: 1}, replies: []statusReply{processing(), transport}}
	w := newTestWorkflow(backend, &recordedWaits{}, Config{RetryCeiling: 1, RetryDelay: time.Second})

	out, err := w.Run(context.Background(), writeAudio(t, "a.mp3"))
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if out.State != StateExhausted {
		t.Fatalf("state = %v, want exhausted", out.State)
	}
	if out.Detail != "Cannot reach the Melocuore server" {
		t.Fatalf("Detail = %q, want connectivity message", out.Detail)
	}
}

func TestRunCancelStopsPollingWithoutOutcome(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backend := &fakeBackend{asset: api.UploadedAsset{ID: 1}}
	backend.onStatus = func(n int) {
		if n == 2 {
			cancel()
		}
	}
	var resolved bool
	w := New(backend, fixedIdentity(9), Config{RetryCeiling: 10, RetryDelay: time.Millisecond},
		WithObserver(func(ev Event) {
			if ev.Kind == EventResolved {
				resolved = true
			}
		}))

	_, err := w.Run(ctx, writeAudio(t, "a.mp3"))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run error = %v, want context.Canceled", err)
	}
	if resolved {
		t.Fatalf("outcome published after cancellation")
	}
	if len(backend.queries) != 2 {
		t.Fatalf("queries = %d, want 2", len(backend.queries))
	}
}

func TestRunCancelDuringWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	backend := &fakeBackend{asset: api.UploadedAsset{ID: 1}}
	w := New(backend, nil, testConfig(), WithWait(func(context.Context, time.Duration) error {
		cancel()
		return context.Canceled
	}))

	_, err := w.Run(ctx, writeAudio(t, "a.mp3"))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run error = %v, want context.Canceled", err)
	}
	if len(backend.queries) != 1 {
		t.Fatalf("queries = %d, want 1", len(backend.queries))
	}
}

func TestRunUploadFailureSurfacesBackendMessage(t *testing.T) {
	backend := &fakeBackend{uploadErr: &api.APIError{Status: 400, Message: "File too large"}}
	w := newTestWorkflow(backend, &recordedWaits{}, testConfig())

	_, err := w.Run(context.Background(), writeAudio(t, "a.mp3"))
	var serr *SubmitError
	if !errors.As(err, &serr) || serr.Message != "File too large" {
		t.Fatalf("error = %v, want SubmitError File too large", err)
	}

	backend = &fakeBackend{uploadErr: errors.New("upload returned status 200, want 201")}
	w = newTestWorkflow(backend, &recordedWaits{}, testConfig())
	_, err = w.Run(context.Background(), writeAudio(t, "a.mp3"))
	if !errors.As(err, &serr) || serr.Message != "upload failed" {
		t.Fatalf("error = %v, want generic upload failed", err)
	}
}

func TestRunHistoryFailureDoesNotChangeOutcome(t *testing.T) {
	backend := &fakeBackend{
		asset:   api.UploadedAsset{ID: 3},
		replies: []statusReply{found("A", "B")},
		saveErr: errors.New("boom"),
	}
	w := newTestWorkflow(backend, &recordedWaits{}, testConfig())

	out, err := w.Run(context.Background(), writeAudio(t, "a.mp3"))
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if out.State != StateFound || out.HistorySaved {
		t.Fatalf("outcome = %v saved=%v, want found unsaved", out.State, out.HistorySaved)
	}
	if len(backend.saved) != 1 {
		t.Fatalf("history writes = %d, want 1", len(backend.saved))
	}
}

func TestRunWithoutUserIDSkipsHistory(t *testing.T) {
	backend := &fakeBackend{asset: api.UploadedAsset{ID: 3}, replies: []statusReply{found("A", "B")}}
	w := New(backend, fixedIdentity(0), testConfig(), WithWait((&recordedWaits{}).wait))

	out, err := w.Run(context.Background(), writeAudio(t, "a.mp3"))
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if out.State != StateFound || len(backend.saved) != 0 {
		t.Fatalf("state=%v writes=%d, want found with no write", out.State, len(backend.saved))
	}
}

func TestRunPublishesOneResolutionAfterHistoryWrite(t *testing.T) {
	backend := &fakeBackend{
		asset:   api.UploadedAsset{ID: 2},
		replies: []statusReply{processing(), found("A", "B"), found("A", "B")},
	}
	var resolved []Outcome
	w := newTestWorkflow(backend, &recordedWaits{}, testConfig(), WithObserver(func(ev Event) {
		if ev.Kind == EventResolved {
			resolved = append(resolved, ev.Outcome)
		}
	}))

	out, err := w.Run(context.Background(), writeAudio(t, "a.mp3"))
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(resolved) != 1 {
		t.Fatalf("resolved events = %d, want 1", len(resolved))
	}
	if !resolved[0].HistorySaved || !out.HistorySaved {
		t.Fatalf("HistorySaved event=%v outcome=%v, want true for both", resolved[0].HistorySaved, out.HistorySaved)
	}
	if len(backend.saved) != 1 {
		t.Fatalf("history writes = %d, want 1", len(backend.saved))
	}
	if len(backend.queries) != 2 {
		t.Fatalf("queries = %d, want 2", len(backend.queries))
	}
}

func TestConfigNormalized(t *testing.T) {
	cfg := Config{RetryCeiling: -1}.normalized()
	if cfg.RetryCeiling != DefaultRetryCeiling || cfg.RetryDelay != DefaultRetryDelay {
		t.Fatalf("normalized = %#v, want defaults", cfg)
	}
	if cfg.PollEndpoint != api.DefaultStatusEndpoint || cfg.PreviewEndpoint != api.DefaultUploadEndpoint {
		t.Fatalf("endpoints = %q %q, want defaults", cfg.PreviewEndpoint, cfg.PollEndpoint)
	}
	if zero := (Config{RetryCeiling: 0, RetryDelay: time.Second}).normalized(); zero.RetryCeiling != 0 || zero.MaxQueries() != 1 {
		t.Fatalf("zero ceiling = %#v, want retries disabled", zero)
	}
}
