package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/five82/melocuore/internal/api"
	"github.com/five82/melocuore/internal/audiofile"
)

var (
	// ErrNotConfirmed is returned when a delete was not confirmed.
	ErrNotConfirmed = errors.New("delete not confirmed")
	// ErrUnsupported is returned for operations a tab does not offer.
	ErrUnsupported = errors.New("operation not supported on this tab")
)

// Backend is the part of the API client used by the admin surface.
type Backend interface {
	AdminDashboard(ctx context.Context) (api.Dashboard, error)
	AdminModelStats(ctx context.Context) (api.ModelStats, error)
	AdminListUsers(ctx context.Context) ([]api.User, error)
	AdminCreateUser(ctx context.Context, user api.NewUser) (api.User, error)
	AdminSetSuperuser(ctx context.Context, id int64, superuser bool) error
	AdminDeleteUser(ctx context.Context, id int64) error
	AdminListFiles(ctx context.Context) ([]api.UploadedAsset, error)
	AdminDeleteFile(ctx context.Context, id int64) error
	ListEntities(ctx context.Context, kind api.Kind, dest any) error
	CreateEntity(ctx context.Context, kind api.Kind, body any, dest any) error
	UpdateEntity(ctx context.Context, kind api.Kind, id int64, body any, dest any) error
	DeleteEntity(ctx context.Context, kind api.Kind, id int64) error
	CreateTrack(ctx context.Context, track api.Track, audio api.UploadFile) (api.Track, error)
	UpdateTrack(ctx context.Context, id int64, track api.Track, audio api.UploadFile) (api.Track, error)
}

// Confirmer approves destructive actions.
type Confirmer interface {
	Confirm(prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(prompt string) bool

// Confirm calls f.
func (f ConfirmFunc) Confirm(prompt string) bool { return f(prompt) }

// Service performs admin operations. Every successful mutation re-fetches the
// whole collection of the affected tab.
type Service struct {
	backend Backend
	logger  *slog.Logger
}

// NewService builds a Service.
func NewService(backend Backend, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{backend: backend, logger: logger.With("component", "admin")}
}

// Load fetches the full collection of tab.
func (s *Service) Load(ctx context.Context, tab Tab) (Table, error) {
	switch tab {
	case TabDashboard:
		return s.loadDashboard(ctx)
	case TabUsers:
		users, err := s.backend.AdminListUsers(ctx)
		if err != nil {
			return Table{}, fmt.Errorf("list users: %w", err)
		}
		return usersTable(users), nil
	case TabFiles:
		files, err := s.backend.AdminListFiles(ctx)
		if err != nil {
			return Table{}, fmt.Errorf("list files: %w", err)
		}
		return filesTable(files), nil
	case TabArtists:
		var artists []api.Artist
		if err := s.backend.ListEntities(ctx, api.KindArtists, &artists); err != nil {
			return Table{}, fmt.Errorf("list artists: %w", err)
		}
		return artistsTable(artists), nil
	case TabGenres:
		var genres []api.Genre
		if err := s.backend.ListEntities(ctx, api.KindGenres, &genres); err != nil {
			return Table{}, fmt.Errorf("list genres: %w", err)
		}
		return namedTable(tab, genreRows(genres)), nil
	case TabMoods:
		var moods []api.Mood
		if err := s.backend.ListEntities(ctx, api.KindMoods, &moods); err != nil {
			return Table{}, fmt.Errorf("list moods: %w", err)
		}
		return namedTable(tab, moodRows(moods)), nil
	case TabTracks:
		return s.loadTracks(ctx)
	case TabAnalyses:
		var analyses []api.Analysis
		if err := s.backend.ListEntities(ctx, api.KindAnalyses, &analyses); err != nil {
			return Table{}, fmt.Errorf("list analyses: %w", err)
		}
		return analysesTable(analyses), nil
	}
	return Table{}, fmt.Errorf("unknown tab %v", tab)
}

func (s *Service) loadDashboard(ctx context.Context) (Table, error) {
	var (
		dash  api.Dashboard
		stats api.ModelStats
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		dash, err = s.backend.AdminDashboard(gctx)
		if err != nil {
			return fmt.Errorf("load dashboard: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		stats, err = s.backend.AdminModelStats(gctx)
		if err != nil {
			return fmt.Errorf("load model stats: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return Table{}, err
	}
	return dashboardTable(dash, stats), nil
}

// loadTracks fetches tracks with the lookup collections so references render
// as names.
func (s *Service) loadTracks(ctx context.Context) (Table, error) {
	var (
		tracks  []api.Track
		artists []api.Artist
		genres  []api.Genre
		moods   []api.Mood
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.backend.ListEntities(gctx, api.KindTracks, &tracks) })
	g.Go(func() error { return s.backend.ListEntities(gctx, api.KindArtists, &artists) })
	g.Go(func() error { return s.backend.ListEntities(gctx, api.KindGenres, &genres) })
	g.Go(func() error { return s.backend.ListEntities(gctx, api.KindMoods, &moods) })
	if err := g.Wait(); err != nil {
		return Table{}, fmt.Errorf("list tracks: %w", err)
	}
	names := lookups{artists: map[int64]string{}, genres: map[int64]string{}, moods: map[int64]string{}}
	for _, a := range artists {
		names.artists[a.ID] = a.Name
	}
	for _, genre := range genres {
		names.genres[genre.ID] = genre.Name
	}
	for _, m := range moods {
		names.moods[m.ID] = m.Name
	}
	return tracksTable(tracks, names), nil
}

// Create adds an entry built from values and reloads the tab.
func (s *Service) Create(ctx context.Context, tab Tab, values Values) (Table, error) {
	if !tab.CanCreate() {
		return Table{}, ErrUnsupported
	}
	if err := Validate(tab, values); err != nil {
		return Table{}, err
	}

	var err error
	switch tab {
	case TabUsers:
		var user api.NewUser
		if user, err = userFromValues(values); err == nil {
			_, err = s.backend.AdminCreateUser(ctx, user)
		}
	case TabArtists, TabGenres, TabMoods:
		err = s.backend.CreateEntity(ctx, tab.kind(), map[string]string{"name": values.Get("name")}, nil)
	case TabTracks:
		var (
			track api.Track
			audio api.UploadFile
		)
		if track, audio, err = trackFromValues(values); err == nil {
			_, err = s.backend.CreateTrack(ctx, track, audio)
		}
	case TabAnalyses:
		var analysis api.Analysis
		if analysis, err = analysisFromValues(values); err == nil {
			err = s.backend.CreateEntity(ctx, api.KindAnalyses, analysis, nil)
		}
	}
	if err != nil {
		return Table{}, s.failed("create", tab, 0, err)
	}
	s.logger.Info("created entry", "tab", tab.String())
	return s.Load(ctx, tab)
}

// Update replaces entry id with values and reloads the tab.
func (s *Service) Update(ctx context.Context, tab Tab, id int64, values Values) (Table, error) {
	if !tab.CanUpdate() {
		return Table{}, ErrUnsupported
	}
	if id <= 0 {
		return Table{}, &ValidationError{Field: "id", Message: "select an entry first"}
	}
	if err := Validate(tab, values); err != nil {
		return Table{}, err
	}

	var err error
	switch tab {
	case TabArtists, TabGenres, TabMoods:
		err = s.backend.UpdateEntity(ctx, tab.kind(), id, map[string]string{"name": values.Get("name")}, nil)
	case TabTracks:
		var (
			track api.Track
			audio api.UploadFile
		)
		if track, audio, err = trackFromValues(values); err == nil {
			_, err = s.backend.UpdateTrack(ctx, id, track, audio)
		}
	case TabAnalyses:
		var analysis api.Analysis
		if analysis, err = analysisFromValues(values); err == nil {
			err = s.backend.UpdateEntity(ctx, api.KindAnalyses, id, analysis, nil)
		}
	}
	if err != nil {
		return Table{}, s.failed("update", tab, id, err)
	}
	s.logger.Info("updated entry", "tab", tab.String(), "id", id)
	return s.Load(ctx, tab)
}

// Delete removes entry id after confirm approves, then reloads the tab.
// Without approval no request is sent.
func (s *Service) Delete(ctx context.Context, tab Tab, id int64, label string, confirm Confirmer) (Table, error) {
	if !tab.CanDelete() {
		return Table{}, ErrUnsupported
	}
	if id <= 0 {
		return Table{}, &ValidationError{Field: "id", Message: "select an entry first"}
	}
	prompt := DeletePrompt(tab, id, label)
	if confirm == nil || !confirm.Confirm(prompt) {
		return Table{}, ErrNotConfirmed
	}

	var err error
	switch tab {
	case TabUsers:
		err = s.backend.AdminDeleteUser(ctx, id)
	case TabFiles:
		err = s.backend.AdminDeleteFile(ctx, id)
	default:
		err = s.backend.DeleteEntity(ctx, tab.kind(), id)
	}
	if err != nil {
		return Table{}, s.failed("delete", tab, id, err)
	}
	s.logger.Info("deleted entry", "tab", tab.String(), "id", id)
	return s.Load(ctx, tab)
}

// ToggleSuperuser flips the privilege flag of a user and reloads the users tab.
func (s *Service) ToggleSuperuser(ctx context.Context, id int64, current bool) (Table, error) {
	if id <= 0 {
		return Table{}, &ValidationError{Field: "id", Message: "select a user first"}
	}
	if err := s.backend.AdminSetSuperuser(ctx, id, !current); err != nil {
		return Table{}, s.failed("toggle superuser", TabUsers, id, err)
	}
	s.logger.Info("toggled superuser", "id", id, "superuser", !current)
	return s.Load(ctx, TabUsers)
}

// DeletePrompt is the confirmation question for deleting an entry.
func DeletePrompt(tab Tab, id int64, label string) string {
	noun := tab.noun()
	if label = strings.TrimSpace(label); label != "" {
		return fmt.Sprintf("Delete %s %q (#%d)?", noun, label, id)
	}
	return fmt.Sprintf("Delete %s #%d?", noun, id)
}

func (s *Service) failed(op string, tab Tab, id int64, err error) error {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return err
	}
	s.logger.Warn("admin operation failed", "op", op, "tab", tab.String(), "id", id, "error", err)
	return fmt.Errorf("%s %s: %w", op, tab.noun(), err)
}

func userFromValues(values Values) (api.NewUser, error) {
	user := api.NewUser{
		Username:        values.Get("username"),
		Email:           values.Get("email"),
		Password:        values["password"],
		ConfirmPassword: values["confirm_password"],
	}
	if user.Password != user.ConfirmPassword {
		return api.NewUser{}, &ValidationError{Field: "confirm_password", Message: "passwords do not match"}
	}
	flag, err := parseFlag(values.Get("is_superuser"))
	if err != nil {
		return api.NewUser{}, &ValidationError{Field: "is_superuser", Message: "Superuser must be y or n"}
	}
	user.IsSuperuser = flag
	return user, nil
}

func trackFromValues(values Values) (api.Track, api.UploadFile, error) {
	var track api.Track
	track.Title = values.Get("title")

	artist, err := parseID(values.Get("artist"))
	if err != nil {
		return api.Track{}, api.UploadFile{}, &ValidationError{Field: "artist", Message: "Artist id must be a positive number"}
	}
	track.Artist = artist
	for key, dest := range map[string]**int64{"genre": &track.Genre, "mood": &track.Mood} {
		raw := values.Get(key)
		if raw == "" {
			continue
		}
		id, err := parseID(raw)
		if err != nil {
			return api.Track{}, api.UploadFile{}, &ValidationError{Field: key, Message: key + " id must be a positive number"}
		}
		*dest = &id
	}
	if track.BPM, err = strconv.Atoi(values.Get("bpm")); err != nil || track.BPM < 0 {
		return api.Track{}, api.UploadFile{}, &ValidationError{Field: "bpm", Message: "BPM must be a whole number"}
	}
	if track.Duration, err = strconv.ParseFloat(values.Get("duration"), 64); err != nil || track.Duration < 0 {
		return api.Track{}, api.UploadFile{}, &ValidationError{Field: "duration", Message: "Duration must be a number of seconds"}
	}

	var audio api.UploadFile
	if path := values.Get("file"); path != "" {
		if !audiofile.Allowed(path) {
			return api.Track{}, api.UploadFile{}, &ValidationError{Field: "file", Message: "only MP3/WAV allowed"}
		}
		info, err := audiofile.Inspect(path)
		if err != nil {
			return api.Track{}, api.UploadFile{}, &ValidationError{Field: "file", Message: err.Error()}
		}
		audio = api.UploadFile{Path: path, Name: info.Name, ContentType: info.ContentType}
	}
	return track, audio, nil
}

func analysisFromValues(values Values) (api.Analysis, error) {
	track, err := parseID(values.Get("track"))
	if err != nil {
		return api.Analysis{}, &ValidationError{Field: "track", Message: "Track id must be a positive number"}
	}
	analysis := api.Analysis{Track: track}
	if raw := values.Get("details"); raw != "" {
		if !json.Valid([]byte(raw)) {
			return api.Analysis{}, &ValidationError{Field: "details", Message: "Details must be valid JSON"}
		}
		analysis.Details = json.RawMessage(raw)
	}
	return analysis, nil
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, fmt.Errorf("id must be positive")
	}
	return id, nil
}

func parseFlag(raw string) (bool, error) {
	switch strings.ToLower(raw) {
	case "", "n", "no", "false", "0":
		return false, nil
	case "y", "yes", "true", "1":
		return true, nil
	}
	return false, fmt.Errorf("invalid flag %q", raw)
}
