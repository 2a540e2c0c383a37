package admin

import (
	"fmt"
	"strings"

	"github.com/five82/melocuore/internal/api"
)

// Tab is one section of the admin surface.
type Tab int

const (
	TabDashboard Tab = iota
	TabUsers
	TabFiles
	TabArtists
	TabGenres
	TabMoods
	TabTracks
	TabAnalyses
)

// Tabs lists every tab in display order.
func Tabs() []Tab {
	return []Tab{TabDashboard, TabUsers, TabFiles, TabArtists, TabGenres, TabMoods, TabTracks, TabAnalyses}
}

func (t Tab) String() string {
	switch t {
	case TabDashboard:
		return "dashboard"
	case TabUsers:
		return "users"
	case TabFiles:
		return "files"
	case TabArtists:
		return "artists"
	case TabGenres:
		return "genres"
	case TabMoods:
		return "moods"
	case TabTracks:
		return "tracks"
	case TabAnalyses:
		return "analyses"
	default:
		return fmt.Sprintf("tab(%d)", int(t))
	}
}

// Title is the capitalized tab name.
func (t Tab) Title() string {
	s := t.String()
	return strings.ToUpper(s[:1]) + s[1:]
}

// ParseTab accepts a tab name, case-insensitively.
func ParseTab(name string) (Tab, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, t := range Tabs() {
		if t.String() == name {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown admin tab %q", name)
}

// CanCreate reports whether the tab accepts new entries.
func (t Tab) CanCreate() bool {
	switch t {
	case TabDashboard, TabFiles:
		return false
	}
	return true
}

// CanUpdate reports whether entries of the tab can be edited.
func (t Tab) CanUpdate() bool {
	switch t {
	case TabArtists, TabGenres, TabMoods, TabTracks, TabAnalyses:
		return true
	}
	return false
}

// CanDelete reports whether entries of the tab can be removed.
func (t Tab) CanDelete() bool {
	return t != TabDashboard
}

// noun is the singular entry name.
func (t Tab) noun() string {
	if t == TabAnalyses {
		return "analysis"
	}
	return strings.TrimSuffix(t.String(), "s")
}

func (t Tab) kind() api.Kind {
	switch t {
	case TabArtists:
		return api.KindArtists
	case TabGenres:
		return api.KindGenres
	case TabMoods:
		return api.KindMoods
	case TabTracks:
		return api.KindTracks
	case TabAnalyses:
		return api.KindAnalyses
	}
	return ""
}

// Field describes one form input.
type Field struct {
	Key      string
	Label    string
	Required bool
	Secret   bool
	Hint     string
}

// Fields returns the form inputs for creating or editing entries of tab.
func Fields(tab Tab) []Field {
	switch tab {
	case TabUsers:
		return []Field{
			{Key: "username", Label: "Username", Required: true},
			{Key: "email", Label: "Email"},
			{Key: "password", Label: "Password", Required: true, Secret: true},
			{Key: "confirm_password", Label: "Confirm password", Required: true, Secret: true},
			{Key: "is_superuser", Label: "Superuser", Hint: "y/n"},
		}
	case TabArtists, TabGenres, TabMoods:
		return []Field{{Key: "name", Label: "Name", Required: true}}
	case TabTracks:
		return []Field{
			{Key: "title", Label: "Title", Required: true},
			{Key: "artist", Label: "Artist id", Required: true},
			{Key: "genre", Label: "Genre id"},
			{Key: "mood", Label: "Mood id"},
			{Key: "bpm", Label: "BPM", Required: true},
			{Key: "duration", Label: "Duration (s)", Required: true},
			{Key: "file", Label: "Audio file", Hint: ".mp3 or .wav path"},
		}
	case TabAnalyses:
		return []Field{
			{Key: "track", Label: "Track id", Required: true},
			{Key: "details", Label: "Details", Hint: "JSON object"},
		}
	}
	return nil
}

// Values holds form input keyed by Field.Key.
type Values map[string]string

// Get returns the trimmed value for key.
func (v Values) Get(key string) string {
	return strings.TrimSpace(v[key])
}

// ValidationError is a form problem found before any request is sent.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Validate checks that every required field of tab has a value.
func Validate(tab Tab, values Values) error {
	for _, f := range Fields(tab) {
		if f.Required && values.Get(f.Key) == "" {
			return &ValidationError{Field: f.Key, Message: f.Label + " is required"}
		}
	}
	return nil
}
