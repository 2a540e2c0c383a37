package recognize

import (
	"strings"
	"testing"

	"github.com/five82/melocuore/internal/api"
)

func TestPresentSelectsSource(t *testing.T) {
	local := &api.TrackMatch{Title: "Clocks", Artist: "Coldplay", Genre: "Rock", Mood: "Calm"}
	external := &api.ExternalMatch{Title: "Clocks (Remastered)", Artist: "Coldplay", SpotifyID: "abc", Album: "A Rush of Blood"}

	tests := []struct {
		name   string
		res    api.RecognitionResult
		source Source
		title  string
		spot   string
	}{
		{"local only", api.RecognitionResult{Track: local}, SourceLocal, "Clocks", ""},
		{"external only", api.RecognitionResult{External: external}, SourceExternal, "Clocks (Remastered)", "abc"},
		{"both", api.RecognitionResult{Track: local, External: external}, SourceBoth, "Clocks", "abc"},
		{"empty", api.RecognitionResult{}, SourceNone, "", ""},
		{"blank local", api.RecognitionResult{Track: &api.TrackMatch{}, External: external}, SourceExternal, "Clocks (Remastered)", "abc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Present(tt.res)
			if v.Source != tt.source || v.Title != tt.title || v.SpotifyID != tt.spot {
				t.Fatalf("view = %v %q %q, want %v %q %q", v.Source, v.Title, v.SpotifyID, tt.source, tt.title, tt.spot)
			}
		})
	}
}

func TestPresentAgreement(t *testing.T) {
	local := &api.TrackMatch{Title: "Clocks", Artist: "Coldplay"}

	v := Present(api.RecognitionResult{Track: local, External: &api.ExternalMatch{Title: "Clocks (Live)", Artist: "coldplay "}})
	if !v.Agreement.Checked || !v.Agreement.Match {
		t.Fatalf("agreement = %#v, want match", v.Agreement)
	}
	if v.Agreement.TitleScore != 1 {
		t.Fatalf("TitleScore = %v, want 1 after normalization", v.Agreement.TitleScore)
	}

	v = Present(api.RecognitionResult{Track: local, External: &api.ExternalMatch{Title: "Yellow Submarine", Artist: "The Beatles"}})
	if !v.Agreement.Checked || v.Agreement.Match {
		t.Fatalf("agreement = %#v, want mismatch", v.Agreement)
	}

	no := false
	v = Present(api.RecognitionResult{
		Track:      local,
		External:   &api.ExternalMatch{Title: "Clocks", Artist: "Coldplay"},
		Comparison: &api.Comparison{Match: &no, TitleSimilarity: 0.4},
	})
	if v.Agreement.Match || !v.Agreement.FromBackend || v.Agreement.TitleScore != 0.4 {
		t.Fatalf("agreement = %#v, want backend verdict", v.Agreement)
	}
}

func TestHeadline(t *testing.T) {
	tests := []struct {
		view View
		want string
	}{
		{View{Title: "X", Artist: "Y", Confidence: 0.92, HasConfidence: true}, "X by Y, 92% confidence"},
		{View{Title: "X", Artist: "Y"}, "X by Y"},
		{View{Title: "X"}, "X"},
		{View{}, "Unknown track"},
	}
	for _, tt := range tests {
		if got := tt.view.Headline(); got != tt.want {
			t.Errorf("Headline() = %q, want %q", got, tt.want)
		}
	}
}

func TestConfidenceAsPercent(t *testing.T) {
	c := 87.0
	v := Present(api.RecognitionResult{Confidence: &c, Track: &api.TrackMatch{Title: "X", Artist: "Y"}})
	if v.Percent() != 87 {
		t.Fatalf("Percent = %d, want 87", v.Percent())
	}
}

func TestDescribeFound(t *testing.T) {
	local := &api.TrackMatch{Title: "Clocks", Artist: "Coldplay", Genre: "Rock"}
	external := &api.ExternalMatch{Title: "Other", Artist: "Someone", SpotifyID: "abc"}
	view := Present(api.RecognitionResult{Track: local, External: external})
	lines := Describe(Outcome{State: StateFound, Message: view.Headline(), View: view})

	text := strings.Join(lines, "\n")
	for _, want := range []string{"Clocks by Coldplay", "Source: catalog+external", "Genre: Rock", "open.spotify.com/track/abc", "disagree (external: Other by Someone)"} {
		if !strings.Contains(text, want) {
			t.Fatalf("Describe output missing %q:\n%s", want, text)
		}
	}
}

func TestDescribeNotFound(t *testing.T) {
	lines := Describe(Outcome{State: StateNotFound, Message: "Track not found", Detail: "No match in catalog"})
	if len(lines) != 2 || lines[1] != "No match in catalog" {
		t.Fatalf("lines = %v, want message and detail", lines)
	}
}
