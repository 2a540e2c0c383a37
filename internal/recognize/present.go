package recognize

import (
	"fmt"
	"math"
	"strings"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"

	"github.com/five82/melocuore/internal/api"
)

// AgreementThreshold is the Jaro-Winkler score at which a local title or
// artist is considered the same as the external one.
const AgreementThreshold = 0.85

// Source names where the displayed identification came from.
type Source int

const (
	SourceNone Source = iota
	SourceLocal
	SourceExternal
	SourceBoth
)

func (s Source) String() string {
	switch s {
	case SourceLocal:
		return "catalog"
	case SourceExternal:
		return "external"
	case SourceBoth:
		return "catalog+external"
	default:
		return "none"
	}
}

// Agreement compares the local and external identifications.
type Agreement struct {
	Checked     bool
	Match       bool
	TitleScore  float64
	ArtistScore float64
	// FromBackend is set when the backend supplied the verdict.
	FromBackend bool
}

// View is the display model of a found result.
type View struct {
	Source         Source
	Title          string
	Artist         string
	Album          string
	Genre          string
	Mood           string
	SpotifyID      string
	AppleMusicURL  string
	Confidence     float64
	HasConfidence  bool
	ProcessingTime float64
	Local          *api.TrackMatch
	External       *api.ExternalMatch
	Agreement      Agreement
}

// Present derives the view model of a recognition result. Catalog fields win
// for title and artist; the external match supplies platform identifiers.
func Present(res api.RecognitionResult) View {
	v := View{Local: res.Track, External: res.External}
	if res.Confidence != nil {
		v.Confidence = normalizeConfidence(*res.Confidence)
		v.HasConfidence = true
	}
	if res.ProcessingTime != nil {
		v.ProcessingTime = *res.ProcessingTime
	}

	local, external := res.Track, res.External
	if local != nil && strings.TrimSpace(local.Title) == "" {
		local = nil
	}
	if external != nil && strings.TrimSpace(external.Title) == "" {
		external = nil
	}

	switch {
	case local != nil && external != nil:
		v.Source = SourceBoth
		v.Agreement = agree(local, external, res.Comparison)
	case local != nil:
		v.Source = SourceLocal
	case external != nil:
		v.Source = SourceExternal
	}

	if external != nil {
		v.Title, v.Artist = external.Title, external.Artist
		v.Album = external.Album
		v.Genre = external.Genre
		v.SpotifyID = external.SpotifyID
		v.AppleMusicURL = external.AppleMusicURL
	}
	if local != nil {
		v.Title, v.Artist = local.Title, local.Artist
		if local.Genre != "" {
			v.Genre = local.Genre
		}
		v.Mood = local.Mood
	}
	return v
}

func agree(local *api.TrackMatch, external *api.ExternalMatch, cmp *api.Comparison) Agreement {
	if cmp != nil && cmp.Match != nil {
		return Agreement{
			Checked:     true,
			Match:       *cmp.Match,
			TitleScore:  cmp.TitleSimilarity,
			ArtistScore: cmp.ArtistSimilarity,
			FromBackend: true,
		}
	}
	title := similarity(local.Title, external.Title)
	artist := similarity(local.Artist, external.Artist)
	return Agreement{
		Checked:     true,
		Match:       title >= AgreementThreshold && artist >= AgreementThreshold,
		TitleScore:  title,
		ArtistScore: artist,
	}
}

func similarity(a, b string) float64 {
	a, b = normalizeName(a), normalizeName(b)
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	return strutil.Similarity(a, b, metrics.NewJaroWinkler())
}

// normalizeName lowercases, drops bracketed suffixes like "(Remastered)" and
// collapses whitespace.
func normalizeName(s string) string {
	s = strings.ToLower(s)
	if idx := strings.IndexAny(s, "(["); idx > 0 {
		s = s[:idx]
	}
	return strings.Join(strings.Fields(s), " ")
}

// normalizeConfidence maps backend scores to 0..1; values above 1 are
// treated as percentages.
func normalizeConfidence(c float64) float64 {
	if c > 1 {
		c /= 100
	}
	return math.Max(0, math.Min(1, c))
}

// Percent returns the confidence as a rounded percentage.
func (v View) Percent() int {
	return int(math.Round(v.Confidence * 100))
}

// Headline renders "Title by Artist, 92% confidence".
func (v View) Headline() string {
	title := strings.TrimSpace(v.Title)
	if title == "" {
		title = "Unknown track"
	}
	line := title
	if artist := strings.TrimSpace(v.Artist); artist != "" {
		line += " by " + artist
	}
	if v.HasConfidence {
		line += fmt.Sprintf(", %d%% confidence", v.Percent())
	}
	return line
}

// Describe renders an outcome as plain text lines.
func Describe(o Outcome) []string {
	lines := []string{o.Message}
	if o.State != StateFound {
		if o.Detail != "" && o.Detail != o.Message {
			lines = append(lines, o.Detail)
		}
		return lines
	}
	v := o.View
	lines = append(lines, "Source: "+v.Source.String())
	if v.Album != "" {
		lines = append(lines, "Album: "+v.Album)
	}
	if v.Genre != "" {
		lines = append(lines, "Genre: "+v.Genre)
	}
	if v.Mood != "" {
		lines = append(lines, "Mood: "+v.Mood)
	}
	if v.SpotifyID != "" {
		lines = append(lines, "Spotify: https://open.spotify.com/track/"+v.SpotifyID)
	}
	if v.AppleMusicURL != "" {
		lines = append(lines, "Apple Music: "+v.AppleMusicURL)
	}
	if v.Agreement.Checked {
		verdict := "agree"
		if !v.Agreement.Match {
			verdict = fmt.Sprintf("disagree (external: %s by %s)", v.External.Title, v.External.Artist)
		}
		lines = append(lines, fmt.Sprintf("Catalog and external matches %s (title %.2f, artist %.2f)",
			verdict, v.Agreement.TitleScore, v.Agreement.ArtistScore))
	}
	if v.ProcessingTime > 0 {
		lines = append(lines, fmt.Sprintf("Processed in %.1fs", v.ProcessingTime))
	}
	return lines
}

func historyRecord(asset api.UploadedAsset, res api.RecognitionResult, v View, userID int64) api.AnalysisRecord {
	rec := api.AnalysisRecord{
		UploadedFile:   asset.ID,
		Title:          v.Title,
		Artist:         v.Artist,
		Genre:          v.Genre,
		Mood:           v.Mood,
		SpotifyID:      v.SpotifyID,
		AppleMusicURL:  v.AppleMusicURL,
		Confidence:     v.Confidence,
		ProcessingTime: v.ProcessingTime,
		User:           userID,
	}
	if res.Track != nil {
		if id, ok := res.Track.ID.Int64(); ok {
			rec.Track = &id
		}
	}
	return rec
}
