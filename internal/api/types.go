package api

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

const backendTimestampLayout = "2006-01-02 15:04:05"

// TokenPair mirrors /api/token/ and /api/token/refresh/ responses.
// Refresh is empty when the backend does not rotate refresh tokens.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

// Registration is the /api/user/register/ request body.
type Registration struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// UploadedAsset describes a stored audio upload.
type UploadedAsset struct {
	ID          int64              `json:"id"`
	File        string             `json:"file"`
	Name        string             `json:"name"`
	ContentType string             `json:"content_type"`
	Size        int64              `json:"size"`
	UploadedAt  string             `json:"uploaded_at"`
	Preview     *RecognitionResult `json:"recognition_preview,omitempty"`
}

// ParsedUploadedAt returns the upload timestamp as time.Time when possible.
func (a UploadedAsset) ParsedUploadedAt() time.Time {
	return ParseTime(a.UploadedAt)
}

// RecognitionStatus is the lifecycle state reported by the recognition backend.
type RecognitionStatus string

const (
	StatusProcessing RecognitionStatus = "processing"
	StatusFound      RecognitionStatus = "found"
	StatusNotFound   RecognitionStatus = "not_found"
	StatusError      RecognitionStatus = "error"
)

// Normalize lowercases and trims the status value.
func (s RecognitionStatus) Normalize() RecognitionStatus {
	return RecognitionStatus(strings.ToLower(strings.TrimSpace(string(s))))
}

// Terminal reports whether no further polling can change the outcome.
func (s RecognitionStatus) Terminal() bool {
	switch s.Normalize() {
	case StatusFound, StatusNotFound, StatusError:
		return true
	}
	return false
}

// RecognitionResult mirrors /api/recognition-status/{id}/ and the
// recognition_preview embedded in upload responses.
type RecognitionResult struct {
	Status         RecognitionStatus `json:"status"`
	Track          *TrackMatch       `json:"track,omitempty"`
	Confidence     *float64          `json:"confidence,omitempty"`
	ProcessingTime *float64          `json:"processing_time,omitempty"`
	RecognitionID  *FlexID           `json:"recognition_id,omitempty"`
	External       *ExternalMatch    `json:"audd_identified,omitempty"`
	Comparison     *Comparison       `json:"comparison,omitempty"`
	Message        string            `json:"message,omitempty"`
	Error          string            `json:"error,omitempty"`
	QuotaExceeded  bool              `json:"quota_exceeded,omitempty"`
}

// TrackMatch is a track from the local catalog that matched the sample.
type TrackMatch struct {
	ID       *FlexID `json:"id,omitempty"`
	Title    string  `json:"title"`
	Artist   string  `json:"artist"`
	Genre    string  `json:"genre,omitempty"`
	Mood     string  `json:"mood,omitempty"`
	BPM      int     `json:"bpm,omitempty"`
	Duration float64 `json:"duration,omitempty"`
}

// ExternalMatch is an identification from the external recognition service.
type ExternalMatch struct {
	Title         string `json:"title"`
	Artist        string `json:"artist"`
	Album         string `json:"album,omitempty"`
	ReleaseDate   string `json:"release_date,omitempty"`
	Genre         string `json:"genre,omitempty"`
	SpotifyID     string `json:"spotify_id,omitempty"`
	AppleMusicURL string `json:"apple_music_url,omitempty"`
}

// Comparison is the backend's own verdict on local vs external agreement.
type Comparison struct {
	Match            *bool   `json:"match,omitempty"`
	TitleSimilarity  float64 `json:"title_similarity,omitempty"`
	ArtistSimilarity float64 `json:"artist_similarity,omitempty"`
}

// AnalysisRecord is a persisted recognition outcome.
type AnalysisRecord struct {
	ID             int64   `json:"id,omitempty"`
	UploadedFile   int64   `json:"uploaded_file"`
	Track          *int64  `json:"track"`
	Title          string  `json:"title"`
	Artist         string  `json:"artist"`
	Genre          string  `json:"genre"`
	Mood           string  `json:"mood"`
	SpotifyID      string  `json:"spotify_id"`
	AppleMusicURL  string  `json:"apple_music_url"`
	Confidence     float64 `json:"confidence"`
	ProcessingTime float64 `json:"processing_time"`
	User           int64   `json:"user"`
	CreatedAt      string  `json:"created_at,omitempty"`
}

// ParsedCreatedAt returns the record timestamp as time.Time when possible.
func (r AnalysisRecord) ParsedCreatedAt() time.Time {
	return ParseTime(r.CreatedAt)
}

// User mirrors the admin user serializer.
type User struct {
	ID          int64  `json:"id"`
	Username    string `json:"username"`
	Email       string `json:"email,omitempty"`
	IsSuperuser bool   `json:"is_superuser"`
	DateJoined  string `json:"date_joined,omitempty"`
}

// NewUser is the admin user creation body.
type NewUser struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	IsSuperuser     bool   `json:"is_superuser"`
}

// Dashboard mirrors /api/admin/dashboard/.
type Dashboard struct {
	UsersCount    int             `json:"users_count"`
	FilesCount    int             `json:"files_count"`
	StorageUsedMB float64         `json:"storage_used_mb"`
	RecentUsers   []User          `json:"recent_users"`
	RecentFiles   []UploadedAsset `json:"recent_files"`
}

// ModelStats mirrors /api/admin/model-stats/.
type ModelStats struct {
	ArtistsCount  int      `json:"artists_count"`
	GenresCount   int      `json:"genres_count"`
	MoodsCount    int      `json:"moods_count"`
	TracksCount   int      `json:"tracks_count"`
	AnalysesCount int      `json:"analyses_count"`
	RecentArtists []Artist `json:"recent_artists"`
	RecentTracks  []Track  `json:"recent_tracks"`
}

// Kind names a catalog collection under /api/admin/crud/.
type Kind string

const (
	KindArtists  Kind = "artists"
	KindGenres   Kind = "genres"
	KindMoods    Kind = "moods"
	KindTracks   Kind = "tracks"
	KindAnalyses Kind = "analyses"
)

// Valid reports whether k is a known catalog collection.
func (k Kind) Valid() bool {
	switch k {
	case KindArtists, KindGenres, KindMoods, KindTracks, KindAnalyses:
		return true
	}
	return false
}

// Artist is a catalog artist.
type Artist struct {
	ID        int64  `json:"id,omitempty"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at,omitempty"`
}

// Genre is a catalog genre.
type Genre struct {
	ID   int64  `json:"id,omitempty"`
	Name string `json:"name"`
}

// Mood is a catalog mood.
type Mood struct {
	ID   int64  `json:"id,omitempty"`
	Name string `json:"name"`
}

// Track is a catalog track. Artist, Genre and Mood are references by id.
type Track struct {
	ID        int64   `json:"id,omitempty"`
	Title     string  `json:"title"`
	Artist    int64   `json:"artist"`
	Genre     *int64  `json:"genre"`
	Mood      *int64  `json:"mood"`
	Duration  float64 `json:"duration"`
	BPM       int     `json:"bpm"`
	File      string  `json:"file,omitempty"`
	CreatedAt string  `json:"created_at,omitempty"`
}

// Analysis is a catalog analysis attached to a track.
type Analysis struct {
	ID         int64           `json:"id,omitempty"`
	Track      int64           `json:"track"`
	AnalyzedAt string          `json:"analyzed_at,omitempty"`
	Details    json.RawMessage `json:"details,omitempty"`
}

// FlexID decodes identifiers the backend may send as numbers or strings.
type FlexID int64

// UnmarshalJSON accepts 42 and "42".
func (f *FlexID) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if raw == "" || raw == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return err
	}
	*f = FlexID(v)
	return nil
}

// Int64 returns the identifier value.
func (f *FlexID) Int64() (int64, bool) {
	if f == nil || *f == 0 {
		return 0, false
	}
	return int64(*f), true
}

// ParseTime reads the timestamp formats the backend emits. It returns the zero
// time for empty or unrecognized values.
func ParseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	if t, err := time.ParseInLocation(backendTimestampLayout, value, time.Local); err == nil {
		return t
	}
	return time.Time{}
}
