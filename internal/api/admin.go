package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
)

// AdminDashboard returns site-wide counters and recent activity.
func (c *Client) AdminDashboard(ctx context.Context) (Dashboard, error) {
	var out Dashboard
	if _, err := c.send(ctx, request{method: http.MethodGet, path: "/api/admin/dashboard/", auth: true}, &out); err != nil {
		return Dashboard{}, err
	}
	return out, nil
}

// AdminModelStats returns catalog counters and recent catalog entries.
func (c *Client) AdminModelStats(ctx context.Context) (ModelStats, error) {
	var out ModelStats
	if _, err := c.send(ctx, request{method: http.MethodGet, path: "/api/admin/model-stats/", auth: true}, &out); err != nil {
		return ModelStats{}, err
	}
	return out, nil
}

// AdminListUsers returns every account.
func (c *Client) AdminListUsers(ctx context.Context) ([]User, error) {
	var out []User
	if _, err := c.send(ctx, request{method: http.MethodGet, path: "/api/admin/users/", auth: true}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AdminCreateUser creates an account, optionally privileged.
func (c *Client) AdminCreateUser(ctx context.Context, user NewUser) (User, error) {
	var out User
	if _, err := c.send(ctx, request{method: http.MethodPost, path: "/api/admin/users/", body: user, auth: true}, &out); err != nil {
		return User{}, err
	}
	return out, nil
}

// AdminSetSuperuser flips the privilege flag of an account.
func (c *Client) AdminSetSuperuser(ctx context.Context, id int64, superuser bool) error {
	body := map[string]bool{"is_superuser": superuser}
	_, err := c.send(ctx, request{method: http.MethodPatch, path: adminUserPath(id), body: body, auth: true}, nil)
	return err
}

// AdminDeleteUser removes an account.
func (c *Client) AdminDeleteUser(ctx context.Context, id int64) error {
	_, err := c.send(ctx, request{method: http.MethodDelete, path: adminUserPath(id), auth: true}, nil)
	return err
}

// AdminListFiles returns every upload across users.
func (c *Client) AdminListFiles(ctx context.Context) ([]UploadedAsset, error) {
	var out []UploadedAsset
	if _, err := c.send(ctx, request{method: http.MethodGet, path: "/api/admin/files/", auth: true}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AdminDeleteFile removes any user's upload.
func (c *Client) AdminDeleteFile(ctx context.Context, id int64) error {
	_, err := c.send(ctx, request{method: http.MethodDelete, path: fmt.Sprintf("/api/admin/files/%d/", id), auth: true}, nil)
	return err
}

// ListEntities decodes a catalog collection into dest (a pointer to a slice).
func (c *Client) ListEntities(ctx context.Context, kind Kind, dest any) error {
	if !kind.Valid() {
		return fmt.Errorf("unknown catalog kind %q", kind)
	}
	_, err := c.send(ctx, request{method: http.MethodGet, path: crudPath(kind, 0), auth: true}, dest)
	return err
}

// CreateEntity posts body as a new catalog entry and decodes the result.
func (c *Client) CreateEntity(ctx context.Context, kind Kind, body any, dest any) error {
	if !kind.Valid() {
		return fmt.Errorf("unknown catalog kind %q", kind)
	}
	_, err := c.send(ctx, request{method: http.MethodPost, path: crudPath(kind, 0), body: body, auth: true}, dest)
	return err
}

// UpdateEntity replaces a catalog entry.
func (c *Client) UpdateEntity(ctx context.Context, kind Kind, id int64, body any, dest any) error {
	if !kind.Valid() {
		return fmt.Errorf("unknown catalog kind %q", kind)
	}
	if id <= 0 {
		return fmt.Errorf("%s id required", kind)
	}
	_, err := c.send(ctx, request{method: http.MethodPut, path: crudPath(kind, id), body: body, auth: true}, dest)
	return err
}

// DeleteEntity removes a catalog entry.
func (c *Client) DeleteEntity(ctx context.Context, kind Kind, id int64) error {
	if !kind.Valid() {
		return fmt.Errorf("unknown catalog kind %q", kind)
	}
	if id <= 0 {
		return fmt.Errorf("%s id required", kind)
	}
	_, err := c.send(ctx, request{method: http.MethodDelete, path: crudPath(kind, id), auth: true}, nil)
	return err
}

// CreateTrack creates a catalog track. The track endpoint only accepts
// multipart bodies; the audio file is attached when audio.Path is set.
func (c *Client) CreateTrack(ctx context.Context, track Track, audio UploadFile) (Track, error) {
	var out Track
	if _, err := c.send(ctx, request{
		method: http.MethodPost,
		path:   crudPath(KindTracks, 0),
		form:   fileForm(trackFields(track), "file", audio),
		auth:   true,
	}, &out); err != nil {
		return Track{}, err
	}
	return out, nil
}

// UpdateTrack replaces a catalog track using the same multipart encoding.
func (c *Client) UpdateTrack(ctx context.Context, id int64, track Track, audio UploadFile) (Track, error) {
	if id <= 0 {
		return Track{}, fmt.Errorf("%s id required", KindTracks)
	}
	var out Track
	if _, err := c.send(ctx, request{
		method: http.MethodPut,
		path:   crudPath(KindTracks, id),
		form:   fileForm(trackFields(track), "file", audio),
		auth:   true,
	}, &out); err != nil {
		return Track{}, err
	}
	return out, nil
}

func trackFields(track Track) map[string]string {
	fields := map[string]string{
		"title":    track.Title,
		"artist":   strconv.FormatInt(track.Artist, 10),
		"bpm":      strconv.Itoa(track.BPM),
		"duration": strconv.FormatFloat(track.Duration, 'f', -1, 64),
	}
	if track.Genre != nil {
		fields["genre"] = strconv.FormatInt(*track.Genre, 10)
	}
	if track.Mood != nil {
		fields["mood"] = strconv.FormatInt(*track.Mood, 10)
	}
	return fields
}

func adminUserPath(id int64) string {
	return fmt.Sprintf("/api/admin/users/%d/", id)
}

func crudPath(kind Kind, id int64) string {
	if id > 0 {
		return fmt.Sprintf("/api/admin/crud/%s/%d/", kind, id)
	}
	return fmt.Sprintf("/api/admin/crud/%s/", kind)
}
