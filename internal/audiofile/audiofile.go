// Package audiofile inspects local audio files before they are uploaded.
package audiofile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"
	"github.com/gabriel-vasile/mimetype"
)

// Info summarizes a local audio file.
type Info struct {
	Path        string
	Name        string
	Size        int64
	ContentType string
	Title       string
	Artist      string
	Album       string
	// TagError is set when tags were present but unreadable. It is not fatal.
	TagError error
}

var allowed = map[string]string{
	".mp3": "audio/mpeg",
	".wav": "audio/wav",
}

// Allowed reports whether name has an accepted audio extension. The check is
// case-insensitive and looks only at the name.
func Allowed(name string) bool {
	_, ok := allowed[strings.ToLower(filepath.Ext(strings.TrimSpace(name)))]
	return ok
}

// Inspect stats path, sniffs its content type and reads embedded tags when
// the file carries any.
func Inspect(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, fmt.Errorf("open audio: %w", err)
	}
	defer func() { _ = f.Close() }()

	stat, err := f.Stat()
	if err != nil {
		return Info{}, fmt.Errorf("stat audio: %w", err)
	}
	if stat.IsDir() {
		return Info{}, fmt.Errorf("%s is a directory", path)
	}

	info := Info{
		Path: path,
		Name: filepath.Base(path),
		Size: stat.Size(),
	}

	mime, err := mimetype.DetectReader(f)
	if err != nil {
		return Info{}, fmt.Errorf("detect content type: %w", err)
	}
	info.ContentType = contentType(info.Name, mime)

	if _, err := f.Seek(0, 0); err != nil {
		return Info{}, fmt.Errorf("rewind audio: %w", err)
	}
	meta, err := tag.ReadFrom(f)
	if err != nil {
		if !errors.Is(err, tag.ErrNoTagsFound) {
			info.TagError = err
		}
		return info, nil
	}
	info.Title = strings.TrimSpace(meta.Title())
	info.Artist = strings.TrimSpace(meta.Artist())
	info.Album = strings.TrimSpace(meta.Album())
	return info, nil
}

// Label returns "Artist - Title" from the embedded tags, or the file name.
func (i Info) Label() string {
	switch {
	case i.Title != "" && i.Artist != "":
		return i.Artist + " - " + i.Title
	case i.Title != "":
		return i.Title
	}
	return i.Name
}

func contentType(name string, mime *mimetype.MIME) string {
	for m := mime; m != nil; m = m.Parent() {
		if strings.HasPrefix(m.String(), "audio/") {
			return m.String()
		}
	}
	if ct, ok := allowed[strings.ToLower(filepath.Ext(name))]; ok {
		return ct
	}
	return mime.String()
}
