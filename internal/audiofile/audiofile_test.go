package audiofile

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

func TestAllowed(t *testing.T) {
	cases := map[string]bool{
		"song.mp3":       true,
		"SONG.MP3":       true,
		"take.Wav":       true,
		"song.flac":      false,
		"song.mp3.txt":   false,
		"mp3":            false,
		"":               false,
		" spaced.mp3 ":   true,
		"/tmp/dir/a.wav": true,
	}
	for name, want := range cases {
		if got := Allowed(name); got != want {
			t.Errorf("Allowed(%q) = %v, want %v", name, got, want)
		}
	}
}

func id3Frame(id, text string) []byte {
	body := append([]byte{0}, text...)
	frame := make([]byte, 10, 10+len(body))
	copy(frame, id)
	binary.BigEndian.PutUint32(frame[4:8], uint32(len(body)))
	return append(frame, body...)
}

func syncsafe(n int) []byte {
	return []byte{byte(n >> 21 & 0x7f), byte(n >> 14 & 0x7f), byte(n >> 7 & 0x7f), byte(n & 0x7f)}
}

func writeTaggedMP3(t *testing.T, path string) {
	t.Helper()
	var frames []byte
	frames = append(frames, id3Frame("TIT2", "Song")...)
	frames = append(frames, id3Frame("TPE1", "Band")...)
	frames = append(frames, id3Frame("TALB", "Record")...)

	data := append([]byte("ID3\x03\x00\x00"), syncsafe(len(frames))...)
	data = append(data, frames...)
	data = append(data, 0xFF, 0xFB, 0x90, 0x00)
	data = append(data, make([]byte, 256)...)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestInspectReadsTagsAndType(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tagged.mp3")
	writeTaggedMP3(t, path)

	info, err := Inspect(path)
	if err != nil {
		t.Fatalf("Inspect returned error: %v", err)
	}
	if info.Name != "tagged.mp3" {
		t.Fatalf("Name = %q, want tagged.mp3", info.Name)
	}
	if info.ContentType != "audio/mpeg" {
		t.Fatalf("ContentType = %q, want audio/mpeg", info.ContentType)
	}
	if info.Title != "Song" || info.Artist != "Band" || info.Album != "Record" {
		t.Fatalf("tags = %q/%q/%q, want Song/Band/Record", info.Title, info.Artist, info.Album)
	}
	if info.Label() != "Band - Song" {
		t.Fatalf("Label = %q, want Band - Song", info.Label())
	}
}

func TestInspectWAVWithoutTags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "take.wav")
	header := []byte("RIFF\x24\x00\x00\x00WAVEfmt \x10\x00\x00\x00\x01\x00\x01\x00\x44\xac\x00\x00\x88\x58\x01\x00\x02\x00\x10\x00data\x00\x00\x00\x00")
	if err := os.WriteFile(path, header, 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	info, err := Inspect(path)
	if err != nil {
		t.Fatalf("Inspect returned error: %v", err)
	}
	if info.ContentType != "audio/wav" {
		t.Fatalf("ContentType = %q, want audio/wav", info.ContentType)
	}
	if info.Title != "" || info.Label() != "take.wav" {
		t.Fatalf("Label = %q, want file name", info.Label())
	}
	if info.Size != int64(len(header)) {
		t.Fatalf("Size = %d, want %d", info.Size, len(header))
	}
}

func TestInspectFallsBackToExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "odd.mp3")
	if err := os.WriteFile(path, []byte("hello world"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	info, err := Inspect(path)
	if err != nil {
		t.Fatalf("Inspect returned error: %v", err)
	}
	if info.ContentType != "audio/mpeg" {
		t.Fatalf("ContentType = %q, want audio/mpeg", info.ContentType)
	}
}

func TestInspectMissingFile(t *testing.T) {
	if _, err := Inspect(filepath.Join(t.TempDir(), "missing.mp3")); err == nil {
		t.Fatalf("Inspect returned nil error for missing file")
	}
}
