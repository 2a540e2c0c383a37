package logtail

import (
	"fmt"
	"os"
	"path/filepath"
	"log/slog"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestRead(t *testing.T) {
	// Create a temporary log file
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "test.log")

	// Write 10 lines of content
	var content strings.Builder
	var expectedAll []string
	for i := 1; i <= 10; i++ {
		line := fmt.Sprintf("Line %d", i)
		content.WriteString(line + "\n")
		expectedAll = append(expectedAll, line)
	}

	if err := os.WriteFile(logPath, []byte(content.String()), 0644); err != nil {
		t.Fatalf("failed to create test log file: %v", err)
	}

	tests := []struct {
		name     string
		maxLines int
		expected []string
	}{
		{
			name:     "read all (0)",
			maxLines: 0,
			expected: expectedAll,
		},
		{
			name:     "read all (negative)",
			maxLines: -1,
			expected: expectedAll,
		},
		{
			name:     "read partial (5)",
			maxLines: 5,
			expected: expectedAll[5:],
		},
		{
			name:     "read exactly all (10)",
			maxLines: 10,
			expected: expectedAll,
		},
		{
			name:     "read more than exists (20)",
			maxLines: 20,
			expected: expectedAll,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Read(logPath, tt.maxLines)
			if err != nil {
				t.Fatalf("Read() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Read() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestRead_MissingFile(t *testing.T) {
	lines, err := Read(filepath.Join(t.TempDir(), "nope.log"), 10)
	if err != nil {
		t.Fatalf("Read returned error: %v", err)
	}
	if lines != nil {
		t.Fatalf("Read = %v, want nil", lines)
	}
}

func TestParse(t *testing.T) {
	line := `time=2026-10-19T10:00:00.5Z level=WARN msg="status poll failed" component=recognize asset=42 error="decode response: unexpected EOF"`
	rec := Parse(line)

	if !rec.Structured {
		t.Fatalf("Structured = false, want true")
	}
	want := time.Date(2026, 10, 19, 10, 0, 0, 500_000_000, time.UTC)
	if !rec.Time.Equal(want) {
		t.Fatalf("Time = %v, want %v", rec.Time, want)
	}
	if rec.Level != "WARN" || rec.Message != "status poll failed" || rec.Component != "recognize" {
		t.Fatalf("record = %#v", rec)
	}
	wantAttrs := []Attr{
		{Key: "asset", Value: "42"},
		{Key: "error", Value: "decode response: unexpected EOF"},
	}
	if !reflect.DeepEqual(rec.Attrs, wantAttrs) {
		t.Fatalf("Attrs = %#v, want %#v", rec.Attrs, wantAttrs)
	}
}

func TestParse_UnstructuredLine(t *testing.T) {
	for _, line := range []string{
		"panic: runtime error",
		"goroutine 1 [running]:",
		`msg="unterminated`,
		"a=1 b=2",
	} {
		rec := Parse(line)
		if rec.Structured {
			t.Fatalf("Parse(%q).Structured = true, want false", line)
		}
		if rec.Message != line || rec.Raw != line {
			t.Fatalf("Parse(%q) = %#v, want raw passthrough", line, rec)
		}
	}
}

func TestFilter(t *testing.T) {
	records := []Record{
		Parse("time=2026-10-19T10:00:00Z level=DEBUG msg=a component=api"),
		Parse("time=2026-10-19T10:00:01Z level=INFO msg=b component=recognize"),
		Parse("time=2026-10-19T10:00:02Z level=ERROR msg=c component=api"),
		Parse("stray output"),
	}

	got := Filter(records, slog.LevelInfo, "")
	if len(got) != 3 {
		t.Fatalf("Filter(info) kept %d records, want 3", len(got))
	}

	got = Filter(records, slog.LevelDebug, "API")
	var msgs []string
	for _, r := range got {
		msgs = append(msgs, r.Message)
	}
	if !reflect.DeepEqual(msgs, []string{"a", "c"}) {
		t.Fatalf("Filter(api) = %v, want [a c]", msgs)
	}
}

func TestReadRecords_SkipsBlankLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "melocuore.log")
	body := "time=2026-10-19T10:00:00Z level=INFO msg=one\n\ntime=2026-10-19T10:00:01Z level=INFO msg=two\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	records, err := ReadRecords(path, 0)
	if err != nil {
		t.Fatalf("ReadRecords returned error: %v", err)
	}
	if len(records) != 2 || records[1].Message != "two" {
		t.Fatalf("records = %#v, want two parsed records", records)
	}
}
