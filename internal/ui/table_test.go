package ui

import "testing"

func TestLayoutColumnsGivesFlexTheRest(t *testing.T) {
	cols := []column{
		{title: "ID", width: 6},
		{title: "Name", flex: true},
		{title: "Size", width: 10},
	}
	got := layoutColumns(cols, 60)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	// 60 - 6 - 10 - 2 gaps
	if got[1].width != 42 {
		t.Fatalf("flex width = %d, want 42", got[1].width)
	}
	if cols[1].width != 0 {
		t.Fatalf("input columns were modified")
	}
}

func TestLayoutColumnsDropsFixedColumnsWhenNarrow(t *testing.T) {
	cols := []column{
		{title: "ID", width: 6},
		{title: "Name", flex: true},
		{title: "Type", width: 12},
		{title: "Uploaded", width: 16},
	}
	got := layoutColumns(cols, 40)
	for _, c := range got {
		if c.title == "Uploaded" {
			t.Fatalf("expected the last fixed column to be dropped, got %+v", got)
		}
	}
	for _, c := range got {
		if c.flex && c.width < 12 {
			t.Fatalf("flex width = %d, want at least 12", c.width)
		}
	}
}

func TestWindow(t *testing.T) {
	tests := []struct {
		name               string
		n, cursor, height  int
		wantStart, wantEnd int
	}{
		{"fits", 5, 3, 10, 0, 5},
		{"top", 100, 0, 10, 0, 10},
		{"middle", 100, 50, 10, 45, 55},
		{"bottom", 100, 99, 10, 90, 100},
		{"zero height", 7, 2, 0, 0, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := window(tt.n, tt.cursor, tt.height)
			if start != tt.wantStart || end != tt.wantEnd {
				t.Fatalf("window(%d, %d, %d) = %d, %d; want %d, %d",
					tt.n, tt.cursor, tt.height, start, end, tt.wantStart, tt.wantEnd)
			}
		})
	}
}

func TestClampCursor(t *testing.T) {
	tests := []struct{ cursor, n, want int }{
		{-1, 5, 0},
		{2, 5, 2},
		{9, 5, 4},
		{3, 0, 0},
	}
	for _, tt := range tests {
		if got := clampCursor(tt.cursor, tt.n); got != tt.want {
			t.Errorf("clampCursor(%d, %d) = %d, want %d", tt.cursor, tt.n, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("hello world", 5); got != "hell…" {
		t.Fatalf("truncate = %q, want %q", got, "hell…")
	}
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("truncate = %q, want unchanged", got)
	}
}

func TestConfidenceText(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, ""},
		{0.92, "92%"},
		{87, "87%"},
	}
	for _, tt := range tests {
		if got := confidenceText(tt.in); got != tt.want {
			t.Errorf("confidenceText(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
