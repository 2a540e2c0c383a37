package api

import (
	"encoding/json"
	"testing"
	"time"
)

func TestRecognitionStatusTerminal(t *testing.T) {
	cases := map[RecognitionStatus]bool{
		StatusProcessing: false,
		StatusFound:      true,
		" NOT_FOUND ":    true,
		StatusError:      true,
		"queued":         false,
		"":               false,
	}
	for status, want := range cases {
		if got := status.Terminal(); got != want {
			t.Errorf("%q.Terminal() = %v, want %v", status, got, want)
		}
	}
}

func TestFlexIDAcceptsNumbersAndStrings(t *testing.T) {
	var payload struct {
		A *FlexID `json:"a"`
		B *FlexID `json:"b"`
		C *FlexID `json:"c"`
	}
	if err := json.Unmarshal([]byte(`{"a":12,"b":"34","c":null}`), &payload); err != nil {
		t.Fatalf("Unmarshal returned error: %v", err)
	}
	if v, ok := payload.A.Int64(); !ok || v != 12 {
		t.Fatalf("A = %v, want 12", payload.A)
	}
	if v, ok := payload.B.Int64(); !ok || v != 34 {
		t.Fatalf("B = %v, want 34", payload.B)
	}
	if _, ok := payload.C.Int64(); ok {
		t.Fatalf("C should be unset")
	}
	if err := json.Unmarshal([]byte(`{"a":"abc"}`), &payload); err == nil {
		t.Fatalf("Unmarshal returned nil error for non-numeric id")
	}
}

func TestAnalysisRecordEncodesNullTrack(t *testing.T) {
	data, err := json.Marshal(AnalysisRecord{UploadedFile: 4, Title: "X", User: 9})
	if err != nil {
		t.Fatalf("Marshal returned error: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal returned error: %v", err)
	}
	if v, ok := decoded["track"]; !ok || v != nil {
		t.Fatalf("track = %v (present %v), want explicit null", v, ok)
	}
	if _, ok := decoded["id"]; ok {
		t.Fatalf("id should be omitted on write")
	}
}

func TestParseTimeLayouts(t *testing.T) {
	if (UploadedAsset{UploadedAt: "2025-06-01T10:11:12.123456Z"}).ParsedUploadedAt().IsZero() {
		t.Fatalf("ParsedUploadedAt should parse RFC3339Nano")
	}
	got := AnalysisRecord{CreatedAt: "2025-06-01 10:11:12"}.ParsedCreatedAt()
	if got.Year() != 2025 || got.Month() != time.June || got.Day() != 1 {
		t.Fatalf("ParsedCreatedAt = %v, want 2025-06-01", got)
	}
	if !ParseTime("yesterday").IsZero() {
		t.Fatalf("parseTime should return zero for unknown layouts")
	}
}
