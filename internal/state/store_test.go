package state

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/five82/melocuore/internal/api"
	"github.com/five82/melocuore/internal/recognize"
)

func TestStore_SetUploadsAndSnapshotClone(t *testing.T) {
	var s Store

	before := time.Now()
	s.SetUploads([]api.UploadedAsset{{ID: 1}, {ID: 2}}, nil)

	snap := s.Snapshot()
	if len(snap.Uploads) != 2 || snap.Uploads[0].ID != 1 {
		t.Fatalf("snapshot uploads = %#v, want 2 items", snap.Uploads)
	}
	if snap.LastUpdated.Before(before) {
		t.Fatalf("LastUpdated = %v, want >= %v", snap.LastUpdated, before)
	}
	if snap.LastError != nil {
		t.Fatalf("LastError = %v, want nil", snap.LastError)
	}

	// Returned snapshot should be independent of the stored one.
	snap.Uploads[0].ID = 999
	snap2 := s.Snapshot()
	if snap2.Uploads[0].ID != 1 {
		t.Fatalf("Snapshot should clone uploads; got id %d want 1", snap2.Uploads[0].ID)
	}
}

func TestStore_ErrorKeepsPreviousData(t *testing.T) {
	var s Store

	s.SetHistory([]api.AnalysisRecord{{ID: 1, Title: "X"}}, nil)
	origErr := errors.New("boom")
	s.SetHistory(nil, origErr)

	snap := s.Snapshot()
	if len(snap.History) != 1 || snap.History[0].Title != "X" {
		t.Fatalf("history changed on error: got %#v", snap.History)
	}
	if snap.LastError == nil || snap.LastError.Error() != "boom" {
		t.Fatalf("LastError = %v, want boom", snap.LastError)
	}
	if reflect.ValueOf(snap.LastError).Pointer() == reflect.ValueOf(origErr).Pointer() {
		t.Fatalf("Snapshot should clone error instance")
	}
}

func TestStore_ConsecutiveFailures(t *testing.T) {
	var s Store

	if s.Snapshot().IsOffline() {
		t.Fatal("IsOffline() = true, want false with 0 failures")
	}

	s.SetUploads(nil, errors.New("fail 1"))
	if snap := s.Snapshot(); snap.ConsecutiveFailures != 1 || snap.IsOffline() {
		t.Fatalf("after 1 failure: failures=%d offline=%v", snap.ConsecutiveFailures, snap.IsOffline())
	}

	s.SetHistory(nil, errors.New("fail 2"))
	if snap := s.Snapshot(); snap.ConsecutiveFailures != 2 || !snap.IsOffline() {
		t.Fatalf("after 2 failures: failures=%d offline=%v", snap.ConsecutiveFailures, snap.IsOffline())
	}

	s.SetUploads([]api.UploadedAsset{{ID: 1}}, nil)
	if snap := s.Snapshot(); snap.ConsecutiveFailures != 0 || snap.IsOffline() {
		t.Fatalf("after success: failures=%d offline=%v", snap.ConsecutiveFailures, snap.IsOffline())
	}
}

func TestStore_PrependUpload(t *testing.T) {
	var s Store
	s.SetUploads([]api.UploadedAsset{{ID: 1}, {ID: 2}}, nil)

	run := s.BeginRun("b.wav")
	s.PrependUpload(run, api.UploadedAsset{ID: 3})
	s.PrependUpload(run, api.UploadedAsset{ID: 2, Name: "again"})

	var ids []int64
	for _, a := range s.Snapshot().Uploads {
		ids = append(ids, a.ID)
	}
	if !reflect.DeepEqual(ids, []int64{2, 3, 1}) {
		t.Fatalf("ids = %v, want [2 3 1]", ids)
	}

	s.RemoveUpload(3)
	if got := len(s.Snapshot().Uploads); got != 2 {
		t.Fatalf("uploads after remove = %d, want 2", got)
	}
}

func TestStore_RunLifecycle(t *testing.T) {
	var s Store

	id := s.BeginRun("a.mp3")
	if snap := s.Snapshot(); snap.Run.Phase != PhaseUploading || !snap.Run.Phase.Busy() {
		t.Fatalf("phase = %v, want uploading", snap.Run.Phase)
	}
	if !s.Polling(id, 2, 6) {
		t.Fatalf("Polling rejected current run")
	}
	if snap := s.Snapshot(); snap.Run.Message != "Recognizing (check 2 of 6)" {
		t.Fatalf("Message = %q", snap.Run.Message)
	}
	out := recognize.Outcome{State: recognize.StateFound, Message: "X by Y"}
	if !s.Resolve(id, out) {
		t.Fatalf("Resolve rejected current run")
	}
	snap := s.Snapshot()
	if snap.Run.Phase != PhaseResolved || !snap.Run.HasOutcome || snap.Run.Message != "X by Y" {
		t.Fatalf("run = %#v, want resolved", snap.Run)
	}
}

func TestStore_StaleRunUpdatesIgnored(t *testing.T) {
	var s Store

	first := s.BeginRun("a.mp3")
	second := s.BeginRun("b.mp3")
	if s.Resolve(first, recognize.Outcome{Message: "stale"}) {
		t.Fatalf("Resolve accepted superseded run")
	}
	if snap := s.Snapshot(); snap.Run.File != "b.mp3" || snap.Run.HasOutcome {
		t.Fatalf("run = %#v, want b.mp3 untouched", snap.Run)
	}

	s.CancelRun()
	if s.PrependUpload(second, api.UploadedAsset{ID: 7}) {
		t.Fatalf("cancelled run added an upload")
	}
	if got := len(s.Snapshot().Uploads); got != 0 {
		t.Fatalf("uploads = %d, want 0", got)
	}
	if s.Polling(second, 1, 6) || s.Fail(second, "late") {
		t.Fatalf("cancelled run accepted update")
	}
	if snap := s.Snapshot(); snap.Run.Phase != PhaseIdle || snap.Run.Message != "Recognition cancelled" {
		t.Fatalf("run = %#v, want cancelled idle", snap.Run)
	}
}
