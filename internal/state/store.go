package state

import (
	"fmt"
	"sync"
	"time"

	"github.com/five82/melocuore/internal/api"
	"github.com/five82/melocuore/internal/recognize"
)

// Phase is the progress of the current upload-and-recognize run.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseUploading
	PhasePolling
	PhaseResolved
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseUploading:
		return "uploading"
	case PhasePolling:
		return "recognizing"
	case PhaseResolved:
		return "done"
	case PhaseFailed:
		return "failed"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Busy reports whether a run is in flight.
func (p Phase) Busy() bool {
	return p == PhaseUploading || p == PhasePolling
}

// Run is the state of the latest upload-and-recognize run.
type Run struct {
	ID         uint64
	File       string
	Phase      Phase
	Attempt    int
	MaxQueries int
	Outcome    recognize.Outcome
	HasOutcome bool
	Message    string
	StartedAt  time.Time
}

// Snapshot represents the latest data available to the UI.
type Snapshot struct {
	Uploads             []api.UploadedAsset
	History             []api.AnalysisRecord
	Run                 Run
	LastUpdated         time.Time
	LastError           error
	ConsecutiveFailures int // Number of consecutive failed reloads
}

// IsOffline returns true when the API has been unreachable for multiple reloads.
func (s Snapshot) IsOffline() bool {
	return s.ConsecutiveFailures >= 2
}

// Store coordinates concurrent updates to the snapshot. Run updates carry the
// id returned by BeginRun; updates for a superseded run are dropped.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
	nextRun  uint64
}

// SetUploads replaces the uploads list. When err is non-nil the previous data
// is kept but the error is recorded for visibility.
func (s *Store) SetUploads(assets []api.UploadedAsset, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.recordErrorLocked(err) {
		return
	}
	s.snapshot.Uploads = clone(assets)
}

// SetHistory replaces the analysis history, with the same error handling as
// SetUploads.
func (s *Store) SetHistory(records []api.AnalysisRecord, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.recordErrorLocked(err) {
		return
	}
	s.snapshot.History = clone(records)
}

// PrependUpload puts the asset uploaded by run id at the head of the list.
// Uploads reported by a superseded or cancelled run are dropped.
func (s *Store) PrependUpload(id uint64, asset api.UploadedAsset) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id != s.snapshot.Run.ID {
		return false
	}
	uploads := make([]api.UploadedAsset, 0, len(s.snapshot.Uploads)+1)
	uploads = append(uploads, asset)
	for _, a := range s.snapshot.Uploads {
		if asset.ID != 0 && a.ID == asset.ID {
			continue
		}
		uploads = append(uploads, a)
	}
	s.snapshot.Uploads = uploads
	s.snapshot.LastUpdated = time.Now()
	return true
}

// RemoveUpload drops an asset after it was deleted.
func (s *Store) RemoveUpload(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.snapshot.Uploads[:0:0]
	for _, a := range s.snapshot.Uploads {
		if a.ID != id {
			kept = append(kept, a)
		}
	}
	s.snapshot.Uploads = kept
}

// BeginRun starts tracking a new run for file and returns its id. Any earlier
// run is superseded.
func (s *Store) BeginRun(file string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextRun++
	s.snapshot.Run = Run{
		ID:        s.nextRun,
		File:      file,
		Phase:     PhaseUploading,
		Message:   "Uploading " + file,
		StartedAt: time.Now(),
	}
	return s.nextRun
}

// Polling records that status query attempt of maxQueries is in flight.
func (s *Store) Polling(id uint64, attempt, maxQueries int) bool {
	return s.updateRun(id, func(r *Run) {
		r.Phase = PhasePolling
		r.Attempt = attempt
		r.MaxQueries = maxQueries
		r.Message = fmt.Sprintf("Recognizing (check %d of %d)", attempt, maxQueries)
	})
}

// Resolve stores the terminal outcome of run id.
func (s *Store) Resolve(id uint64, out recognize.Outcome) bool {
	return s.updateRun(id, func(r *Run) {
		r.Phase = PhaseResolved
		r.Outcome = out
		r.HasOutcome = true
		r.Message = out.Message
	})
}

// Fail records a run that ended without an outcome.
func (s *Store) Fail(id uint64, message string) bool {
	return s.updateRun(id, func(r *Run) {
		r.Phase = PhaseFailed
		r.Message = message
	})
}

// CancelRun abandons the current run. Later updates for it are ignored.
func (s *Store) CancelRun() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.snapshot.Run.Phase.Busy() {
		return
	}
	s.nextRun++
	s.snapshot.Run = Run{ID: s.nextRun, Phase: PhaseIdle, Message: "Recognition cancelled"}
}

func (s *Store) updateRun(id uint64, apply func(*Run)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id != s.snapshot.Run.ID {
		return false
	}
	apply(&s.snapshot.Run)
	return true
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	snap.Uploads = clone(s.snapshot.Uploads)
	snap.History = clone(s.snapshot.History)
	if s.snapshot.LastError != nil {
		snap.LastError = fmt.Errorf("%w", s.snapshot.LastError)
	}
	return snap
}

func (s *Store) recordErrorLocked(err error) bool {
	s.snapshot.LastUpdated = time.Now()
	if err != nil {
		s.snapshot.LastError = err
		s.snapshot.ConsecutiveFailures++
		return true
	}
	s.snapshot.LastError = nil
	s.snapshot.ConsecutiveFailures = 0
	return false
}

func clone[T any](items []T) []T {
	if len(items) == 0 {
		return nil
	}
	dup := make([]T, len(items))
	copy(dup, items)
	return dup
}
