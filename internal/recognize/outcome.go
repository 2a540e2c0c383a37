package recognize

import (
	"fmt"

	"github.com/five82/melocuore/internal/api"
)

// State is the resolved state of one recognition attempt.
type State int

const (
	StateProcessing State = iota
	StateFound
	StateNotFound
	StateError
	StateExhausted
)

func (s State) String() string {
	switch s {
	case StateProcessing:
		return "processing"
	case StateFound:
		return "found"
	case StateNotFound:
		return "not_found"
	case StateError:
		return "error"
	case StateExhausted:
		return "exhausted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Outcome is the terminal result of Run.
type Outcome struct {
	State         State
	Asset         api.UploadedAsset
	Result        api.RecognitionResult
	QuotaExceeded bool
	// Message is the line shown to the user.
	Message string
	// Detail carries backend text that did not become Message.
	Detail string
	// Queries counts status requests; zero when a preview resolved the attempt.
	Queries     int
	FromPreview bool
	View        View
	// HistorySaved reports whether the analysis record was stored.
	HistorySaved bool
}

// ValidationError rejects a file before anything is read or sent.
type ValidationError struct {
	Path    string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// SubmitError is a failed upload. Message is the text to show.
type SubmitError struct {
	Message string
	Err     error
}

func (e *SubmitError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *SubmitError) Unwrap() error { return e.Err }

// EventKind identifies workflow progress notifications.
type EventKind int

const (
	EventUploaded EventKind = iota
	EventPolling
	EventResolved
)

// Event is published to the Observer as the workflow advances.
type Event struct {
	Kind  EventKind
	Asset api.UploadedAsset
	// Attempt is the 1-based status query about to be issued.
	Attempt    int
	MaxQueries int
	Outcome    Outcome
}

// Observer receives workflow events on the workflow's goroutine.
type Observer func(Event)
