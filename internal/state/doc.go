// Package state provides thread-safe view state shared by the recognition
// workflow and the UI.
//
// # Overview
//
// A recognition run executes on its own goroutine while the bubbletea program
// renders on another. The Store is the meeting point: the workflow observer
// writes progress into it and the UI reads immutable snapshots.
//
//	Workflow goroutine:            UI:
//	┌──────────────────┐          ┌────────────────────┐
//	│ EventUploaded    │          │                    │
//	│ EventPolling     │─────────→│ store.Snapshot()   │
//	│ EventResolved    │ (mutex)  │       ↓            │
//	└──────────────────┘          │ render Upload view │
//	                              └────────────────────┘
//
// # Runs
//
// BeginRun hands out a run id. Polling, Resolve and Fail take that id and
// return false without changing anything when a newer run has started or the
// run was cancelled. A run abandoned by the user can therefore never
// overwrite what the screen shows now.
//
// # Collections
//
// SetUploads and SetHistory replace whole lists after a reload. On error the
// previous data is kept, LastError is set and ConsecutiveFailures grows, so
// the UI can keep showing the last good list with an offline marker.
// PrependUpload adds a new upload without waiting for a reload, unless the
// run that uploaded it is no longer current.
//
// # Copying
//
// Snapshot clones every slice. Callers may modify what they receive.
//
// The zero Store is ready to use.
package state
