// Package ui is the Bubble Tea front end for Melocuore.
//
// A single Model owns every view: sign in and registration, upload and
// recognize, the user's files, recognition history, the admin tables and
// the client log. Network work runs in tea.Cmd closures built from the
// services passed in Options; results come back as messages and are
// applied in Update.
//
// Recognition progress is read from state.Store on every tick. Each run
// gets its own cancellable context derived from Options.Context. Starting
// another upload, leaving the Upload view, signing out or quitting
// cancels it, and results from a superseded run are dropped.
//
// Key bindings:
//
//   - u/f/y/a/l: Upload, My files, History, Admin (superusers), Client log
//   - tab/shift+tab: Cycle views
//   - j/k, g/G, ctrl+d/u: Move within lists and the log
//   - o or enter: Choose a file to upload
//   - c: Cancel the running recognition
//   - d: Delete the selected file or admin entry (asks first)
//   - T: Cycle theme, saved to the preferences file
//   - L: Sign out
//   - h or ?: Help
//   - e or ctrl+c: Quit
package ui
