// Package app wires configuration, logging, the API client, the session
// store and the UI together. It is the composition root for Melocuore.
//
// # Startup
//
//  1. Load ~/.config/melocuore/config.toml (defaults when missing), then apply
//     MELOCUORE_API_URL and command-line overrides
//  2. Open the slog log file; the terminal is never written to while the TUI runs
//  3. Build the api.Client and attach the session store as its token source
//     and refresher
//  4. Either start the TUI (Run) or execute one headless subcommand (Command)
//
// # Background refresh
//
// While the TUI runs, StartPoller reloads the signed-in user's files and
// history into state.Store. Both lists are fetched together with errgroup;
// failures keep the previous data, count toward the offline indicator and
// back off exponentially up to five minutes.
//
// # Recognition
//
// Every run gets a new recognize.Workflow bound to that run's observer. The
// session is guarded first, so an expired access token is refreshed once
// before anything is uploaded.
//
// # Headless commands
//
//	melocuore login [-username NAME] < password
//	melocuore logout
//	melocuore register -username NAME [-email ADDR] < password confirmation
//	melocuore whoami
//	melocuore recognize [-quiet] FILE
//	melocuore files
//	melocuore history
//
// Exit codes: 0 success, 1 runtime failure (including an exhausted
// recognition), 2 usage error.
package app
