// Package logtail reads the tail of the client's log file and parses it for
// the Logs view.
//
// Read keeps a ring buffer of maxLines entries so only the last lines of a
// large file stay in memory. A missing file is not an error; the client may
// not have logged anything yet.
//
// Parse understands the key=value lines written by slog's TextHandler:
//
//	time=2026-10-19T10:00:00.000Z level=INFO msg="upload accepted" component=recognize asset=42
//
// The time, level, msg and component keys are lifted into Record fields and
// the remaining pairs are kept in order as Attrs. Lines that do not parse are
// returned with Structured set to false so the view can show them verbatim.
package logtail
