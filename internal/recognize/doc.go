// Package recognize implements the upload-and-recognize workflow.
//
// A Workflow validates a local file, uploads it, and follows the backend's
// recognition until it reaches a terminal state:
//
//   - found: the file was identified; one history record is written
//   - not_found: the backend finished without a match
//   - error: the backend failed, or the recognition quota is spent
//   - exhausted: the retry ceiling was reached while still processing
//
// When the upload response embeds a terminal recognition preview, no status
// query is issued. Otherwise the status endpoint is queried at most
// RetryCeiling+1 times, waiting RetryDelay before each follow-up. There is
// never more than one query in flight.
//
// Cancelling the context passed to Run stops the pending wait. Run then
// returns the context error and no outcome is published to the Observer.
//
// Present and Describe turn a found result into display text, comparing the
// catalog match with the external one when both exist.
package recognize
