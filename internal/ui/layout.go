package ui

import "time"

// Terminal width thresholds for responsive layouts.
const (
	// LayoutCompactWidth is the threshold below which compact mode is used.
	LayoutCompactWidth = 100

	// LayoutWideWidth is the minimum width to show secondary columns.
	LayoutWideWidth = 120
)

// Log display limits.
const (
	// LogTailLines is how many lines of the log file the Logs view reads.
	LogTailLines = 2000
)

// Timing constants.
const (
	// DefaultUIInterval is the default snapshot refresh interval.
	DefaultUIInterval = 250 * time.Millisecond

	// LogRefreshInterval is the minimum time between log file reads.
	LogRefreshInterval = time.Second

	// RequestTimeout bounds list and mutation requests issued by the views.
	RequestTimeout = 15 * time.Second
)
