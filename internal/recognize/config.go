package recognize

import (
	"strings"
	"time"

	"github.com/five82/melocuore/internal/api"
)

const (
	DefaultRetryCeiling = 5
	DefaultRetryDelay   = 3 * time.Second
)

// Config parameterizes the upload-and-recognize workflow.
type Config struct {
	// RetryCeiling is the number of follow-up status queries allowed after
	// the first one. Zero disables retries; negative selects the default.
	RetryCeiling int
	// RetryDelay is the fixed wait before each follow-up query.
	RetryDelay time.Duration
	// PreviewEndpoint receives the upload; its response may embed a preview.
	PreviewEndpoint string
	// PollEndpoint is the status path template; "{id}" is the asset id.
	PollEndpoint string
}

// DefaultConfig returns the stock workflow settings.
func DefaultConfig() Config {
	return Config{
		RetryCeiling:    DefaultRetryCeiling,
		RetryDelay:      DefaultRetryDelay,
		PreviewEndpoint: api.DefaultUploadEndpoint,
		PollEndpoint:    api.DefaultStatusEndpoint,
	}
}

// MaxQueries is the largest number of status queries one attempt issues.
func (c Config) MaxQueries() int {
	return c.RetryCeiling + 1
}

func (c Config) normalized() Config {
	if c.RetryCeiling < 0 {
		c.RetryCeiling = DefaultRetryCeiling
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = DefaultRetryDelay
	}
	if strings.TrimSpace(c.PreviewEndpoint) == "" {
		c.PreviewEndpoint = api.DefaultUploadEndpoint
	}
	if strings.TrimSpace(c.PollEndpoint) == "" {
		c.PollEndpoint = api.DefaultStatusEndpoint
	}
	return c
}
