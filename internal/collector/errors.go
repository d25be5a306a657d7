package collector

import (
	"errors"
	"fmt"
)

// ErrNotFound means the lookback window held no trading day for the ticker.
var ErrNotFound = errors.New("no close in lookback window")

// Stage names used in StageError and log fields.
const (
	StageQuote  = "quote"
	StageAnchor = "anchor"
)

// StageError ties a fetch failure to the ticker and pipeline stage.
type StageError struct {
	Ticker string
	Stage  string
	Err    error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Ticker, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// APIError is a non-2xx answer from an HTTP source.
type APIError struct {
	Source     string
	StatusCode int
	Endpoint   string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s api error: status %d, endpoint %s, body: %s", e.Source, e.StatusCode, e.Endpoint, e.Body)
}
