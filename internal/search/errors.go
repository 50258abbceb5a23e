package search

import "errors"

// ErrTimeout is returned when the combined strategy execution exceeds the
// orchestrator deadline. The whole request fails; no partial results are
// returned.
var ErrTimeout = errors.New("search timed out")
