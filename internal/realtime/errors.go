package realtime

import "errors"

// ErrEmptyRow is returned by DecodeRow for a missing row.
var ErrEmptyRow = errors.New("empty row")
