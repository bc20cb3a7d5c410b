package models

import "errors"

var (
	// ErrNoResults means every source was reached but nothing matched the query.
	ErrNoResults = errors.New("no results")
	// ErrSourceUnavailable means the upstream source could not be reached at all.
	ErrSourceUnavailable = errors.New("source unavailable")
)
