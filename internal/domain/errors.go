package domain

import "errors"

var (
	// ErrFeedUnavailable reports a feed fetch that failed at the network,
	// status, or decoding level. Callers keep serving the previous snapshot.
	ErrFeedUnavailable = errors.New("feed unavailable")

	// ErrMalformedItem reports a single feed entry that cannot be normalized.
	// It never aborts a batch.
	ErrMalformedItem = errors.New("malformed feed item")
)
