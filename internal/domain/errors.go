package domain

import "errors"

var (
	// ErrProviderUnavailable signals a transient embedding provider failure
	// (network, timeout, 5xx). Retried with backoff before the request is
	// downgraded to a no-retrieval fallback result.
	ErrProviderUnavailable = errors.New("embedding provider unavailable")
	// ErrDimensionMismatch signals that a provider returned a vector whose
	// length disagrees with the configured dimensionality. Configuration
	// defect, never retried.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	// ErrEmptyCorpus signals a domain with no ingested passages. Distinct
	// from "nothing relevant found".
	ErrEmptyCorpus = errors.New("empty corpus")
	// ErrUnknownDomain signals a reference to a domain absent from the registry.
	ErrUnknownDomain = errors.New("unknown domain")
)
