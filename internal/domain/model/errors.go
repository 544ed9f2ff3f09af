package model

import "errors"

var (
	// ErrMalformedURL is returned when a URL cannot be parsed into scheme, host and path.
	ErrMalformedURL = errors.New("malformed url")

	// ErrEnsembleUnavailable is returned when every scoring model failed or timed out.
	ErrEnsembleUnavailable = errors.New("ensemble unavailable")

	// ErrInvalidWeights is returned when model weights do not sum to 1.0 at registration.
	ErrInvalidWeights = errors.New("model weights must sum to 1.0")

	// ErrInvalidThresholds is returned when risk thresholds are out of range or out of order.
	ErrInvalidThresholds = errors.New("invalid risk thresholds")

	// ErrBatchTooLarge is returned when a batch scan exceeds the configured size.
	ErrBatchTooLarge = errors.New("batch too large")

	// ErrFeedbackInvalid is returned when a feedback submission fails validation.
	ErrFeedbackInvalid = errors.New("invalid feedback")

	// ErrNotFound is returned by repositories when a record does not exist.
	ErrNotFound = errors.New("not found")
)
