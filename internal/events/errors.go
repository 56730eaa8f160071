package events

import "errors"

// Failure taxonomy for one candidate's processing. Transient failures keep
// the URL out of the ledger so the next run retries it; terminal outcomes
// (ignored, posted, duplicate) are recorded in the ledger and never retried.
var (
	// ErrTransient marks fetch/annotate failures retryable on the next run.
	ErrTransient = errors.New("transient source failure")

	// ErrPublish marks a failed delivery to the downstream channel. The
	// candidate stays eligible for a full retry, including re-classification.
	ErrPublish = errors.New("publish failure")
)
