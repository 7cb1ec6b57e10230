package notarize

import "fmt"

// SubmissionError means the upload failed or the service returned a receipt
// that could not be parsed. Submissions are not retried.
type SubmissionError struct {
	Path string
	Err  error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submitting %s for notarization: %v", e.Path, e.Err)
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}

// FailedError means the service reached a terminal failure verdict. The log
// url, when present, points at the service's findings.
type FailedError struct {
	UUID   string
	Status Status
	LogURL string
}

func (e *FailedError) Error() string {
	if e.LogURL == "" {
		return fmt.Sprintf("notarization %s failed with status %q", e.UUID, e.Status)
	}
	return fmt.Sprintf("notarization %s failed with status %q, log at %s", e.UUID, e.Status, e.LogURL)
}

// TimeoutError means the poll budget was exhausted before the service
// reached a terminal status.
type TimeoutError struct {
	UUID       string
	Attempts   int
	LastStatus Status
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("notarization %s still %q after %d polls", e.UUID, e.LastStatus, e.Attempts)
}
