package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNoCandidates is returned when the ranker receives an empty list
	ErrNoCandidates = errors.New("no candidates to rank")

	// ErrNotFound is returned when no provider produced any candidate
	ErrNotFound = errors.New("not found")

	// ErrArtifactNotFound is returned when a provider reported success but
	// no matching output file exists
	ErrArtifactNotFound = errors.New("artifact not found")

	ErrTrackTooLong        = errors.New("track exceeds maximum duration")
	ErrTaskNotFound        = errors.New("task not found")
	ErrInvalidTransition   = errors.New("invalid task transition")
	ErrInvalidArtifactName = errors.New("invalid artifact name")
	ErrInvalidAudioConfig  = errors.New("invalid audio config")
)

// ProviderTimeoutError is returned when an external provider call exceeded its bound
type ProviderTimeoutError struct {
	Provider string
	Timeout  time.Duration
}

func (e *ProviderTimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s", e.Provider, e.Timeout)
}

// AcquisitionError is returned after every provider in a chain failed.
// Err holds the combined per-provider failures.
type AcquisitionError struct {
	Err error
}

func (e *AcquisitionError) Error() string {
	return fmt.Sprintf("acquisition failed: %v", e.Err)
}

func (e *AcquisitionError) Unwrap() error { return e.Err }

// IsProviderTimeout reports whether err carries a ProviderTimeoutError
func IsProviderTimeout(err error) bool {
	var e *ProviderTimeoutError
	return errors.As(err, &e)
}

// TaskErrorMessage renders the short reason stored on a failed task
func TaskErrorMessage(err error) string {
	if err == nil {
		return "download failed"
	}
	return err.Error()
}
