package db

import (
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	// ErrNotFound is returned by repositories when a document does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrSchemaMismatch marks a stored document that failed decoding or validation.
	ErrSchemaMismatch = errors.New("document schema mismatch")
)

// IsNotFound reports whether err is a Firestore NotFound status or ErrNotFound.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNotFound) {
		return true
	}
	return status.Code(err) == codes.NotFound
}

// IsAlreadyExists reports whether a Create collided with an existing document.
func IsAlreadyExists(err error) bool {
	return err != nil && status.Code(err) == codes.AlreadyExists
}

// IsContention reports whether a transaction gave up after repeated contention.
func IsContention(err error) bool {
	if err == nil {
		return false
	}
	switch status.Code(err) {
	case codes.Aborted, codes.FailedPrecondition:
		return true
	}
	return false
}

// IsRetryable reports whether err is a transient Firestore failure.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted:
		return true
	}
	return false
}
