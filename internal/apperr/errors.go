// Package apperr defines the error taxonomy shared across the sync subsystem.
package apperr

import "errors"

var (
	// ErrConnectivity means no response was received from the remote at all.
	// It is the only error kind that triggers the local-fallback path.
	ErrConnectivity = errors.New("remote unreachable")

	// ErrValidation means the payload itself was rejected, either by local
	// input validation or by the remote with a detail body. Never falls
	// back to a local write.
	ErrValidation = errors.New("validation failed")

	// ErrAuth means the credential was rejected (401). The credential is
	// cleared and the caller must re-authenticate.
	ErrAuth = errors.New("not authenticated")

	// ErrStorage means the local durable store failed. Fatal to the
	// current operation; never retried blindly.
	ErrStorage = errors.New("local storage failure")

	// ErrConflict means a domain uniqueness invariant was violated, such
	// as a second check-in for the same goal and date.
	ErrConflict = errors.New("conflict")

	// ErrNotFound means the requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNotReady means a reconciliation pass could not start because its
	// preconditions (reachable remote, stored credential) do not hold.
	ErrNotReady = errors.New("sync not ready")
)
