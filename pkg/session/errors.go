package session

import "errors"

var (
	// ErrSessionNotFound indicates no live session is associated with the id
	ErrSessionNotFound = errors.New("session.not_found")

	// ErrSessionExpired indicates the session passed its expiry before it was accessed.
	// It is always joined with ErrSessionNotFound.
	ErrSessionExpired = errors.New("session.expired")

	// ErrSessionDestroyed indicates a write to a session that has already been wiped
	ErrSessionDestroyed = errors.New("session.destroyed")

	// ErrEmptyKey indicates an entry key was empty
	ErrEmptyKey = errors.New("session.empty_key")

	// ErrNilTable indicates an attempt to store a nil table
	ErrNilTable = errors.New("session.nil_table")

	// ErrInvalidDuration indicates a non-positive TTL or extension
	ErrInvalidDuration = errors.New("session.invalid_duration")

	// ErrEstimateFailed indicates the memory estimate of a single session could not be computed
	ErrEstimateFailed = errors.New("session.estimate_failed")

	// ErrSweepPanic indicates a sweep cycle recovered from a panic
	ErrSweepPanic = errors.New("session.sweep_panic")
)
