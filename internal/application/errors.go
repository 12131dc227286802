package application

import "errors"

var (
	// ErrUnknownChannel means a notification referenced a channel id with no
	// stored registration.
	ErrUnknownChannel = errors.New("application: unknown watch channel")

	// ErrExpiredChannel means the referenced channel's expiration has passed.
	ErrExpiredChannel = errors.New("application: watch channel expired")

	// ErrSyncDisabled means the user's connection exists but synchronization
	// has been switched off.
	ErrSyncDisabled = errors.New("application: sync disabled for user")

	// ErrConnectionInactive means the user's calendar connection has been
	// deactivated and needs a fresh authorization.
	ErrConnectionInactive = errors.New("application: calendar connection inactive")

	// ErrAuthExpired means the provider rejected the stored credentials.
	ErrAuthExpired = errors.New("application: calendar authorization expired")

	// ErrRemoteUnavailable means the provider failed transiently. Callers may
	// retry.
	ErrRemoteUnavailable = errors.New("application: calendar provider unavailable")
)
