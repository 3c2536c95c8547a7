// Package presence tracks the online/offline flag per user and derives the
// per-chamber online count from it. Implementations: Redis (production) and
// in-memory (-dev / tests).
package presence

import "context"

type Store interface {
	// SetOnline flips the user's presence flag.
	SetOnline(ctx context.Context, userID string, online bool) error
	// CountOnline returns how many of the given users are currently online.
	CountOnline(ctx context.Context, userIDs []string) (int, error)
	// Reset clears every presence flag (startup: nobody is connected yet).
	Reset(ctx context.Context) error
	Close() error
}
