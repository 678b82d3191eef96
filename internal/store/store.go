// Package store persists user accounts and their tracked-item lists.
//
// The store is a per-user document store: a user's whole tracking list is
// replaced in one write. Two concurrent writers to the same user are
// last-write-wins at that granularity; the intake path and the reconciliation
// pass are assumed not to run against the same user concurrently.
package store

import (
	"context"
	"errors"

	"github.com/vigilx/pricewatch/internal/domain"
)

// Store is the persistence contract shared by the intake path and the tracker.
type Store interface {
	// GetAllUsers returns a snapshot of every user. Iteration order across
	// users is backend-defined and must not be relied upon.
	GetAllUsers(ctx context.Context) ([]domain.User, error)

	// GetUser returns one user by chat id, ErrUserNotFound when absent.
	GetUser(ctx context.Context, chatID int64) (domain.User, error)

	// UpsertUser creates the user if missing. Repeated onboarding is a no-op;
	// an existing user's data is never touched.
	UpsertUser(ctx context.Context, chatID int64, name string) error

	// AppendItem adds one tracked item to the end of the user's list.
	AppendItem(ctx context.Context, chatID int64, item domain.TrackedItem) error

	// ReplaceTracking overwrites the user's whole tracking list in one write.
	ReplaceTracking(ctx context.Context, chatID int64, items []domain.TrackedItem) error

	// Ping verifies backend connectivity; used by health probes.
	Ping(ctx context.Context) error

	// Close releases backend resources. The lifecycle is owned by main.
	Close(ctx context.Context) error
}

// ErrUserNotFound indicates the chat id has no persisted record.
var ErrUserNotFound = errors.New("user not found")

// IsNotFound reports whether err wraps ErrUserNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound)
}
