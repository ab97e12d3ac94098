package player

import (
	"context"
	"errors"
)

var (
	// ErrNotFound indicates the player record does not exist.
	ErrNotFound = errors.New("player not found")
	// ErrStorage indicates the backing store failed; callers may degrade to
	// volatile storage instead of failing the request.
	ErrStorage = errors.New("storage unavailable")
)

// Repository is the single source of truth for player records and their
// embedded friends / friend-request lists.
type Repository interface {
	// Get loads a record by id.
	Get(ctx context.Context, userID string) (*Record, error)
	// Save persists a record. Implementations must write the record as
	// given; callers are responsible for merging server-owned fields via
	// MergeServerOwned before handing over client-sourced data.
	Save(ctx context.Context, rec *Record) error
	// Create inserts a new record, failing silently into an upsert if the
	// id already exists.
	Create(ctx context.Context, rec *Record) error
	// Search finds records whose display name contains the query,
	// case-insensitively, up to limit.
	Search(ctx context.Context, query string, limit int) ([]*Record, error)
}

// MergeServerOwned overlays the stored record's server-owned fields onto an
// incoming snapshot. Client payloads can carry arbitrary friends /
// friend_requests copies; those are always discarded in favor of what the
// repository last persisted.
func MergeServerOwned(incoming, stored *Record) *Record {
	merged := incoming.Clone()
	if stored != nil {
		merged.Friends = append([]string(nil), stored.Friends...)
		merged.FriendRequests = append([]FriendRequest(nil), stored.FriendRequests...)
		merged.CreatedAt = stored.CreatedAt
	}
	return merged
}
