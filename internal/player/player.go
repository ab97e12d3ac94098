package player

import "time"

// Request status values. Accepted and rejected requests are deleted rather
// than retained, so pending is the only status that persists.
const (
	RequestStatusPending = "pending"
)

// FriendRequest lives embedded in the recipient's record.
type FriendRequest struct {
	ID        string    `json:"id"`
	FromID    string    `json:"from_id"`
	FromName  string    `json:"from_name"`
	ToID      string    `json:"to_id"`
	Timestamp time.Time `json:"timestamp"`
	Status    string    `json:"status"`
}

// Record is a durable player record. Friends and FriendRequests are
// server-owned: every write path merges them from the stored record, never
// from a caller-supplied snapshot.
type Record struct {
	ID             string          `json:"id"`
	DisplayName    string          `json:"display_name"`
	Friends        []string        `json:"friends"`
	FriendRequests []FriendRequest `json:"friend_requests"`
	GamesPlayed    int             `json:"games_played"`
	GamesWon       int             `json:"games_won"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// HasFriend reports whether userID appears in the friends list.
func (r *Record) HasFriend(userID string) bool {
	for _, id := range r.Friends {
		if id == userID {
			return true
		}
	}
	return false
}

// PendingRequestFrom returns the pending request sent by fromID, if any.
func (r *Record) PendingRequestFrom(fromID string) *FriendRequest {
	for i := range r.FriendRequests {
		req := &r.FriendRequests[i]
		if req.FromID == fromID && req.Status == RequestStatusPending {
			return req
		}
	}
	return nil
}

// RequestByID returns the request with the given id, if any.
func (r *Record) RequestByID(requestID string) *FriendRequest {
	for i := range r.FriendRequests {
		if r.FriendRequests[i].ID == requestID {
			return &r.FriendRequests[i]
		}
	}
	return nil
}

// AddFriend appends userID to friends if not already present.
func (r *Record) AddFriend(userID string) {
	if !r.HasFriend(userID) {
		r.Friends = append(r.Friends, userID)
	}
}

// RemoveFriend deletes userID from friends. Reports whether it was present.
func (r *Record) RemoveFriend(userID string) bool {
	for i, id := range r.Friends {
		if id == userID {
			r.Friends = append(r.Friends[:i], r.Friends[i+1:]...)
			return true
		}
	}
	return false
}

// DeleteRequest removes the request with the given id. Reports whether it
// was present.
func (r *Record) DeleteRequest(requestID string) bool {
	for i := range r.FriendRequests {
		if r.FriendRequests[i].ID == requestID {
			r.FriendRequests = append(r.FriendRequests[:i], r.FriendRequests[i+1:]...)
			return true
		}
	}
	return false
}

// PurgeStaleRequests drops every pending request older than the expiry
// window. Staleness is evaluated lazily by callers on each mutation, not by
// a background sweep. Returns the number of purged requests.
func (r *Record) PurgeStaleRequests(now time.Time, expiry time.Duration) int {
	kept := r.FriendRequests[:0]
	purged := 0
	for _, req := range r.FriendRequests {
		if req.Status == RequestStatusPending && now.Sub(req.Timestamp) > expiry {
			purged++
			continue
		}
		kept = append(kept, req)
	}
	r.FriendRequests = kept
	return purged
}

// Clone returns a deep copy so in-process stores never leak shared slices.
func (r *Record) Clone() *Record {
	cp := *r
	cp.Friends = append([]string(nil), r.Friends...)
	cp.FriendRequests = append([]FriendRequest(nil), r.FriendRequests...)
	return &cp
}
