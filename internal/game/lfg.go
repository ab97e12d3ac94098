package game

import (
	"sync"
	"time"
)

// LFGEntry is one player's looking-for-game advertisement.
type LFGEntry struct {
	UserID      string
	DisplayName string
	Difficulty  string
	FriendIDs   []string
	Since       time.Time
}

// LFGRegistry tracks which players are advertising themselves as looking
// for a game. Visibility is scoped to the advertiser's friend list.
type LFGRegistry struct {
	mu      sync.Mutex
	looking map[string]*LFGEntry
}

// NewLFGRegistry creates an empty registry.
func NewLFGRegistry() *LFGRegistry {
	return &LFGRegistry{looking: make(map[string]*LFGEntry)}
}

// Start registers or refreshes an advertisement. The friend list is captured
// at call time; later friend changes do not retroactively widen visibility.
func (r *LFGRegistry) Start(userID, displayName, difficulty string, friendIDs []string) *LFGEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	friends := make([]string, len(friendIDs))
	copy(friends, friendIDs)
	entry := &LFGEntry{
		UserID:      userID,
		DisplayName: displayName,
		Difficulty:  difficulty,
		FriendIDs:   friends,
		Since:       time.Now(),
	}
	r.looking[userID] = entry
	return entry
}

// Stop removes an advertisement. Returns false if none existed.
func (r *LFGRegistry) Stop(userID string) (*LFGEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, exists := r.looking[userID]
	if !exists {
		return nil, false
	}
	delete(r.looking, userID)
	return entry, true
}

// Get returns userID's advertisement, if any.
func (r *LFGRegistry) Get(userID string) (*LFGEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, exists := r.looking[userID]
	return entry, exists
}

// AvailableFor returns every advertisement whose friend list names
// recipientID.
func (r *LFGRegistry) AvailableFor(recipientID string) []LFGEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []LFGEntry
	for _, entry := range r.looking {
		for _, fid := range entry.FriendIDs {
			if fid == recipientID {
				out = append(out, *entry)
				break
			}
		}
	}
	return out
}
