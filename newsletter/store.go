package newsletter

import (
	"sort"
	"sync"
	"time"
)

// Subscriber is one newsletter subscription.
type Subscriber struct {
	Email        string    `json:"email"`
	SubscribedAt time.Time `json:"subscribedAt"`
}

// Store holds the subscriber set. Implementations must make Add and Remove
// atomic per email so concurrent subscribe/unsubscribe calls cannot race.
type Store interface {
	// Add records a subscription, returning false if the email is
	// already subscribed.
	Add(email string, at time.Time) bool

	// Remove drops a subscription, returning false if the email was
	// never subscribed.
	Remove(email string) bool

	Has(email string) bool
	Count() int
	All() []Subscriber
}

var _ Store = (*MemoryStore)(nil)

// MemoryStore is a mutex-guarded in-memory subscriber set. Subscriptions do
// not survive a process restart; that is a known limitation of this
// backend, not a defect.
type MemoryStore struct {
	mu          sync.Mutex
	subscribers map[string]time.Time
}

// NewMemoryStore creates an empty in-memory subscriber store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		subscribers: make(map[string]time.Time),
	}
}

func (s *MemoryStore) Add(email string, at time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.subscribers[email]; ok {
		return false
	}
	s.subscribers[email] = at
	return true
}

func (s *MemoryStore) Remove(email string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.subscribers[email]; !ok {
		return false
	}
	delete(s.subscribers, email)
	return true
}

func (s *MemoryStore) Has(email string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.subscribers[email]
	return ok
}

func (s *MemoryStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.subscribers)
}

// All returns the subscribers ordered by email.
func (s *MemoryStore) All() []Subscriber {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Subscriber, 0, len(s.subscribers))
	for email, at := range s.subscribers {
		out = append(out, Subscriber{Email: email, SubscribedAt: at})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out
}
