package txstore

import "sync"

// Subscription is a change feed for a single record. Each subscription has
// its own buffer; when a subscriber falls behind, the oldest queued update is
// dropped so writers never block.
type Subscription struct {
	id    string
	ch    chan Record
	store *Store
	once  sync.Once
}

// Subscribe opens a change feed for id. When the record already exists its
// current value is the first update delivered.
func (s *Store) Subscribe(id string) *Subscription {
	sub := &Subscription{
		id:    id,
		ch:    make(chan Record, subscriptionBufferSize),
		store: s,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.subscriptions.Get(id).Add(sub)
	if r, ok := s.records[id]; ok {
		sub.ch <- r.clone()
	}

	return sub
}

// C returns the channel updates are delivered on. It is closed by Close.
func (sub *Subscription) C() <-chan Record {
	return sub.ch
}

// Close stops the feed and closes its channel. It is safe to call more than once.
func (sub *Subscription) Close() {
	sub.once.Do(func() {
		s := sub.store

		s.mu.Lock()
		defer s.mu.Unlock()

		if subs, ok := s.subscriptions.Lookup(sub.id); ok {
			subs.Delete(sub)
			if len(subs) == 0 {
				s.subscriptions.Delete(sub.id)
			}
		}
		close(sub.ch)
	})
}
