// Package store is the reactive container of the application state.
//
// Every mutation is applied under a lock, written to the Storage and then
// broadcast to the subscribers, one notification per mutation.
package store

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/saber-pedagogico/saber/core"
	"github.com/saber-pedagogico/saber/core/school"
	"github.com/saber-pedagogico/saber/core/session"
)

// Listener receives a copy of the state it may keep or modify freely.
type Listener func(st school.AppState)

type Options struct {
	// Storage is optional; without it the state only lives in memory.
	Storage Storage
	// Codec defaults to an unsigned codec with the default TTL.
	Codec  *session.Codec
	Logger core.Logger
	// AuthDelay is waited before computing the outcome of Login and Register.
	AuthDelay time.Duration
}

type subscription struct {
	fn     Listener
	since  uint64 // version replayed on subscribe
	active atomic.Bool

	// held across every call of fn, so a concurrent round cannot overtake the replay
	mu sync.Mutex
}

func (sub *subscription) deliver(st school.AppState) {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if sub.active.Load() {
		sub.fn(st)
	}
}

type notification struct {
	version uint64
	state   school.AppState
}

type Store struct {
	storage   Storage
	codec     *session.Codec
	log       core.Logger
	authDelay time.Duration

	mu        sync.Mutex
	state     school.AppState
	token     string
	revoked   map[string]int64 // revocation key -> expiry (unix)
	version   uint64
	subs      []*subscription
	queue     []notification
	notifying bool
	closed    bool
}

// New builds a store and restores its state from opts.Storage.
func New(opts Options) *Store {
	s := &Store{
		storage:   opts.Storage,
		codec:     opts.Codec,
		log:       opts.Logger,
		authDelay: opts.AuthDelay,
	}
	if s.codec == nil {
		s.codec = session.NewCodec("", "", session.DefaultTTL)
	}
	if s.log == nil {
		s.log = core.NewNopLogger()
	}
	s.Restore()
	return s
}

// Restore reloads the persisted state and session, falling back to the seed state.
// Subscribers are notified of the reloaded state.
func (s *Store) Restore() {
	s.mu.Lock()
	s.load()
	s.enqueue()
	s.mu.Unlock()
	s.flush()
}

// GetState returns a deep copy of the current state.
func (s *Store) GetState() school.AppState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Subscribe calls fn right away with the current state, then once after every
// mutation. Listeners are called in subscription order. The returned func
// removes fn; it may be called any number of times, even after Close.
func (s *Store) Subscribe(fn Listener) (unsubscribe func()) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return func() {}
	}
	sub := &subscription{fn: fn, since: s.version}
	sub.active.Store(true)
	sub.mu.Lock()
	s.subs = append(s.subs, sub)
	st := s.state.Clone()
	s.mu.Unlock()

	func() {
		defer sub.mu.Unlock()
		fn(st)
	}()

	var once sync.Once
	return func() {
		once.Do(func() { s.remove(sub) })
	}
}

func (s *Store) remove(sub *subscription) {
	sub.active.Store(false)

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, it := range s.subs {
		if it == sub {
			s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
			return
		}
	}
}

// Close drops every subscriber and closes the storage when it supports it.
// The state is no longer persisted afterwards.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	for _, sub := range s.subs {
		sub.active.Store(false)
	}
	s.subs = nil
	s.queue = nil

	if c, ok := s.storage.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

// commit persists the state and queues its notification. Called with s.mu held;
// the caller must call flush once the lock is released.
func (s *Store) commit() {
	s.persist()
	s.enqueue()
}

func (s *Store) enqueue() {
	s.version++
	if s.closed || len(s.subs) == 0 {
		return
	}
	s.queue = append(s.queue, notification{version: s.version, state: s.state.Clone()})
}

// flush delivers queued notifications. When a delivery round is already running,
// possibly further up the stack from a listener that mutated the store, the new
// notifications are left to that round so that rounds never nest.
func (s *Store) flush() {
	s.mu.Lock()
	if s.notifying {
		s.mu.Unlock()
		return
	}
	s.notifying = true

	// a panicking listener must not leave the store stuck in a round;
	// listeners only run while s.mu is released
	defer func() {
		if r := recover(); r != nil {
			s.mu.Lock()
			s.notifying = false
			s.mu.Unlock()
			panic(r)
		}
	}()

	for len(s.queue) > 0 {
		n := s.queue[0]
		s.queue = s.queue[1:]
		subs := append([]*subscription(nil), s.subs...)
		s.mu.Unlock()

		for i, sub := range subs {
			if !sub.active.Load() || sub.since >= n.version {
				continue
			}
			st := n.state
			if i < len(subs)-1 {
				st = n.state.Clone()
			}
			sub.deliver(st)
		}

		s.mu.Lock()
	}

	s.notifying = false
	s.mu.Unlock()
}

// update runs fn under the lock, then persists and notifies.
func (s *Store) update(fn func()) {
	s.mu.Lock()
	fn()
	s.commit()
	s.mu.Unlock()
	s.flush()
}

func (s *Store) wait() {
	if s.authDelay > 0 {
		time.Sleep(s.authDelay)
	}
}
