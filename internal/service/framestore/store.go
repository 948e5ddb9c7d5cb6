// Package framestore holds the latest assembled frame for the recognition loop.
package framestore

import (
	"sync"
	"time"

	"platewatch/internal/model"
)

// Stats describes slot activity since startup.
type Stats struct {
	Published   uint64    `json:"published"`
	Reads       uint64    `json:"reads"`
	Overwritten uint64    `json:"overwritten"` // frames replaced before anyone read them
	LastSeq     uint64    `json:"last_seq"`
	LastPutAt   time.Time `json:"last_put_at"`
}

// Store is a single-slot, latest-wins hand-off between one writer and any number of readers.
// Put never blocks on readers and Get never consumes the slot.
type Store struct {
	mu     sync.RWMutex
	frame  *model.Frame
	unread bool
	stats  Stats
}

func New() *Store {
	return &Store{}
}

// Put replaces the stored frame and returns it with its sequence number assigned.
func (s *Store) Put(frame model.Frame) model.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unread {
		s.stats.Overwritten++
	}

	s.stats.Published++
	frame.Seq = s.stats.Published
	if frame.Timestamp.IsZero() {
		frame.Timestamp = time.Now()
	}

	s.frame = &frame
	s.unread = true
	s.stats.LastSeq = frame.Seq
	s.stats.LastPutAt = frame.Timestamp
	return frame
}

// Get returns the current frame, or false if nothing has been published yet.
func (s *Store) Get() (model.Frame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.frame == nil {
		return model.Frame{}, false
	}
	s.unread = false
	s.stats.Reads++
	return *s.frame, true
}

// Peek is Get without touching the read statistics. Used by viewers that
// must not hide drops from the recognition loop.
func (s *Store) Peek() (model.Frame, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.frame == nil {
		return model.Frame{}, false
	}
	return *s.frame, true
}

func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}
