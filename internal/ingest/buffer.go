// Driftline - Multi-Tenant Event Analytics Backend
// Copyright 2026 Driftline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/driftline/driftline

package ingest

import (
	"sync"
	"time"

	"github.com/driftline/driftline/internal/metrics"
	"github.com/driftline/driftline/internal/models"
)

// tenantBuffer holds one tenant's in-flight events. The mutex guards both
// the slice and the age marker; flushing detaches the slice wholesale, so
// ownership of a detached batch transfers entirely to the caller.
type tenantBuffer struct {
	mu      sync.Mutex
	events  []*models.Event
	firstAt time.Time
}

// bufferSet is the registry of tenant buffers, created lazily under its
// own mutex. Producers (ingest requests) and the sweeper contend only on
// the per-tenant lock; the registry lock is held just for lookup/insert.
type bufferSet struct {
	mu      sync.Mutex
	buffers map[string]*tenantBuffer
	size    int
}

func newBufferSet(size int) *bufferSet {
	return &bufferSet{
		buffers: make(map[string]*tenantBuffer),
		size:    size,
	}
}

// get returns the tenant's buffer, creating it on first use.
func (s *bufferSet) get(key string) *tenantBuffer {
	s.mu.Lock()
	defer s.mu.Unlock()
	buf, ok := s.buffers[key]
	if !ok {
		buf = &tenantBuffer{}
		s.buffers[key] = buf
	}
	return buf
}

// add appends an event to the tenant's buffer, preserving submission
// order. When the buffer reaches the size threshold it is detached and
// returned for synchronous enqueue; otherwise returns nil.
func (s *bufferSet) add(tenant models.Tenant, event *models.Event) []*models.Event {
	buf := s.get(tenant.Key())

	buf.mu.Lock()
	defer buf.mu.Unlock()

	if len(buf.events) == 0 {
		buf.firstAt = time.Now()
	}
	buf.events = append(buf.events, event)
	metrics.BufferedEvents.Inc()

	if len(buf.events) >= s.size {
		return buf.detachLocked()
	}
	return nil
}

// detachLocked swaps the buffer for an empty one. Caller holds buf.mu.
func (buf *tenantBuffer) detachLocked() []*models.Event {
	detached := buf.events
	buf.events = nil
	buf.firstAt = time.Time{}
	metrics.BufferedEvents.Sub(float64(len(detached)))
	return detached
}

// detachAged detaches every buffer older than maxAge, keyed by tenant key.
func (s *bufferSet) detachAged(maxAge time.Duration) map[string][]*models.Event {
	now := time.Now()
	aged := make(map[string][]*models.Event)

	for key, buf := range s.snapshot() {
		buf.mu.Lock()
		if len(buf.events) > 0 && now.Sub(buf.firstAt) >= maxAge {
			aged[key] = buf.detachLocked()
		}
		buf.mu.Unlock()
	}
	return aged
}

// detachAll detaches every non-empty buffer. Used on shutdown.
func (s *bufferSet) detachAll() map[string][]*models.Event {
	all := make(map[string][]*models.Event)

	for key, buf := range s.snapshot() {
		buf.mu.Lock()
		if len(buf.events) > 0 {
			all[key] = buf.detachLocked()
		}
		buf.mu.Unlock()
	}
	return all
}

// snapshot copies the registry map so iteration does not hold the registry
// lock while taking per-buffer locks.
func (s *bufferSet) snapshot() map[string]*tenantBuffer {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := make(map[string]*tenantBuffer, len(s.buffers))
	for key, buf := range s.buffers {
		copied[key] = buf
	}
	return copied
}
