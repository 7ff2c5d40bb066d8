// Driftline - Multi-Tenant Event Analytics Backend
// Copyright 2026 Driftline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/driftline/driftline

package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/driftline/driftline/internal/logging"
)

// incrRetries bounds optimistic-transaction retries on counter contention.
const incrRetries = 8

// gcInterval is how often value-log garbage collection runs.
const gcInterval = 10 * time.Minute

// BadgerStore implements Store on BadgerDB. Entries use Badger's native
// TTL support; dedup markers, counters, and rate-limit windows survive
// process restarts.
type BadgerStore struct {
	db     *badger.DB
	stopGC chan struct{}
}

// NewBadgerStore opens (or creates) a BadgerDB at dir and starts the
// periodic value-log GC loop.
func NewBadgerStore(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", dir, err)
	}

	s := &BadgerStore{
		db:     db,
		stopGC: make(chan struct{}),
	}
	go s.gcLoop()
	return s, nil
}

// Get returns the value stored under key.
func (s *BadgerStore) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	var value string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			value = string(val)
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %s: %w", key, err)
	}
	return value, true, nil
}

// Set stores value under key with the given TTL (0 = no expiry).
func (s *BadgerStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(key), []byte(value))
		if ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
		return txn.SetEntry(entry)
	})
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Missing keys are not an error.
func (s *BadgerStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// IncrBy atomically adds delta to the counter at key. The TTL is applied on
// every write; counter keys that must keep a stable window embed the window
// start in the key instead of relying on TTL carry-over.
func (s *BadgerStore) IncrBy(ctx context.Context, key string, delta int64, ttl time.Duration) (int64, error) {
	var result int64

	for attempt := 0; attempt < incrRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		err := s.db.Update(func(txn *badger.Txn) error {
			current := int64(0)
			item, err := txn.Get([]byte(key))
			if err == nil {
				verr := item.Value(func(val []byte) error {
					parsed, perr := strconv.ParseInt(string(val), 10, 64)
					if perr != nil {
						return fmt.Errorf("counter %s holds non-integer value", key)
					}
					current = parsed
					return nil
				})
				if verr != nil {
					return verr
				}
			} else if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}

			result = current + delta
			entry := badger.NewEntry([]byte(key), []byte(strconv.FormatInt(result, 10)))
			if ttl > 0 {
				entry = entry.WithTTL(ttl)
			}
			return txn.SetEntry(entry)
		})

		if errors.Is(err, badger.ErrConflict) {
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("incr %s: %w", key, err)
		}
		return result, nil
	}

	return 0, fmt.Errorf("incr %s: transaction conflict persisted after %d attempts", key, incrRetries)
}

// GetInt64 returns the counter value at key, or 0 when absent.
func (s *BadgerStore) GetInt64(ctx context.Context, key string) (int64, error) {
	value, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return 0, err
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("counter %s holds non-integer value", key)
	}
	return parsed, nil
}

// Close stops the GC loop and closes the database.
func (s *BadgerStore) Close() error {
	close(s.stopGC)
	return s.db.Close()
}

// gcLoop periodically reclaims value-log space. RunValueLogGC returning an
// error is the normal "nothing to collect" signal.
func (s *BadgerStore) gcLoop() {
	ticker := time.NewTicker(gcInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopGC:
			return
		case <-ticker.C:
			for {
				if err := s.db.RunValueLogGC(0.5); err != nil {
					break
				}
			}
			logging.Debug().Msg("badger value log GC pass complete")
		}
	}
}
