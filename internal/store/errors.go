// Driftline - Multi-Tenant Event Analytics Backend
// Copyright 2026 Driftline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/driftline/driftline

package store

import "errors"

// Sentinel errors surfaced by the store. Handlers map these onto the 404
// and 409 responses.
var (
	// ErrNotFound indicates the requested record does not exist under the
	// caller's tenant.
	ErrNotFound = errors.New("record not found")

	// ErrConflict indicates a uniqueness violation (funnel name, key name,
	// or key value already taken).
	ErrConflict = errors.New("record already exists")
)
