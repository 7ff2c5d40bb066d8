// Driftline - Multi-Tenant Event Analytics Backend
// Copyright 2026 Driftline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/driftline/driftline

package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/driftline/driftline/internal/models"
)

// Fingerprint computes the content-addressed identity of an event: SHA-256
// over (userId, eventName, timestampMillis, orgId, projectId). Two events
// colliding on this tuple are duplicates by definition.
func Fingerprint(event *models.Event) string {
	input := fmt.Sprintf("%s|%s|%d|%s|%s",
		event.UserID,
		event.EventName,
		event.Timestamp.UTC().UnixMilli(),
		event.OrgID,
		event.ProjectID,
	)
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])
}
