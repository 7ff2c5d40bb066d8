// Driftline - Multi-Tenant Event Analytics Backend
// Copyright 2026 Driftline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/driftline/driftline

package ingest

import (
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/driftline/driftline/internal/models"
)

// Batch-level validation errors. Per-event problems are reported as skip
// reasons instead and never fail the batch.
var (
	// ErrEmptyBatch rejects requests carrying zero events.
	ErrEmptyBatch = errors.New("batch contains no events")

	// ErrBatchTooLarge rejects requests above models.MaxBatchEvents.
	ErrBatchTooLarge = fmt.Errorf("batch exceeds %d events", models.MaxBatchEvents)
)

// ValidateBatch checks the request-level bounds.
func ValidateBatch(payloads []models.EventPayload) error {
	if len(payloads) == 0 {
		return ErrEmptyBatch
	}
	if len(payloads) > models.MaxBatchEvents {
		return ErrBatchTooLarge
	}
	return nil
}

// validateEvent turns a raw payload into a validated Event scoped to the
// caller's tenant. The tenant always comes from authentication, never from
// the payload. A missing timestamp is filled with receipt time; a present
// but unparseable one is a validation failure.
func validateEvent(payload *models.EventPayload, tenant models.Tenant, receivedAt time.Time) (*models.Event, error) {
	if payload.UserID == "" {
		return nil, errors.New("userId is required")
	}
	if len(payload.UserID) > models.MaxFieldLength {
		return nil, fmt.Errorf("userId exceeds %d characters", models.MaxFieldLength)
	}
	if payload.EventName == "" {
		return nil, errors.New("eventName is required")
	}
	if len(payload.EventName) > models.MaxFieldLength {
		return nil, fmt.Errorf("eventName exceeds %d characters", models.MaxFieldLength)
	}

	timestamp := receivedAt.UTC()
	if payload.Timestamp != "" {
		parsed, err := time.Parse(time.RFC3339, payload.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("timestamp %q is not a valid RFC3339 instant", payload.Timestamp)
		}
		timestamp = parsed.UTC()
	}

	if payload.Properties != nil {
		serialized, err := json.Marshal(payload.Properties)
		if err != nil {
			return nil, errors.New("properties are not serializable")
		}
		if len(serialized) > models.MaxPropertiesBytes {
			return nil, fmt.Errorf("properties exceed %d bytes serialized", models.MaxPropertiesBytes)
		}
	}

	event := &models.Event{
		ID:         uuid.New().String(),
		OrgID:      tenant.OrgID,
		ProjectID:  tenant.ProjectID,
		UserID:     payload.UserID,
		EventName:  payload.EventName,
		Timestamp:  timestamp,
		Properties: payload.Properties,
		SessionID:  payload.SessionID,
		PageURL:    payload.PageURL,
		UserAgent:  payload.UserAgent,
		IPAddress:  payload.IPAddress,
	}
	event.Fingerprint = Fingerprint(event)
	return event, nil
}
