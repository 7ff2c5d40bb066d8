// Driftline - Multi-Tenant Event Analytics Backend
// Copyright 2026 Driftline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/driftline/driftline

package ingest

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/driftline/driftline/internal/models"
)

var testTenant = models.Tenant{OrgID: "acme", ProjectID: "web"}

func TestValidateBatchBounds(t *testing.T) {
	if err := ValidateBatch(nil); !errors.Is(err, ErrEmptyBatch) {
		t.Errorf("empty batch: got %v, want ErrEmptyBatch", err)
	}

	exactly := make([]models.EventPayload, models.MaxBatchEvents)
	if err := ValidateBatch(exactly); err != nil {
		t.Errorf("batch of %d must be accepted, got %v", models.MaxBatchEvents, err)
	}

	over := make([]models.EventPayload, models.MaxBatchEvents+1)
	if err := ValidateBatch(over); !errors.Is(err, ErrBatchTooLarge) {
		t.Errorf("batch of %d: got %v, want ErrBatchTooLarge", len(over), err)
	}
}

func TestValidateEvent(t *testing.T) {
	receivedAt := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		payload models.EventPayload
		wantErr bool
	}{
		{"valid", models.EventPayload{UserID: "u1", EventName: "page_view"}, false},
		{"missing userId", models.EventPayload{EventName: "page_view"}, true},
		{"missing eventName", models.EventPayload{UserID: "u1"}, true},
		{"userId too long", models.EventPayload{
			UserID: strings.Repeat("u", models.MaxFieldLength+1), EventName: "e"}, true},
		{"eventName at bound", models.EventPayload{
			UserID: "u1", EventName: strings.Repeat("e", models.MaxFieldLength)}, false},
		{"bad timestamp", models.EventPayload{
			UserID: "u1", EventName: "e", Timestamp: "yesterday"}, true},
		{"good timestamp", models.EventPayload{
			UserID: "u1", EventName: "e", Timestamp: "2024-01-01T10:00:00Z"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, err := validateEvent(&tt.payload, testTenant, receivedAt)
			if (err != nil) != tt.wantErr {
				t.Fatalf("validateEvent() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if event.OrgID != testTenant.OrgID || event.ProjectID != testTenant.ProjectID {
				t.Errorf("tenant not assigned from auth context: %+v", event)
			}
			if event.Fingerprint == "" {
				t.Error("fingerprint not computed")
			}
		})
	}
}

func TestValidateEventTimestampDefault(t *testing.T) {
	receivedAt := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	event, err := validateEvent(&models.EventPayload{UserID: "u1", EventName: "e"}, testTenant, receivedAt)
	if err != nil {
		t.Fatal(err)
	}
	if !event.Timestamp.Equal(receivedAt) {
		t.Errorf("missing timestamp must default to receipt time, got %v", event.Timestamp)
	}

	event, err = validateEvent(&models.EventPayload{
		UserID: "u1", EventName: "e", Timestamp: "2024-01-01T10:00:00Z",
	}, testTenant, receivedAt)
	if err != nil {
		t.Fatal(err)
	}
	want := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	if !event.Timestamp.Equal(want) {
		t.Errorf("explicit timestamp not honored: %v", event.Timestamp)
	}
}

func TestValidateEventPropertiesBound(t *testing.T) {
	big := map[string]any{"blob": strings.Repeat("x", models.MaxPropertiesBytes)}
	_, err := validateEvent(&models.EventPayload{
		UserID: "u1", EventName: "e", Properties: big,
	}, testTenant, time.Now())
	if err == nil {
		t.Error("oversized properties must be rejected")
	}
}

func TestFingerprintStability(t *testing.T) {
	base := &models.Event{
		UserID: "u1", EventName: "page_view",
		Timestamp: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
		OrgID:     "acme", ProjectID: "web",
	}

	if Fingerprint(base) != Fingerprint(base) {
		t.Error("fingerprint must be stable")
	}
	if len(Fingerprint(base)) != 64 {
		t.Errorf("fingerprint must be a hex SHA-256, got %d chars", len(Fingerprint(base)))
	}

	variants := []*models.Event{
		{UserID: "u2", EventName: base.EventName, Timestamp: base.Timestamp, OrgID: base.OrgID, ProjectID: base.ProjectID},
		{UserID: base.UserID, EventName: "click", Timestamp: base.Timestamp, OrgID: base.OrgID, ProjectID: base.ProjectID},
		{UserID: base.UserID, EventName: base.EventName, Timestamp: base.Timestamp.Add(time.Millisecond), OrgID: base.OrgID, ProjectID: base.ProjectID},
		{UserID: base.UserID, EventName: base.EventName, Timestamp: base.Timestamp, OrgID: "other", ProjectID: base.ProjectID},
		{UserID: base.UserID, EventName: base.EventName, Timestamp: base.Timestamp, OrgID: base.OrgID, ProjectID: "ios"},
	}
	seen := map[string]bool{Fingerprint(base): true}
	for i, v := range variants {
		fp := Fingerprint(v)
		if seen[fp] {
			t.Errorf("variant %d collided", i)
		}
		seen[fp] = true
	}
}
