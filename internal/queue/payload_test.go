// Driftline - Multi-Tenant Event Analytics Backend
// Copyright 2026 Driftline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/driftline/driftline

package queue

import (
	"fmt"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/driftline/driftline/internal/models"
)

func TestBatchJobRoundTripPreservesOrder(t *testing.T) {
	tenant := models.Tenant{OrgID: "acme", ProjectID: "web"}
	events := make([]*models.Event, 10)
	for i := range events {
		events[i] = &models.Event{
			ID:        fmt.Sprintf("id-%d", i),
			UserID:    fmt.Sprintf("u%d", i),
			EventName: "page_view",
			OrgID:     tenant.OrgID, ProjectID: tenant.ProjectID,
			Timestamp: time.Date(2024, 1, 1, 10, 0, i, 0, time.UTC),
		}
	}

	job := NewBatchJob(tenant, events)
	msg, err := job.Message()
	if err != nil {
		t.Fatal(err)
	}
	if msg.UUID != job.JobID {
		t.Errorf("message UUID %q != job ID %q", msg.UUID, job.JobID)
	}
	if msg.Metadata.Get("tenant") != "acme:web" {
		t.Errorf("tenant metadata = %q", msg.Metadata.Get("tenant"))
	}

	parsed, err := ParseBatchJob(msg)
	if err != nil {
		t.Fatal(err)
	}
	if parsed.Tenant != tenant {
		t.Errorf("tenant = %+v", parsed.Tenant)
	}
	if len(parsed.Events) != len(events) {
		t.Fatalf("events = %d, want %d", len(parsed.Events), len(events))
	}
	for i, event := range parsed.Events {
		if event.UserID != events[i].UserID {
			t.Errorf("position %d = %s, want %s (order lost)", i, event.UserID, events[i].UserID)
		}
	}
}

func TestParseBatchJobRejectsGarbage(t *testing.T) {
	msg := message.NewMessage("uuid", []byte("not json"))
	if _, err := ParseBatchJob(msg); err == nil {
		t.Error("garbage payload must fail parsing")
	}
}
