// Driftline - Multi-Tenant Event Analytics Backend
// Copyright 2026 Driftline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/driftline/driftline

// Package models defines the domain types shared across Driftline
// components: events, funnels, API keys, analytics results, and the HTTP
// response envelope.
package models

import (
	"time"
)

// Validation bounds for ingested events.
const (
	// MaxFieldLength bounds userId and eventName.
	MaxFieldLength = 255

	// MaxPropertiesBytes bounds the serialized properties payload.
	MaxPropertiesBytes = 64 * 1024

	// MaxBatchEvents bounds a single ingestion request.
	MaxBatchEvents = 1000
)

// Tenant identifies the (organization, project) pair that partitions all
// data and quotas.
type Tenant struct {
	OrgID     string `json:"orgId"`
	ProjectID string `json:"projectId"`
}

// Key returns the canonical tenant key "{orgId}:{projectId}" used for
// buffers, cache namespaces, and realtime rooms.
func (t Tenant) Key() string {
	return t.OrgID + ":" + t.ProjectID
}

// Valid reports whether both tenant components are present.
func (t Tenant) Valid() bool {
	return t.OrgID != "" && t.ProjectID != ""
}

// Event is an observed user action. After validation the four required
// fields (UserID, EventName, OrgID, ProjectID) are always present and
// Timestamp is set; the record is read-only once persisted.
type Event struct {
	ID          string         `json:"id"`
	OrgID       string         `json:"orgId"`
	ProjectID   string         `json:"projectId"`
	UserID      string         `json:"userId"`
	EventName   string         `json:"eventName"`
	Timestamp   time.Time      `json:"timestamp"`
	Properties  map[string]any `json:"properties,omitempty"`
	SessionID   string         `json:"sessionId,omitempty"`
	PageURL     string         `json:"pageUrl,omitempty"`
	UserAgent   string         `json:"userAgent,omitempty"`
	IPAddress   string         `json:"ipAddress,omitempty"`
	Fingerprint string         `json:"-"`
}

// Tenant returns the event's tenant pair.
func (e *Event) Tenant() Tenant {
	return Tenant{OrgID: e.OrgID, ProjectID: e.ProjectID}
}

// EventPayload is the wire form of an event as submitted by clients.
// Timestamp is a string so that both absence and malformed values can be
// distinguished during validation; orgId/projectId are assigned from the
// caller's authenticated tenant, never from the payload.
type EventPayload struct {
	UserID     string         `json:"userId"`
	EventName  string         `json:"eventName"`
	Timestamp  string         `json:"timestamp,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
	SessionID  string         `json:"sessionId,omitempty"`
	PageURL    string         `json:"pageUrl,omitempty"`
	UserAgent  string         `json:"userAgent,omitempty"`
	IPAddress  string         `json:"ipAddress,omitempty"`
}

// SkippedEvent reports why one event of a batch was not accepted.
// Per-event failures never fail the whole batch.
type SkippedEvent struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// IngestResult summarizes one ingestion request.
type IngestResult struct {
	Processed  int            `json:"processed"`
	Duplicates int            `json:"duplicates"`
	Skipped    []SkippedEvent `json:"skipped,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}
