// Driftline - Multi-Tenant Event Analytics Backend
// Copyright 2026 Driftline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/driftline/driftline

package queue

import (
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/driftline/driftline/internal/models"
)

// BatchJob is the payload of one enqueued flush: a tenant's detached
// buffer. Event order inside the slice preserves submission order.
type BatchJob struct {
	JobID      string          `json:"jobId"`
	Tenant     models.Tenant   `json:"tenant"`
	Events     []*models.Event `json:"events"`
	EnqueuedAt time.Time       `json:"enqueuedAt"`
}

// NewBatchJob wraps a detached buffer into a job.
func NewBatchJob(tenant models.Tenant, events []*models.Event) *BatchJob {
	return &BatchJob{
		JobID:      uuid.New().String(),
		Tenant:     tenant,
		Events:     events,
		EnqueuedAt: time.Now().UTC(),
	}
}

// Message serializes the job into a Watermill message. The message UUID is
// the job ID, which JetStream uses for publish deduplication.
func (j *BatchJob) Message() (*message.Message, error) {
	payload, err := json.Marshal(j)
	if err != nil {
		return nil, fmt.Errorf("marshal batch job: %w", err)
	}
	msg := message.NewMessage(j.JobID, payload)
	msg.Metadata.Set("tenant", j.Tenant.Key())
	return msg, nil
}

// ParseBatchJob decodes a consumed message back into a job.
func ParseBatchJob(msg *message.Message) (*BatchJob, error) {
	var job BatchJob
	if err := json.Unmarshal(msg.Payload, &job); err != nil {
		return nil, fmt.Errorf("unmarshal batch job %s: %w", msg.UUID, err)
	}
	return &job, nil
}
