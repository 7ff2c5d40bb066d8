// Driftline - Multi-Tenant Event Analytics Backend
// Copyright 2026 Driftline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/driftline/driftline

package models

import (
	"fmt"
	"time"
)

// Funnel step count bounds.
const (
	MinFunnelSteps = 2
	MaxFunnelSteps = 10
)

// FunnelStep is one stage of a conversion funnel. Filters, when present,
// constrain the event's property bag. TimeWindowSeconds, when nonzero,
// requires the step to occur within that many seconds after the previous
// step; zero means unbounded.
type FunnelStep struct {
	EventName         string     `json:"eventName" validate:"required,max=255"`
	Filters           *Predicate `json:"filters,omitempty"`
	TimeWindowSeconds int        `json:"timeWindow" validate:"gte=0"`
}

// Funnel is an ordered sequence of steps through which conversion is
// measured. Scoped to a tenant; the name is unique per tenant.
type Funnel struct {
	ID          string       `json:"id"`
	OrgID       string       `json:"orgId"`
	ProjectID   string       `json:"projectId"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Steps       []FunnelStep `json:"steps"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// Tenant returns the funnel's tenant pair.
func (f *Funnel) Tenant() Tenant {
	return Tenant{OrgID: f.OrgID, ProjectID: f.ProjectID}
}

// ValidateSteps enforces the structural funnel rules: 2-10 steps, unique
// step event names, valid filters, non-negative time windows.
func ValidateSteps(steps []FunnelStep) error {
	if len(steps) < MinFunnelSteps || len(steps) > MaxFunnelSteps {
		return fmt.Errorf("funnel requires between %d and %d steps, got %d",
			MinFunnelSteps, MaxFunnelSteps, len(steps))
	}
	seen := make(map[string]struct{}, len(steps))
	for i, step := range steps {
		if step.EventName == "" {
			return fmt.Errorf("step %d: eventName is required", i+1)
		}
		if len(step.EventName) > MaxFieldLength {
			return fmt.Errorf("step %d: eventName exceeds %d characters", i+1, MaxFieldLength)
		}
		if _, dup := seen[step.EventName]; dup {
			return fmt.Errorf("step %d: duplicate step event %q", i+1, step.EventName)
		}
		seen[step.EventName] = struct{}{}
		if step.TimeWindowSeconds < 0 {
			return fmt.Errorf("step %d: timeWindow must not be negative", i+1)
		}
		if step.Filters != nil {
			if err := step.Filters.Validate(); err != nil {
				return fmt.Errorf("step %d: %w", i+1, err)
			}
		}
	}
	return nil
}

// CreateFunnelRequest is the payload for POST /funnels.
type CreateFunnelRequest struct {
	Name        string       `json:"name" validate:"required,max=255"`
	Description string       `json:"description" validate:"max=1024"`
	Steps       []FunnelStep `json:"steps" validate:"required"`
}

// UpdateFunnelRequest is the payload for PUT /funnels/:id. Nil fields are
// left unchanged.
type UpdateFunnelRequest struct {
	Name        *string      `json:"name,omitempty" validate:"omitempty,max=255"`
	Description *string      `json:"description,omitempty" validate:"omitempty,max=1024"`
	Steps       []FunnelStep `json:"steps,omitempty"`
}
