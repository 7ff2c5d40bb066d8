// Driftline - Multi-Tenant Event Analytics Backend
// Copyright 2026 Driftline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/driftline/driftline

package models

import (
	"time"
)

// Metric bucketing intervals.
const (
	IntervalHourly  = "hourly"
	IntervalDaily   = "daily"
	IntervalWeekly  = "weekly"
	IntervalMonthly = "monthly"
)

// ValidInterval reports whether interval names a supported bucketing.
func ValidInterval(interval string) bool {
	switch interval {
	case IntervalHourly, IntervalDaily, IntervalWeekly, IntervalMonthly:
		return true
	}
	return false
}

// Retention day bounds.
const (
	MinRetentionDays = 1
	MaxRetentionDays = 365
)

// FunnelStepResult is one step of a computed funnel, with conversion
// measured against the preceding step.
type FunnelStepResult struct {
	EventName      string  `json:"eventName"`
	Count          int     `json:"count"`
	ConversionRate float64 `json:"conversionRate"`
	DropOffRate    float64 `json:"dropOffRate"`
}

// FunnelAnalytics is the full result of a funnel computation. Step counts
// are monotone non-increasing.
type FunnelAnalytics struct {
	FunnelID   string             `json:"funnelId"`
	FunnelName string             `json:"funnelName"`
	StartDate  time.Time          `json:"startDate"`
	EndDate    time.Time          `json:"endDate"`
	TotalUsers int                `json:"totalUsers"`
	Steps      []FunnelStepResult `json:"steps"`
}

// RetentionDay reports how many cohort members returned on one day.
type RetentionDay struct {
	Day           int     `json:"day"`
	RetainedUsers int     `json:"retainedUsers"`
	RetentionRate float64 `json:"retentionRate"`
}

// RetentionAnalytics is the result of a cohort retention computation.
type RetentionAnalytics struct {
	CohortEvent   string         `json:"cohortEvent"`
	CohortSize    int            `json:"cohortSize"`
	Days          int            `json:"days"`
	StartDate     time.Time      `json:"startDate"`
	EndDate       time.Time      `json:"endDate"`
	RetentionData []RetentionDay `json:"retentionData"`
}

// MetricsBucket is one time bucket of an event metric series.
type MetricsBucket struct {
	BucketStart time.Time `json:"bucketStart"`
	Count       int64     `json:"count"`
	UniqueUsers int64     `json:"uniqueUsers"`
}

// EventMetrics is a time-bucketed series for one event name.
// TotalUniqueUsers is the distinct user count across the whole range, not
// the sum of per-bucket unique counts.
type EventMetrics struct {
	EventName        string          `json:"eventName"`
	Interval         string          `json:"interval"`
	StartDate        time.Time       `json:"startDate"`
	EndDate          time.Time       `json:"endDate"`
	TotalCount       int64           `json:"totalCount"`
	TotalUniqueUsers int64           `json:"totalUniqueUsers"`
	Series           []MetricsBucket `json:"series"`
}

// EventSummaryItem is one event name's aggregate within a range.
type EventSummaryItem struct {
	EventName   string `json:"eventName"`
	Count       int64  `json:"count"`
	UniqueUsers int64  `json:"uniqueUsers"`
}

// EventsSummary aggregates all event names within a range, descending by
// count. TotalUniqueUsers is distinct across all event names.
type EventsSummary struct {
	StartDate        time.Time          `json:"startDate"`
	EndDate          time.Time          `json:"endDate"`
	TotalEvents      int64              `json:"totalEvents"`
	TotalUniqueUsers int64              `json:"totalUniqueUsers"`
	Events           []EventSummaryItem `json:"events"`
}

// UserJourney is the chronologically ordered event history of one user.
type UserJourney struct {
	UserID    string    `json:"userId"`
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
	Total     int       `json:"total"`
	Events    []Event   `json:"events"`
}

// UserSummary aggregates one user's activity.
type UserSummary struct {
	UserID      string             `json:"userId"`
	TotalEvents int64              `json:"totalEvents"`
	FirstSeen   time.Time          `json:"firstSeen"`
	LastSeen    time.Time          `json:"lastSeen"`
	TopEvents   []EventSummaryItem `json:"topEvents"`
}

// RealtimeStats carries the live ingestion counters for a tenant.
type RealtimeStats struct {
	TotalEvents int64     `json:"totalEvents"`
	Timestamp   time.Time `json:"timestamp"`
}
