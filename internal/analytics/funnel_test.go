// Driftline - Multi-Tenant Event Analytics Backend
// Copyright 2026 Driftline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/driftline/driftline

package analytics

import (
	"testing"
	"time"

	"github.com/driftline/driftline/internal/models"
)

func at(minute int) time.Time {
	return time.Date(2024, 1, 1, 10, minute, 0, 0, time.UTC)
}

func TestReduceFunnelOrderedMembership(t *testing.T) {
	steps := []models.FunnelStep{
		{EventName: "page_view"},
		{EventName: "add_to_cart"},
		{EventName: "purchase"},
	}
	// u1 completes the funnel, u2 only views.
	occurrences := []map[string][]time.Time{
		{"u1": {at(0)}, "u2": {at(0)}},
		{"u1": {at(1)}},
		{"u1": {at(5)}},
	}

	counts := reduceFunnel(steps, occurrences)

	want := []int{2, 1, 1}
	for i := range want {
		if counts[i] != want[i] {
			t.Errorf("step %d count = %d, want %d", i+1, counts[i], want[i])
		}
	}
}

func TestReduceFunnelRequiresOrder(t *testing.T) {
	steps := []models.FunnelStep{
		{EventName: "signup"},
		{EventName: "upgrade"},
	}
	// u1 upgraded before signing up: must not count for step 2.
	occurrences := []map[string][]time.Time{
		{"u1": {at(10)}},
		{"u1": {at(5)}},
	}

	counts := reduceFunnel(steps, occurrences)
	if counts[0] != 1 || counts[1] != 0 {
		t.Errorf("counts = %v, want [1 0]", counts)
	}
}

func TestReduceFunnelTimeWindow(t *testing.T) {
	steps := []models.FunnelStep{
		{EventName: "view"},
		{EventName: "buy", TimeWindowSeconds: 60},
	}
	occurrences := []map[string][]time.Time{
		{"fast": {at(0)}, "slow": {at(0)}},
		// fast buys within the window, slow two minutes later.
		{"fast": {at(1)}, "slow": {at(2)}},
	}

	counts := reduceFunnel(steps, occurrences)
	if counts[0] != 2 || counts[1] != 1 {
		t.Errorf("counts = %v, want [2 1]", counts)
	}
}

func TestReduceFunnelUnboundedWindow(t *testing.T) {
	steps := []models.FunnelStep{
		{EventName: "view"},
		{EventName: "buy", TimeWindowSeconds: 0},
	}
	occurrences := []map[string][]time.Time{
		{"u1": {at(0)}},
		{"u1": {at(59)}},
	}

	counts := reduceFunnel(steps, occurrences)
	if counts[1] != 1 {
		t.Errorf("zero window must be unbounded, counts = %v", counts)
	}
}

func TestReduceFunnelEarliestQualifyingOccurrence(t *testing.T) {
	steps := []models.FunnelStep{
		{EventName: "view"},
		{EventName: "cart", TimeWindowSeconds: 120},
		{EventName: "buy", TimeWindowSeconds: 120},
	}
	// The user's first cart is before the view and must be skipped; the
	// second cart anchors the purchase window.
	occurrences := []map[string][]time.Time{
		{"u1": {at(5)}},
		{"u1": {at(1), at(6)}},
		{"u1": {at(7)}},
	}

	counts := reduceFunnel(steps, occurrences)
	if counts[0] != 1 || counts[1] != 1 || counts[2] != 1 {
		t.Errorf("counts = %v, want [1 1 1]", counts)
	}
}

func TestReduceFunnelMonotonicity(t *testing.T) {
	steps := []models.FunnelStep{
		{EventName: "a"}, {EventName: "b"}, {EventName: "c"},
	}
	occurrences := []map[string][]time.Time{
		{"u1": {at(0)}, "u2": {at(0)}, "u3": {at(1)}},
		{"u1": {at(2)}, "u3": {at(0)}, "u4": {at(3)}},
		{"u1": {at(4)}, "u2": {at(4)}},
	}

	counts := reduceFunnel(steps, occurrences)
	for i := 1; i < len(counts); i++ {
		if counts[i] > counts[i-1] {
			t.Fatalf("monotonicity violated: %v", counts)
		}
	}
}

func TestRound2(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{100.0 / 3.0, 33.33},
		{200.0 / 3.0, 66.67},
		{50.0, 50.0},
		{0.005, 0.01},
	}
	for _, tt := range tests {
		if got := round2(tt.in); got != tt.want {
			t.Errorf("round2(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
