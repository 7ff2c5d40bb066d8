// Driftline - Multi-Tenant Event Analytics Backend
// Copyright 2026 Driftline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/driftline/driftline

package models

import (
	"strings"
	"testing"
)

func steps(names ...string) []FunnelStep {
	out := make([]FunnelStep, len(names))
	for i, name := range names {
		out[i] = FunnelStep{EventName: name}
	}
	return out
}

func TestValidateSteps(t *testing.T) {
	tests := []struct {
		name    string
		steps   []FunnelStep
		wantErr bool
	}{
		{"two steps ok", steps("page_view", "purchase"), false},
		{"ten steps ok", steps("a", "b", "c", "d", "e", "f", "g", "h", "i", "j"), false},
		{"one step rejected", steps("page_view"), true},
		{"eleven steps rejected", steps("a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k"), true},
		{"duplicate names rejected", steps("page_view", "page_view"), true},
		{"empty name rejected", steps("page_view", ""), true},
		{"negative window rejected", []FunnelStep{
			{EventName: "a"}, {EventName: "b", TimeWindowSeconds: -1},
		}, true},
		{"overlong name rejected", steps("page_view", strings.Repeat("x", MaxFieldLength+1)), true},
		{"invalid filter rejected", []FunnelStep{
			{EventName: "a"},
			{EventName: "b", Filters: &Predicate{Kind: "bogus"}},
		}, true},
		{"valid filter ok", []FunnelStep{
			{EventName: "a"},
			{EventName: "b", Filters: &Predicate{Kind: PredEq, Field: "plan", Value: "pro"}},
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSteps(tt.steps)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSteps() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTenantKey(t *testing.T) {
	tenant := Tenant{OrgID: "acme", ProjectID: "web"}
	if got := tenant.Key(); got != "acme:web" {
		t.Errorf("Key() = %q, want %q", got, "acme:web")
	}
	if !tenant.Valid() {
		t.Error("expected tenant to be valid")
	}
	if (Tenant{OrgID: "acme"}).Valid() {
		t.Error("expected tenant without project to be invalid")
	}
}
