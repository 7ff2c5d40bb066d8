// Driftline - Multi-Tenant Event Analytics Backend
// Copyright 2026 Driftline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/driftline/driftline

package models

import (
	"testing"
)

func floatPtr(v float64) *float64 { return &v }

func TestPredicateValidate(t *testing.T) {
	tests := []struct {
		name    string
		pred    Predicate
		wantErr bool
	}{
		{"eq ok", Eq("plan", "pro"), false},
		{"eq missing field", Predicate{Kind: PredEq}, true},
		{"regex ok", Regex("page", "^/docs/"), false},
		{"regex bad pattern", Regex("page", "("), true},
		{"range ok", Range("amount", floatPtr(1), floatPtr(10)), false},
		{"range no bounds", Predicate{Kind: PredRange, Field: "amount"}, true},
		{"and ok", And(Eq("a", 1), Eq("b", 2)), false},
		{"and empty", Predicate{Kind: PredAnd}, true},
		{"unknown kind", Predicate{Kind: "like"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.pred.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestPredicateMatches(t *testing.T) {
	props := map[string]any{
		"plan":   "pro",
		"amount": 42.5,
		"page":   "/docs/getting-started",
		"count":  float64(3),
	}

	tests := []struct {
		name string
		pred Predicate
		want bool
	}{
		{"eq string match", Eq("plan", "pro"), true},
		{"eq string mismatch", Eq("plan", "free"), false},
		{"eq missing field", Eq("tier", "gold"), false},
		{"eq numeric cross-type", Eq("count", 3), true},
		{"regex match", Regex("page", "^/docs/"), true},
		{"regex mismatch", Regex("page", "^/blog/"), false},
		{"regex on number", Regex("amount", ".*"), false},
		{"range inside", Range("amount", floatPtr(40), floatPtr(50)), true},
		{"range below lo", Range("amount", floatPtr(43), nil), false},
		{"range above hi", Range("amount", nil, floatPtr(42)), false},
		{"and both", And(Eq("plan", "pro"), Range("amount", floatPtr(0), nil)), true},
		{"and one fails", And(Eq("plan", "pro"), Eq("plan", "free")), false},
		{"or one matches", Or(Eq("plan", "free"), Eq("plan", "pro")), true},
		{"or none", Or(Eq("plan", "free"), Eq("plan", "trial")), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.pred.Matches(props); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}
