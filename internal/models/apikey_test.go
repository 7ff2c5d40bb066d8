// Driftline - Multi-Tenant Event Analytics Backend
// Copyright 2026 Driftline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/driftline/driftline

package models

import (
	"strings"
	"testing"
)

func TestHasPermission(t *testing.T) {
	tests := []struct {
		name  string
		held  []Permission
		check Permission
		want  bool
	}{
		{"direct grant", []Permission{PermissionRead}, PermissionRead, true},
		{"missing grant", []Permission{PermissionRead}, PermissionWrite, false},
		{"admin implies read", []Permission{PermissionAdmin}, PermissionRead, true},
		{"admin implies analytics", []Permission{PermissionAdmin}, PermissionAnalytics, true},
		{"empty set", nil, PermissionRead, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := APIKey{Permissions: tt.held}
			if got := key.HasPermission(tt.check); got != tt.want {
				t.Errorf("HasPermission(%s) = %v, want %v", tt.check, got, tt.want)
			}
		})
	}
}

func TestRedacted(t *testing.T) {
	key := APIKey{Key: strings.Repeat("ab", 32)}
	redacted := key.Redacted()

	if redacted.Key == key.Key {
		t.Error("expected secret to be masked")
	}
	if !strings.HasSuffix(redacted.Key, key.Key[len(key.Key)-4:]) {
		t.Errorf("expected last four characters preserved, got %q", redacted.Key)
	}
	if key.Key != strings.Repeat("ab", 32) {
		t.Error("Redacted must not mutate the original")
	}
}

func TestValidPermission(t *testing.T) {
	for _, p := range []Permission{PermissionRead, PermissionWrite, PermissionAdmin, PermissionAnalytics} {
		if !ValidPermission(p) {
			t.Errorf("expected %s to be valid", p)
		}
	}
	if ValidPermission("superuser") {
		t.Error("expected unknown permission to be invalid")
	}
}
