// Driftline - Multi-Tenant Event Analytics Backend
// Copyright 2026 Driftline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/driftline/driftline

package analytics

import (
	"sort"
	"strings"

	"github.com/driftline/driftline/internal/models"
)

// buildKey derives a deterministic cache key from a query's full parameter
// set: namespace, tenant, then sorted key:value pairs joined by "|". Two
// queries share a key exactly when every dimension that affects the result
// is equal.
func buildKey(namespace string, tenant models.Tenant, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(namespace)
	b.WriteByte(':')
	b.WriteString(tenant.OrgID)
	b.WriteByte(':')
	b.WriteString(tenant.ProjectID)
	for _, k := range keys {
		b.WriteByte('|')
		b.WriteString(k)
		b.WriteByte(':')
		b.WriteString(params[k])
	}
	return b.String()
}
