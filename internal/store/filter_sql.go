// Driftline - Multi-Tenant Event Analytics Backend
// Copyright 2026 Driftline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/driftline/driftline

package store

import (
	"fmt"
	"strings"

	"github.com/driftline/driftline/internal/models"
)

// predicateSQL compiles a property predicate tree into a parameterized SQL
// fragment over the events.properties JSON column. Field names are embedded
// as JSON path parameters, never interpolated into the statement text.
//
// Leaf semantics match models.Predicate.Matches, with one exception: a
// regex leaf here also tests non-string values by their text form
// (json_extract_string renders 42.5 as "42.5"), whereas Matches never
// matches a non-string value. A missing field never satisfies a leaf
// (json_extract_string yields NULL, and NULL comparisons are falsy in a
// WHERE clause).
func predicateSQL(p *models.Predicate) (string, []any, error) {
	if p == nil {
		return "", nil, nil
	}
	if err := p.Validate(); err != nil {
		return "", nil, err
	}
	return compilePredicate(p)
}

func compilePredicate(p *models.Predicate) (string, []any, error) {
	switch p.Kind {
	case models.PredEq:
		if num, ok := numericValue(p.Value); ok {
			return "TRY_CAST(json_extract_string(properties, ?) AS DOUBLE) = ?",
				[]any{jsonPath(p.Field), num}, nil
		}
		if b, ok := p.Value.(bool); ok {
			return "TRY_CAST(json_extract_string(properties, ?) AS BOOLEAN) = ?",
				[]any{jsonPath(p.Field), b}, nil
		}
		return "json_extract_string(properties, ?) = ?",
			[]any{jsonPath(p.Field), fmt.Sprintf("%v", p.Value)}, nil

	case models.PredRegex:
		return "regexp_matches(json_extract_string(properties, ?), ?)",
			[]any{jsonPath(p.Field), p.Pattern}, nil

	case models.PredRange:
		var (
			conds []string
			args  []any
		)
		if p.Lo != nil {
			conds = append(conds, "TRY_CAST(json_extract_string(properties, ?) AS DOUBLE) >= ?")
			args = append(args, jsonPath(p.Field), *p.Lo)
		}
		if p.Hi != nil {
			conds = append(conds, "TRY_CAST(json_extract_string(properties, ?) AS DOUBLE) <= ?")
			args = append(args, jsonPath(p.Field), *p.Hi)
		}
		return "(" + strings.Join(conds, " AND ") + ")", args, nil

	case models.PredAnd, models.PredOr:
		joiner := " AND "
		if p.Kind == models.PredOr {
			joiner = " OR "
		}
		var (
			parts []string
			args  []any
		)
		for i := range p.Preds {
			sqlPart, subArgs, err := compilePredicate(&p.Preds[i])
			if err != nil {
				return "", nil, err
			}
			parts = append(parts, sqlPart)
			args = append(args, subArgs...)
		}
		return "(" + strings.Join(parts, joiner) + ")", args, nil

	default:
		return "", nil, fmt.Errorf("unknown predicate kind %q", p.Kind)
	}
}

// numericValue reports whether a predicate value is numeric.
func numericValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// jsonPath renders a top-level property key as a JSON path parameter.
func jsonPath(field string) string {
	return "$." + field
}
