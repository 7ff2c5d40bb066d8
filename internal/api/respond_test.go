// Driftline - Multi-Tenant Event Analytics Backend
// Copyright 2026 Driftline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/driftline/driftline

package api

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/driftline/driftline/internal/models"
)

func TestRespondSuccessEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	respondSuccess(rec, 200, map[string]int{"n": 1})

	var envelope models.APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatal(err)
	}
	if !envelope.Success {
		t.Error("success envelope must set success=true")
	}
	if envelope.Error != "" {
		t.Error("success envelope must not carry an error code")
	}
	if rec.Header().Get("Content-Type") != "application/json" {
		t.Error("missing content type")
	}
}

func TestRespondErrorEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	respondError(rec, 400, models.ErrCodeValidation, "bad input", map[string]string{"userId": "required"})

	var envelope models.APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatal(err)
	}
	if envelope.Success {
		t.Error("failure envelope must set success=false")
	}
	if envelope.Error != models.ErrCodeValidation {
		t.Errorf("error code = %q", envelope.Error)
	}
	if envelope.Details == nil {
		t.Error("details dropped")
	}
	if rec.Code != 400 {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestRespondPageMath(t *testing.T) {
	rec := httptest.NewRecorder()
	respondPage(rec, []int{1, 2, 3}, 2, 10, 21)

	var envelope models.APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatal(err)
	}
	p := envelope.Pagination
	if p == nil {
		t.Fatal("pagination missing")
	}
	if p.Page != 2 || p.Limit != 10 || p.Total != 21 || p.TotalPages != 3 {
		t.Errorf("pagination = %+v", p)
	}
}

func TestParseTimeRange(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		wantErr bool
	}{
		{"empty", "", false},
		{"rfc3339 pair", "startDate=2024-01-01T00:00:00Z&endDate=2024-01-01T23:59:59Z", false},
		{"date only", "startDate=2024-01-01&endDate=2024-01-02", false},
		{"garbage start", "startDate=yesterday", true},
		{"inverted range", "startDate=2024-02-01T00:00:00Z&endDate=2024-01-01T00:00:00Z", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/x?"+tt.query, nil)
			_, _, err := parseTimeRange(r)
			if (err != nil) != tt.wantErr {
				t.Errorf("parseTimeRange() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseTimeRangeDateOnlyEndIsInclusive(t *testing.T) {
	r := httptest.NewRequest("GET", "/x?endDate=2024-01-01", nil)
	_, end, err := parseTimeRange(r)
	if err != nil {
		t.Fatal(err)
	}
	want := time.Date(2024, 1, 1, 23, 59, 59, 0, time.UTC)
	if !end.Equal(want) {
		t.Errorf("end = %v, want %v (end of the named day)", end, want)
	}
}

func TestDecodeEventPayloads(t *testing.T) {
	single, err := decodeEventPayloads([]byte(`{"userId":"u1","eventName":"e"}`))
	if err != nil || len(single) != 1 {
		t.Fatalf("single object: %v, %d payloads", err, len(single))
	}

	array, err := decodeEventPayloads([]byte(`  [{"userId":"u1","eventName":"a"},{"userId":"u2","eventName":"b"}]`))
	if err != nil || len(array) != 2 {
		t.Fatalf("array: %v, %d payloads", err, len(array))
	}
	if array[0].EventName != "a" || array[1].EventName != "b" {
		t.Error("array order lost")
	}

	if _, err := decodeEventPayloads([]byte(`"just a string"`)); err == nil {
		t.Error("non-object body must be rejected")
	}
}
