// Driftline - Multi-Tenant Event Analytics Backend
// Copyright 2026 Driftline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/driftline/driftline

package validation

import (
	"testing"
)

type sampleRequest struct {
	Name  string `validate:"required,max=10"`
	Count int    `validate:"gte=1,lte=100"`
}

func TestValidateStructPasses(t *testing.T) {
	if verr := ValidateStruct(&sampleRequest{Name: "ok", Count: 5}); verr != nil {
		t.Errorf("unexpected failure: %v", verr)
	}
}

func TestValidateStructReportsAllFields(t *testing.T) {
	verr := ValidateStruct(&sampleRequest{Name: "", Count: 0})
	if verr == nil {
		t.Fatal("expected validation failure")
	}
	if len(verr.Errors) != 2 {
		t.Fatalf("reported %d errors, want 2", len(verr.Errors))
	}

	details := verr.Details()
	if details["Name"] == "" {
		t.Error("Name failure missing from details")
	}
	if details["Count"] == "" {
		t.Error("Count failure missing from details")
	}
}

func TestTranslatedMessages(t *testing.T) {
	verr := ValidateStruct(&sampleRequest{Name: "far-too-long-name", Count: 5})
	if verr == nil {
		t.Fatal("expected failure on max")
	}
	if got := verr.Errors[0].Message; got != "Name must be at most 10 characters" {
		t.Errorf("message = %q", got)
	}
}
