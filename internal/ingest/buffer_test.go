// Driftline - Multi-Tenant Event Analytics Backend
// Copyright 2026 Driftline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/driftline/driftline

package ingest

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/driftline/driftline/internal/models"
)

func makeEvent(userID string) *models.Event {
	return &models.Event{UserID: userID, EventName: "e", OrgID: "acme", ProjectID: "web"}
}

func TestBufferSizeTrigger(t *testing.T) {
	buffers := newBufferSet(3)
	tenant := models.Tenant{OrgID: "acme", ProjectID: "web"}

	if got := buffers.add(tenant, makeEvent("u1")); got != nil {
		t.Fatal("flush before threshold")
	}
	if got := buffers.add(tenant, makeEvent("u2")); got != nil {
		t.Fatal("flush before threshold")
	}

	flushed := buffers.add(tenant, makeEvent("u3"))
	if len(flushed) != 3 {
		t.Fatalf("flushed %d events, want 3", len(flushed))
	}

	// Submission order must be preserved.
	for i, want := range []string{"u1", "u2", "u3"} {
		if flushed[i].UserID != want {
			t.Errorf("position %d = %s, want %s", i, flushed[i].UserID, want)
		}
	}

	// Buffer is empty again after the detach.
	if got := buffers.add(tenant, makeEvent("u4")); got != nil {
		t.Error("detached buffer must restart empty")
	}
}

func TestBufferTenantIsolation(t *testing.T) {
	buffers := newBufferSet(2)
	a := models.Tenant{OrgID: "a", ProjectID: "p"}
	b := models.Tenant{OrgID: "b", ProjectID: "p"}

	buffers.add(a, makeEvent("u1"))
	flushed := buffers.add(b, makeEvent("u2"))
	if flushed != nil {
		t.Fatal("tenant b must not flush tenant a's buffer")
	}

	flushed = buffers.add(a, makeEvent("u3"))
	if len(flushed) != 2 {
		t.Fatalf("tenant a flush = %d events, want 2", len(flushed))
	}
	for _, event := range flushed {
		if event.UserID == "u2" {
			t.Error("tenant b's event leaked into tenant a's batch")
		}
	}
}

func TestBufferDetachAged(t *testing.T) {
	buffers := newBufferSet(100)
	tenant := models.Tenant{OrgID: "acme", ProjectID: "web"}

	buffers.add(tenant, makeEvent("u1"))

	if aged := buffers.detachAged(time.Hour); len(aged) != 0 {
		t.Error("fresh buffer must not be detached")
	}

	time.Sleep(20 * time.Millisecond)
	aged := buffers.detachAged(10 * time.Millisecond)
	if len(aged) != 1 {
		t.Fatalf("aged buffers = %d, want 1", len(aged))
	}
	if events := aged[tenant.Key()]; len(events) != 1 {
		t.Errorf("aged events = %d, want 1", len(events))
	}
}

func TestBufferDetachAll(t *testing.T) {
	buffers := newBufferSet(100)

	for i := 0; i < 5; i++ {
		tenant := models.Tenant{OrgID: fmt.Sprintf("org%d", i), ProjectID: "p"}
		buffers.add(tenant, makeEvent("u"))
	}

	all := buffers.detachAll()
	if len(all) != 5 {
		t.Fatalf("detached %d tenants, want 5", len(all))
	}
	if again := buffers.detachAll(); len(again) != 0 {
		t.Error("second detachAll must find nothing")
	}
}

func TestBufferConcurrentAdd(t *testing.T) {
	const producers = 8
	const perProducer = 200

	buffers := newBufferSet(producers*perProducer + 1)
	tenant := models.Tenant{OrgID: "acme", ProjectID: "web"}

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				buffers.add(tenant, makeEvent(fmt.Sprintf("p%d-%d", p, i)))
			}
		}(p)
	}
	wg.Wait()

	all := buffers.detachAll()
	if got := len(all[tenant.Key()]); got != producers*perProducer {
		t.Errorf("buffered %d events, want %d", got, producers*perProducer)
	}
}
