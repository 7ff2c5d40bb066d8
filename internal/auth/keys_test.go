// Driftline - Multi-Tenant Event Analytics Backend
// Copyright 2026 Driftline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/driftline/driftline

package auth

import (
	"context"
	"testing"

	"github.com/driftline/driftline/internal/models"
	"github.com/driftline/driftline/internal/store"
)

// memKeyStore is an in-memory KeyStore for manager tests.
type memKeyStore struct {
	byID     map[string]*models.APIKey
	bySecret map[string]*models.APIKey
	touched  []string
}

func newMemKeyStore() *memKeyStore {
	return &memKeyStore{
		byID:     make(map[string]*models.APIKey),
		bySecret: make(map[string]*models.APIKey),
	}
}

func (m *memKeyStore) CreateAPIKey(_ context.Context, key *models.APIKey) error {
	for _, existing := range m.byID {
		if existing.Key == key.Key || (existing.OrgID == key.OrgID && existing.Name == key.Name) {
			return store.ErrConflict
		}
	}
	if key.ID == "" {
		key.ID = "id-" + key.Name
	}
	m.byID[key.ID] = key
	m.bySecret[key.Key] = key
	return nil
}

func (m *memKeyStore) GetAPIKeyBySecret(_ context.Context, secret string) (*models.APIKey, error) {
	key, ok := m.bySecret[secret]
	if !ok || !key.IsActive {
		return nil, store.ErrNotFound
	}
	return key, nil
}

func (m *memKeyStore) GetAPIKey(_ context.Context, orgID, id string) (*models.APIKey, error) {
	key, ok := m.byID[id]
	if !ok || key.OrgID != orgID {
		return nil, store.ErrNotFound
	}
	return key, nil
}

func (m *memKeyStore) ListAPIKeys(_ context.Context, orgID string) ([]models.APIKey, error) {
	var keys []models.APIKey
	for _, key := range m.byID {
		if key.OrgID == orgID {
			keys = append(keys, *key)
		}
	}
	return keys, nil
}

func (m *memKeyStore) UpdateAPIKey(_ context.Context, key *models.APIKey) error {
	if _, ok := m.byID[key.ID]; !ok {
		return store.ErrNotFound
	}
	m.byID[key.ID] = key
	return nil
}

func (m *memKeyStore) DeleteAPIKey(_ context.Context, orgID, id string) error {
	key, ok := m.byID[id]
	if !ok || key.OrgID != orgID {
		return store.ErrNotFound
	}
	delete(m.bySecret, key.Key)
	delete(m.byID, id)
	return nil
}

func (m *memKeyStore) TouchAPIKey(_ context.Context, id string) error {
	m.touched = append(m.touched, id)
	return nil
}

func TestGenerateSecret(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		secret, err := GenerateSecret()
		if err != nil {
			t.Fatal(err)
		}
		if len(secret) != 64 {
			t.Fatalf("secret length = %d, want 64 hex chars", len(secret))
		}
		if seen[secret] {
			t.Fatal("generated secret repeated")
		}
		seen[secret] = true
	}
}

func TestManagerCreateAndAuthenticate(t *testing.T) {
	manager := NewManager(newMemKeyStore())
	ctx := context.Background()

	key, err := manager.Create(ctx, &models.CreateAPIKeyRequest{
		Name:        "ci",
		OrgID:       "acme",
		ProjectID:   "web",
		Permissions: []models.Permission{models.PermissionWrite},
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if key.Key == "" || !key.IsActive {
		t.Fatalf("created key malformed: %+v", key)
	}

	authed, err := manager.Authenticate(ctx, key.Key)
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if authed.OrgID != "acme" || authed.ProjectID != "web" {
		t.Errorf("authenticated tenant = %s/%s", authed.OrgID, authed.ProjectID)
	}
}

func TestManagerCreateValidation(t *testing.T) {
	manager := NewManager(newMemKeyStore())
	ctx := context.Background()

	tests := []struct {
		name string
		req  models.CreateAPIKeyRequest
	}{
		{"missing org", models.CreateAPIKeyRequest{
			Name: "k", Permissions: []models.Permission{models.PermissionRead}}},
		{"colon in org", models.CreateAPIKeyRequest{
			Name: "k", OrgID: "a:b", Permissions: []models.Permission{models.PermissionRead}}},
		{"colon in project", models.CreateAPIKeyRequest{
			Name: "k", OrgID: "a", ProjectID: "x:y", Permissions: []models.Permission{models.PermissionRead}}},
		{"unknown permission", models.CreateAPIKeyRequest{
			Name: "k", OrgID: "a", Permissions: []models.Permission{"root"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := manager.Create(ctx, &tt.req); err == nil {
				t.Error("expected rejection")
			}
		})
	}
}

func TestManagerNameConflict(t *testing.T) {
	manager := NewManager(newMemKeyStore())
	ctx := context.Background()

	req := models.CreateAPIKeyRequest{
		Name: "ci", OrgID: "acme",
		Permissions: []models.Permission{models.PermissionRead},
	}
	if _, err := manager.Create(ctx, &req); err != nil {
		t.Fatal(err)
	}
	if _, err := manager.Create(ctx, &req); err == nil {
		t.Error("duplicate name must conflict")
	}
}

func TestDeletedKeyIsUnauthorized(t *testing.T) {
	ks := newMemKeyStore()
	manager := NewManager(ks)
	ctx := context.Background()

	key, err := manager.Create(ctx, &models.CreateAPIKeyRequest{
		Name: "temp", OrgID: "acme",
		Permissions: []models.Permission{models.PermissionRead},
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := manager.Delete(ctx, "acme", key.ID); err != nil {
		t.Fatal(err)
	}

	if _, err := manager.Authenticate(ctx, key.Key); err == nil {
		t.Error("deleted key must fail authentication")
	}
}

func TestDeactivatedKeyIsUnauthorized(t *testing.T) {
	ks := newMemKeyStore()
	manager := NewManager(ks)
	ctx := context.Background()

	key, err := manager.Create(ctx, &models.CreateAPIKeyRequest{
		Name: "temp", OrgID: "acme",
		Permissions: []models.Permission{models.PermissionRead},
	})
	if err != nil {
		t.Fatal(err)
	}

	inactive := false
	if _, err := manager.Update(ctx, "acme", key.ID, &models.UpdateAPIKeyRequest{IsActive: &inactive}); err != nil {
		t.Fatal(err)
	}
	if _, err := manager.Authenticate(ctx, key.Key); err == nil {
		t.Error("deactivated key must fail authentication")
	}
}
