// Driftline - Multi-Tenant Event Analytics Backend
// Copyright 2026 Driftline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/driftline/driftline

package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/driftline/driftline/internal/logging"
	"github.com/driftline/driftline/internal/models"
)

// keySecretBytes is the entropy of a generated key: 32 bytes = 256 bits,
// hex-encoded to 64 characters.
const keySecretBytes = 32

// KeyStore is the slice of the event store that holds API keys.
type KeyStore interface {
	CreateAPIKey(ctx context.Context, key *models.APIKey) error
	GetAPIKeyBySecret(ctx context.Context, secret string) (*models.APIKey, error)
	GetAPIKey(ctx context.Context, orgID, id string) (*models.APIKey, error)
	ListAPIKeys(ctx context.Context, orgID string) ([]models.APIKey, error)
	UpdateAPIKey(ctx context.Context, key *models.APIKey) error
	DeleteAPIKey(ctx context.Context, orgID, id string) error
	TouchAPIKey(ctx context.Context, id string) error
}

// Manager handles API key lifecycle and authentication lookups.
type Manager struct {
	store KeyStore
}

// NewManager creates a key manager over the given store.
func NewManager(store KeyStore) *Manager {
	return &Manager{store: store}
}

// GenerateSecret returns a fresh 256-bit random key, hex-encoded.
func GenerateSecret() (string, error) {
	raw := make([]byte, keySecretBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate key secret: %w", err)
	}
	return hex.EncodeToString(raw), nil
}

// Create validates and persists a new key. The returned key includes the
// plaintext secret; listings afterwards redact it.
func (m *Manager) Create(ctx context.Context, req *models.CreateAPIKeyRequest) (*models.APIKey, error) {
	if err := validateTenantIDs(req.OrgID, req.ProjectID); err != nil {
		return nil, err
	}
	for _, p := range req.Permissions {
		if !models.ValidPermission(p) {
			return nil, fmt.Errorf("unknown permission %q", p)
		}
	}

	secret, err := GenerateSecret()
	if err != nil {
		return nil, err
	}

	key := &models.APIKey{
		Key:         secret,
		Name:        req.Name,
		OrgID:       req.OrgID,
		ProjectID:   req.ProjectID,
		Permissions: req.Permissions,
		IsActive:    true,
	}
	if err := m.store.CreateAPIKey(ctx, key); err != nil {
		return nil, err
	}

	logger := logging.Ctx(ctx)
	logger.Info().Str("key_id", key.ID).Str("org_id", key.OrgID).
		Str("name", key.Name).Msg("api key created")
	return key, nil
}

// Authenticate resolves a secret to its active key and records the use.
// Unknown and inactive keys are indistinguishable to the caller.
func (m *Manager) Authenticate(ctx context.Context, secret string) (*models.APIKey, error) {
	key, err := m.store.GetAPIKeyBySecret(ctx, secret)
	if err != nil {
		return nil, err
	}

	// Record last use without delaying the request.
	go func(id string) {
		if err := m.store.TouchAPIKey(context.Background(), id); err != nil {
			logging.Warn().Err(err).Str("key_id", id).Msg("last-used update failed")
		}
	}(key.ID)

	return key, nil
}

// Get returns one key of an org by id.
func (m *Manager) Get(ctx context.Context, orgID, id string) (*models.APIKey, error) {
	return m.store.GetAPIKey(ctx, orgID, id)
}

// List returns an org's keys with redacted secrets.
func (m *Manager) List(ctx context.Context, orgID string) ([]models.APIKey, error) {
	keys, err := m.store.ListAPIKeys(ctx, orgID)
	if err != nil {
		return nil, err
	}
	for i := range keys {
		keys[i] = keys[i].Redacted()
	}
	return keys, nil
}

// Update applies the non-nil fields of req to a key.
func (m *Manager) Update(ctx context.Context, orgID, id string, req *models.UpdateAPIKeyRequest) (*models.APIKey, error) {
	key, err := m.store.GetAPIKey(ctx, orgID, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		key.Name = *req.Name
	}
	if req.Permissions != nil {
		for _, p := range req.Permissions {
			if !models.ValidPermission(p) {
				return nil, fmt.Errorf("unknown permission %q", p)
			}
		}
		key.Permissions = req.Permissions
	}
	if req.IsActive != nil {
		key.IsActive = *req.IsActive
	}

	if err := m.store.UpdateAPIKey(ctx, key); err != nil {
		return nil, err
	}
	redacted := key.Redacted()
	return &redacted, nil
}

// Delete removes a key. Subsequent use of its secret is Unauthorized.
func (m *Manager) Delete(ctx context.Context, orgID, id string) error {
	if err := m.store.DeleteAPIKey(ctx, orgID, id); err != nil {
		return err
	}
	logger := logging.Ctx(ctx)
	logger.Info().Str("key_id", id).Str("org_id", orgID).Msg("api key deleted")
	return nil
}

// validateTenantIDs rejects tenant identifiers that would corrupt the
// "{orgId}:{projectId}" composite keys used by buffers, cache namespaces,
// and realtime rooms.
func validateTenantIDs(orgID, projectID string) error {
	if orgID == "" {
		return errors.New("orgId is required")
	}
	if strings.ContainsRune(orgID, ':') || strings.ContainsRune(projectID, ':') {
		return errors.New("orgId and projectId must not contain ':'")
	}
	return nil
}
