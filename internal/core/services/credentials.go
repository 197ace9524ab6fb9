package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/portal-sync/internal/core/domain"
	"github.com/custodia-labs/portal-sync/internal/core/ports/driven"
)

// Store keys owned by the credential vault.
//
//nolint:gosec // G101: These are key names, not actual credentials.
const (
	keyCredentials = "auth:credentials"
	keyLastLogin   = "auth:last_login"
)

// CredentialVault persists the portal credentials in the key-value store.
// Other services load them per use and never keep a copy.
type CredentialVault struct {
	store driven.KVStore
	now   func() time.Time
}

// NewCredentialVault creates a vault over store.
func NewCredentialVault(store driven.KVStore, opts ...Option) *CredentialVault {
	o := applyOptions(opts)
	return &CredentialVault{
		store: store,
		now:   o.now,
	}
}

// Save stores credentials, replacing any previous ones.
func (v *CredentialVault) Save(ctx context.Context, creds domain.Credentials) error {
	if err := creds.Validate(); err != nil {
		return err
	}
	if creds.SavedAt.IsZero() {
		creds.SavedAt = v.now()
	}
	data, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}
	if err := v.store.Set(ctx, keyCredentials, data); err != nil {
		return fmt.Errorf("save credentials: %w", err)
	}
	return nil
}

// Load returns the stored credentials.
// Returns domain.ErrCredentialsMissing if none are stored.
func (v *CredentialVault) Load(ctx context.Context) (*domain.Credentials, error) {
	data, err := v.store.Get(ctx, keyCredentials)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrCredentialsMissing
	}
	if err != nil {
		return nil, fmt.Errorf("load credentials: %w", err)
	}

	var creds domain.Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("%w: stored credentials unreadable: %v", domain.ErrCredentialsMissing, err)
	}
	if creds.Validate() != nil {
		return nil, domain.ErrCredentialsMissing
	}
	return &creds, nil
}

// Exists reports whether credentials are stored. It does not validate them remotely.
func (v *CredentialVault) Exists(ctx context.Context) (bool, error) {
	_, err := v.Load(ctx)
	if errors.Is(err, domain.ErrCredentialsMissing) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Clear removes the credentials and the last login time.
func (v *CredentialVault) Clear(ctx context.Context) error {
	if err := v.store.DeleteMany(ctx, []string{keyCredentials, keyLastLogin}); err != nil {
		return fmt.Errorf("clear credentials: %w", err)
	}
	return nil
}

// RecordLogin stores t as the last login time.
func (v *CredentialVault) RecordLogin(ctx context.Context, t time.Time) error {
	return v.store.Set(ctx, keyLastLogin, []byte(t.Format(time.RFC3339)))
}

// LastLogin returns the last login time, or zero if unknown.
func (v *CredentialVault) LastLogin(ctx context.Context) time.Time {
	data, err := v.store.Get(ctx, keyLastLogin)
	if err != nil {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, string(data))
	if err != nil {
		return time.Time{}
	}
	return t
}
