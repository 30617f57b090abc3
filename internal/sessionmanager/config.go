package sessionmanager

import "context"

// GetConfig returns every configured key/value pair for userID (spec.md §6
// "Configuration keys recognized").
func (m *Manager) GetConfig(ctx context.Context, userID string) (map[string]string, error) {
	return m.store.GetConfig(ctx, userID)
}

// SetConfigValue upserts one config entry for userID.
func (m *Manager) SetConfigValue(ctx context.Context, userID, key, value string) error {
	return m.store.SetConfigValue(ctx, userID, key, value)
}

// DeleteConfigValue removes one config entry for userID.
func (m *Manager) DeleteConfigValue(ctx context.Context, userID, key string) error {
	return m.store.DeleteConfigValue(ctx, userID, key)
}
