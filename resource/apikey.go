package resource

// APIKey authenticates project-scoped calls.
type APIKey struct {
	ID        string `json:"id,omitempty"`
	ProjectID string `json:"projectId,omitempty"`
	Name      string `json:"name"`
	// Prefix is the non-secret leading part of the key, for display.
	Prefix string `json:"prefix,omitempty"`
	// Secret is the plaintext key. The server returns it only when the key
	// is created or rotated.
	Secret     *string `json:"secret,omitempty"`
	CreatedAt  int64   `json:"createdAt,omitempty"`
	ExpiresAt  *int64  `json:"expiresAt,omitempty"`
	LastUsedAt *int64  `json:"lastUsedAt,omitempty"`
}

// APIKeyWire is the wire form of an API key's metadata.
type APIKeyWire struct {
	ID         string `json:"id,omitempty"`
	ProjectID  string `json:"project_id,omitempty"`
	Name       string `json:"name"`
	Prefix     string `json:"prefix,omitempty"`
	CreatedAt  int64  `json:"created_at,omitempty"`
	ExpiresAt  *int64 `json:"expires_at,omitempty"`
	LastUsedAt *int64 `json:"last_used_at,omitempty"`
}

// APIKeySecretWire is returned by create and rotate: the metadata wrapped
// together with the plaintext key.
type APIKeySecretWire struct {
	APIKey APIKeyWire `json:"api_key"`
	Key    string     `json:"key"`
}

// APIKeyFromWire converts API key metadata.
func APIKeyFromWire(w APIKeyWire) APIKey {
	return APIKey{
		ID:         w.ID,
		ProjectID:  w.ProjectID,
		Name:       w.Name,
		Prefix:     w.Prefix,
		CreatedAt:  w.CreatedAt,
		ExpiresAt:  w.ExpiresAt,
		LastUsedAt: w.LastUsedAt,
	}
}

// APIKeyFromSecretWire converts a create or rotate response.
func APIKeyFromSecretWire(w APIKeySecretWire) APIKey {
	k := APIKeyFromWire(w.APIKey)
	if w.Key != "" {
		secret := w.Key
		k.Secret = &secret
	}
	return k
}

// APIKeyToWire builds the request body for creating a key. Only the name
// and expiry are writable.
func APIKeyToWire(k APIKey) APIKeyWire {
	return APIKeyWire{Name: k.Name, ExpiresAt: k.ExpiresAt}
}
