package auth

// ExternalProfile is a normalized identity returned by an OAuth provider.
// It contains facts only, no decisions: providers must not create users,
// link accounts, or issue tokens. It is used once per callback and never
// persisted as-is.
type ExternalProfile struct {
	Provider       string // e.g. "github", "google"
	ProviderUserID string // provider-scoped unique user identifier
	Username       string // display name or login, may be empty
	Email          string // primary email returned by provider, may be empty
	EmailVerified  bool   // whether the provider asserts email ownership
}

// ExternalKey is the stored identifier for this profile. Scoping the raw
// provider id with the provider name keeps ids from different providers from
// colliding in the single external_id column.
func (p *ExternalProfile) ExternalKey() string {
	return p.Provider + ":" + p.ProviderUserID
}
