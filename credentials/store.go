// Package credentials persists the access token, refresh token, and cached
// user profile shared by every API client and the session manager. It is
// plain storage: no validation, no token lifecycle logic.
package credentials

import "github.com/taskflow/taskflow-go/users"

// Store is the credential storage shared by all backend clients. Empty string
// or nil mean "absent". The access and refresh tokens are always set and
// cleared together; the cached user is only meaningful while both are present.
type Store interface {
	AccessToken() string
	RefreshToken() string
	User() *users.UserProfile

	// SetTokens overwrites both tokens as one operation; readers never observe
	// a new access token alongside a stale refresh token or vice versa.
	SetTokens(access, refresh string)
	SetUser(user *users.UserProfile)

	// Clear removes both tokens and the cached user as one logical operation.
	// Clearing an already-empty store is a no-op.
	Clear()
}
