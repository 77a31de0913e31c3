package garage

import "context"

// TokenProvider supplies the bearer token attached to every request. An empty
// token with a nil error means the user is not logged in.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// TokenStore persists the session token between invocations.
type TokenStore interface {
	TokenProvider

	// Save replaces the stored token.
	Save(token string) error

	// Clear removes the stored token. Clearing an empty store is not an error.
	Clear() error
}

// StaticToken is a TokenProvider that always returns the same token.
type StaticToken string

func (t StaticToken) Token(context.Context) (string, error) { return string(t), nil }
