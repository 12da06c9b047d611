package auth

import "context"

// UserStore is the credential store contract. Both calls are point lookups;
// the auth core never scans or mutates user rows.
type UserStore interface {
	// FindActiveUserByEmail returns the active user with the given email,
	// or ErrNotFound. Inactive rows are invisible to this call.
	FindActiveUserByEmail(ctx context.Context, email string) (*UserProfile, error)

	// FindUserByID returns the user row regardless of status, or ErrNotFound.
	// Callers decide what an inactive row means for them.
	FindUserByID(ctx context.Context, id string) (*UserProfile, error)
}
