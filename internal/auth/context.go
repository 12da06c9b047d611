package auth

import "context"

type profileContextKey struct{}

// ContextWithProfile attaches the authenticated profile to the context.
func ContextWithProfile(ctx context.Context, profile UserProfile) context.Context {
	return context.WithValue(ctx, profileContextKey{}, &profile)
}

// ProfileFromContext extracts the authenticated profile from the context.
func ProfileFromContext(ctx context.Context) (UserProfile, bool) {
	if ctx == nil {
		return UserProfile{}, false
	}
	v, ok := ctx.Value(profileContextKey{}).(*UserProfile)
	if !ok || v == nil {
		return UserProfile{}, false
	}
	return *v, true
}

// UserIDFromContext returns the authenticated user id, if any. Audit logging
// uses this to stamp entries without carrying the full profile around.
func UserIDFromContext(ctx context.Context) (string, bool) {
	p, ok := ProfileFromContext(ctx)
	if !ok || p.ID == "" {
		return "", false
	}
	return p.ID, true
}
