package rampguard

import "context"

type clientIPContextKey struct{}

// WithClientIP attaches the caller’s IP address to ctx. Audit events fall
// back to it when the calling site does not pass the IP explicitly.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

func clientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}
