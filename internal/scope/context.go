package scope

import "context"

type contextKey struct{}

// WithStack attaches a stack to a context so task-scoped code can recover
// it without threading the stack through every call.
func WithStack(ctx context.Context, s *Stack) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext retrieves the stack attached to the context, or nil.
func FromContext(ctx context.Context) *Stack {
	if s, ok := ctx.Value(contextKey{}).(*Stack); ok {
		return s
	}
	return nil
}
