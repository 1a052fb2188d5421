package ctxutil

import "context"

type jobIDKey struct{}

// WithJobID tags ctx with the production job it belongs to so providers can
// log against it.
func WithJobID(ctx context.Context, jobID string) context.Context {
	return context.WithValue(Default(ctx), jobIDKey{}, jobID)
}

func JobID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(jobIDKey{}).(string)
	return id
}
