package auth

import (
	"context"

	"postfeed/domain"
)

const (
	callerKey privateKey = "caller"
)

type privateKey string

// SetCaller returns a copy of ctx carrying the authenticated caller.
func SetCaller(ctx context.Context, caller *domain.Caller) context.Context {
	return context.WithValue(ctx, callerKey, caller)
}

// GetCaller returns the caller stored in ctx, or nil for anonymous requests.
func GetCaller(ctx context.Context) *domain.Caller {
	if temp := ctx.Value(callerKey); temp != nil {
		if caller, ok := temp.(*domain.Caller); ok {
			return caller
		}
	}
	return nil
}
