// Package requestid carries the per-request correlation id through contexts.
package requestid

import (
	"context"

	"github.com/oklog/ulid/v2"
)

// Header is the HTTP header used to propagate the id.
const Header = "X-Request-ID"

type ctxKey struct{}

// New returns a fresh, lexically sortable id.
func New() string {
	return ulid.Make().String()
}

// With stores id on ctx.
func With(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// From returns the id stored on ctx, or "".
func From(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}
