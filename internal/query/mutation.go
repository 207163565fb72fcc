package query

import (
	"context"
)

// Mutation describes a write against the forum API.
type Mutation struct {
	// Invalidates lists the key prefixes to invalidate once the write succeeds.
	Invalidates []Key
	// Dedupe, when set, coalesces identical writes that are in flight at the
	// same time into one call. Callers build it from the session and the
	// payload that makes two submits identical.
	Dedupe string
}

// Mutate runs fn and, only if it succeeds, invalidates m.Invalidates.
// A failed mutation leaves the cache untouched.
func Mutate[T any](ctx context.Context, c *Client, m Mutation, fn func(ctx context.Context) (T, error)) (T, error) {
	if m.Dedupe == "" {
		v, err := fn(ctx)
		if err != nil {
			return v, err
		}
		c.invalidateAll(m.Invalidates)
		return v, nil
	}

	ch := c.mutations.DoChan(m.Dedupe, func() (any, error) {
		v, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		c.invalidateAll(m.Invalidates)
		return v, nil
	})

	var zero T
	select {
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		if res.Shared {
			c.logger.Debug("coalesced duplicate mutation", "dedupe", m.Dedupe)
		}
		out, _ := res.Val.(T)
		return out, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func (c *Client) invalidateAll(keys []Key) {
	for _, key := range keys {
		c.Invalidate(key)
	}
}
