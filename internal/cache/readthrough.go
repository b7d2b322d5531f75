package cache

import "context"

// Response is what a backend read hands back to ReadThrough: a success flag,
// the payload worth caching, and a place to record where it came from.
type Response[T any] interface {
	Succeeded() bool
	Payload() T
	SetFromCache(bool)
}

// ReadThrough is the cache-aside read for one domain.
//
// On a fresh hit it returns hit(payload) marked as from cache and does not
// call fetch. Otherwise it calls fetch once, caches the payload if the
// response reports success, and returns the response marked as not from
// cache whether or not it succeeded. A fetch error is returned unchanged and
// nothing is cached. fetch must not return a nil response with a nil error.
func ReadThrough[T any, R Response[T]](
	ctx context.Context,
	c *Cache,
	d Domain,
	fetch func(context.Context) (R, error),
	hit func(T) R,
) (R, error) {
	if v, ok := Lookup[T](c, d); ok {
		resp := hit(v)
		resp.SetFromCache(true)
		return resp, nil
	}

	resp, err := fetch(ctx)
	if err != nil {
		var zero R
		return zero, err
	}

	if resp.Succeeded() {
		c.Set(d, resp.Payload())
		c.markSynced()
	}
	resp.SetFromCache(false)
	return resp, nil
}
