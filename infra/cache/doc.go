// Package cache provides the key/value stores behind the cache gateway and
// the session store: an in-process store backed by go-cache and a Redis
// store backed by go-redis. Both are created through Registry.
package cache
