// Package session provides the HTTP session container used by the security
// filter: a string-attribute bag bound to a cookie, with explicit
// invalidation.
//
// # Backends
//
// [Store] keeps each session as a Redis hash keyed by a random UUID. The
// hash carries a creation marker plus one field per attribute and expires
// on a TTL that optionally slides on every load. [Manager] binds a [Store]
// to a request cookie.
//
// [GorillaManager] adapts any gorilla/sessions store (cookie or filesystem)
// to the same [Session] contract for deployments without Redis.
//
// # Architecture boundaries
//
// This package knows nothing about credentials, principals or CSRF. Callers
// store opaque strings under attribute names they own.
package session
