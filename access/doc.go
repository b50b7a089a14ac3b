// Package access decides, per request path, whether a request bypasses
// security, is public, or must be authenticated.
//
// Enabled feature routes (login, logout, forgot, change, register, verify)
// are public. Disabled routes are never registered and fall through to the
// default, which is authentication required. Static paths listed as ignored
// skip the filter entirely.
//
// Patterns are exact paths or a prefix ending in "/**".
package access
