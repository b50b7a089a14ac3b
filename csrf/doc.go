// Package csrf binds one anti-forgery token to each session and validates
// submitted tokens against it.
//
// Tokens are generated lazily from crypto/rand, stored under the session
// attribute "csrfToken" and expected back in the request parameter
// "csrfToken" (or the X-CSRF-Token header). Comparison is constant time.
//
// # What this package must NOT do
//
//   - Own the session. Callers hand in an [AttributeStore].
//   - Decide which requests need validation; the HTTP filter does that.
package csrf
