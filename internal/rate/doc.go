// Package rate implements the Redis-backed failed-login throttle.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. Keys:
//   - <prefix>:l:<application>:<login>  failed attempts per login
//   - <prefix>:i:<ip>                   failed attempts per client IP
//
// Logins are lower-cased and hashed before use in a key so raw identifiers
// never appear in Redis.
package rate
