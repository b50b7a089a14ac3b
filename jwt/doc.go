// Package jwt signs and verifies the compact authentication-result token
// carried in the result cookie. It supports HS256 and Ed25519 keys, key-id
// rotation through a verify key set, and strict issuer, audience and
// algorithm checks on parse.
package jwt
