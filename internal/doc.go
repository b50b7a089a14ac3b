// Package internal contains helper utilities that are intentionally private to goAuthWeb,
// such as secure random token generation.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - flows: login and logout orchestration delegated to by the Engine
//   - rate: Redis-backed login throttle
//   - security: posture report derivation
//
// # What this package must NOT do
//
//   - Export types that appear in the public goAuthWeb API.
//   - Be imported by any package outside the goAuthWeb module.
package internal
