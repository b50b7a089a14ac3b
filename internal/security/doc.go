// Package security derives the read-only posture report exposed by
// Engine.SecurityReport from an engine's effective settings.
//
// It performs no I/O and holds no state.
package security
