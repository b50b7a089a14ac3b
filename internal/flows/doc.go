// Package flows contains the pure-function orchestrators behind the Engine's
// authenticate, login and logout operations.
//
// Each flow accepts a typed dependency struct of funcs and returns results
// without side effects beyond those funcs. Missing optional funcs (metrics,
// audit, warnings) default to no-ops; missing required funcs return the
// configured EngineNotReady error.
//
// # Architecture boundaries
//
// Flows fix the ORDER of side effects (throttle check before provider call,
// persist before success handler, clear before invalidate). They do not own
// the session, saver, provider or throttle; the Engine does.
//
// This package must not import the root package.
package flows
