// Package goAuthWeb is the authentication and session boundary of a web
// application backed by a remote identity service.
//
// It exchanges end-user credentials for tokens through the OAuth2 resource
// owner password grant, persists the authentication result on the caller's
// session, guards state-changing requests with per-session CSRF tokens and
// decides which request paths are public.
//
// # Engine
//
// An [Engine] is assembled once with [New] and the [Builder] methods and is
// immutable and safe for concurrent use afterwards. The application (tenant)
// context travels per call: on the [LoginAttempt], through [WithApplication]
// on the request context, or as the configured default.
//
//	engine, err := goAuthWeb.New().
//		WithConfig(cfg).
//		WithRedis(rdb).
//		WithLogger(logger).
//		Build()
//
// # Collaborators
//
// Result persistence ([ResultSaver]), success and logout handling
// ([SuccessHandler], [LogoutHandler], [LogoutSuccessHandler]) and credential
// verification ([AuthenticationProvider]) are narrow interfaces with
// defaults. The middleware package wires the Engine into net/http.
package goAuthWeb
