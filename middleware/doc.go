// Package middleware exposes the HTTP security filter built on top of
// goAuthWeb.Engine.
//
// # Filter
//
// [Filter] runs once per request:
//
//   - ignored static paths pass straight through, without a session;
//   - every other request gets a session attached;
//   - unsafe methods must carry the session's CSRF token (403 otherwise),
//     safe methods get the token in the context for form rendering;
//   - POST to the login URI authenticates, POST to the logout URI logs out;
//   - public routes pass; everything else needs a stored principal, else a
//     redirect to the login page (HTML) or 401.
//
// [Guard] is a narrower check for handlers mounted behind the engine's
// session middleware that only need the principal.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT
// implement authentication logic itself.
package middleware
