// Package oauth exchanges end-user credentials for tokens against a remote
// OAuth-compatible identity service using the resource-owner password grant.
//
// # Exchange
//
// [Authenticator.Authenticate] performs exactly two sequential round trips:
//
//  1. POST <application href>/oauth/token with a form-urlencoded body
//     (login, password, grant_type, optional account_store).
//  2. GET <access_token_href> to confirm the issued token is retrievable.
//
// A [GrantResult] is only built when both calls succeed. There are no retries;
// callers decide whether to submit a new attempt.
//
// # Tenant context
//
// The application is passed on every call. [Authenticator.ForApplication]
// returns a new bound value and never mutates the receiver.
//
// # What this package must NOT do
//
//   - Log or echo the submitted password or issued tokens.
//   - Persist results anywhere (that belongs to the caller's result saver).
//   - Import goAuthWeb (no upward imports).
package oauth
