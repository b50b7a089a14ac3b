// Package provider contains authentication providers that verify credentials
// without a remote identity service.
//
// [Local] checks logins against an [AccountStore] of Argon2id hashes. Plug
// it into the engine with goAuthWeb.Builder.WithAuthenticationProvider.
package provider
