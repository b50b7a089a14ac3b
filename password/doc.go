// Package password hashes and verifies local account passwords with Argon2id.
//
// Hashes use the PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// [Argon2.NeedsUpgrade] reports hashes produced with weaker parameters so a
// caller can re-hash after the next successful verification.
// [Argon2.VerifyDummy] spends the same work as a real verification and is
// used when no account matches a login, so response timing does not reveal
// which logins exist.
//
// Passwords are processed as raw bytes; no Unicode normalization is applied.
package password
