// Package auth verifies the dashboard operator credential.
//
// The operator password may be configured in plaintext (development) or,
// preferably, as an Argon2id hash in PHC string format produced by
// "mcconnect hash-password". Comparisons are constant-time in both cases.
package auth
