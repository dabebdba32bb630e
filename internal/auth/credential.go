package auth

import "crypto/subtle"

// Credential is the single operator login accepted by the admin API.
// PasswordHash takes precedence over Password when both are set.
type Credential struct {
	Username     string
	Password     string
	PasswordHash string
}

// Configured reports whether any password is set. Without one every
// login is refused.
func (c Credential) Configured() bool {
	return c.Password != "" || c.PasswordHash != ""
}

// Check reports whether username and password match the credential.
// A malformed PasswordHash never matches.
func (c Credential) Check(username, password string) bool {
	if !c.Configured() {
		return false
	}
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(c.Username)) == 1

	var passOK bool
	if c.PasswordHash != "" {
		ok, err := VerifyPassword(password, c.PasswordHash)
		passOK = err == nil && ok
	} else {
		passOK = subtle.ConstantTimeCompare([]byte(password), []byte(c.Password)) == 1
	}
	return userOK && passOK
}
