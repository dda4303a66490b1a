// Package security provides the credential primitives the security DSL
// builds on: bcrypt password hashing, HS256 token signing, and AES-GCM
// sealing for values that must round-trip through cookies.
package security

import "golang.org/x/crypto/bcrypt"

// HashPassword creates a bcrypt hash of the password at the default
// cost.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// MustHashPassword is HashPassword for static credential tables built
// at startup. It panics on failure.
func MustHashPassword(password string) string {
	hash, err := HashPassword(password)
	if err != nil {
		panic(err)
	}
	return hash
}

// VerifyPassword reports whether the password matches its bcrypt hash.
// The comparison runs in constant time.
func VerifyPassword(hashedPassword, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password)) == nil
}
