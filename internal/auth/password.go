package auth

import "golang.org/x/crypto/bcrypt"

// bcryptCost matches the cost the previous deployments hashed with, so old
// hashes keep verifying.
const bcryptCost = 12

// HashPassword returns a one-way hash of the plaintext password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether the plaintext password matches the hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
