package auth

import "golang.org/x/crypto/bcrypt"

// PasswordVerifier hides the hash algorithm from the auth flows.
type PasswordVerifier interface {
	Verify(password, hash string) bool
	Hash(password string) (string, error)
}

// BcryptVerifier implements PasswordVerifier with bcrypt.
type BcryptVerifier struct {
	Cost int
}

// Verify compares a plaintext password against a stored hash.
func (v BcryptVerifier) Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Hash derives a new password hash.
func (v BcryptVerifier) Hash(password string) (string, error) {
	cost := v.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

var _ PasswordVerifier = BcryptVerifier{}
