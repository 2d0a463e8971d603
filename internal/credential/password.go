package credential

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the shortest password accepted anywhere.
const MinPasswordLength = 6

var ErrPasswordTooShort = errors.New("password must be at least 6 characters")

// dummyHash is compared against when no account matches, so a failed login
// costs the same whether or not the email exists.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("hrm-timing-equaliser"), bcrypt.DefaultCost)

// HashPassword returns a salted bcrypt hash of plaintext.
func HashPassword(plaintext string) (string, error) {
	if len(plaintext) < MinPasswordLength {
		return "", ErrPasswordTooShort
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CheckPassword reports whether plaintext matches hash. An empty hash never
// matches.
func CheckPassword(hash, plaintext string) bool {
	if hash == "" {
		BurnCompare(plaintext)
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

// BurnCompare spends one bcrypt comparison without a real hash.
func BurnCompare(plaintext string) {
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(plaintext))
}
