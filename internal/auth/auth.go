package auth

import (
	"crypto/subtle"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var ErrEmptyPassword = errors.New("password must not be empty")

func HashPassword(pw string) (string, error) {
	if pw == "" {
		return "", ErrEmptyPassword
	}
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	return string(b), err
}

func CheckPassword(hash, pw string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw))
	return err == nil
}

// Operator checks basic-auth credentials for maintenance endpoints.
type Operator struct {
	User string
	Hash string
}

// Enabled reports whether a password hash is configured.
func (o Operator) Enabled() bool { return strings.TrimSpace(o.Hash) != "" }

func (o Operator) Check(user, pw string) bool {
	if !o.Enabled() {
		return false
	}
	userOK := SecureEq(user, o.User)
	pwOK := CheckPassword(o.Hash, pw)
	return userOK && pwOK
}

// SecureEq compares two secrets in constant time.
func SecureEq(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
