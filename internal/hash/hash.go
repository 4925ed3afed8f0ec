package hash

import (
	"runtime"

	"golang.org/x/crypto/bcrypt"
)

// bcrypt is deliberately slow; the gate bounds how many hash operations run
// at once so a burst of logins cannot stall every other request handler.
var gate = make(chan struct{}, 2*runtime.GOMAXPROCS(0))

func HashPassword(password string) (string, error) {
	gate <- struct{}{}
	defer func() { <-gate }()

	hashBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}

	return string(hashBytes), nil
}

// CheckPassword reports whether password matches the stored digest. A
// malformed digest counts as a mismatch, never an error.
func CheckPassword(hash, password string) bool {
	gate <- struct{}{}
	defer func() { <-gate }()

	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
