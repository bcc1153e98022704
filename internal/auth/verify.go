package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
	"sync"

	"github.com/evanofslack/cf-ddns/internal/credential"
	"golang.org/x/crypto/bcrypt"
)

var ErrUnauthorized = errors.New("hostname/password incorrect")

// dummyHash is compared against on a lookup miss so an unknown hostname
// costs the same bcrypt work as a wrong password for a known one.
var dummyHash = sync.OnceValue(func() []byte {
	hash, err := bcrypt.GenerateFromPassword([]byte("ddns-unknown-host"), bcrypt.DefaultCost)
	if err != nil {
		panic(err)
	}
	return hash
})

type Verifier struct {
	store       credential.Store
	compareHash func(hash, password []byte) error
}

func NewVerifier(store credential.Store) *Verifier {
	return &Verifier{store: store, compareHash: bcrypt.CompareHashAndPassword}
}

// Verify returns nil when password matches the stored entry for hostname.
// Every rejection is ErrUnauthorized; store faults are returned as is.
func (v *Verifier) Verify(ctx context.Context, hostname, password string) error {
	if hostname == "" || password == "" {
		return ErrUnauthorized
	}

	expected, ok, err := v.store.Lookup(ctx, hostname)
	if err != nil {
		return err
	}
	if !ok {
		_ = v.compareHash(dummyHash(), []byte(password))
		return ErrUnauthorized
	}

	if isBcryptHash(expected) {
		if v.compareHash([]byte(expected), []byte(password)) != nil {
			return ErrUnauthorized
		}
		return nil
	}
	if !ConstantTimeEqual([]byte(password), []byte(expected)) {
		return ErrUnauthorized
	}
	return nil
}

func isBcryptHash(s string) bool {
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}

// ConstantTimeEqual compares a and b without stopping at the first
// difference. Only the lengths leak.
func ConstantTimeEqual(a, b []byte) bool {
	return constantTimeEqual(a, b, nil)
}

// visit, when set, is called once per compared byte index.
func constantTimeEqual(a, b []byte, visit func(i int)) bool {
	if len(a) != len(b) {
		return false
	}
	var diff byte
	for i := range a {
		if visit != nil {
			visit(i)
		}
		diff |= a[i] ^ b[i]
	}
	return subtle.ConstantTimeByteEq(diff, 0) == 1
}
