// Package credential derives and verifies password hashes.
//
// Every password is combined with a process wide secret (the pepper) before
// it reaches bcrypt. The per-password salt lives inside the bcrypt string, the
// pepper never leaves the process, so a leaked directory alone is not enough
// to run an offline guessing attack.
package credential

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	DefaultCost = 12
)

type (
	Codec struct {
		pepper []byte
		cost   int
	}
)

var (
	// ErrPasswordTooLong is returned when password and pepper together
	// exceed the 72 bytes bcrypt accepts.
	ErrPasswordTooLong = errors.New("credential: password and pepper exceed 72 bytes")
)

// NewCodec returns a codec using the given pepper. A cost outside bcrypt's
// accepted range falls back to DefaultCost.
func NewCodec(pepper string, cost int) *Codec {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	return &Codec{pepper: []byte(pepper), cost: cost}
}

func (c *Codec) Hash(password string) (string, error) {
	input := c.peppered(password)
	defer zero(input)
	if len(input) > 72 {
		return "", ErrPasswordTooLong
	}
	buf, err := bcrypt.GenerateFromPassword(input, c.cost)
	if err != nil {
		return "", fmt.Errorf("credential: unable to hash password, cause %w", err)
	}
	return string(buf), nil
}

// Verify reports if password matches storedHash. Malformed or empty hashes
// never match.
func (c *Codec) Verify(password, storedHash string) bool {
	if storedHash == "" {
		return false
	}
	input := c.peppered(password)
	defer zero(input)
	return bcrypt.CompareHashAndPassword([]byte(storedHash), input) == nil
}

func (c *Codec) peppered(password string) []byte {
	buf := make([]byte, 0, len(password)+len(c.pepper))
	buf = append(buf, password...)
	return append(buf, c.pepper...)
}

func zero(buf []byte) {
	for i := range buf {
		buf[i] = 0
	}
}
