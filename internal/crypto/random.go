package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"math/big"
)

const tokenChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// TokenIDLength is the length of generated token ids (about 238 bits of entropy).
const TokenIDLength = 40

var ErrLengthTooShort = errors.New("token length must be at least 16")

// RandomString returns a cryptographically random alphanumeric string.
func RandomString(length int) (string, error) {
	if length < 16 {
		return "", ErrLengthTooShort
	}

	result := make([]byte, length)
	for i := range result {
		ch, err := randChar(tokenChars)
		if err != nil {
			return "", err
		}
		result[i] = ch
	}
	return string(result), nil
}

// NewTokenID returns a fresh random token id.
func NewTokenID() (string, error) {
	return RandomString(TokenIDLength)
}

// HashTokenID returns the hex SHA-256 digest stored in place of a token id.
func HashTokenID(id string) string {
	sum := sha256.Sum256([]byte(id))
	return hex.EncodeToString(sum[:])
}

// randChar picks a random character from charset using crypto/rand.
func randChar(charset string) (byte, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
	if err != nil {
		return 0, err
	}
	return charset[n.Int64()], nil
}
