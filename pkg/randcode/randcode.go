package randcode

import (
	"crypto/rand"
	"encoding/base64"
	"math/big"
)

var (
	letters = []rune("ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789")
	digits  = []rune("0123456789")
)

func GenerateAlphaNumericCode(length int) (string, error) {
	return generate(letters, length)
}

// GenerateNumericCode returns a uniformly distributed string of decimal digits.
// Leading zeros are kept, so "004211" is a valid 6-digit code.
func GenerateNumericCode(length int) (string, error) {
	return generate(digits, length)
}

// GenerateURLSafeToken returns n random bytes encoded with unpadded base64url.
func GenerateURLSafeToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func generate(alphabet []rune, length int) (string, error) {
	b := make([]rune, length)
	upper := big.NewInt(int64(len(alphabet)))

	for i := range b {
		n, err := rand.Int(rand.Reader, upper)
		if err != nil {
			return "", err
		}

		b[i] = alphabet[n.Int64()]
	}

	return string(b), nil
}
