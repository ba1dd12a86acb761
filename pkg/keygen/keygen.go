package keygen

import (
	"crypto/rand"
	"math/big"
)

const digits = "0123456789"

// accountNumberDigits is the numeric portion of an account number
const accountNumberDigits = 8

// AccountNumber generates an account number of the form PREFIX + 8 random
// digits, e.g. "CH48291037". Uniqueness is the caller's responsibility.
func AccountNumber(prefix string) (string, error) {
	suffix, err := randomString(accountNumberDigits, digits)
	if err != nil {
		return "", err
	}
	return prefix + suffix, nil
}

// randomString generates a random string of given length from the given charset
func randomString(length int, charset string) (string, error) {
	result := make([]byte, length)
	charsetLen := big.NewInt(int64(len(charset)))

	for i := 0; i < length; i++ {
		num, err := rand.Int(rand.Reader, charsetLen)
		if err != nil {
			return "", err
		}
		result[i] = charset[num.Int64()]
	}

	return string(result), nil
}
