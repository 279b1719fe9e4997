package types

import (
	"crypto/rand"
	"math/big"
)

const (
	passwordLength = 16

	lowerChars = "abcdefghijkmnpqrstuvwxyz"
	upperChars = "ABCDEFGHJKLMNPQRSTUVWXYZ"
	digitChars = "23456789"
)

// DefaultUsername is the administrative account name every instance is
// provisioned with.
const DefaultUsername = "neo4j"

// GeneratePassword returns a random password containing at least one
// lowercase letter, one uppercase letter, and one digit. The result is
// never derived from instance names or ids.
func GeneratePassword() (string, error) {
	all := lowerChars + upperChars + digitChars

	buf := make([]byte, passwordLength)
	// Guarantee one character from each class up front.
	classes := []string{lowerChars, upperChars, digitChars}
	for i, class := range classes {
		c, err := randomChar(class)
		if err != nil {
			return "", err
		}
		buf[i] = c
	}
	for i := len(classes); i < passwordLength; i++ {
		c, err := randomChar(all)
		if err != nil {
			return "", err
		}
		buf[i] = c
	}

	// Shuffle so the guaranteed characters are not positionally predictable.
	for i := len(buf) - 1; i > 0; i-- {
		j, err := randomIndex(i + 1)
		if err != nil {
			return "", err
		}
		buf[i], buf[j] = buf[j], buf[i]
	}
	return string(buf), nil
}

func randomChar(charset string) (byte, error) {
	i, err := randomIndex(len(charset))
	if err != nil {
		return 0, err
	}
	return charset[i], nil
}

func randomIndex(n int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, err
	}
	return int(v.Int64()), nil
}
