package password

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
)

const (
	lowerChars   = "abcdefghijklmnopqrstuvwxyz"
	upperChars   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	digitChars   = "0123456789"
	specialChars = "!@#$%^&*()-_=+[]{}<>?"
)

var allChars = lowerChars + upperChars + digitChars + specialChars

// Generate produces a random password of the given length containing at
// least one character from each of the four classes. Lengths below the
// policy minimum are raised to it.
func Generate(length int) (string, error) {
	if length < MinLength {
		length = MinLength
	}
	if length > MaxLength {
		length = MaxLength
	}

	buf := make([]byte, 0, length)

	// One guaranteed character per class, the rest drawn from the full set.
	for _, class := range []string{lowerChars, upperChars, digitChars, specialChars} {
		c, err := randomChar(class)
		if err != nil {
			return "", err
		}
		buf = append(buf, c)
	}
	for len(buf) < length {
		c, err := randomChar(allChars)
		if err != nil {
			return "", err
		}
		buf = append(buf, c)
	}

	// Fisher-Yates with CSPRNG indices so the class-guaranteed characters
	// do not sit at predictable positions.
	for i := len(buf) - 1; i > 0; i-- {
		j, err := randomInt(i + 1)
		if err != nil {
			return "", err
		}
		buf[i], buf[j] = buf[j], buf[i]
	}

	return string(buf), nil
}

func randomChar(set string) (byte, error) {
	i, err := randomInt(len(set))
	if err != nil {
		return 0, err
	}
	return set[i], nil
}

// randomInt returns a uniform random int in [0, n) from crypto/rand.
// Rejection sampling avoids the modulo bias of reducing a raw word.
func randomInt(n int) (int, error) {
	if n <= 0 {
		return 0, fmt.Errorf("randomInt: invalid bound %d", n)
	}
	limit := uint64(1<<32) - uint64(1<<32)%uint64(n)
	var b [4]byte
	for {
		if _, err := rand.Read(b[:]); err != nil {
			return 0, fmt.Errorf("failed to read random bytes: %w", err)
		}
		v := uint64(binary.BigEndian.Uint32(b[:]))
		if v < limit {
			return int(v % uint64(n)), nil
		}
	}
}
