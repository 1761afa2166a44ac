package random

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
)

// Bytes returns n bytes from the system CSPRNG.
func Bytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return b, nil
}

// Hex returns n random bytes, hex encoded.
func Hex(n int) (string, error) {
	b, err := Bytes(n)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// Mod interprets b as a big-endian unsigned integer and returns it modulo n.
// n must be positive.
func Mod(b []byte, n int) int {
	v := new(big.Int).SetBytes(b)
	return int(v.Mod(v, big.NewInt(int64(n))).Int64())
}
