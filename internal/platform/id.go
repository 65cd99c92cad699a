package platform

import (
	"crypto/rand"
	"math/big"

	"github.com/google/uuid"
)

// NewID returns an opaque record identifier.
func NewID() string {
	return uuid.New().String()
}

// RandomInt returns a uniformly distributed integer in [lo, hi].
func RandomInt(lo, hi int) int {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(hi-lo+1)))
	if err != nil {
		panic("crypto/rand: " + err.Error())
	}
	return lo + int(n.Int64())
}
