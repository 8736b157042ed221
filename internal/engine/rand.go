package engine

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand"
	"time"
)

// NewRand returns a random source for assembly and distribution.
// A zero seed draws one from crypto/rand so production attempts are not
// reproducible; tests pass a fixed seed.
func NewRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = randomSeed()
	}
	return rand.New(rand.NewSource(seed))
}

func randomSeed() int64 {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return time.Now().UnixNano()
	}
	return int64(binary.LittleEndian.Uint64(b[:]))
}
