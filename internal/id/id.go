package id

import (
	cryptorand "crypto/rand"
	"encoding/binary"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	mu      sync.Mutex
	entropy io.Reader
)

func init() {
	// Seed from crypto/rand; ulid.Monotonic keeps IDs generated within the
	// same millisecond lexicographically increasing, which is what the
	// ledger and journal indexes rely on for ordering.
	var seed int64
	_ = binary.Read(cryptorand.Reader, binary.LittleEndian, &seed)
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	entropy = ulid.Monotonic(rand.New(rand.NewSource(seed)), 0)
}

// New returns a time-sortable ULID string.
func New() string {
	mu.Lock()
	defer mu.Unlock()

	v, err := ulid.New(ulid.Timestamp(time.Now().UTC()), entropy)
	if err != nil {
		panic(err)
	}
	return v.String()
}
