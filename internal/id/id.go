// Package id issues order and position identifiers.
package id

import (
	cryptoRand "crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Generator issues ULID order ids. Ids from one Generator are strictly
// increasing, including within a millisecond, so the history journal and
// its SQLite index sort by submission time.
type Generator struct {
	mu      sync.Mutex
	entropy io.Reader
	now     func() time.Time
}

// NewGenerator draws ULID entropy from r through a monotonic reader.
func NewGenerator(r io.Reader) *Generator {
	return &Generator{entropy: ulid.Monotonic(r, 0), now: time.Now}
}

// Next returns the next id. It fails when entropy is exhausted or the
// clock is outside the ULID range.
func (g *Generator) Next() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	u, err := ulid.New(ulid.Timestamp(g.now().UTC()), g.entropy)
	if err != nil {
		return "", fmt.Errorf("order id: %w", err)
	}
	return u.String(), nil
}

var orders = NewGenerator(seededSource())

func seededSource() io.Reader {
	var seed int64
	if err := binary.Read(cryptoRand.Reader, binary.LittleEndian, &seed); err != nil || seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// New returns the next order id from the package generator.
func New() (string, error) {
	return orders.Next()
}
