package bloom

import (
	"encoding/binary"
	"math"

	"github.com/cespare/xxhash/v2"
)

const (
	minBits   = 64
	maxHashes = 20
)

// Filter is a fixed-size bloom filter over string keys. It supports only
// insertion and membership testing; once every key has been added it is safe
// for concurrent readers.
type Filter struct {
	bits      []uint64
	sizeBits  uint64
	hashCount int
	inserted  uint64
}

// NewOptimal sizes a filter for an exact expected key count and a target
// false-positive rate. Exceeding the expected count degrades the
// false-positive rate but never produces false negatives.
func NewOptimal(expectedKeys int, falsePositiveRate float64) *Filter {
	if expectedKeys < 1 {
		expectedKeys = 1
	}
	if falsePositiveRate <= 0 || falsePositiveRate >= 1 {
		falsePositiveRate = 0.01
	}

	// m = -n*ln(p)/ln(2)^2, k = (m/n)*ln(2)
	n := float64(expectedKeys)
	m := math.Ceil(-n * math.Log(falsePositiveRate) / (math.Ln2 * math.Ln2))
	sizeBits := uint64(m)
	if sizeBits < minBits {
		sizeBits = minBits
	}

	hashCount := int(math.Ceil(m / n * math.Ln2))
	if hashCount < 1 {
		hashCount = 1
	}
	if hashCount > maxHashes {
		hashCount = maxHashes
	}

	return &Filter{
		bits:      make([]uint64, (sizeBits+63)/64),
		sizeBits:  sizeBits,
		hashCount: hashCount,
	}
}

// Add inserts a key. Not safe for concurrent use with other writers.
func (f *Filter) Add(key string) {
	h1, h2 := f.hashPair(key)
	for i := 0; i < f.hashCount; i++ {
		idx := (h1 + uint64(i)*h2) % f.sizeBits
		f.bits[idx/64] |= 1 << (idx % 64)
	}
	f.inserted++
}

// MightContain reports whether key may have been added. A false result is
// definitive: the key was never inserted.
func (f *Filter) MightContain(key string) bool {
	h1, h2 := f.hashPair(key)
	for i := 0; i < f.hashCount; i++ {
		idx := (h1 + uint64(i)*h2) % f.sizeBits
		if f.bits[idx/64]&(1<<(idx%64)) == 0 {
			return false
		}
	}
	return true
}

// InsertedCount returns how many Add calls the filter has absorbed.
func (f *Filter) InsertedCount() uint64 {
	return f.inserted
}

// SizeBits returns the size of the underlying bit array.
func (f *Filter) SizeBits() uint64 {
	return f.sizeBits
}

// hashPair derives two 64-bit hashes for Kirsch-Mitzenmacher double hashing.
func (f *Filter) hashPair(key string) (uint64, uint64) {
	h1 := xxhash.Sum64String(key)

	var rehash [8]byte
	binary.LittleEndian.PutUint64(rehash[:], h1)
	h2 := xxhash.Sum64(rehash[:])
	if h2%2 == 0 {
		// keep the stride odd so it never collapses modulo the table size
		h2++
	}
	return h1, h2
}
