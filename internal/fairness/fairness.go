// Package fairness generalizes the teacher's HMAC-seeded provably-fair RNG
// (internal/game/provably_fair.go) into a reusable counter-stream source,
// so every game that needs verifiable randomness (blackjack shoe shuffle,
// mines field generation, one-stroke graph walk) draws from the same
// primitive instead of each hand-rolling crypto/rand.
package fairness

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
)

const maxUint64 = 18446744073709551616.0

// Source is a deterministic, HMAC-SHA256-seeded stream of pseudo-random
// draws, reproducible from (serverSeed, clientSeed, nonce) for later
// verification, exactly as HashAndMapToMultiplier does for a single draw.
type Source struct {
	serverSeed string
	clientSeed string
	nonce      int
	counter    int
}

// NewSource builds a draw stream for one game round.
func NewSource(serverSeed, clientSeed string, nonce int) *Source {
	return &Source{serverSeed: serverSeed, clientSeed: clientSeed, nonce: nonce}
}

// GenerateSeed creates a cryptographically secure random seed.
func GenerateSeed() string {
	b := make([]byte, 32)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// HashCommitment hashes seed for pre-round commitment/verification.
func HashCommitment(seed string) string {
	h := sha256.New()
	h.Write([]byte(seed))
	return hex.EncodeToString(h.Sum(nil))
}

// draw returns the next 64-bit value in the stream.
func (s *Source) draw() uint64 {
	s.counter++
	data := fmt.Sprintf("%s:%d:%d", s.clientSeed, s.nonce, s.counter)
	h := hmac.New(sha256.New, []byte(s.serverSeed))
	h.Write([]byte(data))
	sum := h.Sum(nil)
	hexValue := hex.EncodeToString(sum)[:16]
	i := new(big.Int)
	i.SetString(hexValue, 16)
	return i.Uint64()
}

// Float64 returns the next draw mapped to [0, 1).
func (s *Source) Float64() float64 {
	return float64(s.draw()) / maxUint64
}

// Intn returns the next draw mapped to [0, n).
func (s *Source) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return int(s.draw() % uint64(n))
}

// Shuffle permutes data in place using a Fisher-Yates shuffle driven by
// this Source, so the resulting order is reproducible from the seeds.
func Shuffle[T any](s *Source, data []T) {
	for i := len(data) - 1; i > 0; i-- {
		j := s.Intn(i + 1)
		data[i], data[j] = data[j], data[i]
	}
}

// WeightedPick draws an index into weights proportional to each weight,
// grounded on one_stroke/graph_generator.py's weighted neighbor choice.
// weights must be non-empty and sum to > 0.
func WeightedPick(s *Source, weights []int) int {
	total := 0
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		return 0
	}
	r := s.Intn(total)
	cum := 0
	for i, w := range weights {
		cum += w
		if r < cum {
			return i
		}
	}
	return len(weights) - 1
}
