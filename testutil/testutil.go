package testutil

import (
	"math"
	"math/rand"
	"sync"

	"github.com/viterin/vek/vek32"

	"github.com/lzw429/OpenKE-Embedding-Service/model"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// UniformVectors generates random vectors with values in range [0, 1).
// Uses a single backing array for efficiency.
func (r *RNG) UniformVectors(num int, dimensions int) [][]float32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := make([]float32, num*dimensions)
	vectors := make([][]float32, num)

	for i := range num {
		vec := data[i*dimensions : (i+1)*dimensions]
		for j := range vec {
			vec[j] = r.rand.Float32()
		}
		vectors[i] = vec
	}

	return vectors
}

// UnitVectors generates L2-normalized random vectors, the shape TransE
// keeps its entity embeddings in.
func (r *RNG) UnitVectors(num int, dimensions int) [][]float32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := make([]float32, num*dimensions)
	vectors := make([][]float32, num)

	for i := range num {
		vec := data[i*dimensions : (i+1)*dimensions]
		var norm float64
		for j := range vec {
			v := r.rand.NormFloat64()
			vec[j] = float32(v)
			norm += v * v
		}

		if norm == 0 {
			norm = 1
		}

		vek32.MulNumber_Inplace(vec, float32(1.0/math.Sqrt(norm)))
		vectors[i] = vec
	}

	return vectors
}

// zipf returns a Zipfian-distributed value in [0, n). s=1.0 gives standard
// Zipf, s=1.5 a heavy tail. The caller holds r.mu.
func (r *RNG) zipf(n int, s float64) int {
	if n <= 1 {
		return 0
	}

	var hns float64
	for i := 1; i <= n; i++ {
		hns += 1.0 / math.Pow(float64(i), s)
	}

	u := r.rand.Float64() * hns
	var cumulative float64
	for k := 1; k <= n; k++ {
		cumulative += 1.0 / math.Pow(float64(k), s)
		if u <= cumulative {
			return k - 1
		}
	}

	return n - 1
}

// Triples generates n uniformly random triples over the given id spaces.
func (r *RNG) Triples(n, entities, relations int) []model.Triple {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]model.Triple, n)
	for i := range out {
		out[i] = model.Triple{
			Subject:   model.ID(r.rand.Intn(entities)),
			Object:    model.ID(r.rand.Intn(entities)),
			Predicate: model.ID(r.rand.Intn(relations)),
		}
	}
	return out
}

// SkewedTriples generates n triples whose subjects follow a Zipf
// distribution with skew s. Knowledge graphs have hub entities, so skewed
// triples exercise long adjacency lists.
func (r *RNG) SkewedTriples(n, entities, relations int, s float64) []model.Triple {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]model.Triple, n)
	for i := range out {
		out[i] = model.Triple{
			Subject:   model.ID(r.zipf(entities, s)),
			Object:    model.ID(r.rand.Intn(entities)),
			Predicate: model.ID(r.rand.Intn(relations)),
		}
	}
	return out
}
