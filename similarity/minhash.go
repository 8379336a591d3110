package similarity

import (
	"math"

	"github.com/cespare/xxhash/v2"

	"github.com/gmorph/gmorph/graph"
)

// SignatureSize is the number of independent minhash components.  More
// components tighten the Jaccard estimate at the cost of hashing time.
const SignatureSize = 200

// Signature is a weighted minhash sketch of a feature multiset.  Two
// signatures estimate the weighted Jaccard similarity of their multisets by
// the fraction of components that agree.
type Signature [SignatureSize]uint64

var componentSeeds = func() [SignatureSize]uint64 {
	var seeds [SignatureSize]uint64
	for i := range seeds {
		seeds[i] = splitmix64(uint64(i) + 1)
	}
	return seeds
}()

// splitmix64 is the finalizer of the SplitMix64 generator, used to derive an
// independent uniform draw per (feature, component) pair.
func splitmix64(x uint64) uint64 {
	x += 0x9E3779B97F4A7C15
	x = (x ^ (x >> 30)) * 0xBF58476D1CE4E5B9
	x = (x ^ (x >> 27)) * 0x94D049BB133111EB
	return x ^ (x >> 31)
}

// NewSignature sketches a feature multiset.  Each component holds the hash of
// the feature minimizing an exponential draw scaled by the feature's weight,
// so heavier features win components proportionally more often.
func NewSignature(features Features) *Signature {
	var sig Signature
	if len(features) == 0 {
		return &sig
	}
	var best [SignatureSize]float64
	for i := range best {
		best[i] = math.Inf(1)
	}
	for feature, weight := range features {
		if weight <= 0 {
			continue
		}
		h := xxhash.Sum64String(feature)
		for c := 0; c < SignatureSize; c++ {
			v := splitmix64(h ^ componentSeeds[c])
			// Uniform in (0,1), never exactly zero.
			u := (float64(v>>11) + 0.5) / (1 << 53)
			x := -math.Log(u) / weight
			if x < best[c] {
				best[c] = x
				sig[c] = h
			}
		}
	}
	return &sig
}

// GraphSignature sketches a graph's feature multiset.
func GraphSignature(g *graph.PropertyGraph) *Signature {
	return NewSignature(GraphFeatures(g))
}

// Jaccard estimates the weighted Jaccard similarity between the sketched
// multisets, in [0,1].
func (s *Signature) Jaccard(o *Signature) float64 {
	equal := 0
	for i := range s {
		if s[i] == o[i] {
			equal++
		}
	}
	return float64(equal) / SignatureSize
}
