package similarity

import "container/heap"

// DefaultKeep is how many candidates a Ranker retains unless configured
// otherwise.
const DefaultKeep = 5

// scoreEps is the margin under which two scores count as tied and the content
// key breaks the tie.
const scoreEps = 1e-12

// Ranked is a scored candidate.  Key is the content hash that deduplicated
// it.
type Ranked[T any] struct {
	Score float64
	Key   uint64
	Item  T
}

// Ranker keeps the best-scoring candidates seen so far, deduplicating by
// content key.  A key evicted for scoring too low may be offered again.  Not
// safe for concurrent use; a single collector owns it.
type Ranker[T any] struct {
	keep int
	h    rankedHeap[T]
	seen map[uint64]struct{}
}

// NewRanker returns a ranker keeping the top keep candidates, or DefaultKeep
// when keep is not positive.
func NewRanker[T any](keep int) *Ranker[T] {
	if keep <= 0 {
		keep = DefaultKeep
	}
	return &Ranker[T]{
		keep: keep,
		seen: make(map[uint64]struct{}),
	}
}

// Add offers a candidate.  It reports false when the key was already ranked;
// the candidate may still be evicted later by higher-scoring arrivals.
func (r *Ranker[T]) Add(key uint64, score float64, item T) bool {
	if _, dup := r.seen[key]; dup {
		return false
	}
	r.seen[key] = struct{}{}
	heap.Push(&r.h, Ranked[T]{Score: score, Key: key, Item: item})
	if r.h.Len() > r.keep {
		worst := heap.Pop(&r.h).(Ranked[T])
		delete(r.seen, worst.Key)
	}
	return true
}

// Len is the number of candidates currently ranked.
func (r *Ranker[T]) Len() int {
	return r.h.Len()
}

// Drain empties the ranker, returning candidates in ascending score order so
// the best comes last.
func (r *Ranker[T]) Drain() []Ranked[T] {
	out := make([]Ranked[T], 0, r.h.Len())
	for r.h.Len() > 0 {
		rk := heap.Pop(&r.h).(Ranked[T])
		delete(r.seen, rk.Key)
		out = append(out, rk)
	}
	return out
}

// rankedHeap pops its worst candidate first: lowest score, ties broken toward
// the lower key.
type rankedHeap[T any] []Ranked[T]

func (h rankedHeap[T]) Len() int { return len(h) }

func (h rankedHeap[T]) Less(i, j int) bool {
	di := h[i].Score - h[j].Score
	if di < -scoreEps {
		return true
	}
	if di > scoreEps {
		return false
	}
	return h[i].Key < h[j].Key
}

func (h rankedHeap[T]) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *rankedHeap[T]) Push(x any) {
	*h = append(*h, x.(Ranked[T]))
}

func (h *rankedHeap[T]) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
