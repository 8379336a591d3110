package similarity

import (
	"encoding/binary"

	"github.com/coocood/freecache"
	"github.com/dustin/go-humanize"

	"github.com/gmorph/gmorph/gmorph"
)

// SignatureCache memoizes signatures keyed by graph content hash, bounding
// memory with freecache's segmented LRU.  Rewriting runs revisit identical
// graph content often, and sketching is the expensive step.
type SignatureCache struct {
	c *freecache.Cache
}

// NewSignatureCache allocates a cache of roughly sizeBytes.  freecache clamps
// tiny sizes to its minimum internally.
func NewSignatureCache(sizeBytes int) *SignatureCache {
	gmorph.Infof("Signature cache size: %s\n", humanize.Bytes(uint64(sizeBytes)))
	return &SignatureCache{c: freecache.NewCache(sizeBytes)}
}

// Get returns the cached signature for the content key.
func (sc *SignatureCache) Get(key uint64) (*Signature, bool) {
	val, err := sc.c.Get(cacheKey(key))
	if err != nil || len(val) != SignatureSize*8 {
		return nil, false
	}
	var sig Signature
	for i := range sig {
		sig[i] = binary.LittleEndian.Uint64(val[i*8:])
	}
	return &sig, true
}

// Set stores a signature under the content key.  Entries never expire; the
// LRU handles eviction.
func (sc *SignatureCache) Set(key uint64, sig *Signature) {
	val := make([]byte, SignatureSize*8)
	for i, v := range sig {
		binary.LittleEndian.PutUint64(val[i*8:], v)
	}
	// Set only fails for oversized entries, which a fixed-width signature
	// never is.
	_ = sc.c.Set(cacheKey(key), val, 0)
}

// EntryCount reports how many signatures are cached.
func (sc *SignatureCache) EntryCount() int64 {
	return sc.c.EntryCount()
}

func cacheKey(key uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], key)
	return b[:]
}
