package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignatureCacheRoundTrip(t *testing.T) {
	sc := NewSignatureCache(1 << 20)
	g := chainGraph(t, "a", "b", "c")
	key := g.ContentHash()

	_, ok := sc.Get(key)
	assert.False(t, ok)

	sig := GraphSignature(g)
	sc.Set(key, sig)

	got, ok := sc.Get(key)
	require.True(t, ok)
	assert.Equal(t, sig, got)
	assert.EqualValues(t, 1, sc.EntryCount())
}

func TestSignatureCacheDistinctKeys(t *testing.T) {
	sc := NewSignatureCache(1 << 20)
	a := chainGraph(t, "a", "b")
	b := chainGraph(t, "x", "y")

	sc.Set(a.ContentHash(), GraphSignature(a))
	sc.Set(b.ContentHash(), GraphSignature(b))

	gotA, ok := sc.Get(a.ContentHash())
	require.True(t, ok)
	gotB, ok := sc.Get(b.ContentHash())
	require.True(t, ok)
	assert.NotEqual(t, gotA, gotB)
}
