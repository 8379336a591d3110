package graph

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDPoolRecycling(t *testing.T) {
	var pool idPool
	for i := uint32(0); i < 4; i++ {
		require.Equal(t, i, pool.get())
	}

	// Freed ids come back most recently freed first, before new ids are minted.
	pool.put(1)
	pool.put(2)
	pool.put(0)
	pool.put(3)
	assert.Equal(t, uint32(3), pool.get())
	assert.Equal(t, uint32(0), pool.get())
	assert.Equal(t, uint32(2), pool.get())
	assert.Equal(t, uint32(1), pool.get())
	assert.Equal(t, uint32(4), pool.get())
}

func TestLabelMapAddDelete(t *testing.T) {
	m := NewLabelMap[VertexID]()

	suspicious := m.AddLabel("Suspicious")
	flagged := m.AddLabel("Flagged")
	assert.NotEqual(t, suspicious, flagged)
	assert.Equal(t, suspicious, m.AddLabel("Suspicious"), "re-adding a name returns the existing id")
	assert.Equal(t, 2, m.NumLabels())

	name, found := m.Name(suspicious)
	require.True(t, found)
	assert.Equal(t, "Suspicious", name)
	id, found := m.ID("Flagged")
	require.True(t, found)
	assert.Equal(t, flagged, id)

	require.NoError(t, m.DeleteLabel(suspicious))
	_, found = m.Name(suspicious)
	assert.False(t, found)
	_, found = m.ID("Suspicious")
	assert.False(t, found)

	// The freed id is reused for the next new label.
	reborn := m.AddLabel("Reviewed")
	assert.Equal(t, suspicious, reborn)

	err := m.DeleteLabel(LabelID(99))
	assert.ErrorIs(t, err, ErrUnknownLabel)
}

func TestLabelMapChangeLabel(t *testing.T) {
	m := NewLabelMap[VertexID]()
	a := m.AddLabel("Alpha")
	b := m.AddLabel("Beta")

	require.NoError(t, m.ChangeLabel(a, "Gamma"))
	_, found := m.ID("Alpha")
	assert.False(t, found)
	id, found := m.ID("Gamma")
	require.True(t, found)
	assert.Equal(t, a, id)

	assert.Error(t, m.ChangeLabel(a, "Beta"), "name collision with another label")
	assert.ErrorIs(t, m.ChangeLabel(LabelID(42), "Delta"), ErrUnknownLabel)
	require.NoError(t, m.ChangeLabel(b, "Beta"), "renaming to its own name is fine")
}

func TestLabelMapMappingSymmetry(t *testing.T) {
	m := NewLabelMap[VertexID]()
	label := m.AddLabel("Suspicious")
	other := m.AddLabel("Flagged")

	require.NoError(t, m.AddMapping(1, label))
	require.NoError(t, m.AddMapping(2, label))
	require.NoError(t, m.AddMapping(1, other))

	assert.True(t, m.HasLabel(1, label))
	assert.True(t, m.HasLabel(2, label))
	assert.False(t, m.HasLabel(2, other))

	elements := slices.Collect(m.LabelElements(label))
	assert.ElementsMatch(t, []VertexID{1, 2}, elements)
	labels := slices.Collect(m.ElementLabels(1))
	assert.ElementsMatch(t, []LabelID{label, other}, labels)

	// Removing an absent mapping is a silent no-op.
	require.NoError(t, m.RemoveMapping(2, other))
	// An unknown label id is not.
	assert.ErrorIs(t, m.AddMapping(3, LabelID(99)), ErrUnknownLabel)
	assert.ErrorIs(t, m.RemoveMapping(1, LabelID(99)), ErrUnknownLabel)

	require.NoError(t, m.RemoveMapping(1, label))
	assert.False(t, m.HasLabel(1, label))
	assert.ElementsMatch(t, []VertexID{2}, slices.Collect(m.LabelElements(label)))
	assert.ElementsMatch(t, []LabelID{other}, slices.Collect(m.ElementLabels(1)))
}

func TestLabelMapRemoveElement(t *testing.T) {
	m := NewLabelMap[EdgeID]()
	a := m.AddLabel("A")
	b := m.AddLabel("B")
	require.NoError(t, m.AddMapping(7, a))
	require.NoError(t, m.AddMapping(7, b))
	require.NoError(t, m.AddMapping(8, a))

	m.RemoveElement(7)
	assert.Empty(t, slices.Collect(m.ElementLabels(7)))
	assert.ElementsMatch(t, []EdgeID{8}, slices.Collect(m.LabelElements(a)))
	assert.Empty(t, slices.Collect(m.LabelElements(b)))
	assert.Equal(t, 2, m.NumLabels(), "labels survive element removal")
}

func TestLabelMapDeleteLabelStripsMappings(t *testing.T) {
	m := NewLabelMap[VertexID]()
	label := m.AddLabel("Doomed")
	keep := m.AddLabel("Kept")
	require.NoError(t, m.AddMapping(1, label))
	require.NoError(t, m.AddMapping(1, keep))
	require.NoError(t, m.AddMapping(2, label))

	require.NoError(t, m.DeleteLabel(label))
	assert.ElementsMatch(t, []LabelID{keep}, slices.Collect(m.ElementLabels(1)))
	assert.Empty(t, slices.Collect(m.ElementLabels(2)))
}

func TestLabelMapClone(t *testing.T) {
	m := NewLabelMap[VertexID]()
	label := m.AddLabel("A")
	require.NoError(t, m.AddMapping(1, label))

	c := m.Clone()
	require.NoError(t, c.RemoveMapping(1, label))
	c.AddLabel("B")

	assert.True(t, m.HasLabel(1, label), "clone mutation must not leak back")
	assert.Equal(t, 1, m.NumLabels())
	assert.Equal(t, 2, c.NumLabels())
}
