/*
	Package graph implements an in-memory labeled property graph: a directed
	multigraph whose vertices and edges carry a name, string properties, and
	sets of typed labels.  Element and label identifiers are recycled, so a
	graph that churns through edits keeps its id space compact.
*/
package graph

import (
	"errors"
	"fmt"
	"iter"
)

// ErrUnknownLabel is returned when an operation references a label id that was
// never issued or has been deleted.
var ErrUnknownLabel = errors.New("unknown label")

// LabelID identifies a label within one LabelMap.  Vertex-label and edge-label
// namespaces are separate, so the same LabelID value may exist in both.
type LabelID uint32

// idPool hands out uint32 ids, reusing freed ids before minting new ones.
// The most recently freed id is reused first.
type idPool struct {
	next uint32
	free []uint32
}

func (p *idPool) get() uint32 {
	if n := len(p.free); n > 0 {
		id := p.free[n-1]
		p.free = p.free[:n-1]
		return id
	}
	id := p.next
	p.next++
	return id
}

func (p *idPool) put(id uint32) {
	p.free = append(p.free, id)
}

func (p *idPool) clone() idPool {
	free := make([]uint32, len(p.free))
	copy(free, p.free)
	return idPool{next: p.next, free: free}
}

// LabelMap tracks the labels attached to elements of type E.  The element→label
// and label→element tables are kept as exact transposes of each other, and the
// id→name and name→id tables always agree.
type LabelMap[E comparable] struct {
	pool     idPool
	names    map[LabelID]string
	ids      map[string]LabelID
	labeled  map[E]map[LabelID]struct{}
	elements map[LabelID]map[E]struct{}
}

// NewLabelMap returns an empty label index.
func NewLabelMap[E comparable]() *LabelMap[E] {
	return &LabelMap[E]{
		names:    make(map[LabelID]string),
		ids:      make(map[string]LabelID),
		labeled:  make(map[E]map[LabelID]struct{}),
		elements: make(map[LabelID]map[E]struct{}),
	}
}

// AddLabel registers name and returns its id.  Adding an already registered
// name returns the existing id.
func (m *LabelMap[E]) AddLabel(name string) LabelID {
	if id, found := m.ids[name]; found {
		return id
	}
	id := LabelID(m.pool.get())
	m.names[id] = name
	m.ids[name] = id
	return id
}

// DeleteLabel removes the label and every element mapping that references it,
// freeing the id for reuse.
func (m *LabelMap[E]) DeleteLabel(id LabelID) error {
	name, found := m.names[id]
	if !found {
		return fmt.Errorf("delete of label id %d: %w", id, ErrUnknownLabel)
	}
	for e := range m.elements[id] {
		delete(m.labeled[e], id)
		if len(m.labeled[e]) == 0 {
			delete(m.labeled, e)
		}
	}
	delete(m.elements, id)
	delete(m.names, id)
	delete(m.ids, name)
	m.pool.put(uint32(id))
	return nil
}

// ChangeLabel renames the label with the given id.  The new name must not be
// in use by a different label.
func (m *LabelMap[E]) ChangeLabel(id LabelID, name string) error {
	oldName, found := m.names[id]
	if !found {
		return fmt.Errorf("rename of label id %d: %w", id, ErrUnknownLabel)
	}
	if existing, taken := m.ids[name]; taken && existing != id {
		return fmt.Errorf("label name %q already assigned to id %d", name, existing)
	}
	delete(m.ids, oldName)
	m.names[id] = name
	m.ids[name] = id
	return nil
}

// AddMapping attaches the label to element e.  Attaching an already attached
// label is a no-op.
func (m *LabelMap[E]) AddMapping(e E, id LabelID) error {
	if _, found := m.names[id]; !found {
		return fmt.Errorf("mapping to label id %d: %w", id, ErrUnknownLabel)
	}
	if m.labeled[e] == nil {
		m.labeled[e] = make(map[LabelID]struct{})
	}
	m.labeled[e][id] = struct{}{}
	if m.elements[id] == nil {
		m.elements[id] = make(map[E]struct{})
	}
	m.elements[id][e] = struct{}{}
	return nil
}

// RemoveMapping detaches the label from element e.  Detaching a label that was
// never attached is a no-op; only an unknown label id is an error.
func (m *LabelMap[E]) RemoveMapping(e E, id LabelID) error {
	if _, found := m.names[id]; !found {
		return fmt.Errorf("unmapping of label id %d: %w", id, ErrUnknownLabel)
	}
	if labels, found := m.labeled[e]; found {
		delete(labels, id)
		if len(labels) == 0 {
			delete(m.labeled, e)
		}
	}
	if elements, found := m.elements[id]; found {
		delete(elements, e)
		if len(elements) == 0 {
			delete(m.elements, id)
		}
	}
	return nil
}

// RemoveElement strips element e from every label it appears under.  Labels
// themselves stay registered.
func (m *LabelMap[E]) RemoveElement(e E) {
	for id := range m.labeled[e] {
		delete(m.elements[id], e)
		if len(m.elements[id]) == 0 {
			delete(m.elements, id)
		}
	}
	delete(m.labeled, e)
}

// Name returns the name registered for id.
func (m *LabelMap[E]) Name(id LabelID) (string, bool) {
	name, found := m.names[id]
	return name, found
}

// ID returns the id registered for name.
func (m *LabelMap[E]) ID(name string) (LabelID, bool) {
	id, found := m.ids[name]
	return id, found
}

// HasLabel reports whether the label is attached to element e.
func (m *LabelMap[E]) HasLabel(e E, id LabelID) bool {
	_, found := m.labeled[e][id]
	return found
}

// NumLabels returns the number of registered labels.
func (m *LabelMap[E]) NumLabels() int {
	return len(m.names)
}

// Labels iterates over all registered (id, name) pairs in no particular order.
func (m *LabelMap[E]) Labels() iter.Seq2[LabelID, string] {
	return func(yield func(LabelID, string) bool) {
		for id, name := range m.names {
			if !yield(id, name) {
				return
			}
		}
	}
}

// ElementLabels iterates over the label ids attached to element e.
func (m *LabelMap[E]) ElementLabels(e E) iter.Seq[LabelID] {
	return func(yield func(LabelID) bool) {
		for id := range m.labeled[e] {
			if !yield(id) {
				return
			}
		}
	}
}

// LabelElements iterates over the elements the label is attached to.
func (m *LabelMap[E]) LabelElements(id LabelID) iter.Seq[E] {
	return func(yield func(E) bool) {
		for e := range m.elements[id] {
			if !yield(e) {
				return
			}
		}
	}
}

// Clone returns a deep copy sharing no state with the original.
func (m *LabelMap[E]) Clone() *LabelMap[E] {
	c := &LabelMap[E]{
		pool:     m.pool.clone(),
		names:    make(map[LabelID]string, len(m.names)),
		ids:      make(map[string]LabelID, len(m.ids)),
		labeled:  make(map[E]map[LabelID]struct{}, len(m.labeled)),
		elements: make(map[LabelID]map[E]struct{}, len(m.elements)),
	}
	for id, name := range m.names {
		c.names[id] = name
	}
	for name, id := range m.ids {
		c.ids[name] = id
	}
	for e, labels := range m.labeled {
		set := make(map[LabelID]struct{}, len(labels))
		for id := range labels {
			set[id] = struct{}{}
		}
		c.labeled[e] = set
	}
	for id, elements := range m.elements {
		set := make(map[E]struct{}, len(elements))
		for e := range elements {
			set[e] = struct{}{}
		}
		c.elements[id] = set
	}
	return c
}
