package ob

import "vmmcore/hashtable"

// Map is a reference-counted, intrusive map from int keys (PID, TID) to
// *Header-carrying objects. Grounded on biscuit/src/hashtable/hashtable.go,
// used nearly verbatim as the backing store; Map adds the refcount
// discipline spec.md §4.7 requires ("removing an entry decrements its
// refcount; destroying the container decrements all members").
type Map struct {
	ht *hashtable.Hashtable_t
}

// NewMap creates an empty map with the given bucket count.
func NewMap(buckets int) *Map {
	return &Map{ht: hashtable.MkHash(buckets)}
}

// Set inserts or replaces the value at key, increffing the new value and
// decreffing any value it displaces.
func (m *Map) Set(key int, val *Header) {
	old, existed := m.ht.Get(key)
	if existed {
		old.(*Header).Decref()
		m.ht.Del(key)
	}
	val.Incref()
	m.ht.Set(key, val)
}

// Get looks up key, bumping the returned value's refcount so the caller
// holds an independent reference (spec.md §4.6 "readers take a shared
// lock long enough to increment a process's reference count").
func (m *Map) Get(key int) (*Header, bool) {
	v, ok := m.ht.Get(key)
	if !ok {
		return nil, false
	}
	h := v.(*Header)
	if h.Incref() != 0 {
		return nil, false
	}
	return h, true
}

// Del removes key, decreffing its value.
func (m *Map) Del(key int) {
	v, ok := m.ht.Get(key)
	if !ok {
		return
	}
	v.(*Header).Decref()
	m.ht.Del(key)
}

// Size returns the number of entries currently stored.
func (m *Map) Size() int { return m.ht.Size() }

// Iter visits every entry; f returning true stops iteration early.
func (m *Map) Iter(f func(key int, h *Header) bool) {
	m.ht.Iter(func(k, v interface{}) bool {
		return f(k.(int), v.(*Header))
	})
}

// Destroy decrefs every member, releasing the container's references
// (spec.md §4.7 "destroying the container decrements all members").
func (m *Map) Destroy() {
	for _, p := range m.ht.Elems() {
		p.Value.(*Header).Decref()
		m.ht.Del(p.Key)
	}
}

// Set is an intrusive reference-counted set of *Header objects keyed by
// an arbitrary comparable identity (e.g. a VA or handle pointer value).
type Set struct {
	ht *hashtable.Hashtable_t
}

// NewSet creates an empty set.
func NewSet(buckets int) *Set { return &Set{ht: hashtable.MkHash(buckets)} }

// Add inserts val keyed by id, increffing it; a no-op if id is already
// present.
func (s *Set) Add(id int, val *Header) {
	if _, ok := s.ht.Get(id); ok {
		return
	}
	val.Incref()
	s.ht.Set(id, val)
}

// Has reports whether id is present.
func (s *Set) Has(id int) bool {
	_, ok := s.ht.Get(id)
	return ok
}

// Remove decrefs and removes id, if present.
func (s *Set) Remove(id int) {
	v, ok := s.ht.Get(id)
	if !ok {
		return
	}
	v.(*Header).Decref()
	s.ht.Del(id)
}

// Size returns the number of members.
func (s *Set) Size() int { return s.ht.Size() }

// Destroy decrefs every member.
func (s *Set) Destroy() {
	for _, p := range s.ht.Elems() {
		p.Value.(*Header).Decref()
		s.ht.Del(p.Key)
	}
}

// StrMap is an intrusive reference-counted map keyed by string (used for
// named lookups — module short name -> module object, SID -> user entry).
type StrMap struct {
	ht *hashtable.Hashtable_t
}

// NewStrMap creates an empty string-keyed map.
func NewStrMap(buckets int) *StrMap { return &StrMap{ht: hashtable.MkHash(buckets)} }

// Set inserts or replaces the value at key, increffing the new value and
// decreffing any value it displaces.
func (m *StrMap) Set(key string, val *Header) {
	old, existed := m.ht.Get(key)
	if existed {
		old.(*Header).Decref()
		m.ht.Del(key)
	}
	val.Incref()
	m.ht.Set(key, val)
}

// Get looks up key, bumping the returned value's refcount.
func (m *StrMap) Get(key string) (*Header, bool) {
	v, ok := m.ht.Get(key)
	if !ok {
		return nil, false
	}
	h := v.(*Header)
	if h.Incref() != 0 {
		return nil, false
	}
	return h, true
}

// Del removes key, decreffing its value.
func (m *StrMap) Del(key string) {
	v, ok := m.ht.Get(key)
	if !ok {
		return
	}
	v.(*Header).Decref()
	m.ht.Del(key)
}

// Size returns the number of entries currently stored.
func (m *StrMap) Size() int { return m.ht.Size() }

// Destroy decrefs every member.
func (m *StrMap) Destroy() {
	for _, p := range m.ht.Elems() {
		p.Value.(*Header).Decref()
		m.ht.Del(p.Key)
	}
}
