package containers

import "hash/fnv"

const (
	entryEmpty    uint8 = 0
	entryOccupied uint8 = 1
	entryDeleted  uint8 = 2
)

type mapEntry struct {
	key   string
	index uint32
	state uint8
}

// ResourceMap maps UUID or content-hash keys to pool slot indices. It is
// an open-addressed table with linear probing and tombstone deletion;
// capacity is always a power of two and the table resizes when the load
// factor (live plus tombstoned entries) exceeds 0.7.
type ResourceMap struct {
	entries []mapEntry
	count   int
	deleted int
}

// NewResourceMap creates an empty map with the default capacity.
func NewResourceMap() *ResourceMap {
	return &ResourceMap{entries: make([]mapEntry, 16)}
}

func hashKey(key string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(key))
	return h.Sum64()
}

func (m *ResourceMap) resize(newCapacity int) {
	old := m.entries
	m.entries = make([]mapEntry, newCapacity)
	m.count = 0
	m.deleted = 0

	mask := uint64(newCapacity - 1)
	for i := range old {
		if old[i].state != entryOccupied {
			continue
		}
		idx := hashKey(old[i].key) & mask
		for j := 0; j < newCapacity; j++ {
			probe := (idx + uint64(j)) & mask
			if m.entries[probe].state == entryEmpty {
				m.entries[probe] = mapEntry{key: old[i].key, index: old[i].index, state: entryOccupied}
				m.count++
				break
			}
		}
	}
}

// Add inserts key mapping to a pool index. Returns false when the key is
// already present.
func (m *ResourceMap) Add(key string, index uint32) bool {
	if m.Contains(key) {
		return false
	}

	if (m.count+m.deleted)*10 > len(m.entries)*7 {
		m.resize(len(m.entries) * 2)
	}

	mask := uint64(len(m.entries) - 1)
	idx := hashKey(key) & mask
	firstDeleted := -1

	for i := 0; i < len(m.entries); i++ {
		probe := (idx + uint64(i)) & mask
		e := &m.entries[probe]

		switch e.state {
		case entryEmpty:
			if firstDeleted >= 0 {
				e = &m.entries[firstDeleted]
				m.deleted--
			}
			e.key = key
			e.index = index
			e.state = entryOccupied
			m.count++
			return true
		case entryDeleted:
			if firstDeleted < 0 {
				firstDeleted = int(probe)
			}
		}
	}

	return false
}

// Get returns the pool index stored for key.
func (m *ResourceMap) Get(key string) (uint32, bool) {
	mask := uint64(len(m.entries) - 1)
	idx := hashKey(key) & mask

	for i := 0; i < len(m.entries); i++ {
		probe := (idx + uint64(i)) & mask
		e := &m.entries[probe]

		if e.state == entryEmpty {
			return 0, false
		}
		if e.state == entryOccupied && e.key == key {
			return e.index, true
		}
	}

	return 0, false
}

// Remove tombstones the entry for key. Returns false when absent.
func (m *ResourceMap) Remove(key string) bool {
	mask := uint64(len(m.entries) - 1)
	idx := hashKey(key) & mask

	for i := 0; i < len(m.entries); i++ {
		probe := (idx + uint64(i)) & mask
		e := &m.entries[probe]

		if e.state == entryEmpty {
			return false
		}
		if e.state == entryOccupied && e.key == key {
			e.key = ""
			e.index = 0
			e.state = entryDeleted
			m.count--
			m.deleted++
			return true
		}
	}

	return false
}

// Contains reports whether key is present.
func (m *ResourceMap) Contains(key string) bool {
	_, ok := m.Get(key)
	return ok
}

// Count returns the number of live entries.
func (m *ResourceMap) Count() int {
	return m.count
}

// ForEach visits every live entry. Returning false stops the iteration.
func (m *ResourceMap) ForEach(visit func(key string, index uint32) bool) {
	for i := range m.entries {
		if m.entries[i].state == entryOccupied {
			if !visit(m.entries[i].key, m.entries[i].index) {
				return
			}
		}
	}
}

// Clear drops all entries and tombstones, keeping the current capacity.
func (m *ResourceMap) Clear() {
	for i := range m.entries {
		m.entries[i] = mapEntry{}
	}
	m.count = 0
	m.deleted = 0
}
