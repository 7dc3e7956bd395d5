package vm

import "sync"

// SelectorTable hands out method IDs. IDs are dense, start at 0 and are
// assigned in first-intern order, so a class's VTable can be a slice
// indexed by ID. Names are never removed.
type SelectorTable struct {
	mu    sync.RWMutex
	ids   map[string]int
	names []string
}

func NewSelectorTable() *SelectorTable {
	return &SelectorTable{ids: make(map[string]int)}
}

// Intern returns the ID of name, assigning the next free ID on first use.
func (st *SelectorTable) Intern(name string) int {
	if id := st.Lookup(name); id >= 0 {
		return id
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if id, ok := st.ids[name]; ok {
		return id
	}
	st.names = append(st.names, name)
	st.ids[name] = len(st.names) - 1
	return len(st.names) - 1
}

// Lookup returns the ID of name, or -1 if it was never interned.
func (st *SelectorTable) Lookup(name string) int {
	st.mu.RLock()
	id, ok := st.ids[name]
	st.mu.RUnlock()
	if !ok {
		return -1
	}
	return id
}

// Name returns the method name behind id, or "" for an unassigned ID.
func (st *SelectorTable) Name(id int) string {
	st.mu.RLock()
	defer st.mu.RUnlock()
	if id < 0 || id >= len(st.names) {
		return ""
	}
	return st.names[id]
}

func (st *SelectorTable) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.names)
}
