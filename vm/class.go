package vm

import "sync"

// ---------------------------------------------------------------------------
// Class: script-visible type descriptor
// ---------------------------------------------------------------------------

// Class describes a script-visible type: its name, its dotted class path
// (used in exception reports), its superclass and its dispatch table.
type Class struct {
	Name       string
	Path       string
	Superclass *Class
	VTable     *VTable

	// NewStorage allocates the instance data for a freshly declared
	// value. Nil for classes that cannot be instantiated.
	NewStorage func() interface{}
}

// NewClass creates a class whose vtable inherits from superclass.
func NewClass(name, path string, superclass *Class) *Class {
	c := &Class{Name: name, Path: path, Superclass: superclass}
	var parent *VTable
	if superclass != nil {
		parent = superclass.VTable
	}
	c.VTable = NewVTable(c, parent)
	return c
}

// IsSubclassOf returns true if c is a subclass of other (or is the same class).
func (c *Class) IsSubclassOf(other *Class) bool {
	for current := c; current != nil; current = current.Superclass {
		if current == other {
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// ClassTable
// ---------------------------------------------------------------------------

// ClassTable maps class names to classes in registration order.
type ClassTable struct {
	mu     sync.RWMutex
	byName map[string]*Class
	order  []*Class
}

// NewClassTable creates an empty class table.
func NewClassTable() *ClassTable {
	return &ClassTable{byName: make(map[string]*Class)}
}

// Register adds c, replacing any class with the same name.
func (ct *ClassTable) Register(c *Class) *Class {
	ct.mu.Lock()
	defer ct.mu.Unlock()
	if _, ok := ct.byName[c.Name]; !ok {
		ct.order = append(ct.order, c)
	} else {
		for i, old := range ct.order {
			if old.Name == c.Name {
				ct.order[i] = c
			}
		}
	}
	ct.byName[c.Name] = c
	return c
}

// Lookup returns the class with the given name, or nil.
func (ct *ClassTable) Lookup(name string) *Class {
	ct.mu.RLock()
	defer ct.mu.RUnlock()
	return ct.byName[name]
}

// All returns the registered classes in registration order.
func (ct *ClassTable) All() []*Class {
	ct.mu.RLock()
	defer ct.mu.RUnlock()
	out := make([]*Class, len(ct.order))
	copy(out, ct.order)
	return out
}
