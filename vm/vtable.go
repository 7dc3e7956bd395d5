package vm

// VTable holds the method dispatch table for a class.
//
// Methods are stored in a slice indexed by method ID, so resolving a call
// is a bounds check and an index. Inheritance is handled by walking the
// parent chain when a method is not found locally.
type VTable struct {
	class   *Class
	parent  *VTable
	methods []Method
}

// NewVTable creates a new vtable for a class.
func NewVTable(class *Class, parent *VTable) *VTable {
	return &VTable{
		class:   class,
		parent:  parent,
		methods: make([]Method, 0, 64),
	}
}

// Lookup finds a method by ID, walking the inheritance chain.
// Returns nil if no method is found.
func (vt *VTable) Lookup(id int) Method {
	for v := vt; v != nil; v = v.parent {
		if m := v.LookupLocal(id); m != nil {
			return m
		}
	}
	return nil
}

// LookupLocal finds a method by ID in this vtable only.
func (vt *VTable) LookupLocal(id int) Method {
	if id >= 0 && id < len(vt.methods) {
		return vt.methods[id]
	}
	return nil
}

// AddMethod adds or replaces a method at the given ID, growing the table
// as needed.
func (vt *VTable) AddMethod(id int, method Method) {
	if id >= len(vt.methods) {
		newMethods := make([]Method, id+1)
		copy(newMethods, vt.methods)
		vt.methods = newMethods
	}
	vt.methods[id] = method
}

// Parent returns the parent vtable.
func (vt *VTable) Parent() *VTable {
	return vt.parent
}

// Class returns the class this vtable belongs to.
func (vt *VTable) Class() *Class {
	return vt.class
}

// LocalMethods returns all non-nil methods defined in this vtable, keyed
// by method ID.
func (vt *VTable) LocalMethods() map[int]Method {
	result := make(map[int]Method)
	for i, m := range vt.methods {
		if m != nil {
			result[i] = m
		}
	}
	return result
}
