package vm

import (
	"sync"
	"sync/atomic"
)

// ---------------------------------------------------------------------------
// ObjectRegistry: handle table for heap instances
// ---------------------------------------------------------------------------

// Object is a declared script value: the class it was declared with, the
// name it was declared under and the class-specific instance data.
type Object struct {
	Class *Class
	Name  string
	Const bool
	Data  interface{}
}

// destroyer is implemented by instance data that holds resources which must
// be released when the value goes away.
type destroyer interface {
	Destroy()
}

// ObjectRegistry maps Ref values to Objects. The registry is VM-local.
type ObjectRegistry struct {
	mu      sync.RWMutex
	objects map[uint32]*Object
	nextID  atomic.Uint32
}

// NewObjectRegistry creates an empty registry.
func NewObjectRegistry() *ObjectRegistry {
	return &ObjectRegistry{objects: make(map[uint32]*Object)}
}

// Register stores obj and returns a Ref value for it.
func (r *ObjectRegistry) Register(obj *Object) Value {
	id := r.nextID.Add(1)
	r.mu.Lock()
	r.objects[id] = obj
	r.mu.Unlock()
	return FromRefID(id)
}

// Get returns the Object behind v, or nil if v is not a live ref.
func (r *ObjectRegistry) Get(v Value) *Object {
	if !v.IsRef() {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.objects[v.RefID()]
}

// Release removes v from the registry, destroying its instance data.
// Returns false if v was not registered.
func (r *ObjectRegistry) Release(v Value) bool {
	if !v.IsRef() {
		return false
	}
	r.mu.Lock()
	obj, ok := r.objects[v.RefID()]
	delete(r.objects, v.RefID())
	r.mu.Unlock()
	if !ok {
		return false
	}
	if d, ok := obj.Data.(destroyer); ok {
		d.Destroy()
	}
	return true
}

// Count returns the number of live objects.
func (r *ObjectRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.objects)
}
