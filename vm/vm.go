package vm

import (
	"fmt"

	"github.com/tliron/commonlog"
)

// ---------------------------------------------------------------------------
// VM: host for the runtime classes
// ---------------------------------------------------------------------------

// Config holds the engine settings a VM is built with.
type Config struct {
	// PlaceholderSize is the initial and max size of a declared MemBuf
	// before its constructor runs.
	PlaceholderSize uint32

	// MaxCeiling caps the max size a MemBuf constructor accepts.
	// Zero means no cap beyond the 32 bit size range.
	MaxCeiling uint32

	// ExpandIncrement is the growth granularity of MemBuf storage.
	ExpandIncrement uint32

	// StackSize bounds each interpreter's operand stack. Zero is unbounded.
	StackSize int
}

// DefaultConfig returns the settings used by NewVM.
func DefaultConfig() Config {
	return Config{
		PlaceholderSize: 8,
		StackSize:       1024,
	}
}

// VM owns the tables shared by all interpreters: method IDs, classes and
// the object registry. Class registration happens once, inside NewVM,
// before any interpreter exists; it must not race with script execution.
type VM struct {
	Selectors *SelectorTable
	Classes   *ClassTable

	// Well-known classes
	ObjectClass *Class
	StringClass *Class
	MemBuf      *MemBufClass

	registry *ObjectRegistry
	config   Config
	log      commonlog.Logger
}

// NewVM creates a VM with the default configuration.
func NewVM() *VM {
	return NewVMWithConfig(DefaultConfig())
}

// NewVMWithConfig creates a VM and registers the runtime classes.
func NewVMWithConfig(cfg Config) *VM {
	if cfg.PlaceholderSize == 0 {
		cfg.PlaceholderSize = DefaultConfig().PlaceholderSize
	}
	vm := &VM{
		Selectors: NewSelectorTable(),
		Classes:   NewClassTable(),
		registry:  NewObjectRegistry(),
		config:    cfg,
		log:       commonlog.GetLogger("membuf.vm"),
	}
	vm.bootstrap()
	return vm
}

func (vm *VM) bootstrap() {
	vm.ObjectClass = vm.Classes.Register(NewClass("Object", "MEng.Object", nil))
	vm.registerObjectPrimitives()

	vm.StringClass = vm.Classes.Register(NewClass("String", "MEng.String", vm.ObjectClass))
	vm.StringClass.NewStorage = func() interface{} { return &StringObject{} }
	vm.registerStringPrimitives()

	vm.MemBuf = newMemBufClass(vm)
	vm.Classes.Register(vm.MemBuf.Class)

	vm.log.Debugf("bootstrap: %d classes, %d method IDs", len(vm.Classes.All()), vm.Selectors.Len())
}

// Config returns the settings the VM was built with.
func (vm *VM) Config() Config { return vm.config }

// Registry returns the VM's object registry.
func (vm *VM) Registry() *ObjectRegistry { return vm.registry }

// Object returns the object behind v, or nil.
func (vm *VM) Object(v Value) *Object { return vm.registry.Get(v) }

// ---------------------------------------------------------------------------
// Storage
// ---------------------------------------------------------------------------

// AllocateStorage creates a new instance of the named class, as the
// interpreter does when a script declares a value of that type.
func (vm *VM) AllocateStorage(className, name string, constTag bool) (Value, error) {
	c := vm.Classes.Lookup(className)
	if c == nil {
		return Nil, fmt.Errorf("vm: unknown class %q", className)
	}
	if c.NewStorage == nil {
		return Nil, fmt.Errorf("vm: class %q cannot be instantiated", className)
	}
	return vm.registry.Register(&Object{
		Class: c,
		Name:  name,
		Const: constTag,
		Data:  c.NewStorage(),
	}), nil
}

// Destroy releases v and whatever storage it owns.
func (vm *VM) Destroy(v Value) bool {
	return vm.registry.Release(v)
}

// Assign copies src's contents into dst. Both must be live values of the
// same class.
func (vm *VM) Assign(dst, src Value) error {
	d, s := vm.registry.Get(dst), vm.registry.Get(src)
	if d == nil || s == nil {
		return fmt.Errorf("vm: assign: destroyed value")
	}
	if d.Class != s.Class {
		return fmt.Errorf("vm: cannot assign %s to %s", s.Class.Name, d.Class.Name)
	}
	switch dd := d.Data.(type) {
	case *MemBufValue:
		dd.CopyFrom(s.Data.(*MemBufValue))
	case *StringObject:
		dd.Content = s.Data.(*StringObject).Content
	default:
		return fmt.Errorf("vm: class %s does not support assignment", d.Class.Name)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Base class
// ---------------------------------------------------------------------------

// registerObjectPrimitives installs the methods every class inherits.
// Subclass dispatch falls back here for IDs it does not handle.
func (vm *VM) registerObjectPrimitives() {
	c := vm.ObjectClass

	c.AddMethod0(vm.Selectors, "GetClassName", func(i *Interpreter, recv Value) Value {
		return vm.NewString("", i.Self().Class.Name)
	})

	c.AddMethod0(vm.Selectors, "GetName", func(i *Interpreter, recv Value) Value {
		return vm.NewString("", i.Self().Name)
	})

	c.AddMethod0(vm.Selectors, "IsConst", func(i *Interpreter, recv Value) Value {
		return FromBool(i.Self().Const)
	})
}
