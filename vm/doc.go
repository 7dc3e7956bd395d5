// Package vm implements the host virtual machine for MemBuf values.
//
// This package contains:
//   - NaN-boxed value representation
//   - Method IDs and VTable-based dispatch
//   - The object registry and interpreter operand stack
//   - Catalogued script exceptions
//   - The MemBuf and String runtime classes
package vm
