package csource

import (
	"unsafe"

	"github.com/dekarrin/mathexpr/ast"
)

// ptrBits renders a *ast.Real as the raw integer address baked into the
// emitted C source, matching §4.9's "pointer-literal loads" — the C
// analogue of the bytecode/native-JIT back-ends' captured provider slice.
func ptrBits(addr *ast.Real) uintptr {
	return uintptr(unsafe.Pointer(addr))
}

// ptrBitsIndex resolves an ArrayRefNode's element address (base[*index]) to
// a raw integer address at generation time. Unlike ast.ArrayRefNode.Value,
// which reads *Index on demand, the index is read once here, on each
// Compile call; a change of *Index after Compile is not seen by the
// compiled code.
func ptrBitsIndex(base []ast.Real, index *int) uintptr {
	if len(base) == 0 || index == nil {
		return 0
	}
	return uintptr(unsafe.Pointer(&base[*index]))
}
