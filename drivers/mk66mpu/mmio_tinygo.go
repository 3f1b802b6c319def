//go:build tinygo

package mk66mpu

import (
	"runtime/volatile"
	"unsafe"
)

// MMIO accesses the SYSMPU through volatile loads and stores.
type MMIO struct {
	base uintptr
}

// NewMMIO returns register access for the block at base. Pass BaseAddress
// on K66 parts.
func NewMMIO(base uintptr) MMIO { return MMIO{base: base} }

func (m MMIO) Load32(off uint32) uint32 {
	return volatile.LoadUint32((*uint32)(unsafe.Pointer(m.base + uintptr(off))))
}

func (m MMIO) Store32(off uint32, v uint32) {
	volatile.StoreUint32((*uint32)(unsafe.Pointer(m.base+uintptr(off))), v)
}
