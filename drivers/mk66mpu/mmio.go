package mk66mpu

// Registers is the 32-bit register access primitive the driver is built on.
// Offsets are byte offsets from the SYSMPU base address.
//
// MMIO implements it on TinyGo targets; RegFile implements it in memory for
// host builds and tests.
type Registers interface {
	Load32(off uint32) uint32
	Store32(off uint32, v uint32)
}

// field extracts a right-aligned bit field.
func field(v uint32, pos, mask uint32) uint32 { return (v >> pos) & mask }

// withField replaces a bit field inside v.
func withField(v uint32, pos, mask, val uint32) uint32 {
	return (v &^ (mask << pos)) | ((val & mask) << pos)
}

// modify is the read-modify-write pattern. Bits in w1c are write-1-to-clear
// status flags and are never written back as read.
func modify(r Registers, off uint32, set, clear, w1c uint32) {
	cur := r.Load32(off)
	r.Store32(off, ((cur|set)&^clear)&^w1c)
}
