package mk66mpu

// Reset values of interest (K66 RM 22.4).
const (
	resetCESR      = 0x0081_5101 // bit 23 reserved-one, HRL=1, NSP=5, NRGD=Twelve, VLD=1
	resetRGD0Word1 = 0xFFFF_FFFF // descriptor 0 spans the whole 4 GB
	resetRGD0Word2 = 0x0061_F7DF // masters 0..2 RWX in both modes
	resetRGD0Word3 = 0x0000_0001
)

// RegFile is an in-memory SYSMPU register block. It starts in the reset
// state and emulates the write-1-to-clear CESR error flags, so it behaves
// like the hardware for everything the driver does.
type RegFile struct {
	words [blockSize / 4]uint32
}

var _ Registers = (*RegFile)(nil)

// NewRegFile returns a register block holding the K66 reset values.
func NewRegFile() *RegFile {
	f := &RegFile{}
	f.Poke(regCESR, resetCESR)
	f.Poke(rgdOffset(0, 1), resetRGD0Word1)
	f.Poke(rgdOffset(0, 2), resetRGD0Word2)
	f.Poke(rgdOffset(0, 3), resetRGD0Word3)
	f.Poke(aacOffset(0), resetRGD0Word2)
	return f
}

func (f *RegFile) Load32(off uint32) uint32 { return f.words[off/4] }

func (f *RegFile) Store32(off uint32, v uint32) {
	if off == regCESR {
		cur := f.words[off/4]
		flags := (cur &^ v) & cesrSPERRMask
		v = (v &^ cesrSPERRMask) | flags
	}
	f.words[off/4] = v
}

// Poke sets a register as the hardware would, bypassing write semantics.
// Tests use it to inject fault records and capability fields.
func (f *RegFile) Poke(off uint32, v uint32) { f.words[off/4] = v }

// Descriptor returns the four words of region descriptor n.
func (f *RegFile) Descriptor(n int) [4]uint32 {
	var d [4]uint32
	for w := range d {
		d[w] = f.words[rgdOffset(n, w)/4]
	}
	return d
}

// Valid reports whether region descriptor n has its valid bit set.
func (f *RegFile) Valid(n int) bool {
	return f.words[rgdOffset(n, 3)/4]&w3VLD != 0
}
