// Package mk66mpu is a driver for the K66 system memory protection unit.
//
// The driver carves a process's memory into up to eleven hardware regions
// and flushes them into the SYSMPU region descriptors on context switch:
//
//	m := mk66mpu.New(regs, mk66mpu.Config{})
//	var cfg mk66mpu.ProcessConfig
//	start, size, err := m.AllocateAppMemoryRegion(ram, ramLen, 0x800, 0x400, 0x400, mk66mpu.ReadWriteOnly, &cfg)
//	m.ConfigureMPU(&cfg)
//	m.EnableMPU()
//
// Allocation only touches the ProcessConfig; ConfigureMPU is the single
// point where the table reaches the hardware. The driver is not safe for
// concurrent use; the kernel serialises process setup and context switches.
package mk66mpu

import (
	"mk66-mpu/errcode"
	"mk66-mpu/x/conv"
)

// Regions are 32-byte granular.
const Alignment = 32

// Highest exclusive end a region may have; ENDADDR cannot encode 4 GB.
const maxEnd = 1<<32 - Alignment

// Config controls non-hardware behaviour. All fields are optional.
type Config struct {
	// Master is the bus master whose region access fields are programmed.
	// Only masters 0..3 carry user/supervisor fields. Default 0 (core).
	// Descriptor 0 loses user access for the core in every case.
	Master uint8
}

// MPU drives one SYSMPU register block.
type MPU struct {
	regs   Registers
	master uint8
}

// New returns a driver over regs. It does not touch the hardware.
func New(regs Registers, cfg Config) *MPU {
	master := cfg.Master
	if master > maxFullMaster {
		master = 0
	}
	return &MPU{regs: regs, master: master}
}

// roundUp rounds x up to the next multiple of y.
func roundUp[T uint32 | uint64](x, y T) T {
	if x%y == 0 {
		return x
	}
	return x + y - x%y
}

// EnableMPU sets the global valid bit.
func (m *MPU) EnableMPU() {
	modify(m.regs, regCESR, cesrVLD, 0, cesrSPERRMask)
}

// DisableMPU clears the global valid bit.
func (m *MPU) DisableMPU() {
	modify(m.regs, regCESR, 0, cesrVLD, cesrSPERRMask)
}

// Enabled reports the global valid bit.
func (m *MPU) Enabled() bool {
	return m.regs.Load32(regCESR)&cesrVLD != 0
}

// NumberTotalRegions returns the number of region descriptors the hardware
// implements. An unknown encoding is a hardware inconsistency and should be
// treated as fatal.
func (m *MPU) NumberTotalRegions() (int, error) {
	code := field(m.regs.Load32(regCESR), cesrNRGDPos, cesrNRGDMask)
	switch code {
	case nrgdEight:
		return 8, nil
	case nrgdTwelve:
		return 12, nil
	case nrgdSixteen:
		return 16, nil
	}
	return 0, &errcode.E{
		C:   errcode.UnknownRegionCountEncoding,
		Op:  "number_total_regions",
		Msg: "nrgd=" + string(conv.AppendUint(nil, uint64(code))),
		Err: ErrUnknownRegionCountEncoding,
	}
}

// AllocateRegion reserves an ordinary region of at least minSize bytes at
// the start of the unallocated span [start, start+size). The returned start
// and size are the aligned values actually reserved and may exceed the
// request.
func (m *MPU) AllocateRegion(
	start, size, minSize uint32,
	perm Permission,
	cfg *ProcessConfig,
) (regionStart, regionSize uint32, err error) {
	if minSize == 0 {
		return 0, 0, &errcode.E{C: errcode.InvalidParams, Op: "allocate_region", Msg: "zero size"}
	}
	rStart := roundUp(uint64(start), Alignment)
	rSize := roundUp(uint64(minSize), Alignment)
	rEnd := rStart + rSize
	unallocEnd := uint64(start) + uint64(size)

	if rEnd > unallocEnd || rEnd > maxEnd {
		return 0, 0, ErrCapacityExhausted
	}

	index, ok := cfg.FirstFreeIndex()
	if !ok {
		return 0, 0, ErrTableFull
	}
	cfg.slots[index] = slot{region: newRegion(uint32(rStart), uint32(rEnd), perm), used: true}

	return uint32(rStart), uint32(rSize), nil
}

// AllocateAppMemoryRegion reserves the process memory block at the start of
// the unallocated span and protects its application-owned prefix.
//
// The block holds initialApp bytes of application memory followed by
// initialKernel bytes the kernel keeps for itself. Only the prefix is
// fenced by the region so the kernel tail stays reachable; when the aligned
// prefix would run into the tail the block grows by one alignment unit.
// The returned span is the whole block.
func (m *MPU) AllocateAppMemoryRegion(
	start, size, minMemSize, initialApp, initialKernel uint32,
	perm Permission,
	cfg *ProcessConfig,
) (memStart, memSize uint32, err error) {
	if initialApp == 0 {
		return 0, 0, &errcode.E{C: errcode.InvalidParams, Op: "allocate_app_memory_region", Msg: "zero app size"}
	}
	mSize := uint64(initialApp) + uint64(initialKernel)
	if uint64(minMemSize) > mSize {
		mSize = uint64(minMemSize)
	}
	mSize = roundUp(mSize, Alignment)
	mStart := roundUp(uint64(start), Alignment)

	rSize := roundUp(uint64(initialApp), Alignment)
	rEnd := mStart + rSize

	if rSize+uint64(initialKernel) > mSize {
		mSize += Alignment
	}

	mEnd := mStart + mSize
	unallocEnd := uint64(start) + uint64(size)
	if mEnd > unallocEnd || mEnd > maxEnd {
		return 0, 0, ErrCapacityExhausted
	}

	cfg.setAppMemory(newRegion(uint32(mStart), uint32(rEnd), perm), uint32(mStart), uint32(mSize))

	return uint32(mStart), uint32(mSize), nil
}

// UpdateAppMemoryRegion moves the end of the protected prefix to appBreak
// (rounded up). The prefix may not reach past kernelBreak, where the kernel
// owned tail begins.
func (m *MPU) UpdateAppMemoryRegion(
	appBreak, kernelBreak uint32,
	perm Permission,
	cfg *ProcessConfig,
) error {
	if _, ok := cfg.Region(AppMemoryIndex); !ok {
		return ErrNoActiveAppRegion
	}
	memStart, memSize, ok := cfg.Memory()
	if !ok {
		return ErrNoActiveAppRegion
	}
	if memStart%Alignment != 0 || memSize%Alignment != 0 {
		return ErrMisalignedBookkeeping
	}

	rEnd := roundUp(uint64(appBreak), Alignment)
	if rEnd > uint64(kernelBreak) {
		return ErrGrowthExceedsKernelReserve
	}
	if rEnd <= uint64(memStart) {
		return &errcode.E{C: errcode.InvalidParams, Op: "update_app_memory_region", Msg: "break below memory start"}
	}

	cfg.setAppRegion(newRegion(memStart, uint32(rEnd), perm))
	return nil
}

// ConfigureMPU writes the whole table into the region descriptors. Empty
// slots are invalidated, so the call fully replaces the previous process's
// permissions.
func (m *MPU) ConfigureMPU(cfg *ProcessConfig) {
	shift := uint32(m.master) * masterStride

	// Descriptor 0 grants everyone everything after reset. Keep supervisor
	// access as the kernel's fallback and drop user access. The core is
	// always master 0, so its fields are cleared whatever master is set.
	aac := m.regs.Load32(aacOffset(0))
	for _, s := range [...]uint32{0, shift} {
		aac = withField(aac, s+smPos, smMask, smReadWriteExecute)
		aac = withField(aac, s, umMask, 0)
	}
	m.regs.Store32(aacOffset(0), aac)

	for i := 0; i < NumRegions; i++ {
		desc := i + 1
		r, ok := cfg.Region(i)
		if !ok {
			m.regs.Store32(rgdOffset(desc, 3), 0)
			continue
		}

		// ENDADDR is inclusive: the hardware appends 0x1F.
		w2 := withField(0, shift+smPos, smMask, smReadWriteExecute)
		w2 = withField(w2, shift, umMask, r.UserMode())

		m.regs.Store32(rgdOffset(desc, 0), withField(0, addrShift, addrMask, r.Start()>>addrShift))
		m.regs.Store32(rgdOffset(desc, 1), withField(0, addrShift, addrMask, (r.End()-1)>>addrShift))
		m.regs.Store32(rgdOffset(desc, 2), w2)
		m.regs.Store32(rgdOffset(desc, 3), w3VLD)
	}
}
