// Package procmem is the kernel side of process memory protection: it lays
// out each process's flash image and RAM block, grows the application break
// on request and flushes the right region table into the MPU on context
// switch.
package procmem

import (
	"math"

	"mk66-mpu/drivers/mk66mpu"
	"mk66-mpu/errcode"
)

// MPU is the driver contract the kernel relies on.
type MPU interface {
	AllocateRegion(start, size, minSize uint32, perm mk66mpu.Permission, cfg *mk66mpu.ProcessConfig) (uint32, uint32, error)
	AllocateAppMemoryRegion(start, size, minMemSize, initialApp, initialKernel uint32, perm mk66mpu.Permission, cfg *mk66mpu.ProcessConfig) (uint32, uint32, error)
	UpdateAppMemoryRegion(appBreak, kernelBreak uint32, perm mk66mpu.Permission, cfg *mk66mpu.ProcessConfig) error
	ConfigureMPU(cfg *mk66mpu.ProcessConfig)
}

var _ MPU = (*mk66mpu.MPU)(nil)

// Layout describes what a process needs at load time.
type Layout struct {
	// Flash image, protected read/execute. Zero size skips the region.
	FlashStart uint32
	FlashSize  uint32

	MinMemory    uint32 // lower bound on the RAM block
	AppMemory    uint32 // initial application-owned bytes
	KernelMemory uint32 // bytes the kernel keeps at the top of the block
}

// Process is one loaded process and its region table.
type Process struct {
	Name string

	cfg         mk66mpu.ProcessConfig
	memStart    uint32
	memSize     uint32
	appBreak    uint32
	kernelBreak uint32
}

func (p *Process) MemoryStart() uint32 { return p.memStart }
func (p *Process) MemorySize() uint32  { return p.memSize }
func (p *Process) AppBreak() uint32    { return p.appBreak }
func (p *Process) KernelBreak() uint32 { return p.kernelBreak }

// Regions exposes the process's region table (read-only use).
func (p *Process) Regions() *mk66mpu.ProcessConfig { return &p.cfg }

// Manager hands out RAM to processes from one contiguous span.
type Manager struct {
	mpu    MPU
	next   uint32
	end    uint32
	active *Process
}

// NewManager manages [ramStart, ramStart+ramSize). A span running past the
// top of the address space is clipped there.
func NewManager(m MPU, ramStart, ramSize uint32) *Manager {
	end := uint64(ramStart) + uint64(ramSize)
	if end > math.MaxUint32 {
		end = math.MaxUint32
	}
	return &Manager{mpu: m, next: ramStart, end: uint32(end)}
}

// Free returns the unallocated RAM span.
func (mg *Manager) Free() (start, size uint32) { return mg.next, mg.end - mg.next }

// Active returns the process whose table is in the MPU, or nil.
func (mg *Manager) Active() *Process { return mg.active }

// Load allocates regions for a new process. The process is not switched in.
func (mg *Manager) Load(name string, ly Layout) (*Process, error) {
	p := &Process{Name: name}

	if ly.FlashSize > 0 {
		if _, _, err := mg.mpu.AllocateRegion(ly.FlashStart, ly.FlashSize, ly.FlashSize, mk66mpu.ReadExecuteOnly, &p.cfg); err != nil {
			return nil, &errcode.E{C: errcode.Of(err), Op: "load", Msg: name + ": flash", Err: err}
		}
	}

	ms, msz, err := mg.mpu.AllocateAppMemoryRegion(
		mg.next, mg.end-mg.next,
		ly.MinMemory, ly.AppMemory, ly.KernelMemory,
		mk66mpu.ReadWriteOnly, &p.cfg,
	)
	if err != nil {
		return nil, &errcode.E{C: errcode.Of(err), Op: "load", Msg: name + ": memory", Err: err}
	}

	p.memStart, p.memSize = ms, msz
	p.appBreak = ms + ly.AppMemory
	p.kernelBreak = ms + msz - ly.KernelMemory
	mg.next = ms + msz
	return p, nil
}

// Switch makes p the active process. The MPU is flushed on every switch so
// no permission of the previous process survives.
func (mg *Manager) Switch(p *Process) {
	mg.mpu.ConfigureMPU(&p.cfg)
	mg.active = p
}

// Brk moves the application break of p. A process that cannot grow gets
// out_of_memory; a break below the memory block and inconsistencies are
// returned as-is.
func (mg *Manager) Brk(p *Process, newBreak uint32) error {
	if err := mg.mpu.UpdateAppMemoryRegion(newBreak, p.kernelBreak, mk66mpu.ReadWriteOnly, &p.cfg); err != nil {
		if c := errcode.Of(err); c == errcode.InvalidParams || errcode.Fatal(c) {
			return err
		}
		return &errcode.E{C: errcode.OutOfMemory, Op: "brk", Msg: p.Name, Err: err}
	}
	p.appBreak = newBreak
	if mg.active == p {
		mg.mpu.ConfigureMPU(&p.cfg)
	}
	return nil
}

// Sbrk moves the application break by delta and returns the old break.
func (mg *Manager) Sbrk(p *Process, delta int32) (uint32, error) {
	old := p.appBreak
	nb := int64(old) + int64(delta)
	if nb < 0 || nb > int64(p.kernelBreak) {
		return old, &errcode.E{C: errcode.OutOfMemory, Op: "sbrk", Msg: p.Name}
	}
	return old, mg.Brk(p, uint32(nb))
}

// AllocKernel takes size bytes from the kernel-owned top of p's block,
// growing downward toward the application break. Word aligned.
func (mg *Manager) AllocKernel(p *Process, size uint32) (uint32, error) {
	if size > math.MaxUint32&^3 {
		return 0, &errcode.E{C: errcode.OutOfMemory, Op: "alloc_kernel", Msg: p.Name}
	}
	size = (size + 3) &^ 3
	// The protected prefix ends at the aligned app break; the kernel tail
	// must stay outside it.
	floor := (p.appBreak + mk66mpu.Alignment - 1) &^ (mk66mpu.Alignment - 1)
	if size > p.kernelBreak-floor {
		return 0, &errcode.E{C: errcode.OutOfMemory, Op: "alloc_kernel", Msg: p.Name}
	}
	p.kernelBreak -= size
	return p.kernelBreak, nil
}
