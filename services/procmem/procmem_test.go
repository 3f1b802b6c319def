package procmem

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mk66-mpu/drivers/mk66mpu"
	"mk66-mpu/errcode"
)

const (
	ramStart = 0x2000_0000
	ramSize  = 0x1_0000
)

var basicLayout = Layout{
	FlashStart:   0x0004_0000,
	FlashSize:    0x2000,
	MinMemory:    0x800,
	AppMemory:    0x400,
	KernelMemory: 0x400,
}

// countingMPU wraps the real driver and counts flushes.
type countingMPU struct {
	*mk66mpu.MPU
	flushes int
}

func (c *countingMPU) ConfigureMPU(cfg *mk66mpu.ProcessConfig) {
	c.flushes++
	c.MPU.ConfigureMPU(cfg)
}

func newTestManager() (*Manager, *countingMPU, *mk66mpu.RegFile) {
	rf := mk66mpu.NewRegFile()
	m := &countingMPU{MPU: mk66mpu.New(rf, mk66mpu.Config{})}
	return NewManager(m, ramStart, ramSize), m, rf
}

func TestLoadLaysOutRegions(t *testing.T) {
	mg, m, _ := newTestManager()

	p, err := mg.Load("blink", basicLayout)
	require.NoError(t, err)
	assert.Equal(t, uint32(ramStart), p.MemoryStart())
	assert.Equal(t, uint32(0x800), p.MemorySize())
	assert.Equal(t, uint32(ramStart+0x400), p.AppBreak())
	assert.Equal(t, uint32(ramStart+0x400), p.KernelBreak())
	assert.Zero(t, m.flushes, "loading does not touch the hardware")

	flash, ok := p.Regions().Region(0)
	require.True(t, ok)
	assert.Equal(t, uint32(0x0004_0000), flash.Start())
	assert.Equal(t, uint32(0x0004_2000), flash.End())
	assert.Equal(t, uint32(0b101), flash.UserMode())

	app, ok := p.Regions().Region(mk66mpu.AppMemoryIndex)
	require.True(t, ok)
	assert.Equal(t, uint32(ramStart+0x400), app.End())

	start, size := mg.Free()
	assert.Equal(t, uint32(ramStart+0x800), start)
	assert.Equal(t, uint32(ramSize-0x800), size)
}

func TestLoadWithoutFlash(t *testing.T) {
	mg, _, _ := newTestManager()
	p, err := mg.Load("ram-only", Layout{AppMemory: 0x100, KernelMemory: 0x100})
	require.NoError(t, err)
	_, ok := p.Regions().Region(0)
	assert.False(t, ok)
}

func TestLoadRejectsWhenRAMExhausted(t *testing.T) {
	mg, _, _ := newTestManager()
	_, err := mg.Load("huge", Layout{MinMemory: ramSize + 0x20, AppMemory: 0x100})
	assert.True(t, errors.Is(err, mk66mpu.ErrCapacityExhausted))
	assert.Equal(t, errcode.CapacityExhausted, errcode.Of(err))

	start, _ := mg.Free()
	assert.Equal(t, uint32(ramStart), start, "failed load does not consume RAM")
}

func TestSwitchFlushesOncePerSwitch(t *testing.T) {
	mg, m, rf := newTestManager()

	a, err := mg.Load("a", basicLayout)
	require.NoError(t, err)
	b, err := mg.Load("b", Layout{AppMemory: 0x200, KernelMemory: 0x100})
	require.NoError(t, err)

	mg.Switch(a)
	assert.Equal(t, 1, m.flushes)
	assert.Same(t, a, mg.Active())
	assert.True(t, rf.Valid(1), "flash region of a")
	assert.True(t, rf.Valid(2), "memory of a")

	mg.Switch(b)
	assert.Equal(t, 2, m.flushes)
	assert.False(t, rf.Valid(1), "a's flash region must not survive the switch")
	assert.True(t, rf.Valid(2))
	assert.Equal(t, b.MemoryStart(), rf.Descriptor(2)[0])
}

func TestBrkGrowsAndReflushesActive(t *testing.T) {
	mg, m, rf := newTestManager()
	p, err := mg.Load("grow", Layout{MinMemory: 0x1000, AppMemory: 0x400, KernelMemory: 0x200})
	require.NoError(t, err)
	mg.Switch(p)
	flushes := m.flushes

	require.NoError(t, mg.Brk(p, p.MemoryStart()+0x900))
	assert.Equal(t, p.MemoryStart()+0x900, p.AppBreak())
	assert.Equal(t, flushes+1, m.flushes)
	assert.Equal(t, p.MemoryStart()+0x900-0x20, rf.Descriptor(2)[1])
}

func TestBrkInactiveDoesNotFlush(t *testing.T) {
	mg, m, _ := newTestManager()
	p, err := mg.Load("idle", Layout{MinMemory: 0x1000, AppMemory: 0x400, KernelMemory: 0x200})
	require.NoError(t, err)

	require.NoError(t, mg.Brk(p, p.MemoryStart()+0x500))
	assert.Zero(t, m.flushes)
}

func TestBrkIntoKernelMemoryIsOutOfMemory(t *testing.T) {
	mg, _, _ := newTestManager()
	p, err := mg.Load("greedy", basicLayout)
	require.NoError(t, err)

	err = mg.Brk(p, p.KernelBreak()+1)
	assert.Equal(t, errcode.OutOfMemory, errcode.Of(err))
	assert.True(t, errors.Is(err, mk66mpu.ErrGrowthExceedsKernelReserve))
	assert.Equal(t, uint32(ramStart+0x400), p.AppBreak(), "break unchanged")
}

func TestSbrk(t *testing.T) {
	mg, _, _ := newTestManager()
	p, err := mg.Load("s", Layout{MinMemory: 0x1000, AppMemory: 0x400, KernelMemory: 0x200})
	require.NoError(t, err)

	old, err := mg.Sbrk(p, 0x100)
	require.NoError(t, err)
	assert.Equal(t, p.MemoryStart()+0x400, old)
	assert.Equal(t, p.MemoryStart()+0x500, p.AppBreak())

	old, err = mg.Sbrk(p, -0x80)
	require.NoError(t, err)
	assert.Equal(t, p.MemoryStart()+0x500, old)
	assert.Equal(t, p.MemoryStart()+0x480, p.AppBreak())

	_, err = mg.Sbrk(p, 0x1000)
	assert.Equal(t, errcode.OutOfMemory, errcode.Of(err))
}

func TestAllocKernelStaysAboveProtectedPrefix(t *testing.T) {
	mg, _, _ := newTestManager()
	p, err := mg.Load("grant", Layout{MinMemory: 0x800, AppMemory: 0x400, KernelMemory: 0x100})
	require.NoError(t, err)
	kb := p.KernelBreak()
	require.Equal(t, p.MemoryStart()+0x700, kb)

	addr, err := mg.AllocKernel(p, 0x102)
	require.NoError(t, err)
	assert.Equal(t, kb-0x104, addr)
	assert.Equal(t, addr, p.KernelBreak())

	// Remaining gap down to the protected end at start+0x400.
	_, err = mg.AllocKernel(p, p.KernelBreak()-(p.MemoryStart()+0x400)+4)
	assert.Equal(t, errcode.OutOfMemory, errcode.Of(err))

	// The app can no longer grow into what the kernel took.
	err = mg.Brk(p, kb)
	assert.Equal(t, errcode.OutOfMemory, errcode.Of(err))
}

func TestBrkBelowMemoryStartIsInvalid(t *testing.T) {
	mg, _, _ := newTestManager()
	p, err := mg.Load("shrink", basicLayout)
	require.NoError(t, err)

	err = mg.Brk(p, p.MemoryStart())
	assert.Equal(t, errcode.InvalidParams, errcode.Of(err))
	assert.Equal(t, uint32(ramStart+0x400), p.AppBreak(), "break unchanged")
}

func TestAllocKernelRejectsWrappingSize(t *testing.T) {
	mg, _, _ := newTestManager()
	p, err := mg.Load("wrap", basicLayout)
	require.NoError(t, err)
	kb := p.KernelBreak()

	for _, size := range []uint32{math.MaxUint32 - 2, math.MaxUint32 - 1, math.MaxUint32} {
		_, err := mg.AllocKernel(p, size)
		assert.Equal(t, errcode.OutOfMemory, errcode.Of(err), "size %#x", size)
	}
	assert.Equal(t, kb, p.KernelBreak(), "kernel break unchanged")
}

func TestNewManagerClipsAtAddressSpaceTop(t *testing.T) {
	rf := mk66mpu.NewRegFile()
	mg := NewManager(mk66mpu.New(rf, mk66mpu.Config{}), 0xF000_0000, 0x2000_0000)

	start, size := mg.Free()
	assert.Equal(t, uint32(0xF000_0000), start)
	assert.Equal(t, uint32(math.MaxUint32-0xF000_0000), size)
}
