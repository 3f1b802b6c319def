package mk66mpu

import "mk66-mpu/errcode"

const (
	// NumRegions is the number of slots a process may use. Descriptor 0 is
	// held by the reset-default mapping, so logical index i lives in
	// descriptor i+1.
	NumRegions = NumDescriptors - 1

	// AppMemoryIndex holds the growable application memory region.
	AppMemoryIndex = 1
)

// RegionClass tells ordinary slots from the reserved app memory slot.
type RegionClass uint8

const (
	RegionOrdinary RegionClass = iota
	RegionAppMemory
)

type slot struct {
	region Region
	used   bool
}

// ProcessConfig is the region table of one process. The zero value is an
// empty table ready for allocation.
type ProcessConfig struct {
	slots [NumRegions]slot

	// Full span reserved for app memory, protected prefix plus kernel tail.
	memStart uint32
	memSize  uint32
	hasMem   bool
}

// Class returns the class of a logical index.
func (c *ProcessConfig) Class(index int) RegionClass {
	if index == AppMemoryIndex {
		return RegionAppMemory
	}
	return RegionOrdinary
}

// FirstFreeIndex returns the lowest empty ordinary slot.
func (c *ProcessConfig) FirstFreeIndex() (int, bool) {
	for i := range c.slots {
		if c.Class(i) == RegionAppMemory {
			continue
		}
		if !c.slots[i].used {
			return i, true
		}
	}
	return 0, false
}

// Region returns the region stored at index, if any.
func (c *ProcessConfig) Region(index int) (Region, bool) {
	if index < 0 || index >= NumRegions {
		return Region{}, false
	}
	s := c.slots[index]
	return s.region, s.used
}

// Memory returns the recorded app memory span.
func (c *ProcessConfig) Memory() (start, size uint32, ok bool) {
	return c.memStart, c.memSize, c.hasMem
}

// Set stores r at an ordinary index. The app memory slot is written only
// by the allocator.
func (c *ProcessConfig) Set(index int, r Region) error {
	if index < 0 || index >= NumRegions || c.Class(index) != RegionOrdinary {
		return errcode.InvalidParams
	}
	c.slots[index] = slot{region: r, used: true}
	return nil
}

// Clear empties index. Clearing the app memory slot also drops the span
// bookkeeping.
func (c *ProcessConfig) Clear(index int) error {
	if index < 0 || index >= NumRegions {
		return errcode.InvalidParams
	}
	c.slots[index] = slot{}
	if index == AppMemoryIndex {
		c.memStart, c.memSize, c.hasMem = 0, 0, false
	}
	return nil
}

// Reset empties the table, as on process teardown.
func (c *ProcessConfig) Reset() { *c = ProcessConfig{} }

func (c *ProcessConfig) setAppMemory(r Region, memStart, memSize uint32) {
	c.slots[AppMemoryIndex] = slot{region: r, used: true}
	c.memStart, c.memSize, c.hasMem = memStart, memSize, true
}

func (c *ProcessConfig) setAppRegion(r Region) {
	c.slots[AppMemoryIndex] = slot{region: r, used: true}
}
