// cmd/mpu-selftest/main.go
package main

import (
	"errors"
	"fmt"
	"os"

	"mk66-mpu/drivers/mk66mpu"
	"mk66-mpu/errcode"
	"mk66-mpu/services/procmem"
)

// ---------- Configuration ----------

// Teensy 3.6 memory map (K66, 1 MiB flash, 256 KiB SRAM).
const (
	ramStart = 0x1FFF_0000
	ramSize  = 0x0004_0000

	// First process image and the kernel's share of RAM.
	appFlashStart = 0x0004_0000
	kernelRAM     = 0x0001_0000
)

var layouts = []struct {
	name string
	ly   procmem.Layout
}{
	{"blink", procmem.Layout{FlashStart: appFlashStart, FlashSize: 0x4000, MinMemory: 0x1000, AppMemory: 0x800, KernelMemory: 0x400}},
	{"console", procmem.Layout{FlashStart: appFlashStart + 0x4000, FlashSize: 0x8000, MinMemory: 0x2000, AppMemory: 0x1000, KernelMemory: 0x800}},
}

// ---------- Output ----------

type out struct {
	failed int
}

func (o *out) println(a ...any) { fmt.Println(a...) }

func (o *out) check(name string, err error) {
	if err != nil {
		o.failed++
		fmt.Printf("[selftest] FAIL %-28s %v\n", name, err)
		return
	}
	fmt.Printf("[selftest] ok   %s\n", name)
}

func (o *out) dump(rf *mk66mpu.RegFile) {
	for d := 0; d < mk66mpu.NumDescriptors; d++ {
		w := rf.Descriptor(d)
		fmt.Printf("  rgd%-2d %08X %08X %08X %08X valid=%t\n", d, w[0], w[1], w[2], w[3], rf.Valid(d))
	}
}

// ---------- Checks ----------

func checkRegionCount(m *mk66mpu.MPU) error {
	n, err := m.NumberTotalRegions()
	if err != nil {
		return err
	}
	if n != mk66mpu.NumDescriptors {
		return fmt.Errorf("got %d regions, want %d", n, mk66mpu.NumDescriptors)
	}
	return nil
}

func checkTableFull(m *mk66mpu.MPU) error {
	var cfg mk66mpu.ProcessConfig
	next := uint32(ramStart)
	for i := 0; i < mk66mpu.NumRegions-1; i++ {
		s, sz, err := m.AllocateRegion(next, 1<<20, 32, mk66mpu.ReadOnly, &cfg)
		if err != nil {
			return fmt.Errorf("allocation %d: %w", i, err)
		}
		next = s + sz
	}
	_, _, err := m.AllocateRegion(next, 1<<20, 32, mk66mpu.ReadOnly, &cfg)
	if !errors.Is(err, mk66mpu.ErrTableFull) {
		return fmt.Errorf("11th allocation: got %v, want %v", err, mk66mpu.ErrTableFull)
	}
	return nil
}

func checkProcesses(o *out, m *mk66mpu.MPU, rf *mk66mpu.RegFile) error {
	mg := procmem.NewManager(m, ramStart+kernelRAM, ramSize-kernelRAM)

	var procs []*procmem.Process
	for _, l := range layouts {
		p, err := mg.Load(l.name, l.ly)
		if err != nil {
			return err
		}
		o.println(fmt.Sprintf("  %-8s mem=%08X+%05X app_brk=%08X kernel_brk=%08X",
			p.Name, p.MemoryStart(), p.MemorySize(), p.AppBreak(), p.KernelBreak()))
		procs = append(procs, p)
	}

	for _, p := range procs {
		mg.Switch(p)
		if !rf.Valid(1) || !rf.Valid(1+mk66mpu.AppMemoryIndex) {
			return fmt.Errorf("%s: regions not valid after switch", p.Name)
		}
		o.dump(rf)
	}

	// Active process grows, then overreaches.
	p := mg.Active()
	if err := mg.Brk(p, p.AppBreak()+0x100); err != nil {
		return err
	}
	err := mg.Brk(p, p.KernelBreak()+1)
	if errcode.Of(err) != errcode.OutOfMemory {
		return fmt.Errorf("overreaching brk: got %v, want %s", err, errcode.OutOfMemory)
	}
	return nil
}

// ---------- Main ----------

func main() {
	var o out

	rf := mk66mpu.NewRegFile()
	m := mk66mpu.New(rf, mk66mpu.Config{})

	o.println("[selftest] SYSMPU host self-test")
	o.check("region count", checkRegionCount(m))
	o.check("table full", checkTableFull(m))

	m.DisableMPU()
	o.check("processes", checkProcesses(&o, m, rf))
	m.EnableMPU()
	if !m.Enabled() {
		o.check("enable", errors.New("valid bit not set"))
	}

	if o.failed > 0 {
		fmt.Printf("[selftest] %d check(s) failed\n", o.failed)
		os.Exit(1)
	}
	o.println("[selftest] all checks passed")
}
