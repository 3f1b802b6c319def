//go:build tinygo && teensy36

package main

import (
	"machine"
	"time"

	"mk66-mpu/drivers/mk66mpu"
	"mk66-mpu/services/procmem"
)

// RAM above the kernel's first 64 KiB is handed to processes.
const (
	procRAMStart = 0x2000_0000
	procRAMSize  = 0x0002_0000
)

var demo = procmem.Layout{
	FlashStart:   0x0008_0000,
	FlashSize:    0x0001_0000,
	MinMemory:    0x2000,
	AppMemory:    0x1000,
	KernelMemory: 0x0800,
}

func main() {
	// Allow USB CDC to enumerate before we print.
	time.Sleep(2 * time.Second)
	println("boot")

	mpu := mk66mpu.New(mk66mpu.NewMMIO(mk66mpu.BaseAddress), mk66mpu.Config{})
	n, err := mpu.NumberTotalRegions()
	if err != nil {
		panic(err.Error())
	}
	println("mpu: rev", mpu.HardwareRevision(), "regions", n, "ports", mpu.SlavePorts())

	mg := procmem.NewManager(mpu, procRAMStart, procRAMSize)
	p, err := mg.Load("demo", demo)
	if err != nil {
		println("mpu: load failed:", err.Error())
	} else {
		mg.Switch(p)
		mpu.EnableMPU()
	}

	rep := mk66mpu.NewReporter(machine.UART0)
	var faults [mk66mpu.NumSlavePorts]mk66mpu.Fault

	// Periodic fault poll.
	tick := time.NewTicker(1 * time.Second)
	defer tick.Stop()

	for t := range tick.C {
		if fs := mpu.Faults(faults[:0]); len(fs) > 0 {
			_ = rep.ReportAll(fs)
			mpu.ClearFaults()
		}
		println(t.Format("15:04:05"), "Heartbeat")
	}
}
