package mk66mpu

// AccessType is the EDR.EATTR attribute of a faulting access.
type AccessType uint8

const (
	UserInstruction AccessType = iota
	UserData
	SupervisorInstruction
	SupervisorData
)

func (a AccessType) String() string {
	switch a {
	case UserInstruction:
		return "user-instr"
	case UserData:
		return "user-data"
	case SupervisorInstruction:
		return "super-instr"
	case SupervisorData:
		return "super-data"
	default:
		return "reserved"
	}
}

// Fault is one captured access violation, decoded from a slave port's
// error address and detail registers.
type Fault struct {
	Port    int
	Address uint32
	Write   bool
	Attr    AccessType
	Master  uint8
	PID     uint8
	// AccessControl has one bit per region descriptor that matched the
	// access and denied it (EACD).
	AccessControl uint16
}

// Faults appends the captured error record of every slave port whose error
// flag is set. The flags stay set until ClearFaults.
func (m *MPU) Faults(dst []Fault) []Fault {
	cesr := m.regs.Load32(regCESR)
	for port := 0; port < NumSlavePorts; port++ {
		if cesr&spErrBit(port) == 0 {
			continue
		}
		edr := m.regs.Load32(edrOffset(port))
		dst = append(dst, Fault{
			Port:          port,
			Address:       m.regs.Load32(earOffset(port)),
			Write:         edr&edrERW != 0,
			Attr:          AccessType(field(edr, edrEATTRPos, edrEATTRMask)),
			Master:        uint8(field(edr, edrEMNPos, edrEMNMask)),
			PID:           uint8(field(edr, edrEPIDPos, edrEPIDMask)),
			AccessControl: uint16(field(edr, edrEACDPos, edrEACDMask)),
		})
	}
	return dst
}

// ClearFaults acknowledges the error flags that are currently set. A flag
// raised after the read is left for the next call.
func (m *MPU) ClearFaults() {
	cesr := m.regs.Load32(regCESR)
	if cesr&cesrSPERRMask == 0 {
		return
	}
	m.regs.Store32(regCESR, cesr)
}

// HardwareRevision returns CESR.HRL.
func (m *MPU) HardwareRevision() uint8 {
	return uint8(field(m.regs.Load32(regCESR), cesrHRLPos, cesrHRLMask))
}

// SlavePorts returns CESR.NSP.
func (m *MPU) SlavePorts() uint8 {
	return uint8(field(m.regs.Load32(regCESR), cesrNSPPos, cesrNSPMask))
}
