// Package mk66mpu provides constants for register offsets and bitfields of the
// K66 system memory protection unit (SYSMPU).
//
// Layout per section 22.4 of the K66 reference manual (K66P144M180SF5RMV2).
package mk66mpu

const (
	// BaseAddress of the SYSMPU block in the K66 memory map.
	BaseAddress = 0x4000_D000

	// Region descriptors implemented by the K66 (CESR.NRGD = Twelve).
	NumDescriptors = 12
	// Error address/detail pairs, one per slave port.
	NumSlavePorts = 5

	// --- Register offsets from BaseAddress ---

	regCESR = 0x000 // control/error status

	regEAR0     = 0x010 // error address, slave port 0
	regEDR0     = 0x014 // error detail, slave port 0
	errorStride = 0x8

	regRGD0    = 0x400 // region descriptor 0, word 0
	rgdStride  = 0x10
	regRGDAAC0 = 0x800 // alternate access control 0
	aacStride  = 0x4

	// Size of the mapped block in bytes.
	blockSize = regRGDAAC0 + NumDescriptors*aacStride
)

// --- CESR fields ---
const (
	cesrSPERRPos  = 27 // SP4ERR..SP0ERR occupy bits 27..31, port 0 highest
	cesrSPERRMask = 0x1F << cesrSPERRPos

	cesrHRLPos   = 16
	cesrHRLMask  = 0xF
	cesrNSPPos   = 12
	cesrNSPMask  = 0xF
	cesrNRGDPos  = 8
	cesrNRGDMask = 0xF

	cesrVLD = 1 << 0
)

// NRGD encodings.
const (
	nrgdEight   = 0
	nrgdTwelve  = 1
	nrgdSixteen = 2
)

// --- EDR fields ---
const (
	edrEACDPos   = 16
	edrEACDMask  = 0xFFFF
	edrEPIDPos   = 8
	edrEPIDMask  = 0xFF
	edrEMNPos    = 4
	edrEMNMask   = 0xF
	edrEATTRPos  = 1
	edrEATTRMask = 0x7
	edrERW       = 1 << 0
)

// --- RGD word0/word1: 27-bit address field, 5-bit shift ---
const (
	addrShift = 5
	addrMask  = 0x07FF_FFFF
)

// --- RGD word2 (and RGDAAC): access control ---
//
// Masters 0..3 each carry UM(3) SM(2) PE(1) starting at bit 6*n.
// Masters 4..7 carry only WE/RE pairs from bit 24 upward.
// SM encodes 0=rwx 1=r-x 2=rw- 3=same as UM; only rwx is written.
const (
	umMask        = 0x7
	smPos         = 3
	smMask        = 0x3
	masterStride  = 6
	maxFullMaster = 3

	smReadWriteExecute = 0
)

// --- RGD word3: PID(31:24) PIDMASK(23:16) unused ---
const w3VLD = 1 << 0

func earOffset(port int) uint32 { return regEAR0 + uint32(port)*errorStride }
func edrOffset(port int) uint32 { return regEDR0 + uint32(port)*errorStride }

func rgdOffset(desc, word int) uint32 {
	return regRGD0 + uint32(desc)*rgdStride + uint32(word)*4
}

func aacOffset(desc int) uint32 { return regRGDAAC0 + uint32(desc)*aacStride }

// spErrBit is the CESR error flag of a slave port.
func spErrBit(port int) uint32 { return 1 << (31 - uint(port)) }
