package mk66mpu

// Permission is the access a process is granted to a region.
type Permission uint8

const (
	ReadWriteExecute Permission = iota
	ReadWriteOnly
	ReadExecuteOnly
	ReadOnly
	ExecuteOnly
)

func (p Permission) String() string {
	switch p {
	case ReadWriteExecute:
		return "rwx"
	case ReadWriteOnly:
		return "rw-"
	case ReadExecuteOnly:
		return "r-x"
	case ReadOnly:
		return "r--"
	case ExecuteOnly:
		return "--x"
	default:
		return "---"
	}
}

// userMode returns the 3-bit UM code (read, write, execute from msb).
func (p Permission) userMode() uint32 {
	switch p {
	case ReadWriteExecute:
		return 0b111
	case ReadWriteOnly:
		return 0b110
	case ReadExecuteOnly:
		return 0b101
	case ReadOnly:
		return 0b100
	case ExecuteOnly:
		return 0b001
	default:
		return 0
	}
}

// Region is one protected span [start, end). Both bounds are 32-byte
// aligned; the allocator is the only producer.
type Region struct {
	start uint32
	end   uint32 // exclusive; the descriptor holds end-1
	perms uint32
}

func newRegion(start, end uint32, p Permission) Region {
	return Region{start: start, end: end, perms: p.userMode()}
}

func (r Region) Start() uint32 { return r.start }
func (r Region) End() uint32   { return r.end }
func (r Region) Size() uint32  { return r.end - r.start }

// UserMode is the encoded 3-bit user permission.
func (r Region) UserMode() uint32 { return r.perms }
